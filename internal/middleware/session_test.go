package middleware_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ernous/BoxChat/internal/middleware"
	"github.com/Ernous/BoxChat/internal/storage/memory"
)

func newSecret(t *testing.T) (raw []byte, encoded string) {
	t.Helper()
	raw = make([]byte, 32)
	_, err := rand.Read(raw)
	require.NoError(t, err)
	return raw, base64.StdEncoding.EncodeToString(raw)
}

func sign(secret []byte, method, path, body, timestamp string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(method + path + body + timestamp))
	return hex.EncodeToString(mac.Sum(nil))
}

func echoUserID(t *testing.T) http.Handler {
	t.Helper()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, middleware.GetUserID(r.Context()))
	})
}

func TestSessionAuthAcceptsSignedRequest(t *testing.T) {
	store := memory.New()
	secret, encoded := newSecret(t)
	require.NoError(t, store.SetSession(context.Background(), "sess-1", "user-1", encoded))

	body := `{"content":"hi"}`
	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodPost, "/api/channels/ch-1/messages", bytes.NewBufferString(body))
	req.Header.Set("X-Session-Id", "sess-1")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sign(secret, http.MethodPost, "/api/channels/ch-1/messages", body, ts))

	rec := httptest.NewRecorder()
	middleware.SessionAuth(store)(echoUserID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestSessionAuthAcceptsQueryParams(t *testing.T) {
	store := memory.New()
	secret, encoded := newSecret(t)
	require.NoError(t, store.SetSession(context.Background(), "sess-1", "user-1", encoded))

	ts := fmt.Sprintf("%d", time.Now().Unix())
	sig := sign(secret, http.MethodGet, "/ws", "", ts)
	req := httptest.NewRequest(http.MethodGet, "/ws?session_id=sess-1&timestamp="+ts+"&signature="+sig, nil)

	rec := httptest.NewRecorder()
	middleware.SessionAuth(store)(echoUserID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "user-1", rec.Body.String())
}

func TestSessionAuthRejectsBadSignature(t *testing.T) {
	store := memory.New()
	_, encoded := newSecret(t)
	require.NoError(t, store.SetSession(context.Background(), "sess-1", "user-1", encoded))

	other := make([]byte, 32)
	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("X-Session-Id", "sess-1")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sign(other, http.MethodGet, "/api/rooms", "", ts))

	rec := httptest.NewRecorder()
	middleware.SessionAuth(store)(echoUserID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRejectsStaleTimestamp(t *testing.T) {
	store := memory.New()
	secret, encoded := newSecret(t)
	require.NoError(t, store.SetSession(context.Background(), "sess-1", "user-1", encoded))

	ts := fmt.Sprintf("%d", time.Now().Add(-2*middleware.TimestampSkew).Unix())
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("X-Session-Id", "sess-1")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sign(secret, http.MethodGet, "/api/rooms", "", ts))

	rec := httptest.NewRecorder()
	middleware.SessionAuth(store)(echoUserID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRejectsUnknownSession(t *testing.T) {
	store := memory.New()
	secret := make([]byte, 32)

	ts := fmt.Sprintf("%d", time.Now().Unix())
	req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
	req.Header.Set("X-Session-Id", "missing")
	req.Header.Set("X-Timestamp", ts)
	req.Header.Set("X-Signature", sign(secret, http.MethodGet, "/api/rooms", "", ts))

	rec := httptest.NewRecorder()
	middleware.SessionAuth(store)(echoUserID(t)).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSessionAuthRevokedUserSessions(t *testing.T) {
	store := memory.New()
	secret, encoded := newSecret(t)
	require.NoError(t, store.SetSession(context.Background(), "sess-1", "user-1", encoded))
	require.NoError(t, store.SetSession(context.Background(), "sess-2", "user-1", encoded))
	require.NoError(t, store.DeleteUserSessions(context.Background(), "user-1"))

	ts := fmt.Sprintf("%d", time.Now().Unix())
	for _, id := range []string{"sess-1", "sess-2"} {
		req := httptest.NewRequest(http.MethodGet, "/api/rooms", nil)
		req.Header.Set("X-Session-Id", id)
		req.Header.Set("X-Timestamp", ts)
		req.Header.Set("X-Signature", sign(secret, http.MethodGet, "/api/rooms", "", ts))

		rec := httptest.NewRecorder()
		middleware.SessionAuth(store)(echoUserID(t)).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, id)
	}
}
