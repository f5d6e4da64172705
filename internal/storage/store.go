package storage

import (
	"context"
)

// SessionStore binds a session id to its owning user and the HMAC secret
// used to sign requests. Implementations: redis.Client, memory.Client
// (for -dev without Redis).
type SessionStore interface {
	SetSession(ctx context.Context, sessionID, userID, secret string) error
	GetSession(ctx context.Context, sessionID string) (userID, secret string, err error)
	DeleteSession(ctx context.Context, sessionID string) error
	// DeleteUserSessions revokes every session of the user. Used by the
	// account deletion cascade.
	DeleteUserSessions(ctx context.Context, userID string) error
	Close() error
}
