package memory

import (
	"context"
	"sync"
	"time"
)

const sessionTTL = 30 * 24 * time.Hour

type session struct {
	userID string
	secret string
	exp    time.Time
}

type Client struct {
	mu       sync.RWMutex
	sessions map[string]session
}

func New() *Client {
	return &Client{sessions: make(map[string]session)}
}

func (c *Client) Close() error { return nil }

func (c *Client) SetSession(ctx context.Context, sessionID, userID, secret string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[sessionID] = session{userID: userID, secret: secret, exp: time.Now().Add(sessionTTL)}
	return nil
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (string, string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[sessionID]
	if !ok || time.Now().After(s.exp) {
		return "", "", nil
	}
	return s.userID, s.secret, nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, sessionID)
	return nil
}

func (c *Client) DeleteUserSessions(ctx context.Context, userID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id, s := range c.sessions {
		if s.userID == userID {
			delete(c.sessions, id)
		}
	}
	return nil
}
