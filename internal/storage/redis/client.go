package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Sessions live 30 days; a signed request refreshes nothing, clients
// re-authenticate when the session expires.
const SessionTTL = 30 * 24 * time.Hour

type Client struct {
	cli *redis.Client
}

func New(ctx context.Context, url string) (*Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis parse url: %w", err)
	}
	cli := redis.NewClient(opts)
	if err := cli.Ping(ctx).Err(); err != nil {
		if closeErr := cli.Close(); closeErr != nil {
			return nil, fmt.Errorf("redis ping: %w (close: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return &Client{cli: cli}, nil
}

func (c *Client) Close() error {
	return c.cli.Close()
}

// Raw exposes the underlying client for components that need their own key
// layout (push subscriptions).
func (c *Client) Raw() *redis.Client {
	return c.cli
}

func sessionKey(sessionID string) string { return "session:" + sessionID }
func userSessionsKey(userID string) string {
	return "user_sessions:" + userID
}

func (c *Client) SetSession(ctx context.Context, sessionID, userID, secret string) error {
	pipe := c.cli.Pipeline()
	pipe.HSet(ctx, sessionKey(sessionID), "user", userID, "secret", secret)
	pipe.Expire(ctx, sessionKey(sessionID), SessionTTL)
	pipe.SAdd(ctx, userSessionsKey(userID), sessionID)
	pipe.Expire(ctx, userSessionsKey(userID), SessionTTL)
	_, err := pipe.Exec(ctx)
	return err
}

func (c *Client) GetSession(ctx context.Context, sessionID string) (string, string, error) {
	vals, err := c.cli.HGetAll(ctx, sessionKey(sessionID)).Result()
	if err != nil {
		return "", "", err
	}
	// Missing key yields an empty map, not redis.Nil.
	return vals["user"], vals["secret"], nil
}

func (c *Client) DeleteSession(ctx context.Context, sessionID string) error {
	userID, _, err := c.GetSession(ctx, sessionID)
	if err != nil {
		return err
	}
	pipe := c.cli.Pipeline()
	pipe.Del(ctx, sessionKey(sessionID))
	if userID != "" {
		pipe.SRem(ctx, userSessionsKey(userID), sessionID)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func (c *Client) DeleteUserSessions(ctx context.Context, userID string) error {
	ids, err := c.cli.SMembers(ctx, userSessionsKey(userID)).Result()
	if err != nil {
		return err
	}
	pipe := c.cli.Pipeline()
	for _, id := range ids {
		pipe.Del(ctx, sessionKey(id))
	}
	pipe.Del(ctx, userSessionsKey(userID))
	_, err = pipe.Exec(ctx)
	return err
}

// FlushDB clears the current Redis database (session reset in tests).
func (c *Client) FlushDB(ctx context.Context) error {
	return c.cli.FlushDB(ctx).Err()
}
