// Package push delivers Web Push notifications to subscribed browsers.
// Subscriptions live in Redis per user; delivery runs in-process.
package push

import (
	"context"
	"encoding/json"
	"time"

	webpush "github.com/SherClockHolmes/webpush-go"
	"github.com/redis/go-redis/v9"

	"github.com/Ernous/BoxChat/internal/logger"
)

const (
	redisKeyPrefix  = "push:subs:"
	subscriptionTTL = 90 * 24 * time.Hour
	maxSubsPerUser  = 10
)

type Subscription struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

type Notifier struct {
	redis *redis.Client
	vapid *webpush.Options
}

// NewNotifier builds a notifier. A nil vapid disables delivery; subscribe
// and unsubscribe keep working so clients can register ahead of key setup.
func NewNotifier(rdb *redis.Client, keys *VAPIDKeys, subscriber string) *Notifier {
	var opts *webpush.Options
	if keys != nil && keys.PublicKey != "" && keys.PrivateKey != "" {
		opts = &webpush.Options{
			Subscriber:      subscriber,
			VAPIDPublicKey:  keys.PublicKey,
			VAPIDPrivateKey: keys.PrivateKey,
			TTL:             60,
		}
	}
	return &Notifier{redis: rdb, vapid: opts}
}

func (n *Notifier) Subscribe(ctx context.Context, userID string, sub Subscription) error {
	raw, err := json.Marshal(sub)
	if err != nil {
		return err
	}
	key := redisKeyPrefix + userID

	// Drop an existing entry for the same endpoint, then append.
	list, err := n.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	kept := make([]any, 0, len(list)+1)
	for _, item := range list {
		var existing Subscription
		if json.Unmarshal([]byte(item), &existing) == nil && existing.Endpoint == sub.Endpoint {
			continue
		}
		kept = append(kept, item)
	}
	kept = append(kept, string(raw))
	if len(kept) > maxSubsPerUser {
		kept = kept[len(kept)-maxSubsPerUser:]
	}

	pipe := n.redis.Pipeline()
	pipe.Del(ctx, key)
	pipe.RPush(ctx, key, kept...)
	pipe.Expire(ctx, key, subscriptionTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (n *Notifier) Unsubscribe(ctx context.Context, userID, endpoint string) error {
	return n.removeSubscription(ctx, userID, endpoint)
}

// Notify sends the payload to every subscription of the user. Errors are
// logged, not returned: push delivery is best effort and callers fire it
// from a goroutine.
func (n *Notifier) Notify(ctx context.Context, userID, title, body string, data map[string]string) {
	if n.vapid == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	key := redisKeyPrefix + userID
	list, err := n.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.Errorf("push notify redis user=%s: %v", userID, err)
		return
	}
	if len(list) == 0 {
		return
	}

	payload, _ := json.Marshal(map[string]any{"title": title, "body": body, "data": data})
	for _, item := range list {
		var sub Subscription
		if json.Unmarshal([]byte(item), &sub) != nil || sub.Endpoint == "" {
			continue
		}
		wpSub := &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys:     webpush.Keys{P256dh: sub.Keys.P256dh, Auth: sub.Keys.Auth},
		}
		resp, err := webpush.SendNotificationWithContext(ctx, payload, wpSub, n.vapid)
		if err != nil {
			logger.Errorf("push send %s: %v", truncEndpoint(sub.Endpoint), err)
			continue
		}
		resp.Body.Close()
		// Gone endpoints are pruned so the list does not accumulate junk.
		if resp.StatusCode == 410 || resp.StatusCode == 404 {
			if err := n.removeSubscription(ctx, userID, sub.Endpoint); err != nil {
				logger.Errorf("push prune %s: %v", truncEndpoint(sub.Endpoint), err)
			}
		}
	}
}

func (n *Notifier) removeSubscription(ctx context.Context, userID, endpoint string) error {
	key := redisKeyPrefix + userID
	list, err := n.redis.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		return err
	}
	kept := make([]any, 0, len(list))
	for _, item := range list {
		var sub Subscription
		if json.Unmarshal([]byte(item), &sub) == nil && sub.Endpoint == endpoint {
			continue
		}
		kept = append(kept, item)
	}
	pipe := n.redis.Pipeline()
	pipe.Del(ctx, key)
	if len(kept) > 0 {
		pipe.RPush(ctx, key, kept...)
		pipe.Expire(ctx, key, subscriptionTTL)
	}
	_, err = pipe.Exec(ctx)
	return err
}

func truncEndpoint(s string) string {
	if len(s) > 50 {
		return s[:50]
	}
	return s
}
