package model

import "time"

type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// Friendship is stored canonically with UserLowID < UserHighID so the pair is
// unique regardless of who initiated it.
type Friendship struct {
	UserLowID  string    `json:"user_low_id"`
	UserHighID string    `json:"user_high_id"`
	CreatedAt  time.Time `json:"created_at"`
}

// FriendshipPair normalizes two user ids into canonical (low, high) order.
func FriendshipPair(a, b string) (low, high string) {
	if a < b {
		return a, b
	}
	return b, a
}

type FriendRequest struct {
	ID          string              `json:"id"`
	FromUserID  string              `json:"from_user_id"`
	ToUserID    string              `json:"to_user_id"`
	Status      FriendRequestStatus `json:"status"`
	CreatedAt   time.Time           `json:"created_at"`
	RespondedAt *time.Time          `json:"responded_at,omitempty"`
}
