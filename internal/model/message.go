package model

import "time"

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeImage   MessageType = "image"
	MessageTypeFile    MessageType = "file"
	MessageTypeMusic   MessageType = "music"
	MessageTypeSticker MessageType = "sticker"
)

// Message id is a global BIGSERIAL: monotonically increasing across all
// channels, so ordering within a channel is just ORDER BY id.
type Message struct {
	ID          int64       `json:"id"`
	ChannelID   string      `json:"channel_id"`
	UserID      string      `json:"user_id,omitempty"` // empty after author deletion, if retained
	Content     string      `json:"content"`
	MessageType MessageType `json:"message_type"`
	FileURL     string      `json:"file_url,omitempty"`
	FileName    string      `json:"file_name,omitempty"`
	FileSize    int64       `json:"file_size,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
	EditedAt    *time.Time  `json:"edited_at,omitempty"`
	Author      *UserPublic `json:"author,omitempty"`

	// Reactions grouped for display: emoji -> usernames in insertion order.
	Reactions map[string][]string `json:"reactions,omitempty"`
}

type ReactionKind string

const (
	ReactionKindEmoji   ReactionKind = "emoji"
	ReactionKindSticker ReactionKind = "sticker"
)

type MessageReaction struct {
	MessageID int64        `json:"message_id"`
	UserID    string       `json:"user_id"`
	Emoji     string       `json:"emoji"`
	Kind      ReactionKind `json:"kind"`
	CreatedAt time.Time    `json:"created_at"`
}

// ReadMarker stores the highest message id a user has acknowledged in a
// channel. One row per (user, channel), monotonic upsert.
type ReadMarker struct {
	UserID            string    `json:"user_id"`
	ChannelID         string    `json:"channel_id"`
	LastReadMessageID int64     `json:"last_read_message_id"`
	LastReadAt        time.Time `json:"last_read_at"`
}
