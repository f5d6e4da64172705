package ws

import (
	"time"

	"github.com/Ernous/BoxChat/internal/model"
)

type EventType string

// Inbound event types.
const (
	EventJoin        EventType = "join"
	EventLeave       EventType = "leave"
	EventSendMessage EventType = "send_message"
	EventMarkRead    EventType = "mark_read"
	EventTyping      EventType = "typing"
)

// Outbound event types.
const (
	EventReceiveMessage    EventType = "receive_message"
	EventMessageEdited     EventType = "message_edited"
	EventMessageDeleted    EventType = "message_deleted"
	EventReactionsUpdated  EventType = "reactions_updated"
	EventReadStatusUpdated EventType = "read_status_updated"
	EventNewDM             EventType = "new_dm_created"
	EventMemberJoined      EventType = "member_joined"
	EventMemberLeft        EventType = "member_left"
	EventRoomDeleted       EventType = "room_deleted"
	EventChannelDeleted    EventType = "channel_deleted"
	EventUserStatus        EventType = "user_status"
	EventMention           EventType = "mention"
	EventJoined            EventType = "joined"
	EventError             EventType = "error"
)

// Topic naming. Channel topics carry message traffic, user topics carry
// events addressed to one account regardless of which channel is open.
func ChannelTopic(channelID string) string { return "channel:" + channelID }
func UserTopic(userID string) string       { return "user:" + userID }

// IncomingMessage is what the client sends to the server.
type IncomingMessage struct {
	Type      EventType `json:"type"`
	ChannelID string    `json:"channel_id,omitempty"`
	Content   string    `json:"content,omitempty"`

	MessageType model.MessageType `json:"message_type,omitempty"`
	FileURL     string            `json:"file_url,omitempty"`
	FileName    string            `json:"file_name,omitempty"`
	FileSize    int64             `json:"file_size,omitempty"`

	// For mark_read.
	MessageID int64 `json:"message_id,omitempty"`
}

// OutgoingMessage is what the server sends to the client. Payload uses typed
// structs to avoid heap-heavy map[string]any.
type OutgoingMessage struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

type MessageEditedPayload struct {
	MessageID int64     `json:"message_id"`
	ChannelID string    `json:"channel_id"`
	Content   string    `json:"content"`
	EditedAt  time.Time `json:"edited_at"`
}

type MessageDeletedPayload struct {
	MessageID int64  `json:"message_id"`
	ChannelID string `json:"channel_id"`
}

// ReactionsUpdatedPayload carries the full regrouped reaction state of the
// message so clients replace instead of patching.
type ReactionsUpdatedPayload struct {
	MessageID int64               `json:"message_id"`
	ChannelID string              `json:"channel_id"`
	Reactions map[string][]string `json:"reactions"`
}

type ReadStatusPayload struct {
	ChannelID         string `json:"channel_id"`
	UserID            string `json:"user_id"`
	LastReadMessageID int64  `json:"last_read_message_id"`
}

type TypingPayload struct {
	ChannelID string `json:"channel_id"`
	UserID    string `json:"user_id"`
}

type UserStatusPayload struct {
	UserID string               `json:"user_id"`
	Status model.PresenceStatus `json:"status"`
}

type MemberPayload struct {
	RoomID   string `json:"room_id"`
	UserID   string `json:"user_id"`
	Username string `json:"username,omitempty"`
}

type NewDMPayload struct {
	Room model.Room       `json:"room"`
	Peer model.UserPublic `json:"peer"`
}

type MentionPayload struct {
	ChannelID string `json:"channel_id"`
	MessageID int64  `json:"message_id"`
	RoleTag   string `json:"role_tag,omitempty"`
	FromUser  string `json:"from_user"`
}

type JoinedPayload struct {
	ChannelID string `json:"channel_id"`
}

type RoomDeletedPayload struct {
	RoomID string `json:"room_id"`
}

type ChannelDeletedPayload struct {
	RoomID    string `json:"room_id"`
	ChannelID string `json:"channel_id"`
}
