package model

import "time"

type RoomType string

const (
	RoomTypeDM        RoomType = "dm"
	RoomTypeServer    RoomType = "server"
	RoomTypeBroadcast RoomType = "broadcast"
)

type MemberRole string

const (
	MemberRoleOwner  MemberRole = "owner"
	MemberRoleAdmin  MemberRole = "admin"
	MemberRoleMember MemberRole = "member"
	MemberRoleBanned MemberRole = "banned"
)

type Room struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        RoomType `json:"type"`
	IsPublic    bool     `json:"is_public"`
	OwnerID     string   `json:"owner_id,omitempty"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	InviteToken string   `json:"-"`
	// DMKey is the canonical "low:high" user pair for DM rooms, empty
	// otherwise. It identifies the DM even after a member hides it.
	DMKey     string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// DMPairKey builds the canonical DM key for two users.
func DMPairKey(a, b string) string {
	low, high := FriendshipPair(a, b)
	return low + ":" + high
}

type Channel struct {
	ID          string    `json:"id"`
	RoomID      string    `json:"room_id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	IconEmoji   string    `json:"icon_emoji,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type Member struct {
	RoomID   string     `json:"room_id"`
	UserID   string     `json:"user_id"`
	Role     MemberRole `json:"role"`
	JoinedAt time.Time  `json:"joined_at"`
}

// Role is a per-room tag layered on top of the coarse Member role,
// used for @tag mention permissioning.
type Role struct {
	ID                       string    `json:"id"`
	RoomID                   string    `json:"room_id"`
	Name                     string    `json:"name"`
	MentionTag               string    `json:"mention_tag"`
	IsSystem                 bool      `json:"is_system"`
	CanBeMentionedByEveryone bool      `json:"can_be_mentioned_by_everyone"`
	CreatedAt                time.Time `json:"created_at"`
}

// MemberRoleLink assigns a fine-grained Role to a user within a room.
type MemberRoleLink struct {
	UserID     string    `json:"user_id"`
	RoomID     string    `json:"room_id"`
	RoleID     string    `json:"role_id"`
	AssignedAt time.Time `json:"assigned_at"`
}

// RoleMentionPermission is a directed edge: holders of SourceRoleID may
// @-mention holders of TargetRoleID.
type RoleMentionPermission struct {
	RoomID       string    `json:"room_id"`
	SourceRoleID string    `json:"source_role_id"`
	TargetRoleID string    `json:"target_role_id"`
	CreatedAt    time.Time `json:"created_at"`
}

// RoomBan is kept separately from membership so a ban survives leave/rejoin.
type RoomBan struct {
	RoomID     string    `json:"room_id"`
	UserID     string    `json:"user_id"`
	BannedByID string    `json:"banned_by_id,omitempty"`
	Reason     string    `json:"reason,omitempty"`
	BannedAt   time.Time `json:"banned_at"`
}

// RoomWithUnread is a room enriched for the dashboard list.
type RoomWithUnread struct {
	Room        Room         `json:"room"`
	Role        MemberRole   `json:"role"`
	OtherUser   *UserPublic  `json:"other_user,omitempty"` // DM peer
	UnreadCount int          `json:"unread_count"`
}

// System role tags seeded on every room.
const (
	RoleTagEveryone = "everyone"
	RoleTagAdmin    = "admin"
)
