// Package permission answers authorization questions for one acting user in
// one room. All checks are pure functions over a Snapshot loaded from
// storage, so the rules are testable without a database.
package permission

import (
	"strings"

	"github.com/Ernous/BoxChat/internal/model"
)

// Snapshot captures the acting user's standing in a room at load time.
type Snapshot struct {
	RoomID   string
	RoomType model.RoomType
	OwnerID  string
	UserID   string

	// MemberRole is empty when the user is not a member.
	MemberRole model.MemberRole
	Banned     bool

	// Roles holds every fine-grained role of the room, by role id.
	Roles map[string]model.Role
	// HeldRoleIDs are the fine-grained roles the acting user holds.
	HeldRoleIDs map[string]struct{}
	// MentionEdges maps target role id to the source role ids allowed to
	// mention it.
	MentionEdges map[string]map[string]struct{}
}

func (s *Snapshot) IsMember() bool {
	return s.MemberRole != "" && s.MemberRole != model.MemberRoleBanned && !s.Banned
}

// IsModerator reports owner or admin standing.
func (s *Snapshot) IsModerator() bool {
	return s.IsMember() && (s.MemberRole == model.MemberRoleOwner || s.MemberRole == model.MemberRoleAdmin)
}

// CanPost reports whether the user may write messages in the room's
// channels. Broadcast rooms accept posts from moderators only.
func (s *Snapshot) CanPost() bool {
	if !s.IsMember() {
		return false
	}
	if s.RoomType == model.RoomTypeBroadcast {
		return s.IsModerator()
	}
	return true
}

func (s *Snapshot) CanManageRoom() bool {
	return s.IsModerator()
}

func (s *Snapshot) CanManageChannels() bool {
	return s.IsModerator() && s.RoomType != model.RoomTypeDM
}

func (s *Snapshot) CanManageRoles() bool {
	return s.IsModerator() && s.RoomType != model.RoomTypeDM
}

func (s *Snapshot) CanDeleteRoom() bool {
	return s.IsMember() && s.UserID == s.OwnerID
}

// CanKick: owners may remove anyone but themselves, admins may remove plain
// members only.
func (s *Snapshot) CanKick(target model.MemberRole, targetUserID string) bool {
	if !s.IsModerator() || targetUserID == s.UserID {
		return false
	}
	if s.MemberRole == model.MemberRoleOwner {
		return true
	}
	return target == model.MemberRoleMember
}

// CanMentionRole implements the mention permission rules: moderators may
// mention any role, everyone may mention roles flagged
// can_be_mentioned_by_everyone, and otherwise one of the user's held roles
// must have an edge to the target.
func (s *Snapshot) CanMentionRole(targetRoleID string) bool {
	if !s.IsMember() {
		return false
	}
	role, ok := s.Roles[targetRoleID]
	if !ok {
		return false
	}
	if s.IsModerator() {
		return true
	}
	if role.CanBeMentionedByEveryone {
		return true
	}
	sources := s.MentionEdges[targetRoleID]
	for held := range s.HeldRoleIDs {
		if _, ok := sources[held]; ok {
			return true
		}
	}
	return false
}

// CanDeleteMessage: authors may delete their own messages, moderators may
// delete anyone's.
func (s *Snapshot) CanDeleteMessage(authorID string) bool {
	if !s.IsMember() {
		return false
	}
	return authorID == s.UserID || s.IsModerator()
}

// CanEditMessage: only the author, ever.
func (s *Snapshot) CanEditMessage(authorID string) bool {
	return s.IsMember() && authorID == s.UserID
}

// RoleByTag resolves a mention tag to the room role carrying it.
func (s *Snapshot) RoleByTag(tag string) (model.Role, bool) {
	for _, role := range s.Roles {
		if role.MentionTag == tag {
			return role, true
		}
	}
	return model.Role{}, false
}

const maxTagLen = 60

// NormalizeTag lowercases a mention tag, maps spaces to underscores and
// strips everything outside [a-z0-9_-], truncating to 60 characters. Returns
// "" when nothing survives.
func NormalizeTag(raw string) string {
	raw = strings.ToLower(strings.TrimSpace(raw))
	raw = strings.ReplaceAll(raw, " ", "_")
	var b strings.Builder
	for _, r := range raw {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	tag := b.String()
	if len(tag) > maxTagLen {
		tag = tag[:maxTagLen]
	}
	return tag
}
