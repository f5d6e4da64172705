package permission

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ernous/BoxChat/internal/model"
)

func snap(roomType model.RoomType, role model.MemberRole) *Snapshot {
	return &Snapshot{
		RoomID:       "room-1",
		RoomType:     roomType,
		OwnerID:      "owner-1",
		UserID:       "user-1",
		MemberRole:   role,
		Roles:        map[string]model.Role{},
		HeldRoleIDs:  map[string]struct{}{},
		MentionEdges: map[string]map[string]struct{}{},
	}
}

func TestCanPost(t *testing.T) {
	assert.True(t, snap(model.RoomTypeServer, model.MemberRoleMember).CanPost())
	assert.False(t, snap(model.RoomTypeServer, "").CanPost())

	banned := snap(model.RoomTypeServer, model.MemberRoleMember)
	banned.Banned = true
	assert.False(t, banned.CanPost())
}

func TestCanPostBroadcast(t *testing.T) {
	assert.False(t, snap(model.RoomTypeBroadcast, model.MemberRoleMember).CanPost())
	assert.True(t, snap(model.RoomTypeBroadcast, model.MemberRoleAdmin).CanPost())
	assert.True(t, snap(model.RoomTypeBroadcast, model.MemberRoleOwner).CanPost())
}

func TestCanMentionRole(t *testing.T) {
	open := model.Role{ID: "r-open", MentionTag: "helpers", CanBeMentionedByEveryone: true}
	closed := model.Role{ID: "r-closed", MentionTag: "mods"}
	held := model.Role{ID: "r-held", MentionTag: "team"}

	s := snap(model.RoomTypeServer, model.MemberRoleMember)
	s.Roles = map[string]model.Role{open.ID: open, closed.ID: closed, held.ID: held}
	s.HeldRoleIDs = map[string]struct{}{held.ID: {}}

	assert.True(t, s.CanMentionRole(open.ID), "everyone flag opens the role")
	assert.False(t, s.CanMentionRole(closed.ID), "no edge, no flag")
	assert.False(t, s.CanMentionRole("missing"))

	s.MentionEdges = map[string]map[string]struct{}{
		closed.ID: {held.ID: {}},
	}
	assert.True(t, s.CanMentionRole(closed.ID), "edge from a held role grants it")

	admin := snap(model.RoomTypeServer, model.MemberRoleAdmin)
	admin.Roles = s.Roles
	assert.True(t, admin.CanMentionRole(closed.ID), "moderators mention anything")

	outsider := snap(model.RoomTypeServer, "")
	outsider.Roles = s.Roles
	assert.False(t, outsider.CanMentionRole(open.ID))
}

func TestCanDeleteMessage(t *testing.T) {
	member := snap(model.RoomTypeServer, model.MemberRoleMember)
	assert.True(t, member.CanDeleteMessage("user-1"))
	assert.False(t, member.CanDeleteMessage("someone-else"))

	admin := snap(model.RoomTypeServer, model.MemberRoleAdmin)
	assert.True(t, admin.CanDeleteMessage("someone-else"))
}

func TestCanEditMessage(t *testing.T) {
	admin := snap(model.RoomTypeServer, model.MemberRoleAdmin)
	assert.True(t, admin.CanEditMessage("user-1"))
	assert.False(t, admin.CanEditMessage("someone-else"), "admins never edit others' messages")
}

func TestCanKick(t *testing.T) {
	owner := snap(model.RoomTypeServer, model.MemberRoleOwner)
	assert.True(t, owner.CanKick(model.MemberRoleAdmin, "user-2"))
	assert.False(t, owner.CanKick(model.MemberRoleOwner, "user-1"), "never self")

	admin := snap(model.RoomTypeServer, model.MemberRoleAdmin)
	assert.True(t, admin.CanKick(model.MemberRoleMember, "user-2"))
	assert.False(t, admin.CanKick(model.MemberRoleAdmin, "user-2"), "admins cannot kick admins")

	member := snap(model.RoomTypeServer, model.MemberRoleMember)
	assert.False(t, member.CanKick(model.MemberRoleMember, "user-2"))
}

func TestCanDeleteRoom(t *testing.T) {
	owner := snap(model.RoomTypeServer, model.MemberRoleOwner)
	owner.UserID = "owner-1"
	assert.True(t, owner.CanDeleteRoom())

	admin := snap(model.RoomTypeServer, model.MemberRoleAdmin)
	assert.False(t, admin.CanDeleteRoom())
}

func TestRoleByTag(t *testing.T) {
	s := snap(model.RoomTypeServer, model.MemberRoleMember)
	s.Roles = map[string]model.Role{
		"r-1": {ID: "r-1", MentionTag: "everyone"},
		"r-2": {ID: "r-2", MentionTag: "admin"},
	}
	role, ok := s.RoleByTag("admin")
	assert.True(t, ok)
	assert.Equal(t, "r-2", role.ID)

	_, ok = s.RoleByTag("nope")
	assert.False(t, ok)
}

func TestNormalizeTag(t *testing.T) {
	assert.Equal(t, "moderators", NormalizeTag("  Moderators "))
	assert.Equal(t, "team_leads", NormalizeTag("Team Leads"))
	assert.Equal(t, "team_a-1", NormalizeTag("Team_A-1!"))
	assert.Equal(t, "", NormalizeTag("@#$%"))

	long := NormalizeTag("aaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaaa")
	assert.Len(t, long, 60)
}
