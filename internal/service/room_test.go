package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ernous/BoxChat/internal/mocks"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/permission"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/ws"
)

type roomFixture struct {
	rooms     *mocks.RoomStoreMock
	roles     *mocks.RoleStoreMock
	snapshots *mocks.SnapshotLoaderMock
	friends   *mocks.FriendStoreMock
	users     *mocks.UserGetterMock
	publisher *mocks.PublisherMock
	svc       *RoomService
}

func newRoomFixture() *roomFixture {
	f := &roomFixture{
		rooms:     new(mocks.RoomStoreMock),
		roles:     new(mocks.RoleStoreMock),
		snapshots: new(mocks.SnapshotLoaderMock),
		friends:   new(mocks.FriendStoreMock),
		users:     new(mocks.UserGetterMock),
		publisher: new(mocks.PublisherMock),
	}
	f.svc = NewRoomService(f.rooms, f.roles, f.snapshots, f.friends, f.users, f.publisher)
	return f
}

func TestCreateRoomBundlesDefaults(t *testing.T) {
	f := newRoomFixture()

	var gotChannel *model.Channel
	var gotMembers []model.Member
	var gotRoles []model.Role
	var gotLinks []model.MemberRoleLink
	f.rooms.On("CreateRoomBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotChannel = args.Get(2).(*model.Channel)
			gotMembers = args.Get(3).([]model.Member)
			gotRoles = args.Get(4).([]model.Role)
			gotLinks = args.Get(5).([]model.MemberRoleLink)
		}).Return(nil)

	room, err := f.svc.CreateRoom(context.Background(), "owner-1", "My Server", model.RoomTypeServer, true)
	require.NoError(t, err)
	assert.NotEmpty(t, room.ID)
	assert.True(t, room.IsPublic)
	assert.Equal(t, "owner-1", room.OwnerID)

	assert.Equal(t, "general", gotChannel.Name)
	assert.Equal(t, room.ID, gotChannel.RoomID)

	require.Len(t, gotMembers, 1)
	assert.Equal(t, model.MemberRoleOwner, gotMembers[0].Role)

	require.Len(t, gotRoles, 2)
	tags := []string{gotRoles[0].MentionTag, gotRoles[1].MentionTag}
	assert.ElementsMatch(t, []string{model.RoleTagEveryone, model.RoleTagAdmin}, tags)
	for _, r := range gotRoles {
		assert.True(t, r.IsSystem)
		// Seeded roles are never open to mentions by plain members.
		assert.False(t, r.CanBeMentionedByEveryone, r.MentionTag)
	}

	// Owner is linked to both system roles.
	require.Len(t, gotLinks, 2)
	for _, l := range gotLinks {
		assert.Equal(t, "owner-1", l.UserID)
	}
}

func TestCreateRoomRejectsDMType(t *testing.T) {
	f := newRoomFixture()
	_, err := f.svc.CreateRoom(context.Background(), "owner-1", "sneaky", model.RoomTypeDM, false)
	assert.ErrorIs(t, err, ErrInvalidState)
	f.rooms.AssertNotCalled(t, "CreateRoomBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateRoomRejectsEmptyName(t *testing.T) {
	f := newRoomFixture()
	_, err := f.svc.CreateRoom(context.Background(), "owner-1", "", model.RoomTypeServer, false)
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestGenerateInviteReturnsStableToken(t *testing.T) {
	f := newRoomFixture()
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleAdmin), nil)
	// The store keeps the first token ever written, whatever we offer it.
	f.rooms.On("SetInviteTokenIfEmpty", mock.Anything, "room-1", mock.AnythingOfType("string")).Return("stable-token", nil)

	first, err := f.svc.GenerateInvite(context.Background(), "user-1", "room-1")
	require.NoError(t, err)
	second, err := f.svc.GenerateInvite(context.Background(), "user-1", "room-1")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGenerateInviteRequiresModerator(t *testing.T) {
	f := newRoomFixture()
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)

	_, err := f.svc.GenerateInvite(context.Background(), "user-1", "room-1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestJoinByInviteUnknownToken(t *testing.T) {
	f := newRoomFixture()
	f.rooms.On("GetByInviteToken", mock.Anything, "bad").Return(nil, repository.ErrNotFound)

	_, err := f.svc.JoinByInvite(context.Background(), "user-1", "bad")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestJoinRejectsBanned(t *testing.T) {
	f := newRoomFixture()
	room := &model.Room{ID: "room-1", Type: model.RoomTypeServer, IsPublic: true}
	f.rooms.On("GetByID", mock.Anything, "room-1").Return(room, nil)
	f.rooms.On("IsBanned", mock.Anything, "room-1", "user-1").Return(true, nil)

	_, err := f.svc.JoinPublicRoom(context.Background(), "user-1", "room-1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	f.rooms.AssertNotCalled(t, "AddMemberWithDefaultRoles", mock.Anything, mock.Anything)
}

func TestJoinPublicRoomRejectsPrivate(t *testing.T) {
	f := newRoomFixture()
	f.rooms.On("GetByID", mock.Anything, "room-1").Return(&model.Room{ID: "room-1", Type: model.RoomTypeServer}, nil)

	_, err := f.svc.JoinPublicRoom(context.Background(), "user-1", "room-1")
	assert.ErrorIs(t, err, ErrNotPublic)
}

func TestJoinTwiceIsNoop(t *testing.T) {
	f := newRoomFixture()
	room := &model.Room{ID: "room-1", Type: model.RoomTypeServer, IsPublic: true}
	f.rooms.On("GetByID", mock.Anything, "room-1").Return(room, nil)
	f.rooms.On("IsBanned", mock.Anything, "room-1", "user-1").Return(false, nil)
	f.rooms.On("GetMember", mock.Anything, "room-1", "user-1").Return(&model.Member{RoomID: "room-1", UserID: "user-1", Role: model.MemberRoleMember}, nil)

	got, err := f.svc.JoinPublicRoom(context.Background(), "user-1", "room-1")
	require.NoError(t, err)
	assert.Equal(t, room, got)
	f.rooms.AssertNotCalled(t, "AddMemberWithDefaultRoles", mock.Anything, mock.Anything)
}

func TestJoinBroadcastsToMembers(t *testing.T) {
	f := newRoomFixture()
	room := &model.Room{ID: "room-1", Type: model.RoomTypeServer, IsPublic: true}
	f.rooms.On("GetByID", mock.Anything, "room-1").Return(room, nil)
	f.rooms.On("IsBanned", mock.Anything, "room-1", "user-1").Return(false, nil)
	f.rooms.On("GetMember", mock.Anything, "room-1", "user-1").Return(nil, repository.ErrNotFound)
	f.rooms.On("AddMemberWithDefaultRoles", mock.Anything, mock.AnythingOfType("*model.Member")).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.rooms.On("GetMemberIDs", mock.Anything, "room-1").Return([]string{"owner-1", "user-1"}, nil)
	f.publisher.On("Publish", ws.UserTopic("owner-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		return msg.Type == ws.EventMemberJoined
	})).Once()
	f.publisher.On("Publish", ws.UserTopic("user-1"), mock.Anything).Once()

	_, err := f.svc.JoinPublicRoom(context.Background(), "user-1", "room-1")
	require.NoError(t, err)
	f.publisher.AssertExpectations(t)
}

func TestLeaveRoomOwnerRejected(t *testing.T) {
	f := newRoomFixture()
	f.rooms.On("GetMember", mock.Anything, "room-1", "owner-1").Return(&model.Member{RoomID: "room-1", UserID: "owner-1", Role: model.MemberRoleOwner}, nil)

	err := f.svc.LeaveRoom(context.Background(), "owner-1", "room-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	f.rooms.AssertNotCalled(t, "RemoveMember", mock.Anything, mock.Anything, mock.Anything)
}

func TestKickAdminByAdminRejected(t *testing.T) {
	f := newRoomFixture()
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)
	f.rooms.On("GetMember", mock.Anything, "room-1", "admin-2").Return(&model.Member{RoomID: "room-1", UserID: "admin-2", Role: model.MemberRoleAdmin}, nil)

	err := f.svc.KickMember(context.Background(), "admin-1", "room-1", "admin-2")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDeleteRoomOwnerOnly(t *testing.T) {
	f := newRoomFixture()
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)

	err := f.svc.DeleteRoom(context.Background(), "admin-1", "room-1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestDeleteRoomNotifiesMembers(t *testing.T) {
	f := newRoomFixture()
	snap := memberSnapshotFor("owner-1", model.MemberRoleOwner)
	f.snapshots.On("Load", mock.Anything, "room-1", "owner-1").Return(snap, nil)
	f.rooms.On("GetMemberIDs", mock.Anything, "room-1").Return([]string{"owner-1", "user-2"}, nil)
	f.rooms.On("DeleteRoomCascade", mock.Anything, "room-1").Return(nil)
	f.publisher.On("Publish", ws.UserTopic("owner-1"), mock.Anything).Once()
	f.publisher.On("Publish", ws.UserTopic("user-2"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		return msg.Type == ws.EventRoomDeleted
	})).Once()

	err := f.svc.DeleteRoom(context.Background(), "owner-1", "room-1")
	require.NoError(t, err)
	f.publisher.AssertExpectations(t)
}

func TestDeleteLastChannelRejected(t *testing.T) {
	f := newRoomFixture()
	f.rooms.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1", Name: "general"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)
	f.rooms.On("ListRoomChannels", mock.Anything, "room-1").Return([]model.Channel{{ID: "ch-1"}}, nil)

	err := f.svc.DeleteChannel(context.Background(), "admin-1", "ch-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	f.rooms.AssertNotCalled(t, "DeleteChannelCascade", mock.Anything, mock.Anything)
}

func TestDeleteSystemRoleRejected(t *testing.T) {
	f := newRoomFixture()
	f.roles.On("GetByID", mock.Anything, "role-1").Return(&model.Role{ID: "role-1", RoomID: "room-1", MentionTag: model.RoleTagEveryone, IsSystem: true}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)

	err := f.svc.DeleteRole(context.Background(), "admin-1", "role-1")
	assert.ErrorIs(t, err, ErrInvalidState)
	f.roles.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCreateRoleNormalizesTag(t *testing.T) {
	f := newRoomFixture()
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)
	f.roles.On("Create", mock.Anything, mock.MatchedBy(func(r *model.Role) bool {
		return r.MentionTag == "team_leads"
	})).Return(nil)

	role, err := f.svc.CreateRole(context.Background(), "admin-1", "room-1", "Team Leads", "Team Leads", false)
	require.NoError(t, err)
	assert.Equal(t, "team_leads", role.MentionTag)
}

func TestCreateRoleDuplicateTag(t *testing.T) {
	f := newRoomFixture()
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)
	f.roles.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict)

	_, err := f.svc.CreateRole(context.Background(), "admin-1", "room-1", "Mods", "mods", false)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAddMentionPermissionCrossRoomRejected(t *testing.T) {
	f := newRoomFixture()
	f.roles.On("GetByID", mock.Anything, "target-role").Return(&model.Role{ID: "target-role", RoomID: "room-1", MentionTag: "mods"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "admin-1").Return(memberSnapshotFor("admin-1", model.MemberRoleAdmin), nil)
	f.roles.On("GetByID", mock.Anything, "source-role").Return(&model.Role{ID: "source-role", RoomID: "other-room", MentionTag: "helpers"}, nil)

	err := f.svc.AddMentionPermission(context.Background(), "admin-1", "target-role", "source-role")
	assert.ErrorIs(t, err, ErrNotFound)
	f.roles.AssertNotCalled(t, "AddMentionPermission", mock.Anything, mock.Anything)
}

func TestOpenDMRequiresFriendship(t *testing.T) {
	f := newRoomFixture()
	f.users.On("GetByID", mock.Anything, "peer-1").Return(&model.User{ID: "peer-1", Username: "bob"}, nil)
	f.friends.On("AreFriends", mock.Anything, "user-1", "peer-1").Return(false, nil)

	_, _, err := f.svc.OpenDM(context.Background(), "user-1", "peer-1")
	assert.ErrorIs(t, err, ErrNotFriends)
}

func TestOpenDMSelfRejected(t *testing.T) {
	f := newRoomFixture()
	_, _, err := f.svc.OpenDM(context.Background(), "user-1", "user-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestOpenDMReusesExistingRoom(t *testing.T) {
	f := newRoomFixture()
	existing := &model.Room{ID: "dm-1", Type: model.RoomTypeDM}
	f.users.On("GetByID", mock.Anything, "peer-1").Return(&model.User{ID: "peer-1"}, nil)
	f.friends.On("AreFriends", mock.Anything, "user-1", "peer-1").Return(true, nil)
	f.rooms.On("FindDM", mock.Anything, "user-1", "peer-1").Return(existing, nil)
	f.rooms.On("GetMember", mock.Anything, "dm-1", "user-1").Return(&model.Member{RoomID: "dm-1", UserID: "user-1"}, nil)
	f.rooms.On("GetMember", mock.Anything, "dm-1", "peer-1").Return(&model.Member{RoomID: "dm-1", UserID: "peer-1"}, nil)

	room, created, err := f.svc.OpenDM(context.Background(), "user-1", "peer-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "dm-1", room.ID)
	f.rooms.AssertNotCalled(t, "CreateRoomBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.rooms.AssertNotCalled(t, "AddMemberWithDefaultRoles", mock.Anything, mock.Anything)
}

// Leaving a DM only hides it; reopening restores the missing membership in
// the same room rather than creating a second one.
func TestOpenDMRejoinsHiddenRoom(t *testing.T) {
	f := newRoomFixture()
	existing := &model.Room{ID: "dm-1", Type: model.RoomTypeDM, DMKey: model.DMPairKey("user-1", "peer-1")}
	f.users.On("GetByID", mock.Anything, "peer-1").Return(&model.User{ID: "peer-1", Username: "bob"}, nil)
	f.friends.On("AreFriends", mock.Anything, "user-1", "peer-1").Return(true, nil)
	f.rooms.On("FindDM", mock.Anything, "user-1", "peer-1").Return(existing, nil)
	f.rooms.On("GetMember", mock.Anything, "dm-1", "user-1").Return(nil, repository.ErrNotFound)
	f.rooms.On("GetMember", mock.Anything, "dm-1", "peer-1").Return(&model.Member{RoomID: "dm-1", UserID: "peer-1"}, nil)
	f.rooms.On("AddMemberWithDefaultRoles", mock.Anything, mock.MatchedBy(func(m *model.Member) bool {
		return m.RoomID == "dm-1" && m.UserID == "user-1" && m.Role == model.MemberRoleAdmin
	})).Return(nil).Once()

	room, created, err := f.svc.OpenDM(context.Background(), "user-1", "peer-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "dm-1", room.ID)
	f.rooms.AssertExpectations(t)
	f.rooms.AssertNotCalled(t, "CreateRoomBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	// The peer never left, so no new_dm_created is replayed to them.
	f.publisher.AssertNotCalled(t, "Publish", ws.UserTopic("peer-1"), mock.Anything)
}

// When the peer was the one hiding the DM, restoring their membership also
// replays new_dm_created so the room reappears on their side.
func TestOpenDMRestoresPeerAndNotifies(t *testing.T) {
	f := newRoomFixture()
	existing := &model.Room{ID: "dm-1", Type: model.RoomTypeDM, DMKey: model.DMPairKey("user-1", "peer-1")}
	f.users.On("GetByID", mock.Anything, "peer-1").Return(&model.User{ID: "peer-1", Username: "bob"}, nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.friends.On("AreFriends", mock.Anything, "user-1", "peer-1").Return(true, nil)
	f.rooms.On("FindDM", mock.Anything, "user-1", "peer-1").Return(existing, nil)
	f.rooms.On("GetMember", mock.Anything, "dm-1", "user-1").Return(&model.Member{RoomID: "dm-1", UserID: "user-1"}, nil)
	f.rooms.On("GetMember", mock.Anything, "dm-1", "peer-1").Return(nil, repository.ErrNotFound)
	f.rooms.On("AddMemberWithDefaultRoles", mock.Anything, mock.MatchedBy(func(m *model.Member) bool {
		return m.RoomID == "dm-1" && m.UserID == "peer-1" && m.Role == model.MemberRoleAdmin
	})).Return(nil).Once()
	f.publisher.On("Publish", ws.UserTopic("peer-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.NewDMPayload)
		return ok && msg.Type == ws.EventNewDM && p.Room.ID == "dm-1" && p.Peer.Username == "alice"
	})).Once()

	room, created, err := f.svc.OpenDM(context.Background(), "user-1", "peer-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, "dm-1", room.ID)
	f.publisher.AssertExpectations(t)
}

func TestOpenDMCreatesAndNotifiesPeer(t *testing.T) {
	f := newRoomFixture()
	f.users.On("GetByID", mock.Anything, "peer-1").Return(&model.User{ID: "peer-1", Username: "bob"}, nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.friends.On("AreFriends", mock.Anything, "user-1", "peer-1").Return(true, nil)
	f.rooms.On("FindDM", mock.Anything, "user-1", "peer-1").Return(nil, repository.ErrNotFound)

	var gotMembers []model.Member
	var gotLinks []model.MemberRoleLink
	f.rooms.On("CreateRoomBundle", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			gotMembers = args.Get(3).([]model.Member)
			gotLinks = args.Get(5).([]model.MemberRoleLink)
		}).Return(nil)
	f.publisher.On("Publish", ws.UserTopic("peer-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.NewDMPayload)
		return ok && msg.Type == ws.EventNewDM && p.Peer.Username == "alice"
	})).Once()

	room, created, err := f.svc.OpenDM(context.Background(), "user-1", "peer-1")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.RoomTypeDM, room.Type)
	assert.Equal(t, model.DMPairKey("user-1", "peer-1"), room.DMKey)
	assert.Empty(t, room.OwnerID)

	require.Len(t, gotMembers, 2)
	for _, m := range gotMembers {
		assert.Equal(t, model.MemberRoleAdmin, m.Role)
	}
	// Both sides linked to both system roles.
	assert.Len(t, gotLinks, 4)
	f.publisher.AssertExpectations(t)
}

// memberSnapshotFor builds a snapshot for a specific user with the given
// coarse role in room-1 owned by owner-1.
func memberSnapshotFor(userID string, role model.MemberRole) *permission.Snapshot {
	s := memberSnapshot(role)
	s.UserID = userID
	return s
}
