package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Ernous/BoxChat/internal/model"
)

type RoomStoreMock struct {
	mock.Mock
}

func (m *RoomStoreMock) CreateRoomBundle(ctx context.Context, room *model.Room, channel *model.Channel, members []model.Member, roles []model.Role, links []model.MemberRoleLink) error {
	args := m.Called(ctx, room, channel, members, roles, links)
	return args.Error(0)
}

func (m *RoomStoreMock) GetByID(ctx context.Context, id string) (*model.Room, error) {
	args := m.Called(ctx, id)
	var room *model.Room
	if val := args.Get(0); val != nil {
		room = val.(*model.Room)
	}
	return room, args.Error(1)
}

func (m *RoomStoreMock) GetByInviteToken(ctx context.Context, token string) (*model.Room, error) {
	args := m.Called(ctx, token)
	var room *model.Room
	if val := args.Get(0); val != nil {
		room = val.(*model.Room)
	}
	return room, args.Error(1)
}

func (m *RoomStoreMock) SetInviteTokenIfEmpty(ctx context.Context, roomID, token string) (string, error) {
	args := m.Called(ctx, roomID, token)
	return args.String(0), args.Error(1)
}

func (m *RoomStoreMock) UpdateRoom(ctx context.Context, id, name, avatarURL string, isPublic bool) error {
	args := m.Called(ctx, id, name, avatarURL, isPublic)
	return args.Error(0)
}

func (m *RoomStoreMock) DeleteRoomCascade(ctx context.Context, roomID string) error {
	args := m.Called(ctx, roomID)
	return args.Error(0)
}

func (m *RoomStoreMock) AddMemberWithDefaultRoles(ctx context.Context, member *model.Member) error {
	args := m.Called(ctx, member)
	return args.Error(0)
}

func (m *RoomStoreMock) RemoveMember(ctx context.Context, roomID, userID string) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *RoomStoreMock) GetMember(ctx context.Context, roomID, userID string) (*model.Member, error) {
	args := m.Called(ctx, roomID, userID)
	var member *model.Member
	if val := args.Get(0); val != nil {
		member = val.(*model.Member)
	}
	return member, args.Error(1)
}

func (m *RoomStoreMock) GetMembers(ctx context.Context, roomID string) ([]model.Member, error) {
	args := m.Called(ctx, roomID)
	var members []model.Member
	if val := args.Get(0); val != nil {
		members = val.([]model.Member)
	}
	return members, args.Error(1)
}

func (m *RoomStoreMock) GetMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

func (m *RoomStoreMock) ListUserRooms(ctx context.Context, userID string) ([]model.RoomWithUnread, error) {
	args := m.Called(ctx, userID)
	var rooms []model.RoomWithUnread
	if val := args.Get(0); val != nil {
		rooms = val.([]model.RoomWithUnread)
	}
	return rooms, args.Error(1)
}

func (m *RoomStoreMock) FindDM(ctx context.Context, userID1, userID2 string) (*model.Room, error) {
	args := m.Called(ctx, userID1, userID2)
	var room *model.Room
	if val := args.Get(0); val != nil {
		room = val.(*model.Room)
	}
	return room, args.Error(1)
}

func (m *RoomStoreMock) ListPublicRooms(ctx context.Context, query string) ([]model.Room, error) {
	args := m.Called(ctx, query)
	var rooms []model.Room
	if val := args.Get(0); val != nil {
		rooms = val.([]model.Room)
	}
	return rooms, args.Error(1)
}

func (m *RoomStoreMock) CreateChannel(ctx context.Context, c *model.Channel) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *RoomStoreMock) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	args := m.Called(ctx, id)
	var c *model.Channel
	if val := args.Get(0); val != nil {
		c = val.(*model.Channel)
	}
	return c, args.Error(1)
}

func (m *RoomStoreMock) UpdateChannel(ctx context.Context, id, name, description, iconEmoji string) error {
	args := m.Called(ctx, id, name, description, iconEmoji)
	return args.Error(0)
}

func (m *RoomStoreMock) DeleteChannelCascade(ctx context.Context, channelID string) error {
	args := m.Called(ctx, channelID)
	return args.Error(0)
}

func (m *RoomStoreMock) ListRoomChannels(ctx context.Context, roomID string) ([]model.Channel, error) {
	args := m.Called(ctx, roomID)
	var channels []model.Channel
	if val := args.Get(0); val != nil {
		channels = val.([]model.Channel)
	}
	return channels, args.Error(1)
}

func (m *RoomStoreMock) ListAccessibleChannels(ctx context.Context, userID string) ([]model.Channel, error) {
	args := m.Called(ctx, userID)
	var channels []model.Channel
	if val := args.Get(0); val != nil {
		channels = val.([]model.Channel)
	}
	return channels, args.Error(1)
}

func (m *RoomStoreMock) BanMember(ctx context.Context, ban *model.RoomBan) error {
	args := m.Called(ctx, ban)
	return args.Error(0)
}

func (m *RoomStoreMock) IsBanned(ctx context.Context, roomID, userID string) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

type RoleStoreMock struct {
	mock.Mock
}

func (m *RoleStoreMock) Create(ctx context.Context, role *model.Role) error {
	args := m.Called(ctx, role)
	return args.Error(0)
}

func (m *RoleStoreMock) GetByID(ctx context.Context, id string) (*model.Role, error) {
	args := m.Called(ctx, id)
	var role *model.Role
	if val := args.Get(0); val != nil {
		role = val.(*model.Role)
	}
	return role, args.Error(1)
}

func (m *RoleStoreMock) ListRoomRoles(ctx context.Context, roomID string) ([]model.Role, error) {
	args := m.Called(ctx, roomID)
	var roles []model.Role
	if val := args.Get(0); val != nil {
		roles = val.([]model.Role)
	}
	return roles, args.Error(1)
}

func (m *RoleStoreMock) Update(ctx context.Context, id, name, mentionTag string, canByEveryone bool) error {
	args := m.Called(ctx, id, name, mentionTag, canByEveryone)
	return args.Error(0)
}

func (m *RoleStoreMock) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *RoleStoreMock) AssignToMember(ctx context.Context, l *model.MemberRoleLink) error {
	args := m.Called(ctx, l)
	return args.Error(0)
}

func (m *RoleStoreMock) RemoveFromMember(ctx context.Context, userID, roomID, roleID string) error {
	args := m.Called(ctx, userID, roomID, roleID)
	return args.Error(0)
}

func (m *RoleStoreMock) AddMentionPermission(ctx context.Context, p *model.RoleMentionPermission) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

func (m *RoleStoreMock) RemoveMentionPermission(ctx context.Context, roomID, targetRoleID, sourceRoleID string) error {
	args := m.Called(ctx, roomID, targetRoleID, sourceRoleID)
	return args.Error(0)
}

func (m *RoleStoreMock) ListMentionPermissions(ctx context.Context, roomID string) ([]model.RoleMentionPermission, error) {
	args := m.Called(ctx, roomID)
	var perms []model.RoleMentionPermission
	if val := args.Get(0); val != nil {
		perms = val.([]model.RoleMentionPermission)
	}
	return perms, args.Error(1)
}
