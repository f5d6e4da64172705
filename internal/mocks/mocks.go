// Package mocks holds testify mocks for the service-layer store interfaces.
package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/permission"
	"github.com/Ernous/BoxChat/internal/ws"
)

type SnapshotLoaderMock struct {
	mock.Mock
}

func (m *SnapshotLoaderMock) Load(ctx context.Context, roomID, userID string) (*permission.Snapshot, error) {
	args := m.Called(ctx, roomID, userID)
	var snap *permission.Snapshot
	if val := args.Get(0); val != nil {
		snap = val.(*permission.Snapshot)
	}
	return snap, args.Error(1)
}

type ChannelStoreMock struct {
	mock.Mock
}

func (m *ChannelStoreMock) GetChannel(ctx context.Context, id string) (*model.Channel, error) {
	args := m.Called(ctx, id)
	var c *model.Channel
	if val := args.Get(0); val != nil {
		c = val.(*model.Channel)
	}
	return c, args.Error(1)
}

func (m *ChannelStoreMock) GetMemberIDs(ctx context.Context, roomID string) ([]string, error) {
	args := m.Called(ctx, roomID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

type MessageStoreMock struct {
	mock.Mock
}

func (m *MessageStoreMock) Insert(ctx context.Context, msg *model.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MessageStoreMock) GetByID(ctx context.Context, id int64) (*model.Message, error) {
	args := m.Called(ctx, id)
	var msg *model.Message
	if val := args.Get(0); val != nil {
		msg = val.(*model.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageStoreMock) ListChannelMessages(ctx context.Context, channelID string, beforeID int64, limit int) ([]model.Message, error) {
	args := m.Called(ctx, channelID, beforeID, limit)
	var list []model.Message
	if val := args.Get(0); val != nil {
		list = val.([]model.Message)
	}
	return list, args.Error(1)
}

func (m *MessageStoreMock) UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error {
	args := m.Called(ctx, id, content, editedAt)
	return args.Error(0)
}

func (m *MessageStoreMock) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

type ReactionStoreMock struct {
	mock.Mock
}

func (m *ReactionStoreMock) Toggle(ctx context.Context, messageID int64, userID, emoji string, kind model.ReactionKind) (bool, error) {
	args := m.Called(ctx, messageID, userID, emoji, kind)
	return args.Bool(0), args.Error(1)
}

func (m *ReactionStoreMock) GetGrouped(ctx context.Context, messageID int64) (map[string][]string, error) {
	args := m.Called(ctx, messageID)
	var grouped map[string][]string
	if val := args.Get(0); val != nil {
		grouped = val.(map[string][]string)
	}
	return grouped, args.Error(1)
}

func (m *ReactionStoreMock) GetGroupedBatch(ctx context.Context, messageIDs []int64) (map[int64]map[string][]string, error) {
	args := m.Called(ctx, messageIDs)
	var grouped map[int64]map[string][]string
	if val := args.Get(0); val != nil {
		grouped = val.(map[int64]map[string][]string)
	}
	return grouped, args.Error(1)
}

type RoleHolderStoreMock struct {
	mock.Mock
}

func (m *RoleHolderStoreMock) ListRoleHolderIDs(ctx context.Context, roleID string) ([]string, error) {
	args := m.Called(ctx, roleID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

type UserGetterMock struct {
	mock.Mock
}

func (m *UserGetterMock) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	var u *model.User
	if val := args.Get(0); val != nil {
		u = val.(*model.User)
	}
	return u, args.Error(1)
}

func (m *UserGetterMock) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	var u *model.User
	if val := args.Get(0); val != nil {
		u = val.(*model.User)
	}
	return u, args.Error(1)
}

// PublisherMock records published events for assertions.
type PublisherMock struct {
	mock.Mock
}

func (m *PublisherMock) Publish(topic string, msg ws.OutgoingMessage) {
	m.Called(topic, msg)
}

type PushSenderMock struct {
	mock.Mock
}

func (m *PushSenderMock) Notify(ctx context.Context, userID, title, body string, data map[string]string) {
	m.Called(ctx, userID, title, body, data)
}

type ReadStoreMock struct {
	mock.Mock
}

func (m *ReadStoreMock) Advance(ctx context.Context, userID, channelID string, messageID int64) error {
	args := m.Called(ctx, userID, channelID, messageID)
	return args.Error(0)
}

func (m *ReadStoreMock) Get(ctx context.Context, userID, channelID string) (*model.ReadMarker, error) {
	args := m.Called(ctx, userID, channelID)
	var marker *model.ReadMarker
	if val := args.Get(0); val != nil {
		marker = val.(*model.ReadMarker)
	}
	return marker, args.Error(1)
}

func (m *ReadStoreMock) GetForChannels(ctx context.Context, userID string, channelIDs []string) (map[string]int64, error) {
	args := m.Called(ctx, userID, channelIDs)
	var markers map[string]int64
	if val := args.Get(0); val != nil {
		markers = val.(map[string]int64)
	}
	return markers, args.Error(1)
}

type UnreadCounterMock struct {
	mock.Mock
}

func (m *UnreadCounterMock) CountUnread(ctx context.Context, channelID, userID string, lastReadID int64) (int, error) {
	args := m.Called(ctx, channelID, userID, lastReadID)
	return args.Int(0), args.Error(1)
}

func (m *UnreadCounterMock) LastMessageID(ctx context.Context, channelID string) (int64, error) {
	args := m.Called(ctx, channelID)
	return args.Get(0).(int64), args.Error(1)
}

type FriendStoreMock struct {
	mock.Mock
}

func (m *FriendStoreMock) CreateRequest(ctx context.Context, req *model.FriendRequest) error {
	args := m.Called(ctx, req)
	return args.Error(0)
}

func (m *FriendStoreMock) GetRequest(ctx context.Context, id string) (*model.FriendRequest, error) {
	args := m.Called(ctx, id)
	var req *model.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(*model.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendStoreMock) GetPendingBetween(ctx context.Context, userID1, userID2 string) (*model.FriendRequest, error) {
	args := m.Called(ctx, userID1, userID2)
	var req *model.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(*model.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendStoreMock) ListIncoming(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	args := m.Called(ctx, userID)
	var list []model.FriendRequest
	if val := args.Get(0); val != nil {
		list = val.([]model.FriendRequest)
	}
	return list, args.Error(1)
}

func (m *FriendStoreMock) ListOutgoing(ctx context.Context, userID string) ([]model.FriendRequest, error) {
	args := m.Called(ctx, userID)
	var list []model.FriendRequest
	if val := args.Get(0); val != nil {
		list = val.([]model.FriendRequest)
	}
	return list, args.Error(1)
}

func (m *FriendStoreMock) AcceptRequest(ctx context.Context, requestID string) (*model.FriendRequest, error) {
	args := m.Called(ctx, requestID)
	var req *model.FriendRequest
	if val := args.Get(0); val != nil {
		req = val.(*model.FriendRequest)
	}
	return req, args.Error(1)
}

func (m *FriendStoreMock) DeclineRequest(ctx context.Context, requestID string) error {
	args := m.Called(ctx, requestID)
	return args.Error(0)
}

func (m *FriendStoreMock) AreFriends(ctx context.Context, userID1, userID2 string) (bool, error) {
	args := m.Called(ctx, userID1, userID2)
	return args.Bool(0), args.Error(1)
}

func (m *FriendStoreMock) ListFriends(ctx context.Context, userID string) ([]model.UserPublic, error) {
	args := m.Called(ctx, userID)
	var list []model.UserPublic
	if val := args.Get(0); val != nil {
		list = val.([]model.UserPublic)
	}
	return list, args.Error(1)
}

func (m *FriendStoreMock) RemoveFriendship(ctx context.Context, userID1, userID2 string) error {
	args := m.Called(ctx, userID1, userID2)
	return args.Error(0)
}

func (m *FriendStoreMock) ListFriendIDs(ctx context.Context, userID string) ([]string, error) {
	args := m.Called(ctx, userID)
	var ids []string
	if val := args.Get(0); val != nil {
		ids = val.([]string)
	}
	return ids, args.Error(1)
}

type UserStoreMock struct {
	mock.Mock
}

func (m *UserStoreMock) Create(ctx context.Context, u *model.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *UserStoreMock) GetByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	var u *model.User
	if val := args.Get(0); val != nil {
		u = val.(*model.User)
	}
	return u, args.Error(1)
}

func (m *UserStoreMock) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	args := m.Called(ctx, username)
	var u *model.User
	if val := args.Get(0); val != nil {
		u = val.(*model.User)
	}
	return u, args.Error(1)
}

func (m *UserStoreMock) Search(ctx context.Context, query string, asSuperuser bool) ([]model.User, error) {
	args := m.Called(ctx, query, asSuperuser)
	var users []model.User
	if val := args.Get(0); val != nil {
		users = val.([]model.User)
	}
	return users, args.Error(1)
}

func (m *UserStoreMock) UpdateProfile(ctx context.Context, id, bio, avatarURL string, searchable, listable bool) error {
	args := m.Called(ctx, id, bio, avatarURL, searchable, listable)
	return args.Error(0)
}

func (m *UserStoreMock) SetPresence(ctx context.Context, id string, status model.PresenceStatus, lastSeen time.Time) error {
	args := m.Called(ctx, id, status, lastSeen)
	return args.Error(0)
}

func (m *UserStoreMock) DeleteAccountCascade(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}
