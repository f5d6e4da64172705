package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ernous/BoxChat/internal/mocks"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/ws"
)

type accountFixture struct {
	users     *mocks.UserStoreMock
	friends   *mocks.FriendStoreMock
	publisher *mocks.PublisherMock
	svc       *AccountService
}

func newAccountFixture() *accountFixture {
	f := &accountFixture{
		users:     new(mocks.UserStoreMock),
		friends:   new(mocks.FriendStoreMock),
		publisher: new(mocks.PublisherMock),
	}
	f.svc = NewAccountService(f.users, f.friends, f.publisher)
	return f
}

func TestProvisionUserNormalizesUsername(t *testing.T) {
	f := newAccountFixture()
	f.users.On("Create", mock.Anything, mock.MatchedBy(func(u *model.User) bool {
		return u.Username == "alice_99" && u.ID != "" && u.PrivacySearchable && u.Presence == model.PresenceOffline
	})).Return(nil)

	u, err := f.svc.ProvisionUser(context.Background(), "  Alice_99 ")
	require.NoError(t, err)
	assert.Equal(t, "alice_99", u.Username)
	f.users.AssertExpectations(t)
}

func TestProvisionUserRejectsBadUsername(t *testing.T) {
	f := newAccountFixture()
	for _, name := range []string{"", "ab", "has space", "semi;colon", "wayyyyyyyyyyyyyyyyyyyyytooooooooolong_____"} {
		_, err := f.svc.ProvisionUser(context.Background(), name)
		assert.ErrorIs(t, err, ErrInvalidState, name)
	}
	f.users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestProvisionUserDuplicate(t *testing.T) {
	f := newAccountFixture()
	f.users.On("Create", mock.Anything, mock.Anything).Return(repository.ErrConflict)

	_, err := f.svc.ProvisionUser(context.Background(), "alice")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestSetConnectedBroadcastsToFriends(t *testing.T) {
	f := newAccountFixture()
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Presence: model.PresenceOffline}, nil)
	f.users.On("SetPresence", mock.Anything, "user-1", model.PresenceOnline, mock.Anything).Return(nil)
	f.friends.On("ListFriendIDs", mock.Anything, "user-1").Return([]string{"friend-1"}, nil)
	f.publisher.On("Publish", ws.UserTopic("friend-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.UserStatusPayload)
		return ok && msg.Type == ws.EventUserStatus && p.Status == model.PresenceOnline
	})).Once()

	f.svc.SetConnected(context.Background(), "user-1")
	f.publisher.AssertExpectations(t)
}

func TestHiddenUserStaysHiddenOnConnect(t *testing.T) {
	f := newAccountFixture()
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Presence: model.PresenceHidden}, nil)

	f.svc.SetConnected(context.Background(), "user-1")
	f.users.AssertNotCalled(t, "SetPresence", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestSetPresenceModeRejectsUnknown(t *testing.T) {
	f := newAccountFixture()
	err := f.svc.SetPresenceMode(context.Background(), "user-1", "invisible-ninja")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSetPresenceModeHidden(t *testing.T) {
	f := newAccountFixture()
	f.users.On("SetPresence", mock.Anything, "user-1", model.PresenceHidden, mock.Anything).Return(nil)

	err := f.svc.SetPresenceMode(context.Background(), "user-1", model.PresenceHidden)
	require.NoError(t, err)
	f.users.AssertExpectations(t)
}

func TestDeleteAccountNotifiesFriends(t *testing.T) {
	f := newAccountFixture()
	f.friends.On("ListFriendIDs", mock.Anything, "user-1").Return([]string{"friend-1", "friend-2"}, nil)
	f.users.On("DeleteAccountCascade", mock.Anything, "user-1").Return(nil)
	f.publisher.On("Publish", ws.UserTopic("friend-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.UserStatusPayload)
		return ok && p.Status == model.PresenceOffline
	})).Once()
	f.publisher.On("Publish", ws.UserTopic("friend-2"), mock.Anything).Once()

	err := f.svc.DeleteAccount(context.Background(), "user-1")
	require.NoError(t, err)
	f.users.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestSearchUsersMasksHiddenPresence(t *testing.T) {
	f := newAccountFixture()
	f.users.On("GetByID", mock.Anything, "caller-1").Return(&model.User{ID: "caller-1"}, nil)
	f.users.On("Search", mock.Anything, "al", false).Return([]model.User{
		{ID: "u-1", Username: "alice", Presence: model.PresenceHidden},
	}, nil)

	got, err := f.svc.SearchUsers(context.Background(), "caller-1", "al")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, model.PresenceOffline, got[0].Presence)
}

func TestSearchUsersSuperuserBypassesPrivacy(t *testing.T) {
	f := newAccountFixture()
	f.users.On("GetByID", mock.Anything, "root-1").Return(&model.User{ID: "root-1", IsSuperuser: true}, nil)
	f.users.On("Search", mock.Anything, "al", true).Return([]model.User{}, nil)

	_, err := f.svc.SearchUsers(context.Background(), "root-1", "al")
	require.NoError(t, err)
	f.users.AssertExpectations(t)
}
