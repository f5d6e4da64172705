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
)

type friendFixture struct {
	friends *mocks.FriendStoreMock
	users   *mocks.UserGetterMock
	svc     *FriendService
}

func newFriendFixture() *friendFixture {
	f := &friendFixture{
		friends: new(mocks.FriendStoreMock),
		users:   new(mocks.UserGetterMock),
	}
	f.svc = NewFriendService(f.friends, f.users)
	return f
}

func TestSendRequestCreatesPending(t *testing.T) {
	f := newFriendFixture()
	f.users.On("GetByUsername", mock.Anything, "bob").Return(&model.User{ID: "bob-id", Username: "bob"}, nil)
	f.friends.On("AreFriends", mock.Anything, "alice-id", "bob-id").Return(false, nil)
	f.friends.On("GetPendingBetween", mock.Anything, "alice-id", "bob-id").Return(nil, repository.ErrNotFound)
	f.friends.On("CreateRequest", mock.Anything, mock.MatchedBy(func(req *model.FriendRequest) bool {
		return req.FromUserID == "alice-id" && req.ToUserID == "bob-id" && req.Status == model.FriendRequestPending
	})).Return(nil)

	req, err := f.svc.SendRequest(context.Background(), "alice-id", "bob")
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.Equal(t, model.FriendRequestPending, req.Status)
}

func TestSendRequestToSelf(t *testing.T) {
	f := newFriendFixture()
	f.users.On("GetByUsername", mock.Anything, "alice").Return(&model.User{ID: "alice-id", Username: "alice"}, nil)

	_, err := f.svc.SendRequest(context.Background(), "alice-id", "alice")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestSendRequestUnknownUser(t *testing.T) {
	f := newFriendFixture()
	f.users.On("GetByUsername", mock.Anything, "ghost").Return(nil, repository.ErrNotFound)

	_, err := f.svc.SendRequest(context.Background(), "alice-id", "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSendRequestAlreadyFriends(t *testing.T) {
	f := newFriendFixture()
	f.users.On("GetByUsername", mock.Anything, "bob").Return(&model.User{ID: "bob-id"}, nil)
	f.friends.On("AreFriends", mock.Anything, "alice-id", "bob-id").Return(true, nil)

	_, err := f.svc.SendRequest(context.Background(), "alice-id", "bob")
	assert.ErrorIs(t, err, ErrConflict)
	f.friends.AssertNotCalled(t, "CreateRequest", mock.Anything, mock.Anything)
}

func TestSendRequestPendingEitherDirection(t *testing.T) {
	f := newFriendFixture()
	f.users.On("GetByUsername", mock.Anything, "bob").Return(&model.User{ID: "bob-id"}, nil)
	f.friends.On("AreFriends", mock.Anything, "alice-id", "bob-id").Return(false, nil)
	// Bob already asked Alice; her counter-request is still a conflict.
	f.friends.On("GetPendingBetween", mock.Anything, "alice-id", "bob-id").Return(&model.FriendRequest{
		ID: "req-1", FromUserID: "bob-id", ToUserID: "alice-id", Status: model.FriendRequestPending,
	}, nil)

	_, err := f.svc.SendRequest(context.Background(), "alice-id", "bob")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestAcceptOnlyRecipient(t *testing.T) {
	f := newFriendFixture()
	f.friends.On("GetRequest", mock.Anything, "req-1").Return(&model.FriendRequest{
		ID: "req-1", FromUserID: "alice-id", ToUserID: "bob-id", Status: model.FriendRequestPending,
	}, nil)

	_, err := f.svc.Accept(context.Background(), "alice-id", "req-1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	f.friends.AssertNotCalled(t, "AcceptRequest", mock.Anything, mock.Anything)
}

func TestAcceptResolvedRequest(t *testing.T) {
	f := newFriendFixture()
	f.friends.On("GetRequest", mock.Anything, "req-1").Return(&model.FriendRequest{
		ID: "req-1", FromUserID: "alice-id", ToUserID: "bob-id", Status: model.FriendRequestAccepted,
	}, nil)

	_, err := f.svc.Accept(context.Background(), "bob-id", "req-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestAcceptPending(t *testing.T) {
	f := newFriendFixture()
	pending := &model.FriendRequest{ID: "req-1", FromUserID: "alice-id", ToUserID: "bob-id", Status: model.FriendRequestPending}
	accepted := &model.FriendRequest{ID: "req-1", FromUserID: "alice-id", ToUserID: "bob-id", Status: model.FriendRequestAccepted}
	f.friends.On("GetRequest", mock.Anything, "req-1").Return(pending, nil)
	f.friends.On("AcceptRequest", mock.Anything, "req-1").Return(accepted, nil)

	got, err := f.svc.Accept(context.Background(), "bob-id", "req-1")
	require.NoError(t, err)
	assert.Equal(t, model.FriendRequestAccepted, got.Status)
}

func TestAcceptLostRace(t *testing.T) {
	f := newFriendFixture()
	pending := &model.FriendRequest{ID: "req-1", FromUserID: "alice-id", ToUserID: "bob-id", Status: model.FriendRequestPending}
	f.friends.On("GetRequest", mock.Anything, "req-1").Return(pending, nil)
	f.friends.On("AcceptRequest", mock.Anything, "req-1").Return(nil, repository.ErrNotFound)

	_, err := f.svc.Accept(context.Background(), "bob-id", "req-1")
	assert.ErrorIs(t, err, ErrInvalidState)
}

func TestDeclineOnlyRecipient(t *testing.T) {
	f := newFriendFixture()
	f.friends.On("GetRequest", mock.Anything, "req-1").Return(&model.FriendRequest{
		ID: "req-1", FromUserID: "alice-id", ToUserID: "bob-id", Status: model.FriendRequestPending,
	}, nil)

	err := f.svc.Decline(context.Background(), "alice-id", "req-1")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestUnfriendMissing(t *testing.T) {
	f := newFriendFixture()
	f.friends.On("RemoveFriendship", mock.Anything, "alice-id", "bob-id").Return(repository.ErrNotFound)

	err := f.svc.Unfriend(context.Background(), "alice-id", "bob-id")
	assert.ErrorIs(t, err, ErrNotFound)
}
