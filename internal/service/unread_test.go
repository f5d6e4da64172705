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

type unreadFixture struct {
	snapshots *mocks.SnapshotLoaderMock
	channels  *mocks.ChannelStoreMock
	markers   *mocks.ReadStoreMock
	counter   *mocks.UnreadCounterMock
	publisher *mocks.PublisherMock
	svc       *UnreadService
}

func newUnreadFixture() *unreadFixture {
	f := &unreadFixture{
		snapshots: new(mocks.SnapshotLoaderMock),
		channels:  new(mocks.ChannelStoreMock),
		markers:   new(mocks.ReadStoreMock),
		counter:   new(mocks.UnreadCounterMock),
		publisher: new(mocks.PublisherMock),
	}
	f.svc = NewUnreadService(f.snapshots, f.channels, f.markers, f.counter, f.publisher)
	return f
}

func (f *unreadFixture) allowChannel() {
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)
}

func TestMarkReadClampsToNewestMessage(t *testing.T) {
	f := newUnreadFixture()
	f.allowChannel()
	f.counter.On("LastMessageID", mock.Anything, "ch-1").Return(int64(10), nil)
	f.markers.On("Advance", mock.Anything, "user-1", "ch-1", int64(10)).Return(nil)
	f.publisher.On("Publish", ws.ChannelTopic("ch-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.ReadStatusPayload)
		return ok && msg.Type == ws.EventReadStatusUpdated && p.LastReadMessageID == 10
	})).Once()

	err := f.svc.MarkRead(context.Background(), "user-1", "ch-1", 9999)
	require.NoError(t, err)
	f.markers.AssertExpectations(t)
	f.publisher.AssertExpectations(t)
}

func TestMarkReadEmptyChannelIsNoop(t *testing.T) {
	f := newUnreadFixture()
	f.allowChannel()
	f.counter.On("LastMessageID", mock.Anything, "ch-1").Return(int64(0), nil)

	err := f.svc.MarkRead(context.Background(), "user-1", "ch-1", 5)
	require.NoError(t, err)
	f.markers.AssertNotCalled(t, "Advance", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	f.publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
}

func TestMarkReadRejectsNonMember(t *testing.T) {
	f := newUnreadFixture()
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(""), nil)

	err := f.svc.MarkRead(context.Background(), "user-1", "ch-1", 5)
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestChannelUnreadWithoutMarker(t *testing.T) {
	f := newUnreadFixture()
	f.markers.On("Get", mock.Anything, "user-1", "ch-1").Return(nil, repository.ErrNotFound)
	f.counter.On("CountUnread", mock.Anything, "ch-1", "user-1", int64(0)).Return(7, nil)

	n, err := f.svc.ChannelUnread(context.Background(), "user-1", "ch-1")
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestChannelUnreadWithMarker(t *testing.T) {
	f := newUnreadFixture()
	f.markers.On("Get", mock.Anything, "user-1", "ch-1").Return(&model.ReadMarker{UserID: "user-1", ChannelID: "ch-1", LastReadMessageID: 40}, nil)
	f.counter.On("CountUnread", mock.Anything, "ch-1", "user-1", int64(40)).Return(3, nil)

	n, err := f.svc.ChannelUnread(context.Background(), "user-1", "ch-1")
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestChannelsUnread(t *testing.T) {
	f := newUnreadFixture()
	ids := []string{"ch-1", "ch-2"}
	f.markers.On("GetForChannels", mock.Anything, "user-1", ids).Return(map[string]int64{"ch-1": 12}, nil)
	f.counter.On("CountUnread", mock.Anything, "ch-1", "user-1", int64(12)).Return(2, nil)
	f.counter.On("CountUnread", mock.Anything, "ch-2", "user-1", int64(0)).Return(9, nil)

	counts, err := f.svc.ChannelsUnread(context.Background(), "user-1", ids)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"ch-1": 2, "ch-2": 9}, counts)
}
