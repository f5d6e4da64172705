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

func memberSnapshot(role model.MemberRole) *permission.Snapshot {
	return &permission.Snapshot{
		RoomID:       "room-1",
		RoomType:     model.RoomTypeServer,
		OwnerID:      "owner-1",
		UserID:       "user-1",
		MemberRole:   role,
		Roles:        map[string]model.Role{},
		HeldRoleIDs:  map[string]struct{}{},
		MentionEdges: map[string]map[string]struct{}{},
	}
}

type messageFixture struct {
	snapshots *mocks.SnapshotLoaderMock
	channels  *mocks.ChannelStoreMock
	messages  *mocks.MessageStoreMock
	reactions *mocks.ReactionStoreMock
	holders   *mocks.RoleHolderStoreMock
	users     *mocks.UserGetterMock
	publisher *mocks.PublisherMock
	svc       *MessageService
}

func newMessageFixture() *messageFixture {
	f := &messageFixture{
		snapshots: new(mocks.SnapshotLoaderMock),
		channels:  new(mocks.ChannelStoreMock),
		messages:  new(mocks.MessageStoreMock),
		reactions: new(mocks.ReactionStoreMock),
		holders:   new(mocks.RoleHolderStoreMock),
		users:     new(mocks.UserGetterMock),
		publisher: new(mocks.PublisherMock),
	}
	f.svc = NewMessageService(f.snapshots, f.channels, f.messages, f.reactions, f.holders, f.users, f.publisher, nil)
	return f
}

func TestNormalizeContent(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"hello", "hello"},
		{"  hello  ", "hello  "},
		{"\n\nhello\n\n", "hello"},
		{"  line1\n\tline2", "line1\nline2"},
		{"a\n\nb", "a\n\nb"},
		{"\r\nhello\r\nworld", "hello\nworld"},
		{"\n \t\n", ""},
	}
	for _, c := range cases {
		got := NormalizeContent(c.in)
		assert.Equal(t, c.want, got, "input %q", c.in)
		assert.Equal(t, got, NormalizeContent(got), "normalization must be idempotent for %q", c.in)
	}
}

func TestSendPublishesToChannelTopic(t *testing.T) {
	f := newMessageFixture()
	channel := &model.Channel{ID: "ch-1", RoomID: "room-1", Name: "general"}

	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(channel, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)
	f.messages.On("Insert", mock.Anything, mock.AnythingOfType("*model.Message")).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Message).ID = 42
	}).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.publisher.On("Publish", ws.ChannelTopic("ch-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		return msg.Type == ws.EventReceiveMessage
	})).Once()

	m, err := f.svc.Send(context.Background(), SendMessageInput{
		UserID:    "user-1",
		ChannelID: "ch-1",
		Content:   "  hello  \n",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(42), m.ID)
	assert.Equal(t, "hello  ", m.Content)
	require.NotNil(t, m.Author)
	assert.Equal(t, "alice", m.Author.Username)
	f.publisher.AssertExpectations(t)
}

func TestSendRejectsNonMember(t *testing.T) {
	f := newMessageFixture()
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(""), nil)

	_, err := f.svc.Send(context.Background(), SendMessageInput{UserID: "user-1", ChannelID: "ch-1", Content: "hi"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	f.messages.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestSendRejectsEmptyAfterNormalization(t *testing.T) {
	f := newMessageFixture()
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)

	_, err := f.svc.Send(context.Background(), SendMessageInput{UserID: "user-1", ChannelID: "ch-1", Content: "\n \t\n"})
	assert.ErrorIs(t, err, ErrEmptyContent)
}

func TestEditOnlyAuthor(t *testing.T) {
	f := newMessageFixture()
	original := &model.Message{ID: 7, ChannelID: "ch-1", UserID: "someone-else", Content: "old"}
	f.messages.On("GetByID", mock.Anything, int64(7)).Return(original, nil)
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	// Admins still cannot edit other people's messages.
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleAdmin), nil)

	_, err := f.svc.Edit(context.Background(), "user-1", 7, "new content")
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestForwardAttributesOriginalAuthor(t *testing.T) {
	f := newMessageFixture()
	original := &model.Message{ID: 7, ChannelID: "ch-src", UserID: "bob-id", Content: "original text"}
	f.messages.On("GetByID", mock.Anything, int64(7)).Return(original, nil)
	f.channels.On("GetChannel", mock.Anything, "ch-src").Return(&model.Channel{ID: "ch-src", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)
	f.users.On("GetByID", mock.Anything, "bob-id").Return(&model.User{ID: "bob-id", Username: "bob"}, nil)

	f.channels.On("GetChannel", mock.Anything, "ch-dst").Return(&model.Channel{ID: "ch-dst", RoomID: "room-2"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-2", "user-1").Return(&permission.Snapshot{
		RoomID:     "room-2",
		RoomType:   model.RoomTypeServer,
		UserID:     "user-1",
		MemberRole: model.MemberRoleMember,
	}, nil)
	f.messages.On("Insert", mock.Anything, mock.AnythingOfType("*model.Message")).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Message).ID = 99
	}).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.publisher.On("Publish", ws.ChannelTopic("ch-dst"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		return msg.Type == ws.EventReceiveMessage
	})).Once()

	copied, err := f.svc.Forward(context.Background(), "user-1", 7, "ch-dst")
	require.NoError(t, err)
	assert.Equal(t, int64(99), copied.ID)
	assert.Equal(t, "user-1", copied.UserID)
	assert.Equal(t, "Forwarded from bob:\noriginal text", copied.Content)
	f.publisher.AssertExpectations(t)
}

func TestForwardRequiresSourceMembership(t *testing.T) {
	f := newMessageFixture()
	original := &model.Message{ID: 7, ChannelID: "ch-src", UserID: "bob-id", Content: "original text"}
	f.messages.On("GetByID", mock.Anything, int64(7)).Return(original, nil)
	f.channels.On("GetChannel", mock.Anything, "ch-src").Return(&model.Channel{ID: "ch-src", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(""), nil)

	_, err := f.svc.Forward(context.Background(), "user-1", 7, "ch-dst")
	assert.ErrorIs(t, err, ErrPermissionDenied)
	f.messages.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

// A forwarded copy is an independent ledger entry: deleting the original
// afterwards removes only the original, and the copy keeps the author's name
// because it was baked into the content at forward time.
func TestForwardedCopySurvivesOriginalDelete(t *testing.T) {
	f := newMessageFixture()
	original := &model.Message{ID: 7, ChannelID: "ch-src", UserID: "bob-id", Content: "original text"}
	f.messages.On("GetByID", mock.Anything, int64(7)).Return(original, nil)
	f.channels.On("GetChannel", mock.Anything, "ch-src").Return(&model.Channel{ID: "ch-src", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleAdmin), nil)
	f.users.On("GetByID", mock.Anything, "bob-id").Return(&model.User{ID: "bob-id", Username: "bob"}, nil)

	f.channels.On("GetChannel", mock.Anything, "ch-dst").Return(&model.Channel{ID: "ch-dst", RoomID: "room-2"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-2", "user-1").Return(&permission.Snapshot{
		RoomID:     "room-2",
		RoomType:   model.RoomTypeServer,
		UserID:     "user-1",
		MemberRole: model.MemberRoleMember,
	}, nil)
	f.messages.On("Insert", mock.Anything, mock.AnythingOfType("*model.Message")).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Message).ID = 99
	}).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.publisher.On("Publish", mock.Anything, mock.Anything)

	copied, err := f.svc.Forward(context.Background(), "user-1", 7, "ch-dst")
	require.NoError(t, err)

	f.messages.On("Delete", mock.Anything, int64(7)).Return(nil)
	require.NoError(t, f.svc.Delete(context.Background(), "user-1", 7))

	f.messages.AssertNotCalled(t, "Delete", mock.Anything, int64(99))
	assert.Equal(t, "Forwarded from bob:\noriginal text", copied.Content)
}

func TestDeleteByModerator(t *testing.T) {
	f := newMessageFixture()
	original := &model.Message{ID: 7, ChannelID: "ch-1", UserID: "someone-else"}
	f.messages.On("GetByID", mock.Anything, int64(7)).Return(original, nil)
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleAdmin), nil)
	f.messages.On("Delete", mock.Anything, int64(7)).Return(nil)
	f.publisher.On("Publish", ws.ChannelTopic("ch-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		return msg.Type == ws.EventMessageDeleted
	})).Once()

	err := f.svc.Delete(context.Background(), "user-1", 7)
	require.NoError(t, err)
	f.publisher.AssertExpectations(t)
}

func TestDeleteMissingMessage(t *testing.T) {
	f := newMessageFixture()
	f.messages.On("GetByID", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound)

	err := f.svc.Delete(context.Background(), "user-1", 9)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestToggleReactionBroadcastsRegroupedState(t *testing.T) {
	f := newMessageFixture()
	original := &model.Message{ID: 7, ChannelID: "ch-1", UserID: "someone-else"}
	grouped := map[string][]string{"👍": {"alice", "bob"}}

	f.messages.On("GetByID", mock.Anything, int64(7)).Return(original, nil)
	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)
	f.reactions.On("Toggle", mock.Anything, int64(7), "user-1", "👍", model.ReactionKindEmoji).Return(true, nil)
	f.reactions.On("GetGrouped", mock.Anything, int64(7)).Return(grouped, nil)
	f.publisher.On("Publish", ws.ChannelTopic("ch-1"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.ReactionsUpdatedPayload)
		return ok && msg.Type == ws.EventReactionsUpdated && len(p.Reactions["👍"]) == 2
	})).Once()

	got, err := f.svc.ToggleReaction(context.Background(), "user-1", 7, "👍", "")
	require.NoError(t, err)
	assert.Equal(t, grouped, got)
	f.publisher.AssertExpectations(t)
}

func TestListAttachesReactions(t *testing.T) {
	f := newMessageFixture()
	page := []model.Message{{ID: 1, ChannelID: "ch-1"}, {ID: 2, ChannelID: "ch-1"}}

	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(memberSnapshot(model.MemberRoleMember), nil)
	f.messages.On("ListChannelMessages", mock.Anything, "ch-1", int64(0), 50).Return(page, nil)
	f.reactions.On("GetGroupedBatch", mock.Anything, []int64{1, 2}).Return(map[int64]map[string][]string{
		2: {"🎉": {"bob"}},
	}, nil)

	got, err := f.svc.List(context.Background(), "user-1", "ch-1", 0, 50)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Nil(t, got[0].Reactions)
	assert.Equal(t, []string{"bob"}, got[1].Reactions["🎉"])
}

func TestParseMentionTags(t *testing.T) {
	tags := ParseMentionTags("hey @team and @Team, also @a-b_c! but not email@host")
	assert.Equal(t, []string{"team", "a-b_c", "host"}, tags)

	assert.Empty(t, ParseMentionTags("no mentions here"))
}

func TestSendNotifiesMentionedRoleHolders(t *testing.T) {
	f := newMessageFixture()
	channel := &model.Channel{ID: "ch-1", RoomID: "room-1"}
	snap := memberSnapshot(model.MemberRoleMember)
	snap.Roles = map[string]model.Role{
		"r-1": {ID: "r-1", RoomID: "room-1", MentionTag: "helpers", CanBeMentionedByEveryone: true},
	}

	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(channel, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(snap, nil)
	f.messages.On("Insert", mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		args.Get(1).(*model.Message).ID = 50
	}).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.holders.On("ListRoleHolderIDs", mock.Anything, "r-1").Return([]string{"user-1", "user-2"}, nil)

	f.publisher.On("Publish", ws.ChannelTopic("ch-1"), mock.Anything).Once()
	// The author is a holder too but never notifies themselves.
	f.publisher.On("Publish", ws.UserTopic("user-2"), mock.MatchedBy(func(msg ws.OutgoingMessage) bool {
		p, ok := msg.Payload.(ws.MentionPayload)
		return ok && msg.Type == ws.EventMention && p.RoleTag == "helpers"
	})).Once()

	_, err := f.svc.Send(context.Background(), SendMessageInput{
		UserID:    "user-1",
		ChannelID: "ch-1",
		Content:   "ping @helpers",
	})
	require.NoError(t, err)
	f.publisher.AssertExpectations(t)
	f.publisher.AssertNotCalled(t, "Publish", ws.UserTopic("user-1"), mock.Anything)
}

func TestSendSkipsUnmentionableRole(t *testing.T) {
	f := newMessageFixture()
	snap := memberSnapshot(model.MemberRoleMember)
	snap.Roles = map[string]model.Role{
		"r-1": {ID: "r-1", RoomID: "room-1", MentionTag: "mods"},
	}

	f.channels.On("GetChannel", mock.Anything, "ch-1").Return(&model.Channel{ID: "ch-1", RoomID: "room-1"}, nil)
	f.snapshots.On("Load", mock.Anything, "room-1", "user-1").Return(snap, nil)
	f.messages.On("Insert", mock.Anything, mock.Anything).Return(nil)
	f.users.On("GetByID", mock.Anything, "user-1").Return(&model.User{ID: "user-1", Username: "alice"}, nil)
	f.publisher.On("Publish", ws.ChannelTopic("ch-1"), mock.Anything).Once()

	_, err := f.svc.Send(context.Background(), SendMessageInput{
		UserID:    "user-1",
		ChannelID: "ch-1",
		Content:   "ping @mods",
	})
	require.NoError(t, err)
	f.holders.AssertNotCalled(t, "ListRoleHolderIDs", mock.Anything, mock.Anything)
}
