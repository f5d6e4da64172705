package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/permission"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/ws"
)

// Publisher delivers events to topic subscribers. Implemented by *ws.Hub.
type Publisher interface {
	Publish(topic string, msg ws.OutgoingMessage)
}

// PushSender delivers push notifications to a user's registered devices.
// A nil PushSender disables pushes.
type PushSender interface {
	Notify(ctx context.Context, userID, title, body string, data map[string]string)
}

type SnapshotLoader interface {
	Load(ctx context.Context, roomID, userID string) (*permission.Snapshot, error)
}

type ChannelStore interface {
	GetChannel(ctx context.Context, id string) (*model.Channel, error)
	GetMemberIDs(ctx context.Context, roomID string) ([]string, error)
}

type MessageStore interface {
	Insert(ctx context.Context, m *model.Message) error
	GetByID(ctx context.Context, id int64) (*model.Message, error)
	ListChannelMessages(ctx context.Context, channelID string, beforeID int64, limit int) ([]model.Message, error)
	UpdateContent(ctx context.Context, id int64, content string, editedAt time.Time) error
	Delete(ctx context.Context, id int64) error
}

type ReactionStore interface {
	Toggle(ctx context.Context, messageID int64, userID, emoji string, kind model.ReactionKind) (bool, error)
	GetGrouped(ctx context.Context, messageID int64) (map[string][]string, error)
	GetGroupedBatch(ctx context.Context, messageIDs []int64) (map[int64]map[string][]string, error)
}

type RoleHolderStore interface {
	ListRoleHolderIDs(ctx context.Context, roleID string) ([]string, error)
}

type UserGetter interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetByUsername(ctx context.Context, username string) (*model.User, error)
}

// MessageService owns the message ledger: append, edit, delete, forward,
// reactions and mention fan-out.
type MessageService struct {
	snapshots SnapshotLoader
	channels  ChannelStore
	messages  MessageStore
	reactions ReactionStore
	holders   RoleHolderStore
	users     UserGetter
	publisher Publisher
	push      PushSender

	// locks serializes appends per channel so publish order matches ledger
	// order within a channel.
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func NewMessageService(
	snapshots SnapshotLoader,
	channels ChannelStore,
	messages MessageStore,
	reactions ReactionStore,
	holders RoleHolderStore,
	users UserGetter,
	publisher Publisher,
	push PushSender,
) *MessageService {
	return &MessageService{
		snapshots: snapshots,
		channels:  channels,
		messages:  messages,
		reactions: reactions,
		holders:   holders,
		users:     users,
		publisher: publisher,
		push:      push,
		locks:     make(map[string]*sync.Mutex),
	}
}

func (s *MessageService) channelLock(channelID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[channelID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[channelID] = l
	}
	return l
}

// NormalizeContent trims leading and trailing blank lines and strips leading
// whitespace from each line, preserving internal blank lines. Applying it
// twice yields the same result.
func NormalizeContent(content string) string {
	lines := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	for i, line := range lines {
		lines[i] = strings.TrimLeft(line, " \t")
	}
	start := 0
	for start < len(lines) && lines[start] == "" {
		start++
	}
	end := len(lines)
	for end > start && lines[end-1] == "" {
		end--
	}
	return strings.Join(lines[start:end], "\n")
}

type SendMessageInput struct {
	UserID      string
	ChannelID   string
	Content     string
	MessageType model.MessageType
	FileURL     string
	FileName    string
	FileSize    int64
}

// Send appends a message to the channel ledger and fans it out. The channel
// lock guarantees subscribers see messages in ledger order.
func (s *MessageService) Send(ctx context.Context, in SendMessageInput) (*model.Message, error) {
	defer logger.DeferLogDuration("messageService.Send", time.Now())()

	channel, snap, err := s.authorizeChannel(ctx, in.UserID, in.ChannelID)
	if err != nil {
		return nil, err
	}
	if !snap.CanPost() {
		return nil, ErrPermissionDenied
	}

	content := NormalizeContent(in.Content)
	if content == "" && in.FileURL == "" {
		return nil, ErrEmptyContent
	}
	msgType := in.MessageType
	if msgType == "" {
		msgType = model.MessageTypeText
	}
	// File names often arrive with '+' instead of spaces from URL encoding.
	fileName := strings.TrimSpace(strings.ReplaceAll(in.FileName, "+", " "))

	m := &model.Message{
		ChannelID:   in.ChannelID,
		UserID:      in.UserID,
		Content:     content,
		MessageType: msgType,
		FileURL:     in.FileURL,
		FileName:    fileName,
		FileSize:    in.FileSize,
	}

	lock := s.channelLock(in.ChannelID)
	lock.Lock()
	err = s.messages.Insert(ctx, m)
	if err != nil {
		lock.Unlock()
		return nil, fmt.Errorf("messageService.Send: %w", err)
	}

	author, authorErr := s.users.GetByID(ctx, in.UserID)
	if authorErr == nil {
		pub := author.ToPublic()
		m.Author = &pub
	}

	s.publisher.Publish(ws.ChannelTopic(in.ChannelID), ws.OutgoingMessage{
		Type:    ws.EventReceiveMessage,
		Payload: m,
	})
	lock.Unlock()

	s.notifyMentions(ctx, snap, channel, m)
	return m, nil
}

// Edit replaces a message's content. Only the author may edit.
func (s *MessageService) Edit(ctx context.Context, userID string, messageID int64, content string) (*model.Message, error) {
	defer logger.DeferLogDuration("messageService.Edit", time.Now())()

	m, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	_, snap, err := s.authorizeChannel(ctx, userID, m.ChannelID)
	if err != nil {
		return nil, err
	}
	if !snap.CanEditMessage(m.UserID) {
		return nil, ErrPermissionDenied
	}

	content = NormalizeContent(content)
	if content == "" {
		return nil, ErrEmptyContent
	}
	now := time.Now().UTC()
	if err := s.messages.UpdateContent(ctx, messageID, content, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("messageService.Edit: %w", err)
	}
	m.Content = content
	m.EditedAt = &now

	s.publisher.Publish(ws.ChannelTopic(m.ChannelID), ws.OutgoingMessage{
		Type: ws.EventMessageEdited,
		Payload: ws.MessageEditedPayload{
			MessageID: messageID,
			ChannelID: m.ChannelID,
			Content:   content,
			EditedAt:  now,
		},
	})
	return m, nil
}

// Delete removes a message. Authors delete their own, moderators anyone's.
func (s *MessageService) Delete(ctx context.Context, userID string, messageID int64) error {
	defer logger.DeferLogDuration("messageService.Delete", time.Now())()

	m, err := s.getMessage(ctx, messageID)
	if err != nil {
		return err
	}
	_, snap, err := s.authorizeChannel(ctx, userID, m.ChannelID)
	if err != nil {
		return err
	}
	if !snap.CanDeleteMessage(m.UserID) {
		return ErrPermissionDenied
	}

	if err := s.messages.Delete(ctx, messageID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("messageService.Delete: %w", err)
	}

	s.publisher.Publish(ws.ChannelTopic(m.ChannelID), ws.OutgoingMessage{
		Type:    ws.EventMessageDeleted,
		Payload: ws.MessageDeletedPayload{MessageID: messageID, ChannelID: m.ChannelID},
	})
	return nil
}

// ToggleReaction flips the user's reaction and broadcasts the regrouped
// state of the message.
func (s *MessageService) ToggleReaction(ctx context.Context, userID string, messageID int64, emoji string, kind model.ReactionKind) (map[string][]string, error) {
	defer logger.DeferLogDuration("messageService.ToggleReaction", time.Now())()
	if emoji == "" {
		return nil, ErrEmptyContent
	}
	if kind == "" {
		kind = model.ReactionKindEmoji
	}

	m, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	_, snap, err := s.authorizeChannel(ctx, userID, m.ChannelID)
	if err != nil {
		return nil, err
	}
	if !snap.IsMember() {
		return nil, ErrPermissionDenied
	}

	if _, err := s.reactions.Toggle(ctx, messageID, userID, emoji, kind); err != nil {
		return nil, fmt.Errorf("messageService.ToggleReaction: %w", err)
	}
	grouped, err := s.reactions.GetGrouped(ctx, messageID)
	if err != nil {
		return nil, fmt.Errorf("messageService.ToggleReaction regroup: %w", err)
	}

	s.publisher.Publish(ws.ChannelTopic(m.ChannelID), ws.OutgoingMessage{
		Type: ws.EventReactionsUpdated,
		Payload: ws.ReactionsUpdatedPayload{
			MessageID: messageID,
			ChannelID: m.ChannelID,
			Reactions: grouped,
		},
	})
	return grouped, nil
}

// Forward copies an existing message into another channel the user can post
// to. The copy is a fresh ledger entry authored by the forwarder, with the
// original author's name baked into the content so it survives edits and
// deletion of the original.
func (s *MessageService) Forward(ctx context.Context, userID string, messageID int64, targetChannelID string) (*model.Message, error) {
	defer logger.DeferLogDuration("messageService.Forward", time.Now())()

	original, err := s.getMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	_, srcSnap, err := s.authorizeChannel(ctx, userID, original.ChannelID)
	if err != nil {
		return nil, err
	}
	if !srcSnap.IsMember() {
		return nil, ErrPermissionDenied
	}
	author, err := s.users.GetByID(ctx, original.UserID)
	if err != nil {
		return nil, fmt.Errorf("messageService.Forward author: %w", err)
	}

	return s.Send(ctx, SendMessageInput{
		UserID:      userID,
		ChannelID:   targetChannelID,
		Content:     fmt.Sprintf("Forwarded from %s:\n%s", author.Username, original.Content),
		MessageType: original.MessageType,
		FileURL:     original.FileURL,
		FileName:    original.FileName,
		FileSize:    original.FileSize,
	})
}

// List returns a page of channel history with reactions attached, ascending
// by id.
func (s *MessageService) List(ctx context.Context, userID, channelID string, beforeID int64, limit int) ([]model.Message, error) {
	defer logger.DeferLogDuration("messageService.List", time.Now())()

	_, snap, err := s.authorizeChannel(ctx, userID, channelID)
	if err != nil {
		return nil, err
	}
	if !snap.IsMember() {
		return nil, ErrPermissionDenied
	}

	messages, err := s.messages.ListChannelMessages(ctx, channelID, beforeID, limit)
	if err != nil {
		return nil, fmt.Errorf("messageService.List: %w", err)
	}
	if len(messages) == 0 {
		return messages, nil
	}

	ids := make([]int64, len(messages))
	for i := range messages {
		ids[i] = messages[i].ID
	}
	grouped, err := s.reactions.GetGroupedBatch(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("messageService.List reactions: %w", err)
	}
	for i := range messages {
		if r, ok := grouped[messages[i].ID]; ok {
			messages[i].Reactions = r
		}
	}
	return messages, nil
}

func (s *MessageService) getMessage(ctx context.Context, id int64) (*model.Message, error) {
	m, err := s.messages.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("messageService.getMessage: %w", err)
	}
	return m, nil
}

// authorizeChannel resolves the channel and the caller's permission snapshot
// in its room.
func (s *MessageService) authorizeChannel(ctx context.Context, userID, channelID string) (*model.Channel, *permission.Snapshot, error) {
	channel, err := s.channels.GetChannel(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("messageService.authorizeChannel: %w", err)
	}
	snap, err := s.snapshots.Load(ctx, channel.RoomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil, ErrNotFound
	}
	if err != nil {
		return nil, nil, fmt.Errorf("messageService.authorizeChannel snapshot: %w", err)
	}
	return channel, snap, nil
}

var mentionPattern = regexp.MustCompile(`@([a-z0-9_-]{1,60})`)

// ParseMentionTags extracts candidate mention tags from message content,
// deduplicated in order of first appearance.
func ParseMentionTags(content string) []string {
	matches := mentionPattern.FindAllStringSubmatch(strings.ToLower(content), -1)
	seen := make(map[string]struct{}, len(matches))
	tags := make([]string, 0, len(matches))
	for _, m := range matches {
		if _, ok := seen[m[1]]; ok {
			continue
		}
		seen[m[1]] = struct{}{}
		tags = append(tags, m[1])
	}
	return tags
}

// notifyMentions resolves @tags against room roles first, then usernames,
// and notifies the resulting users over their user topics and push. The
// author never notifies themselves.
func (s *MessageService) notifyMentions(ctx context.Context, snap *permission.Snapshot, channel *model.Channel, m *model.Message) {
	tags := ParseMentionTags(m.Content)
	if len(tags) == 0 {
		return
	}

	authorName := ""
	if m.Author != nil {
		authorName = m.Author.Username
	}

	notified := make(map[string]struct{}, 8)
	for _, tag := range tags {
		if role, ok := snap.RoleByTag(tag); ok {
			if !snap.CanMentionRole(role.ID) {
				continue
			}
			holderIDs, err := s.holders.ListRoleHolderIDs(ctx, role.ID)
			if err != nil {
				logger.Errorf("mention holders role=%s: %v", role.ID, err)
				continue
			}
			for _, uid := range holderIDs {
				s.notifyMention(ctx, notified, uid, m, tag, authorName)
			}
			continue
		}

		// No role carries this tag, fall back to a username mention.
		user, err := s.users.GetByUsername(ctx, tag)
		if err != nil {
			continue
		}
		s.notifyMention(ctx, notified, user.ID, m, "", authorName)
	}
}

func (s *MessageService) notifyMention(ctx context.Context, notified map[string]struct{}, userID string, m *model.Message, roleTag, authorName string) {
	if userID == m.UserID {
		return
	}
	if _, ok := notified[userID]; ok {
		return
	}
	notified[userID] = struct{}{}

	s.publisher.Publish(ws.UserTopic(userID), ws.OutgoingMessage{
		Type: ws.EventMention,
		Payload: ws.MentionPayload{
			ChannelID: m.ChannelID,
			MessageID: m.ID,
			RoleTag:   roleTag,
			FromUser:  authorName,
		},
	})
	if s.push != nil {
		body := m.Content
		if len(body) > 120 {
			body = body[:117] + "..."
		}
		go s.push.Notify(context.WithoutCancel(ctx), userID, authorName, body, map[string]string{
			"channel_id": m.ChannelID,
			"message_id": fmt.Sprintf("%d", m.ID),
		})
	}
}
