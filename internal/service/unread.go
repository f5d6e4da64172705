package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
	"github.com/Ernous/BoxChat/internal/repository"
	"github.com/Ernous/BoxChat/internal/ws"
)

type ReadStore interface {
	Advance(ctx context.Context, userID, channelID string, messageID int64) error
	Get(ctx context.Context, userID, channelID string) (*model.ReadMarker, error)
	GetForChannels(ctx context.Context, userID string, channelIDs []string) (map[string]int64, error)
}

type UnreadCounter interface {
	CountUnread(ctx context.Context, channelID, userID string, lastReadID int64) (int, error)
	LastMessageID(ctx context.Context, channelID string) (int64, error)
}

// UnreadService tracks per-user read markers and derives unread counts.
type UnreadService struct {
	snapshots SnapshotLoader
	channels  ChannelStore
	markers   ReadStore
	counter   UnreadCounter
	publisher Publisher
}

func NewUnreadService(snapshots SnapshotLoader, channels ChannelStore, markers ReadStore, counter UnreadCounter, publisher Publisher) *UnreadService {
	return &UnreadService{
		snapshots: snapshots,
		channels:  channels,
		markers:   markers,
		counter:   counter,
		publisher: publisher,
	}
}

// MarkRead advances the caller's marker in the channel and broadcasts the
// new read state. The marker never moves backwards and never past the
// channel's newest message.
func (s *UnreadService) MarkRead(ctx context.Context, userID, channelID string, messageID int64) error {
	defer logger.DeferLogDuration("unreadService.MarkRead", time.Now())()

	channel, err := s.channels.GetChannel(ctx, channelID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("unreadService.MarkRead channel: %w", err)
	}
	snap, err := s.snapshots.Load(ctx, channel.RoomID, userID)
	if err != nil {
		return fmt.Errorf("unreadService.MarkRead snapshot: %w", err)
	}
	if !snap.IsMember() {
		return ErrPermissionDenied
	}

	last, err := s.counter.LastMessageID(ctx, channelID)
	if err != nil {
		return fmt.Errorf("unreadService.MarkRead last: %w", err)
	}
	if messageID > last {
		messageID = last
	}
	if messageID <= 0 {
		return nil
	}

	if err := s.markers.Advance(ctx, userID, channelID, messageID); err != nil {
		return fmt.Errorf("unreadService.MarkRead advance: %w", err)
	}

	s.publisher.Publish(ws.ChannelTopic(channelID), ws.OutgoingMessage{
		Type: ws.EventReadStatusUpdated,
		Payload: ws.ReadStatusPayload{
			ChannelID:         channelID,
			UserID:            userID,
			LastReadMessageID: messageID,
		},
	})
	return nil
}

// ChannelUnread returns the number of unread messages for the user in one
// channel. Messages authored by the user never count.
func (s *UnreadService) ChannelUnread(ctx context.Context, userID, channelID string) (int, error) {
	defer logger.DeferLogDuration("unreadService.ChannelUnread", time.Now())()

	var lastRead int64
	marker, err := s.markers.Get(ctx, userID, channelID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return 0, fmt.Errorf("unreadService.ChannelUnread marker: %w", err)
	}
	if marker != nil {
		lastRead = marker.LastReadMessageID
	}
	n, err := s.counter.CountUnread(ctx, channelID, userID, lastRead)
	if err != nil {
		return 0, fmt.Errorf("unreadService.ChannelUnread count: %w", err)
	}
	return n, nil
}

// ChannelsUnread computes unread counts for a set of channels in one pass.
func (s *UnreadService) ChannelsUnread(ctx context.Context, userID string, channelIDs []string) (map[string]int, error) {
	defer logger.DeferLogDuration("unreadService.ChannelsUnread", time.Now())()

	markers, err := s.markers.GetForChannels(ctx, userID, channelIDs)
	if err != nil {
		return nil, fmt.Errorf("unreadService.ChannelsUnread markers: %w", err)
	}
	counts := make(map[string]int, len(channelIDs))
	for _, id := range channelIDs {
		n, err := s.counter.CountUnread(ctx, id, userID, markers[id])
		if err != nil {
			return nil, fmt.Errorf("unreadService.ChannelsUnread count channel=%s: %w", id, err)
		}
		counts[id] = n
	}
	return counts, nil
}
