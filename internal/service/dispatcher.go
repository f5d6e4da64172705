package service

import (
	"context"

	"github.com/Ernous/BoxChat/internal/model"
)

// SocketDispatcher adapts the domain services to the hub's inbound event
// interface.
type SocketDispatcher struct {
	messages *MessageService
	unread   *UnreadService
	rooms    *RoomService
	accounts *AccountService
}

func NewSocketDispatcher(messages *MessageService, unread *UnreadService, rooms *RoomService, accounts *AccountService) *SocketDispatcher {
	return &SocketDispatcher{messages: messages, unread: unread, rooms: rooms, accounts: accounts}
}

func (d *SocketDispatcher) CanAccessChannel(ctx context.Context, userID, channelID string) (bool, error) {
	return d.rooms.CanAccessChannel(ctx, userID, channelID)
}

func (d *SocketDispatcher) SendChannelMessage(ctx context.Context, userID, channelID, content string, msgType model.MessageType, fileURL, fileName string, fileSize int64) error {
	_, err := d.messages.Send(ctx, SendMessageInput{
		UserID:      userID,
		ChannelID:   channelID,
		Content:     content,
		MessageType: msgType,
		FileURL:     fileURL,
		FileName:    fileName,
		FileSize:    fileSize,
	})
	return err
}

func (d *SocketDispatcher) MarkRead(ctx context.Context, userID, channelID string, messageID int64) error {
	return d.unread.MarkRead(ctx, userID, channelID, messageID)
}

func (d *SocketDispatcher) Connected(ctx context.Context, userID string) {
	d.accounts.SetConnected(ctx, userID)
}

func (d *SocketDispatcher) Disconnected(ctx context.Context, userID string) {
	d.accounts.SetDisconnected(ctx, userID)
}
