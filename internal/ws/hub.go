package ws

import (
	"context"
	"sync"
	"time"

	"github.com/Ernous/BoxChat/internal/logger"
	"github.com/Ernous/BoxChat/internal/model"
)

// Dispatcher executes inbound socket commands against the domain layer. The
// hub owns connections and topics only; membership checks, persistence and
// the resulting broadcasts all happen behind this interface.
type Dispatcher interface {
	CanAccessChannel(ctx context.Context, userID, channelID string) (bool, error)
	SendChannelMessage(ctx context.Context, userID, channelID, content string, msgType model.MessageType, fileURL, fileName string, fileSize int64) error
	MarkRead(ctx context.Context, userID, channelID string, messageID int64) error
	Connected(ctx context.Context, userID string)
	Disconnected(ctx context.Context, userID string)
}

// Hub is a topic-keyed fan-out: clients subscribe to "channel:<id>" topics by
// sending join events, and every connection is implicitly subscribed to its
// own "user:<id>" topic.
type Hub struct {
	mu       sync.RWMutex
	subs     map[string]map[*Client]struct{}
	byUser   map[string]map[*Client]struct{}
	total    int
	maxConns int

	dispatcher Dispatcher
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
}

func NewHub(dispatcher Dispatcher, maxConns int) *Hub {
	if maxConns <= 0 {
		maxConns = 10000
	}
	return &Hub{
		subs:       make(map[string]map[*Client]struct{}),
		byUser:     make(map[string]map[*Client]struct{}),
		maxConns:   maxConns,
		dispatcher: dispatcher,
		register:   make(chan *Client, 64),
		unregister: make(chan *Client, 64),
		done:       make(chan struct{}),
	}
}

// SetDispatcher wires the domain layer in after construction. The hub and
// the services reference each other, so one side has to be set late; call
// this before Run.
func (h *Hub) SetDispatcher(d Dispatcher) {
	h.dispatcher = d
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		}
	}
}

func (h *Hub) shutdown() {
	// Collect all clients under the lock, do NOT perform I/O under mutex.
	h.mu.Lock()
	all := make([]*Client, 0, h.total)
	for _, clients := range h.byUser {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.subs = make(map[string]map[*Client]struct{})
	h.byUser = make(map[string]map[*Client]struct{})
	h.total = 0
	h.mu.Unlock()

	for _, c := range all {
		c.Close()
	}
	for _, c := range all {
		c.Wait()
	}
}

func (h *Hub) addClient(c *Client) {
	h.mu.Lock()
	if h.total >= h.maxConns {
		h.mu.Unlock()
		logger.Errorf("ws connection limit reached (%d), rejecting user=%s", h.maxConns, c.userID)
		c.Close()
		return
	}
	if _, ok := h.byUser[c.userID]; !ok {
		h.byUser[c.userID] = make(map[*Client]struct{})
	}
	h.byUser[c.userID][c] = struct{}{}
	h.total++
	first := len(h.byUser[c.userID]) == 1
	h.subscribeLocked(c, UserTopic(c.userID))
	h.mu.Unlock()

	if first {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.dispatcher.Connected(ctx, c.userID)
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	clients, ok := h.byUser[c.userID]
	if !ok {
		h.mu.Unlock()
		return
	}
	if _, exists := clients[c]; !exists {
		h.mu.Unlock()
		return
	}
	delete(clients, c)
	h.total--
	last := len(clients) == 0
	if last {
		delete(h.byUser, c.userID)
	}
	for topic := range c.topics {
		h.unsubscribeLocked(c, topic)
	}
	h.mu.Unlock()

	// Network I/O outside the lock.
	c.Close()

	if last {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		h.dispatcher.Disconnected(ctx, c.userID)
	}
}

func (h *Hub) subscribeLocked(c *Client, topic string) {
	if _, ok := h.subs[topic]; !ok {
		h.subs[topic] = make(map[*Client]struct{})
	}
	h.subs[topic][c] = struct{}{}
	c.topics[topic] = struct{}{}
}

func (h *Hub) unsubscribeLocked(c *Client, topic string) {
	if clients, ok := h.subs[topic]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.subs, topic)
		}
	}
	delete(c.topics, topic)
}

func (h *Hub) Subscribe(c *Client, topic string) {
	h.mu.Lock()
	h.subscribeLocked(c, topic)
	h.mu.Unlock()
}

func (h *Hub) Unsubscribe(c *Client, topic string) {
	h.mu.Lock()
	h.unsubscribeLocked(c, topic)
	h.mu.Unlock()
}

// Publish delivers msg to every client subscribed to topic. Slow clients are
// disconnected rather than allowed to stall the fan-out.
func (h *Hub) Publish(topic string, msg OutgoingMessage) {
	h.mu.RLock()
	clients, ok := h.subs[topic]
	if !ok {
		h.mu.RUnlock()
		return
	}
	targets := make([]*Client, 0, len(clients))
	for c := range clients {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	for _, c := range targets {
		h.sendToClient(c, msg)
	}
}

// Subscribers reports the current subscriber count for a topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[topic])
}

// HandleMessage dispatches incoming WebSocket events.
func (h *Hub) HandleMessage(ctx context.Context, c *Client, msg IncomingMessage) {
	switch msg.Type {
	case EventJoin:
		h.handleJoin(ctx, c, msg)
	case EventLeave:
		if msg.ChannelID != "" {
			h.Unsubscribe(c, ChannelTopic(msg.ChannelID))
		}
	case EventSendMessage:
		h.handleSend(ctx, c, msg)
	case EventMarkRead:
		h.handleMarkRead(ctx, c, msg)
	case EventTyping:
		h.handleTyping(c, msg)
	default:
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "unknown event type"})
	}
}

func (h *Hub) handleJoin(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleJoin", time.Now())()
	if msg.ChannelID == "" {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "channel_id required"})
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	ok, err := h.dispatcher.CanAccessChannel(ctx, c.userID, msg.ChannelID)
	if err != nil {
		logger.Errorf("ws join channel=%s user=%s: %v", msg.ChannelID, c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "internal error"})
		return
	}
	if !ok {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "not a member"})
		return
	}
	h.Subscribe(c, ChannelTopic(msg.ChannelID))
	h.sendToClient(c, OutgoingMessage{Type: EventJoined, Payload: JoinedPayload{ChannelID: msg.ChannelID}})
}

func (h *Hub) handleSend(ctx context.Context, c *Client, msg IncomingMessage) {
	defer logger.DeferLogDuration("ws.handleSend", time.Now())()
	if msg.ChannelID == "" || (msg.Content == "" && msg.FileURL == "") {
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "channel_id and content required"})
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msgType := model.MessageTypeText
	if msg.MessageType != "" {
		msgType = msg.MessageType
	}
	err := h.dispatcher.SendChannelMessage(ctx, c.userID, msg.ChannelID, msg.Content, msgType,
		msg.FileURL, msg.FileName, msg.FileSize)
	if err != nil {
		logger.Errorf("ws send channel=%s user=%s: %v", msg.ChannelID, c.userID, err)
		h.sendToClient(c, OutgoingMessage{Type: EventError, Payload: "failed to send message"})
	}
}

func (h *Hub) handleMarkRead(ctx context.Context, c *Client, msg IncomingMessage) {
	if msg.ChannelID == "" || msg.MessageID == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := h.dispatcher.MarkRead(ctx, c.userID, msg.ChannelID, msg.MessageID); err != nil {
		logger.Errorf("ws mark read channel=%s user=%s: %v", msg.ChannelID, c.userID, err)
	}
}

// handleTyping relays to the channel topic without touching storage. Only
// clients already joined to the channel may emit it.
func (h *Hub) handleTyping(c *Client, msg IncomingMessage) {
	if msg.ChannelID == "" {
		return
	}
	topic := ChannelTopic(msg.ChannelID)
	h.mu.RLock()
	_, joined := c.topics[topic]
	var targets []*Client
	if joined {
		for peer := range h.subs[topic] {
			if peer.userID != c.userID {
				targets = append(targets, peer)
			}
		}
	}
	h.mu.RUnlock()
	if !joined {
		return
	}

	out := OutgoingMessage{Type: EventTyping, Payload: TypingPayload{ChannelID: msg.ChannelID, UserID: c.userID}}
	for _, peer := range targets {
		h.sendToClient(peer, out)
	}
}

func (h *Hub) sendToClient(c *Client, msg OutgoingMessage) {
	select {
	case c.send <- msg:
	case <-c.done:
	default:
		// Backpressure: send buffer full, close slow client.
		logger.Errorf("ws send buffer full, closing slow client user=%s", c.userID)
		c.Close()
	}
}

func (h *Hub) Register(c *Client) {
	select {
	case h.register <- c:
	case <-h.done:
		c.Close()
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}
