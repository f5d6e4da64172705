package ws

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubscribeAndPublish(t *testing.T) {
	hub := NewHub(nil, 0)
	c1 := NewClient(hub, nil, "user-1")
	c2 := NewClient(hub, nil, "user-2")

	topic := ChannelTopic("ch-1")
	hub.Subscribe(c1, topic)
	hub.Subscribe(c2, topic)
	require.Equal(t, 2, hub.Subscribers(topic))

	hub.Publish(topic, OutgoingMessage{Type: EventReceiveMessage, Payload: "hello"})

	for _, c := range []*Client{c1, c2} {
		select {
		case msg := <-c.send:
			assert.Equal(t, EventReceiveMessage, msg.Type)
		default:
			t.Fatalf("client %s did not receive message", c.userID)
		}
	}
}

func TestPublishOtherTopicNotDelivered(t *testing.T) {
	hub := NewHub(nil, 0)
	c := NewClient(hub, nil, "user-1")
	hub.Subscribe(c, ChannelTopic("ch-1"))

	hub.Publish(ChannelTopic("ch-2"), OutgoingMessage{Type: EventReceiveMessage})

	select {
	case <-c.send:
		t.Fatal("message leaked across topics")
	default:
	}
}

func TestUnsubscribe(t *testing.T) {
	hub := NewHub(nil, 0)
	c := NewClient(hub, nil, "user-1")
	topic := ChannelTopic("ch-1")

	hub.Subscribe(c, topic)
	hub.Unsubscribe(c, topic)
	assert.Equal(t, 0, hub.Subscribers(topic))

	hub.Publish(topic, OutgoingMessage{Type: EventReceiveMessage})
	select {
	case <-c.send:
		t.Fatal("unsubscribed client received message")
	default:
	}
}

func TestUserTopicNaming(t *testing.T) {
	assert.Equal(t, "channel:abc", ChannelTopic("abc"))
	assert.Equal(t, "user:u-1", UserTopic("u-1"))
}
