package streaming

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBroadcasterDeliversToRegisteredClient(t *testing.T) {
	b := NewBroadcaster(nil)
	ch := make(chan Envelope, 1)
	b.RegisterClient("ws-1", ch)

	b.Publish("ws-1", Envelope{Type: EventConnected})

	select {
	case got := <-ch:
		assert.Equal(t, EventConnected, got.Type)
	default:
		t.Fatal("expected envelope to be delivered")
	}
}

func TestBroadcasterDropsOnFullBufferWithoutBlockingOtherClients(t *testing.T) {
	b := NewBroadcaster(nil)
	slow := make(chan Envelope, 1)
	fast := make(chan Envelope, 2)
	b.RegisterClient("ws-1", slow)
	b.RegisterClient("ws-1", fast)

	b.Publish("ws-1", Envelope{Type: EventChunk, Content: "a"})
	b.Publish("ws-1", Envelope{Type: EventChunk, Content: "b"})

	assert.Len(t, fast, 2, "fast client receives both events")
	assert.Len(t, slow, 1, "slow client's second event is dropped, not blocked")
}

func TestBroadcasterUnregisterClientRemovesWorkspaceWhenEmpty(t *testing.T) {
	b := NewBroadcaster(nil)
	ch := make(chan Envelope, 1)
	b.RegisterClient("ws-1", ch)
	assert.Equal(t, 1, b.GetClientCount("ws-1"))

	b.UnregisterClient("ws-1", ch)
	assert.Equal(t, 0, b.GetClientCount("ws-1"))
}

func TestBroadcasterPublishToUnknownWorkspaceIsNoop(t *testing.T) {
	b := NewBroadcaster(nil)
	assert.NotPanics(t, func() {
		b.Publish("nonexistent", Envelope{Type: EventConnected})
	})
}
