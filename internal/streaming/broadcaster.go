package streaming

import (
	"context"
	"sync"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/observability"
)

// clientBuffer is the bounded per-connection fan-out channel size. A slow
// SSE client drops events rather than blocking the turn, grounded on the
// teacher's EventBroadcaster (TestBroadcastDropIncreasesMetrics pins the
// "drop, don't block, and count it" contract).
const clientBuffer = 64

// Broadcaster fans out Envelopes to every client subscribed to a workspace's
// `/events/stream` connection.
type Broadcaster struct {
	mu      sync.RWMutex
	clients map[string]map[chan Envelope]struct{}
	obs     *observability.Observability
}

// NewBroadcaster constructs a Broadcaster. obs may be nil (drops are simply
// not counted).
func NewBroadcaster(obs *observability.Observability) *Broadcaster {
	return &Broadcaster{clients: make(map[string]map[chan Envelope]struct{}), obs: obs}
}

// RegisterClient subscribes ch to workspaceID's event stream.
func (b *Broadcaster) RegisterClient(workspaceID string, ch chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.clients[workspaceID]
	if !ok {
		set = make(map[chan Envelope]struct{})
		b.clients[workspaceID] = set
	}
	set[ch] = struct{}{}
}

// UnregisterClient removes ch from workspaceID's subscriber set.
func (b *Broadcaster) UnregisterClient(workspaceID string, ch chan Envelope) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.clients[workspaceID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(b.clients, workspaceID)
		}
	}
}

// GetClientCount returns the number of clients subscribed to workspaceID.
func (b *Broadcaster) GetClientCount(workspaceID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[workspaceID])
}

// Publish delivers env to every subscriber of workspaceID. Delivery is
// non-blocking: a full channel means a slow client, and the event is
// dropped for that client (never for others) and counted.
func (b *Broadcaster) Publish(workspaceID string, env Envelope) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for ch := range b.clients[workspaceID] {
		select {
		case ch <- env:
		default:
			if b.obs != nil {
				b.obs.RecordSSEDrop(context.Background())
			}
		}
	}
}
