package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// IntentLog is the append-only offline-evaluation log written by the Intent
// Pipeline's decision coordinator and IntentSteward's audit step
// (spec.md §4.F "Decision log", §4.L step 5). Grounded on the teacher's
// journal.FileWriter (internal/analytics/journal/writer.go): an in-memory
// analogue of the same "append structured record per turn" shape.
type IntentLog struct {
	mu      sync.RWMutex
	entries map[string][]ports.IntentLogEntry
}

var _ ports.IntentLog = (*IntentLog)(nil)

func NewIntentLog() *IntentLog {
	return &IntentLog{entries: make(map[string][]ports.IntentLogEntry)}
}

func (l *IntentLog) Append(ctx context.Context, entry ports.IntentLogEntry) error {
	if entry.ID == "" {
		entry.ID = idgen.New()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[entry.WorkspaceID] = append(l.entries[entry.WorkspaceID], entry)
	return nil
}

func (l *IntentLog) List(ctx context.Context, workspaceID string, limit int) ([]ports.IntentLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := append([]ports.IntentLogEntry(nil), l.entries[workspaceID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
