// Package store provides in-memory reference implementations of the ports
// the core consumes. Production deployments swap these for a durable Store;
// the core only depends on the ports package.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// EventLog is an in-memory, per-workspace append-only event store. Append
// writes the event into the workspace's slice under a mutex before it
// returns, so the "durable before returning" guarantee of spec.md §4.A
// holds; there is no asynchronous queue, background flush or backpressure.
type EventLog struct {
	mu         sync.RWMutex
	byWorkspace map[string][]event.Event
	seq        map[string]int64 // monotonic per-workspace sequence for Timestamp ties

	logger logging.Logger
}

var _ ports.EventLog = (*EventLog)(nil)

// NewEventLog constructs an empty in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{
		byWorkspace: make(map[string][]event.Event),
		seq:         make(map[string]int64),
		logger:      logging.NewComponentLogger("EventLog"),
	}
}

// Append durably appends e and returns its id. Each event is stamped with
// the current time, or with the workspace's previous event timestamp if
// that is later, so timestamps never decrease within a workspace (spec.md
// §8 "timestamp is non-decreasing in write order").
func (s *EventLog) Append(ctx context.Context, e event.Event) (string, error) {
	if e.WorkspaceID == "" {
		return "", coreerrors.UserError("workspace_id is required", nil)
	}
	if e.ID == "" {
		e.ID = idgen.New()
	}
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	events := s.byWorkspace[e.WorkspaceID]
	if len(events) > 0 && now.Before(events[len(events)-1].Timestamp) {
		now = events[len(events)-1].Timestamp
	}
	e.Timestamp = now
	s.byWorkspace[e.WorkspaceID] = append(events, e)
	return e.ID, nil
}

// List returns events for a workspace in chronological order, optionally
// filtered by thread, type, time window, and paginated via before_id/limit.
func (s *EventLog) List(ctx context.Context, workspaceID string, opts ports.EventLogListOptions) ([]event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := s.byWorkspace[workspaceID]
	out := make([]event.Event, 0, len(all))

	beforeIdx := len(all)
	if opts.BeforeID != "" {
		for i, e := range all {
			if e.ID == opts.BeforeID {
				beforeIdx = i
				break
			}
		}
	}

	typeSet := make(map[event.Type]bool, len(opts.Types))
	for _, t := range opts.Types {
		typeSet[t] = true
	}

	for i := 0; i < beforeIdx; i++ {
		e := all[i]
		if opts.ThreadID != "" && e.ThreadID != opts.ThreadID {
			continue
		}
		if len(typeSet) > 0 && !typeSet[e.EventType] {
			continue
		}
		if opts.StartTime != nil && e.Timestamp.Before(*opts.StartTime) {
			continue
		}
		if opts.EndTime != nil && e.Timestamp.After(*opts.EndTime) {
			continue
		}
		out = append(out, e)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.Before(out[j].Timestamp) })

	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[len(out)-opts.Limit:]
	}
	return out, nil
}

// CountMessagesByThread counts TypeMessage events in a thread.
func (s *EventLog) CountMessagesByThread(ctx context.Context, workspaceID, threadID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.byWorkspace[workspaceID] {
		if e.ThreadID == threadID && e.EventType == event.TypeMessage {
			n++
		}
	}
	return n, nil
}
