package store

import (
	"context"
	"sort"
	"sync"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// TimelineStore is an in-memory Timeline Store (Component C). Items are
// created by tasks and intent extraction; never mutated on the critical
// read path (spec.md §4.C) — Update is called by the chat handler when a
// CTA action on an item is recorded.
type TimelineStore struct {
	mu    sync.RWMutex
	items map[string]*timeline.Item
}

var _ ports.TimelineStore = (*TimelineStore)(nil)

func NewTimelineStore() *TimelineStore {
	return &TimelineStore{items: make(map[string]*timeline.Item)}
}

func (s *TimelineStore) Create(ctx context.Context, item timeline.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := item
	s.items[item.ID] = &cp
	return nil
}

func (s *TimelineStore) Get(ctx context.Context, itemID string) (*timeline.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	it, ok := s.items[itemID]
	if !ok {
		return nil, coreerrors.NotFoundError("timeline item " + itemID)
	}
	cp := *it
	return &cp, nil
}

func (s *TimelineStore) ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]timeline.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []timeline.Item
	for _, it := range s.items {
		if it.WorkspaceID == workspaceID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *TimelineStore) ListByMessage(ctx context.Context, messageID string) ([]timeline.Item, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []timeline.Item
	for _, it := range s.items {
		if it.MessageID == messageID {
			out = append(out, *it)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TimelineStore) Update(ctx context.Context, itemID string, data map[string]any, cta []timeline.CTA) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[itemID]
	if !ok {
		return coreerrors.NotFoundError("timeline item " + itemID)
	}
	if data != nil {
		it.Data = data
	}
	if cta != nil {
		it.CTA = cta
	}
	return nil
}
