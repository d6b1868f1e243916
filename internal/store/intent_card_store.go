package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// IntentCardStore holds long-lived IntentCards, exclusively owned by a
// profile (spec.md §3 "Ownership").
type IntentCardStore struct {
	mu    sync.RWMutex
	cards map[string]*intent.Card
}

var _ ports.IntentCardStore = (*IntentCardStore)(nil)

func NewIntentCardStore() *IntentCardStore {
	return &IntentCardStore{cards: make(map[string]*intent.Card)}
}

func (s *IntentCardStore) Create(ctx context.Context, c intent.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	c.CreatedAt, c.UpdatedAt = now, now
	cp := c
	s.cards[c.ID] = &cp
	return nil
}

func (s *IntentCardStore) Update(ctx context.Context, c intent.Card) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cards[c.ID]; !ok {
		return coreerrors.NotFoundError("intent card " + c.ID)
	}
	c.UpdatedAt = time.Now()
	cp := c
	s.cards[c.ID] = &cp
	return nil
}

func (s *IntentCardStore) Get(ctx context.Context, id string) (*intent.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[id]
	if !ok {
		return nil, coreerrors.NotFoundError("intent card " + id)
	}
	cp := *c
	return &cp, nil
}

// ListVisible returns cards owned by profileID matching the given status and
// priority filters (both OR'd internally, AND'd against each other), ordered
// newest-first, capped at limit. Used by IntentSteward's "currently visible
// IntentCards" input (spec.md §4.L step 1: active ∧ priority ∈ {high,
// medium}, up to 10).
func (s *IntentCardStore) ListVisible(ctx context.Context, profileID string, statuses []intent.CardStatus, priorities []intent.Priority, limit int) ([]intent.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	statusSet := make(map[intent.CardStatus]bool, len(statuses))
	for _, st := range statuses {
		statusSet[st] = true
	}
	prioritySet := make(map[intent.Priority]bool, len(priorities))
	for _, p := range priorities {
		prioritySet[p] = true
	}

	var out []intent.Card
	for _, c := range s.cards {
		if c.ProfileID != profileID {
			continue
		}
		if len(statusSet) > 0 && !statusSet[c.Status] {
			continue
		}
		if len(prioritySet) > 0 && !prioritySet[c.Priority] {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
