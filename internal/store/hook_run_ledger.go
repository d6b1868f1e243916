package store

import (
	"context"
	"sync"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/hook"
	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// HookRunLedger enforces the at-most-once idempotency guarantee of
// spec.md §4.J step 3 and §8: Insert is the only write, gated by a
// uniqueness constraint on IdempotencyKey; contention resolves
// deterministically in favour of the first writer.
type HookRunLedger struct {
	mu   sync.Mutex
	runs map[string]*hook.Run
}

var _ ports.HookRunLedger = (*HookRunLedger)(nil)

func NewHookRunLedger() *HookRunLedger {
	return &HookRunLedger{runs: make(map[string]*hook.Run)}
}

func (l *HookRunLedger) Insert(ctx context.Context, run hook.Run) (*hook.Run, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.runs[run.IdempotencyKey]; ok {
		cp := *existing
		return &cp, true, nil
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}
	cp := run
	l.runs[run.IdempotencyKey] = &cp
	return nil, false, nil
}

func (l *HookRunLedger) Get(ctx context.Context, idempotencyKey string) (*hook.Run, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.runs[idempotencyKey]
	if !ok {
		return nil, coreerrors.NotFoundError("hook run " + idempotencyKey)
	}
	cp := *r
	return &cp, nil
}
