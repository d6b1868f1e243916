package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	coreerrors "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/errors"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

const (
	defaultTaskRetention = 24 * time.Hour
	defaultMaxTasks      = 10000
	defaultEvictInterval = 5 * time.Minute
)

// TaskStore is an in-memory TaskStore with TTL-based eviction for terminal
// tasks, grounded directly on the teacher's InMemoryTaskStore
// (internal/delivery/server/app/task_store.go).
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*task.Task

	retention time.Duration
	maxSize   int
	logger    logging.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
}

// Option configures a TaskStore.
type Option func(*TaskStore)

// WithRetention sets how long terminal tasks are retained before eviction.
func WithRetention(d time.Duration) Option { return func(s *TaskStore) { s.retention = d } }

// WithMaxTasks sets the hard cap on total stored tasks.
func WithMaxTasks(n int) Option { return func(s *TaskStore) { s.maxSize = n } }

// NewTaskStore creates a task store with TTL eviction running in the
// background; call Close to stop the eviction goroutine.
func NewTaskStore(opts ...Option) *TaskStore {
	s := &TaskStore{
		tasks:     make(map[string]*task.Task),
		retention: defaultTaskRetention,
		maxSize:   defaultMaxTasks,
		logger:    logging.NewComponentLogger("TaskStore"),
		stopCh:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	go s.evictLoop()
	return s
}

var _ ports.TaskStore = (*TaskStore)(nil)

// Close stops the background eviction goroutine.
func (s *TaskStore) Close() { s.stopOnce.Do(func() { close(s.stopCh) }) }

func (s *TaskStore) evictLoop() {
	ticker := time.NewTicker(defaultEvictInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stopCh:
			return
		case <-ticker.C:
			s.evictExpired()
		}
	}
}

func (s *TaskStore) evictExpired() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, t := range s.tasks {
		if !t.Status.IsTerminal() {
			continue
		}
		if t.CompletedAt != nil && now.Sub(*t.CompletedAt) > s.retention {
			delete(s.tasks, id)
		}
	}
	if len(s.tasks) <= s.maxSize {
		return
	}
	s.evictOldestTerminalLocked()
}

func (s *TaskStore) evictOldestTerminalLocked() {
	type candidate struct {
		id          string
		completedAt time.Time
	}
	var candidates []candidate
	for id, t := range s.tasks {
		if t.Status.IsTerminal() && t.CompletedAt != nil {
			candidates = append(candidates, candidate{id, *t.CompletedAt})
		}
	}
	sort.Slice(candidates, func(i, j int) bool { return candidates[i].completedAt.Before(candidates[j].completedAt) })

	toRemove := len(s.tasks) - s.maxSize
	for i := 0; i < toRemove && i < len(candidates); i++ {
		delete(s.tasks, candidates[i].id)
	}
}

// Create inserts a new task. The caller fully populates t (ID, WorkspaceID,
// Status=Pending, CreatedAt) — unlike the teacher's store, which generates
// fields itself, because here Task is a typed domain value shared with the
// rest of the core rather than store-private.
func (s *TaskStore) Create(ctx context.Context, t task.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := t
	s.tasks[t.ID] = &cp
	return nil
}

// UpdateStatus enforces the monotonic status lifecycle (spec.md §4.B, §8):
// once a task reaches a terminal status, further writes are ignored.
func (s *TaskStore) UpdateStatus(ctx context.Context, taskID string, status task.Status, result map[string]any, taskErr string, completedAt *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[taskID]
	if !ok {
		return coreerrors.NotFoundError("task " + taskID)
	}
	if !t.CanTransitionTo(status) {
		s.logger.Warn("ignoring illegal task transition %s -> %s for %s", t.Status, status, taskID)
		return nil
	}
	t.Status = status
	if result != nil {
		t.Result = result
	}
	if taskErr != "" {
		t.Error = taskErr
	}
	now := time.Now()
	if status == task.StatusRunning && t.StartedAt == nil {
		t.StartedAt = &now
	}
	if status.IsTerminal() {
		if completedAt != nil {
			t.CompletedAt = completedAt
		} else {
			t.CompletedAt = &now
		}
	}
	return nil
}

// Get retrieves a task by ID, returning a copy to prevent callers from
// sharing references with the store.
func (s *TaskStore) Get(ctx context.Context, taskID string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[taskID]
	if !ok {
		return nil, coreerrors.NotFoundError("task " + taskID)
	}
	cp := *t
	return &cp, nil
}

// GetByExecutionID returns all tasks sharing an execution id.
func (s *TaskStore) GetByExecutionID(ctx context.Context, executionID string) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []task.Task
	for _, t := range s.tasks {
		if t.ExecutionID == executionID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// ListPending returns pending tasks for a workspace.
func (s *TaskStore) ListPending(ctx context.Context, workspaceID string) ([]task.Task, error) {
	return s.listByStatus(workspaceID, task.StatusPending), nil
}

// ListRunning returns running tasks for a workspace.
func (s *TaskStore) ListRunning(ctx context.Context, workspaceID string) ([]task.Task, error) {
	return s.listByStatus(workspaceID, task.StatusRunning), nil
}

func (s *TaskStore) listByStatus(workspaceID string, status task.Status) []task.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []task.Task
	for _, t := range s.tasks {
		if t.WorkspaceID == workspaceID && t.Status == status {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
