// Package ports declares the interfaces the core consumes from external
// collaborators: persistence (Store) and the LLM vendor surface (Provider),
// plus the two pluggable identity/intent-registry ports (spec.md §6.2).
package ports

import (
	"context"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/hook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
)

// EventLogListOptions narrows a List query (spec.md §4.A).
type EventLogListOptions struct {
	ThreadID  string
	Types     []event.Type
	StartTime *time.Time
	EndTime   *time.Time
	Limit     int
	BeforeID  string
}

// EventLog is the append-only event store (Component A).
type EventLog interface {
	Append(ctx context.Context, e event.Event) (string, error)
	List(ctx context.Context, workspaceID string, opts EventLogListOptions) ([]event.Event, error)
	CountMessagesByThread(ctx context.Context, workspaceID, threadID string) (int, error)
}

// TaskStore is the task lifecycle store (Component B).
type TaskStore interface {
	Create(ctx context.Context, t task.Task) error
	UpdateStatus(ctx context.Context, taskID string, status task.Status, result map[string]any, taskErr string, completedAt *time.Time) error
	Get(ctx context.Context, taskID string) (*task.Task, error)
	GetByExecutionID(ctx context.Context, executionID string) ([]task.Task, error)
	ListPending(ctx context.Context, workspaceID string) ([]task.Task, error)
	ListRunning(ctx context.Context, workspaceID string) ([]task.Task, error)
}

// TimelineStore is the derived result-card projection (Component C).
type TimelineStore interface {
	Create(ctx context.Context, item timeline.Item) error
	Get(ctx context.Context, itemID string) (*timeline.Item, error)
	ListByWorkspace(ctx context.Context, workspaceID string, limit int) ([]timeline.Item, error)
	ListByMessage(ctx context.Context, messageID string) ([]timeline.Item, error)
	Update(ctx context.Context, itemID string, data map[string]any, cta []timeline.CTA) error
}

// PlaybookRegistry is the content-addressable playbook catalogue (Component D).
type PlaybookRegistry interface {
	List(ctx context.Context, workspaceID, locale string, source *playbook.Source) ([]playbook.Metadata, error)
	Get(ctx context.Context, playbookCode, locale, workspaceID string) (*playbook.Playbook, error)
	LoadRun(ctx context.Context, playbookCode, locale, workspaceID string) (*playbook.Run, error)
}

// IntentCardStore persists long-lived IntentCards, owned exclusively by a profile.
type IntentCardStore interface {
	Create(ctx context.Context, c intent.Card) error
	Update(ctx context.Context, c intent.Card) error
	Get(ctx context.Context, id string) (*intent.Card, error)
	ListVisible(ctx context.Context, profileID string, statuses []intent.CardStatus, priorities []intent.Priority, limit int) ([]intent.Card, error)
}

// SignalStore persists transient IntentSignals produced by extractors and
// hooks (spec.md §3 "IntentSignal"), consumed by IntentSteward's input
// collection step (§4.L step 1).
type SignalStore interface {
	Create(ctx context.Context, s intent.Signal) error
	ListRecent(ctx context.Context, workspaceID string, since time.Time) ([]intent.Signal, error)
}

// HookRunLedger is the idempotency ledger (Component J dependency).
type HookRunLedger interface {
	// Insert inserts a row under a uniqueness constraint on IdempotencyKey.
	// Returns (existing, true, nil) if a row already exists; contention
	// resolves deterministically in favour of the first writer.
	Insert(ctx context.Context, run hook.Run) (existing *hook.Run, alreadyExists bool, err error)
	Get(ctx context.Context, idempotencyKey string) (*hook.Run, error)
}

// IntentLogEntry is the audit record written by the Intent Pipeline and
// IntentSteward (spec.md §4.F "Decision log", §4.L step 5).
type IntentLogEntry struct {
	ID               string         `json:"id"`
	WorkspaceID      string         `json:"workspace_id"`
	ProfileID        string         `json:"profile_id"`
	RawInput         string         `json:"raw_input"`
	Channel          string         `json:"channel"`
	PipelineSteps    map[string]any `json:"pipeline_steps,omitempty"`
	FinalDecision    map[string]any `json:"final_decision,omitempty"`
	UserOverride     map[string]any `json:"user_override,omitempty"`
	Phase            string         `json:"phase,omitempty"`
	Timestamp        time.Time      `json:"timestamp"`
}

// IntentLog is the append-only offline-evaluation log.
type IntentLog interface {
	Append(ctx context.Context, entry IntentLogEntry) error
	List(ctx context.Context, workspaceID string, limit int) ([]IntentLogEntry, error)
}
