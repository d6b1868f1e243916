// Package background implements the Background Runner (Component M): a
// fire-and-forget wrapper around the Conversation Orchestrator that
// returns immediately and executes the full turn on a detached goroutine,
// grounded on the teacher's errgroup-bounded SubAgentOrchestrator
// (internal/agent/app/subagent.go) generalized from a fixed task fan-out
// into a single long-running background turn per accepted request.
package background

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/observability"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/orchestrator"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// Accepted is the immediate 202 response (spec.md §4.M).
type Accepted struct {
	TaskID      string `json:"task_id"`
	EventID     string `json:"event_id"`
	Status      string `json:"status"`
	WorkspaceID string `json:"workspace_id"`
}

// Router is the subset of orchestrator.Router the runner needs.
type Router interface {
	Route(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error)
}

// Runner accepts turns and executes them off the request goroutine. Each
// workspace gets its own bounded concurrency group (default
// maxConcurrentTurns) so a burst of background turns against one
// workspace cannot starve the process (spec.md §5 "per-workspace
// concurrency cap").
type Runner struct {
	route  Router
	events ports.EventLog
	obs    *observability.Observability
	logger logging.Logger

	mu     sync.Mutex
	groups map[string]*errgroup.Group
	limit  int
}

const maxConcurrentTurns = 4

// NewRunner constructs a Runner. obs may be nil (dispatch metrics are
// simply not recorded).
func NewRunner(route Router, events ports.EventLog, obs *observability.Observability) *Runner {
	return &Runner{
		route: route, events: events, obs: obs,
		logger: logging.NewComponentLogger("background.Runner"),
		groups: make(map[string]*errgroup.Group),
		limit:  maxConcurrentTurns,
	}
}

// Accept records the initial task_id/event_id pair and launches Route on a
// detached goroutine, returning Accepted immediately without waiting for
// the turn to finish (spec.md §4.M).
func (r *Runner) Accept(ctx context.Context, req orchestrator.Request) (Accepted, error) {
	taskID := idgen.New()

	// The stream=true chat path is the only caller of Accept; attach the
	// task id as the SSE run id so a client's task_update and quick
	// response events can be correlated to this accepted turn.
	req.Stream = true
	req.RunID = taskID

	acceptedEvent := event.Event{
		Timestamp: time.Now(), Actor: event.ActorSystem, EventType: event.TypeTaskUpdate,
		WorkspaceID: req.WorkspaceID, ThreadID: req.ThreadID,
		Payload: map[string]any{"task_id": taskID, "status": "accepted"},
	}
	eventID, err := r.events.Append(ctx, acceptedEvent)
	if err != nil {
		return Accepted{}, fmt.Errorf("background accept: event log append failed: %w", err)
	}

	group := r.groupFor(req.WorkspaceID)
	// Run detached: the request's own context is cancelled when the HTTP
	// handler returns, but the turn must keep running after the 202 is
	// written, so it runs on a fresh background context that carries no
	// values from the request. group.Go blocks while the workspace is at
	// its concurrency limit, so it is itself started on a goroutine to keep
	// Accept from waiting for a free slot.
	detached := context.Background()
	go group.Go(func() error {
		r.execute(detached, req, taskID)
		return nil
	})

	return Accepted{TaskID: taskID, EventID: eventID, Status: "accepted", WorkspaceID: req.WorkspaceID}, nil
}

func (r *Runner) groupFor(workspaceID string) *errgroup.Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[workspaceID]
	if !ok {
		g = &errgroup.Group{}
		g.SetLimit(r.limit)
		r.groups[workspaceID] = g
	}
	return g
}

// execute runs the full turn and writes a system error event if Route
// panics or returns an error. The runner never retries automatically
// (spec.md §4.M): a retry is a new turn the user explicitly requests.
func (r *Runner) execute(ctx context.Context, req orchestrator.Request, taskID string) {
	start := time.Now()
	status := "completed"
	defer func() {
		if rec := recover(); rec != nil {
			status = "panicked"
			r.writeErrorEvent(ctx, req, taskID, fmt.Errorf("panic: %v", rec))
		}
		r.obs.RecordTaskDispatched(ctx, req.WorkspaceID, status)
		r.obs.RecordTaskDuration(ctx, req.WorkspaceID, time.Since(start).Seconds())
	}()

	if _, err := r.route.Route(ctx, req); err != nil {
		status = "failed"
		r.logger.Warn("background turn %q failed: %v", taskID, err)
		r.writeErrorEvent(ctx, req, taskID, err)
	}
}

func (r *Runner) writeErrorEvent(ctx context.Context, req orchestrator.Request, taskID string, cause error) {
	errEvent := event.Event{
		Timestamp: time.Now(), Actor: event.ActorSystem, EventType: event.TypeMessage,
		WorkspaceID: req.WorkspaceID, ThreadID: req.ThreadID,
		Payload:  map[string]any{"message": cause.Error(), "task_id": taskID},
		Metadata: map[string]any{"is_error": true},
	}
	if _, err := r.events.Append(ctx, errEvent); err != nil {
		r.logger.Warn("background turn %q: failed to write error event: %v", taskID, err)
	}
}
