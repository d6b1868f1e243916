package streaming

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/observability"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// chunkSize is the fixed fallback chunk length (runes) used when a Provider
// has no streaming capability (spec.md §4.I "Provider dispatch").
const chunkSize = 40

// Turn is the input to a single streamed conversation turn.
type Turn struct {
	WorkspaceID string
	ThreadID    string
	MessageID   string
	RunID       string
	Model       string
	Messages    []ports.Message
	Temperature float64
	MaxTokens   int
}

// Executor drives a single turn's SSE event sequence: it writes every stage
// to the Event Log, publishes each Envelope to the Broadcaster, and
// enforces the strict ordering contract of spec.md §4.I:
//
//	exactly one connected, then user_message, then zero or more
//	pipeline_stage, then at most one execution_plan, then interleaved
//	task_update/chunk, then optionally execution_results, then at most one
//	terminal-mode event, ending in exactly one complete or error.
type Executor struct {
	events      ports.EventLog
	tasks       ports.TaskStore
	broadcaster *Broadcaster
	obs         *observability.Observability
	logger      logging.Logger
}

// NewExecutor constructs an Executor. obs may be nil.
func NewExecutor(events ports.EventLog, tasks ports.TaskStore, broadcaster *Broadcaster, obs *observability.Observability) *Executor {
	return &Executor{
		events:      events,
		tasks:       tasks,
		broadcaster: broadcaster,
		obs:         obs,
		logger:      logging.NewComponentLogger("streaming.Executor"),
	}
}

// envelopeLogType maps an SSE envelope type onto the closed domain event_type
// enum for durable Event Log writes. Purely transport-scoped envelope types
// (connected, chunk, quick_response_complete, complete, error) have no
// domain event counterpart and are published to the broadcaster only.
func envelopeLogType(t EventType) (event.Type, bool) {
	switch t {
	case EventPipelineStage:
		return event.TypePipelineStage, true
	case EventExecutionPlan:
		return event.TypeExecutionPlan, true
	case EventTaskUpdate:
		return event.TypeTaskUpdate, true
	case EventUserMessage:
		return event.TypeMessage, true
	default:
		return "", false
	}
}

func (x *Executor) emit(ctx context.Context, turn Turn, env Envelope) {
	env.WorkspaceID = turn.WorkspaceID
	env.RunID = turn.RunID
	x.broadcaster.Publish(turn.WorkspaceID, env)

	logType, ok := envelopeLogType(env.Type)
	if !ok {
		return
	}
	if _, err := x.events.Append(ctx, event.Event{
		Actor:       event.ActorSystem,
		EventType:   logType,
		WorkspaceID: turn.WorkspaceID,
		ThreadID:    turn.ThreadID,
		Payload:     map[string]any{"envelope": env},
	}); err != nil {
		x.logger.Warn("event log append failed: %v (type=%s)", err, env.Type)
	}
}

// Connected emits the turn-opening `connected` event. Must be the first
// event of every connection.
func (x *Executor) Connected(ctx context.Context, turn Turn) {
	x.emit(ctx, turn, Envelope{Type: EventConnected, EventID: idgen.New()})
}

// UserMessage emits the echo of the triggering user message.
func (x *Executor) UserMessage(ctx context.Context, turn Turn, content string) {
	x.emit(ctx, turn, Envelope{Type: EventUserMessage, MessageID: turn.MessageID, Content: content})
}

// Stage emits a pipeline_stage progress event.
func (x *Executor) Stage(ctx context.Context, turn Turn, stage PipelineStage, message string) {
	x.emit(ctx, turn, Envelope{Type: EventPipelineStage, Stage: stage, Message: message})
}

// ExecutionPlan emits the at-most-one execution_plan event.
func (x *Executor) ExecutionPlan(ctx context.Context, turn Turn, plan any) {
	x.emit(ctx, turn, Envelope{Type: EventExecutionPlan, Plan: plan})
}

// TaskUpdate emits a task_update event. It does not write the task store;
// callers such as skipPendingTasks update the store themselves.
func (x *Executor) TaskUpdate(ctx context.Context, turn Turn, kind TaskUpdateKind, t task.Task) {
	x.emit(ctx, turn, Envelope{Type: EventTaskUpdate, TaskEventType: kind, Task: t})
}

// complete finalizes the turn with exactly one terminal event.
func (x *Executor) complete(ctx context.Context, turn Turn, contextTokens int) {
	x.emit(ctx, turn, Envelope{Type: EventComplete, ContextTokens: contextTokens})
}

func (x *Executor) fail(ctx context.Context, turn Turn, message string) {
	x.emit(ctx, turn, Envelope{Type: EventError, Message: message})
}

// RunQuickResponse drives the non-plan conversational path: build the
// budgeted prompt, dispatch to the provider (streaming if supported,
// fixed-size chunking otherwise), stream `chunk` events, and terminate with
// `quick_response_complete` followed by `complete`. It returns the
// reassembled response text so the caller can also persist it as a durable
// assistant event — quick_response_complete itself is transport-scoped only
// (see envelopeLogType).
//
// Cancelling ctx stops reading from the provider promptly and marks every
// not-yet-running task belonging to this run as skipped (spec.md §4.I
// "Cancellation") before emitting the terminal event.
func (x *Executor) RunQuickResponse(ctx context.Context, turn Turn, provider ports.Provider, sections PromptSections) (string, error) {
	budget := BudgetFor(turn.Model)
	prompt, tokens := sections.Truncate(budget)

	messages := append([]ports.Message{{Role: ports.RoleSystem, Content: prompt}}, turn.Messages...)

	var full string
	streamErr := x.streamOrChunk(ctx, turn, provider, messages, &full)

	if ctx.Err() != nil {
		x.skipPendingTasks(ctx, turn)
		x.fail(ctx, turn, "turn cancelled")
		return "", ctx.Err()
	}
	if streamErr != nil {
		x.fail(ctx, turn, streamErr.Error())
		return "", streamErr
	}

	isFinal := true
	x.emit(ctx, turn, Envelope{Type: EventQuickResponseComplete, Content: full, IsFinal: &isFinal})
	x.complete(ctx, turn, tokens)
	return full, nil
}

// ExecutionResults emits the at-most-one execution_results event
// summarizing a plan dispatch's executed tasks and any suggestion cards
// raised for CTA confirmation (spec.md §4.H step 9).
func (x *Executor) ExecutionResults(ctx context.Context, turn Turn, executedTasks, suggestionCards any) {
	x.emit(ctx, turn, Envelope{Type: EventExecutionResults, ExecutedTasks: executedTasks, SuggestionCards: suggestionCards})
}

// PlaybookTriggered emits the playbook_triggered event marking that the
// Intent Pipeline selected playbookCode for this turn (spec.md §4.H step
// 10), ahead of whichever execution-mode event follows.
func (x *Executor) PlaybookTriggered(ctx context.Context, turn Turn, playbookCode string) {
	x.emit(ctx, turn, Envelope{Type: EventPlaybookTriggered, PlaybookCode: playbookCode})
}

// AgentModePlaybookExecuted emits agent_mode_playbook_executed for a
// playbook/multi-step branch that ran as a free-form agent pass rather than
// a fixed task list (a description-only playbook run, or the pipeline's own
// multi-step detection branch).
func (x *Executor) AgentModePlaybookExecuted(ctx context.Context, turn Turn, playbookCode, executionID string, tasks any) {
	x.emit(ctx, turn, Envelope{Type: EventAgentModePlaybookExecuted, PlaybookCode: playbookCode, ExecutionID: executionID, Tasks: tasks})
}

// ExecutionModePlaybookExecuted emits execution_mode_playbook_executed for
// a playbook run whose JSON HandoffPlan was dispatched as concrete Tasks.
func (x *Executor) ExecutionModePlaybookExecuted(ctx context.Context, turn Turn, playbookCode, executionID string, tasks any) {
	x.emit(ctx, turn, Envelope{Type: EventExecutionModePlaybookExecuted, PlaybookCode: playbookCode, ExecutionID: executionID, Tasks: tasks})
}

// streamOrChunk dispatches to the provider's streaming path when available,
// falling back to a single ChatCompletion call chunked into fixed-size
// pieces (spec.md §4.I "Provider dispatch"). Chunks are published as `chunk`
// envelopes as they become available.
func (x *Executor) streamOrChunk(ctx context.Context, turn Turn, provider ports.Provider, messages []ports.Message, full *string) error {
	if sc, ok := provider.(ports.StreamingCapable); ok && sc.SupportsStreaming() {
		reader, err := provider.ChatCompletionStream(ctx, messages, turn.Model, turn.Temperature, turn.MaxTokens)
		if err != nil {
			return err
		}
		defer reader.Close()
		for {
			if ctx.Err() != nil {
				return nil
			}
			chunk, err := reader.Next(ctx)
			if err != nil {
				return err
			}
			if chunk.Content != "" {
				*full += chunk.Content
				notFinal := false
				x.emit(ctx, turn, Envelope{Type: EventChunk, Content: chunk.Content, IsFinal: &notFinal})
			}
			if chunk.Done {
				return nil
			}
		}
	}

	completion, err := provider.ChatCompletion(ctx, messages, turn.Model, turn.Temperature, turn.MaxTokens)
	if err != nil {
		return err
	}
	*full = completion.Text

	runes := []rune(completion.Text)
	for i := 0; i < len(runes); i += chunkSize {
		if ctx.Err() != nil {
			return nil
		}
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		isFinal := end == len(runes)
		x.emit(ctx, turn, Envelope{Type: EventChunk, Content: string(runes[i:end]), IsFinal: &isFinal})
	}
	return nil
}

// skipPendingTasks marks every task belonging to turn's run that has not
// yet reached Running as Skipped, per the cancellation contract.
func (x *Executor) skipPendingTasks(ctx context.Context, turn Turn) {
	pending, err := x.tasks.ListPending(ctx, turn.WorkspaceID)
	if err != nil {
		x.logger.Warn("list pending tasks for cancellation failed: %v", err)
		return
	}
	now := time.Now()
	for _, t := range pending {
		if t.ExecutionID != turn.RunID {
			continue
		}
		if err := x.tasks.UpdateStatus(ctx, t.ID, task.StatusSkipped, nil, "turn cancelled", &now); err != nil {
			x.logger.Warn("skip task on cancellation failed: task=%s err=%v", t.ID, err)
			continue
		}
		t.Status = task.StatusSkipped
		x.TaskUpdate(ctx, turn, TaskSkipped, t)
	}
}

// NewRunID mints a run identifier, exposed here so HTTP handlers don't need
// to import idgen directly just to start a Turn.
func NewRunID() string { return idgen.NewRunID() }

// newClientID mints an opaque per-connection subscription identifier.
func newClientID() string { return uuid.NewString() }
