// Package orchestrator implements the Conversation Orchestrator (Component
// H): the top-level route() that threads a turn through file
// normalisation, project assignment, identity context, the Intent
// Pipeline, the Plan Builder, the playbook/QA branches, and a post-turn
// IntentSteward pass, grounded on the teacher's chat-orchestrator request
// handler (internal/delivery/server/app's turn-handling service).
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/pipeline"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/planner"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/steward"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/streaming"
)

// Request is route()'s full input (spec.md §4.H).
type Request struct {
	WorkspaceID string
	ProfileID   string
	Message     string
	Files       []FileInput
	Mode        string
	ProjectID   string
	ThreadID    string
	Locale      string

	// UseLLM gates the Intent Pipeline's and Plan Builder's LLM paths; it
	// is a workspace/request-level toggle, not a hardcoded constant.
	UseLLM bool
	// AutoIntentLayout is not read by Route: the inline post-turn
	// IntentSteward pass always runs observation-only, and Route starts no
	// background execution pass. Execution-enabled analysis runs only via
	// the steward_analyze hook, which takes the configured flag.
	AutoIntentLayout bool

	// Stream requests the Streaming Executor (Component I) drive this
	// turn's SSE event sequence instead of route() answering purely
	// synchronously. Set by background.Runner.Accept for the stream=true
	// chat path; the direct, synchronous Route() call leaves this false.
	Stream bool
	// RunID identifies the SSE run for Stream turns; background.Runner
	// fills this with its own task id so task_update events and the
	// accepted task share one identifier.
	RunID string
}

// Result is route()'s output (spec.md §4.H contract).
type Result struct {
	WorkspaceID       string        `json:"workspace_id"`
	DisplayEvents     []event.Event `json:"display_events"`
	TriggeredPlaybook string        `json:"triggered_playbook,omitempty"`
	PendingTasks      []task.Task   `json:"pending_tasks"`
}

// Router is the Conversation Orchestrator.
type Router struct {
	events    ports.EventLog
	tasks     ports.TaskStore
	timelines ports.TimelineStore
	playbooks ports.PlaybookRegistry
	cards     ports.IntentCardStore
	signals   ports.SignalStore
	intentLog ports.IntentLog

	identity       ports.IdentityPort
	intentRegistry ports.IntentRegistryPort

	provider ports.Provider
	model    string

	pipeline *pipeline.Coordinator
	planner  *planner.Builder
	steward  *steward.Steward

	streamer *streaming.Executor

	logger logging.Logger
}

// Deps collects Router's collaborators.
type Deps struct {
	Events    ports.EventLog
	Tasks     ports.TaskStore
	Timelines ports.TimelineStore
	Playbooks ports.PlaybookRegistry
	Cards     ports.IntentCardStore
	Signals   ports.SignalStore
	IntentLog ports.IntentLog

	Identity       ports.IdentityPort
	IntentRegistry ports.IntentRegistryPort

	Provider ports.Provider
	Model    string

	// Streamer is the Streaming Executor (Component I) driving Stream
	// turns' SSE sequence. Nil is valid: Route() then always answers
	// synchronously, matching its pre-streaming behavior.
	Streamer *streaming.Executor
}

// NewRouter constructs a Router from its collaborators.
func NewRouter(deps Deps) *Router {
	return &Router{
		events: deps.Events, tasks: deps.Tasks, timelines: deps.Timelines,
		playbooks: deps.Playbooks, cards: deps.Cards, signals: deps.Signals, intentLog: deps.IntentLog,
		identity: deps.Identity, intentRegistry: deps.IntentRegistry,
		provider: deps.Provider, model: deps.Model,
		pipeline: pipeline.NewCoordinator(deps.Provider, deps.Model, deps.Playbooks, deps.IntentLog),
		planner:  planner.NewBuilder(deps.Provider, deps.Model),
		steward:  steward.NewSteward(deps.Provider, deps.Model, deps.Cards, deps.IntentLog),
		streamer: deps.Streamer,
		logger:   logging.NewComponentLogger("orchestrator.Router"),
	}
}

// Route runs the full turn pipeline described by spec.md §4.H. When
// req.Stream is set and a Streamer is configured, every step below also
// publishes the matching SSE Envelope through the Streaming Executor
// (Component I), in addition to route()'s ordinary synchronous contract.
func (r *Router) Route(ctx context.Context, req Request) (Result, error) {
	var display []event.Event

	var turn *streaming.Turn
	if r.streamer != nil && req.Stream {
		runID := req.RunID
		if runID == "" {
			runID = streaming.NewRunID()
		}
		t := streaming.Turn{WorkspaceID: req.WorkspaceID, ThreadID: req.ThreadID, RunID: runID, Model: r.model}
		turn = &t
		r.streamer.Connected(ctx, t)
	}

	// Step 1: file normalisation. Missing ids are logged, never fatal.
	resolvedFiles, missing := r.normalizeFiles(ctx, req.WorkspaceID, req.Files)
	for _, fileID := range missing {
		r.logger.Warn("route: file %q could not be resolved to a file_document_id", fileID)
	}

	// Steps 3, 4, 6 are computed ahead of the USER event append (step 2)
	// because the Event Log never mutates a published event (spec.md §4.A
	// "No edits; corrections are new events") — their results are
	// embedded in the USER event's own metadata at creation time instead
	// of patched in afterward.
	assignment := r.assignProject(ctx, req.WorkspaceID, req.Message, req.ProjectID)

	execCtx, err := r.identity.GetCurrentContext(ctx, req.WorkspaceID, req.ProfileID)
	if err != nil {
		r.logger.Warn("route: identity context resolution failed: %v", err)
	}

	resolvedIntent, intentErr := r.intentRegistry.ResolveIntent(ctx, req.Message, execCtx, nil, req.Locale)
	if intentErr != nil {
		r.logger.Warn("route: pre-pipeline intent extraction failed (non-blocking): %v", intentErr)
	}

	// Step 2: USER event append. Durable; failure is fatal.
	userMetadata := map[string]any{}
	if assignment.ProjectID != "" {
		userMetadata["project_assignment"] = assignment
	}
	if intentErr == nil {
		userMetadata["intents"] = resolvedIntent.Intents
		userMetadata["themes"] = resolvedIntent.Themes
	}
	userEvent := event.Event{
		Timestamp: time.Now(), Actor: event.ActorUser, EventType: event.TypeMessage,
		WorkspaceID: req.WorkspaceID, ThreadID: req.ThreadID, ProjectID: assignment.ProjectID,
		ProfileID: req.ProfileID,
		Payload:   map[string]any{"message": req.Message, "mode": req.Mode},
		Metadata:  userMetadata,
	}
	userEventID, err := r.events.Append(ctx, userEvent)
	if err != nil {
		return Result{}, fmt.Errorf("route: USER event append failed: %w", err)
	}
	userEvent.ID = userEventID
	display = append(display, userEvent)

	if turn != nil {
		turn.MessageID = userEventID
		r.streamer.UserMessage(ctx, *turn, req.Message)
		r.streamer.Stage(ctx, *turn, streaming.StageIntentExtraction, "resolving active intents and themes")
	}

	if intentErr == nil && len(resolvedIntent.Intents) > 0 {
		r.seedIntentArtifacts(ctx, req, userEventID, resolvedIntent)
	}

	// Step 5: effective playbook resolution.
	effective, err := r.playbooks.List(ctx, req.WorkspaceID, req.Locale, nil)
	if err != nil {
		r.logger.Warn("route: effective playbook resolution failed: %v", err)
	}

	if turn != nil {
		r.streamer.Stage(ctx, *turn, streaming.StageContextBuilding, "gathering active intent cards and playbooks")
	}

	// Step 7: Intent Pipeline. Non-fatal: proceed to QA on failure.
	activeCards, _ := r.cards.ListVisible(ctx, req.ProfileID, []intent.CardStatus{intent.CardActive}, nil, 10)
	activeIntents := make([]string, 0, len(activeCards))
	for _, c := range activeCards {
		activeIntents = append(activeIntents, c.Title)
	}

	pipelineResult, pipelineErr := r.pipeline.Analyze(ctx, pipeline.Input{
		WorkspaceID: req.WorkspaceID, ProfileID: req.ProfileID, Channel: req.Mode,
		RawInput: req.Message, ActiveIntents: activeIntents, Locale: req.Locale, EffectivePacks: effective,
	}, pipeline.Config{UseLLM: req.UseLLM, RulePriority: true})
	if pipelineErr != nil {
		r.logger.Warn("route: intent pipeline analysis failed (non-blocking): %v", pipelineErr)
		pipelineResult = pipeline.Result{}
	}

	// Step 8: multi-step detection branch.
	if pipelineResult.MultiStep {
		if turn != nil {
			r.streamer.Stage(ctx, *turn, streaming.StageTaskAssignment, "dispatching multi-step workflow")
		}
		summaries := r.dispatchHandoffPlan(ctx, req.WorkspaceID, userEventID, playbook.HandoffPlan{
			Steps: pipelineResult.Steps, StepDependencies: pipelineResult.StepDependencies,
		})
		if turn != nil {
			r.streamer.AgentModePlaybookExecuted(ctx, *turn, "multi_step", userEventID, summaries)
		}
		assistantEvent := r.appendAssistantEvent(ctx, req.WorkspaceID, req.ThreadID, userEventID,
			fmt.Sprintf("Started a %d-step workflow: %v", len(summaries), summaries))
		if assistantEvent != nil {
			display = append(display, *assistantEvent)
		}
	}

	// Step 9: Plan Builder + execution.
	if turn != nil {
		r.streamer.Stage(ctx, *turn, streaming.StageExecutionStart, "building execution plan")
	}
	ep, err := r.planner.Build(ctx, planner.Request{
		Message: req.Message, Files: toPlannerFiles(resolvedFiles), WorkspaceID: req.WorkspaceID,
		ProfileID: req.ProfileID, MessageID: userEventID, ProjectID: assignment.ProjectID,
		UseLLM: req.UseLLM, EffectivePlaybooks: effective,
	})
	if err != nil {
		r.logger.Warn("route: plan builder failed: %v", err)
	}
	dispatch := r.dispatchPlan(ctx, ep)
	if len(ep.Tasks) > 0 || len(ep.Steps) > 0 {
		planEvent := event.Event{
			Timestamp: time.Now(), Actor: event.ActorSystem, EventType: event.TypeExecutionPlan,
			WorkspaceID: req.WorkspaceID, ThreadID: req.ThreadID, ProjectID: assignment.ProjectID,
			Payload: map[string]any{
				"execution_plan_id": ep.ID, "plan_summary": ep.PlanSummary,
				"task_count": len(ep.Tasks), "executed_task_ids": dispatch.ExecutedTaskIDs,
			},
		}
		if id, err := r.events.Append(ctx, planEvent); err == nil {
			planEvent.ID = id
			display = append(display, planEvent)
		} else {
			r.logger.Warn("route: execution plan event append failed: %v", err)
		}
		if turn != nil {
			r.streamer.ExecutionPlan(ctx, *turn, ep)
		}
	}
	if turn != nil && (len(dispatch.ExecutedTaskIDs) > 0 || len(dispatch.SuggestionCards) > 0) {
		r.streamer.ExecutionResults(ctx, *turn, dispatch.ExecutedTaskIDs, dispatch.SuggestionCards)
	}

	// Step 10: playbook branch / Step 11: QA fallback.
	triggeredPlaybook := ""
	if pipelineResult.SelectedPlaybookCode != "" {
		if turn != nil {
			r.streamer.Stage(ctx, *turn, streaming.StagePlaybookSelection,
				fmt.Sprintf("playbook %q selected", pipelineResult.SelectedPlaybookCode))
		}
		run, loadErr := r.playbooks.LoadRun(ctx, pipelineResult.SelectedPlaybookCode, req.Locale, req.WorkspaceID)
		if loadErr != nil {
			r.logger.Warn("route: playbook run load failed for %q: %v", pipelineResult.SelectedPlaybookCode, loadErr)
		}
		switch {
		case run != nil && run.HasJSON():
			triggeredPlaybook = run.PlaybookCode
			if turn != nil {
				r.streamer.PlaybookTriggered(ctx, *turn, run.PlaybookCode)
			}
			summaries := r.dispatchHandoffPlan(ctx, req.WorkspaceID, userEventID, playbook.HandoffPlan{Steps: run.Steps})
			if turn != nil {
				r.streamer.ExecutionModePlaybookExecuted(ctx, *turn, run.PlaybookCode, userEventID, summaries)
			}
			assistantEvent := r.appendAssistantEvent(ctx, req.WorkspaceID, req.ThreadID, userEventID,
				fmt.Sprintf("Running playbook %q: %v", run.PlaybookCode, summaries))
			if assistantEvent != nil {
				display = append(display, *assistantEvent)
			}
		case run != nil:
			triggeredPlaybook = run.PlaybookCode
			if turn != nil {
				r.streamer.PlaybookTriggered(ctx, *turn, run.PlaybookCode)
				r.streamer.AgentModePlaybookExecuted(ctx, *turn, run.PlaybookCode, userEventID, nil)
			}
			assistantEvent := r.appendAssistantEvent(ctx, req.WorkspaceID, req.ThreadID, userEventID, run.Description)
			if assistantEvent != nil {
				display = append(display, *assistantEvent)
			}
		}
	} else if turn != nil {
		r.streamer.Stage(ctx, *turn, streaming.StageNoPlaybookFound, "no playbook matched this turn")
	}
	if triggeredPlaybook == "" {
		var answer string
		var qaErr error
		if turn != nil {
			turn.Messages = []ports.Message{{Role: ports.RoleUser, Content: req.Message}}
			answer, qaErr = r.streamer.RunQuickResponse(ctx, *turn, r.provider, streaming.PromptSections{
				SystemInstructions: "You are a helpful assistant. Answer directly and concisely.",
				UserTurn:           req.Message,
			})
		} else {
			answer, qaErr = r.answerQA(ctx, req.Message)
		}
		if qaErr != nil {
			r.logger.Warn("route: QA fallback failed: %v", qaErr)
		} else if assistantEvent := r.appendAssistantEvent(ctx, req.WorkspaceID, req.ThreadID, userEventID, answer); assistantEvent != nil {
			display = append(display, *assistantEvent)
		}
	}

	// Step 12: post-turn IntentSteward, observation-only inline.
	r.postTurn(ctx, req, userEventID)

	return Result{
		WorkspaceID: req.WorkspaceID, DisplayEvents: display,
		TriggeredPlaybook: triggeredPlaybook, PendingTasks: dispatch.PendingTasks,
	}, nil
}

func (r *Router) appendAssistantEvent(ctx context.Context, workspaceID, threadID, messageID, text string) *event.Event {
	e := event.Event{
		Timestamp: time.Now(), Actor: event.ActorAssistant, EventType: event.TypeMessage,
		WorkspaceID: workspaceID, ThreadID: threadID,
		Payload:   map[string]any{"message": text, "in_reply_to": messageID},
		EntityIDs: []string{messageID},
	}
	id, err := r.events.Append(ctx, e)
	if err != nil {
		r.logger.Warn("route: assistant event append failed: %v", err)
		return nil
	}
	e.ID = id
	return &e
}

// seedIntentArtifacts creates the pre-pipeline TimelineItem(intent_seeds)
// and persists the resolved intents as candidate IntentSignals for a
// future IntentSteward pass (spec.md §4.H step 6, §4.L step 1).
func (r *Router) seedIntentArtifacts(ctx context.Context, req Request, messageID string, resolved ports.ResolvedIntent) {
	item := timeline.Item{
		ID: idgen.New(), WorkspaceID: req.WorkspaceID, MessageID: messageID,
		Type: timeline.TypeIntentSeeds, Title: "Detected intents", Summary: fmt.Sprintf("%v", resolved.Intents),
		Data: map[string]any{"intents": resolved.Intents, "themes": resolved.Themes, "confidence": resolved.Confidence},
		CreatedAt: time.Now(),
	}
	if err := r.timelines.Create(ctx, item); err != nil {
		r.logger.Warn("route: intent_seeds timeline item create failed: %v", err)
	}

	for _, code := range resolved.Intents {
		sig := intent.Signal{
			WorkspaceID: req.WorkspaceID, ProfileID: req.ProfileID, Label: code,
			Confidence: resolved.Confidence, Source: intent.SourceLLMExtractor, MessageID: messageID,
		}
		if err := r.signals.Create(ctx, sig); err != nil {
			r.logger.Warn("route: candidate signal persist failed: %v", err)
		}
	}
}

func toPlannerFiles(files []ResolvedFile) []planner.FileRef {
	out := make([]planner.FileRef, 0, len(files))
	for _, f := range files {
		out = append(out, planner.FileRef{FileDocumentID: f.FileDocumentID, MimeType: f.MimeType})
	}
	return out
}
