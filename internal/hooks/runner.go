package hooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/hook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/observability"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// stepIntentExtract and stepStewardAnalyze are the fixed two-hook pipeline
// spec.md §4.J names.
const (
	stepIntentExtract  = "intent_extract"
	stepStewardAnalyze = "steward_analyze"
)

// defaultAllowedHooks is the policy gate's default allow-set.
var defaultAllowedHooks = map[string]bool{
	stepIntentExtract:  true,
	stepStewardAnalyze: true,
}

// Request is on_chat_synced's input (spec.md §4.J).
type Request struct {
	WorkspaceID string
	ProfileID   string
	Message     string
	MessageID   string
	TraceID     string
	ThreadID    string
	Receipts    []hook.Receipt
}

// Results is on_chat_synced's output. A hook that didn't run (policy gate,
// receipt skip, or a failure swallowed per spec.md §4.J step 4) leaves its
// field unset rather than failing the whole call.
type Results struct {
	IntentExtract  map[string]any
	StewardAnalyze map[string]any
}

// IntentExtractFn runs the intent_extract hook body and reports the
// signals it extracted, which gate steward_analyze.
type IntentExtractFn func(ctx context.Context, req Request) (result map[string]any, signals []string, err error)

// StewardAnalyzeFn runs the steward_analyze hook body.
type StewardAnalyzeFn func(ctx context.Context, req Request, signals []string) (result map[string]any, err error)

// Runner executes the fixed hook pipeline with idempotency and receipt
// gating.
type Runner struct {
	events         ports.EventLog
	ledger         ports.HookRunLedger
	allowedHooks   map[string]bool
	obs            *observability.Observability
	intentExtract  IntentExtractFn
	stewardAnalyze StewardAnalyzeFn
	logger         logging.Logger
}

// NewRunner constructs a Runner. allowedHooks may be nil to use the
// package default {intent_extract, steward_analyze}; obs may be nil (hook
// outcomes are simply not recorded).
func NewRunner(events ports.EventLog, ledger ports.HookRunLedger, allowedHooks map[string]bool, obs *observability.Observability, intentExtract IntentExtractFn, stewardAnalyze StewardAnalyzeFn) *Runner {
	if allowedHooks == nil {
		allowedHooks = defaultAllowedHooks
	}
	return &Runner{
		events: events, ledger: ledger, allowedHooks: allowedHooks, obs: obs,
		intentExtract: intentExtract, stewardAnalyze: stewardAnalyze,
		logger: logging.NewComponentLogger("hooks.Runner"),
	}
}

// idempotencyKey computes sha256("{workspace_id}:{message_id}:{step}")[:48]
// (spec.md §4.J step 3).
func idempotencyKey(workspaceID, messageID, step string) string {
	sum := sha256.Sum256([]byte(workspaceID + ":" + messageID + ":" + step))
	return hex.EncodeToString(sum[:])[:48]
}

// admit applies receipt evaluation, the policy gate, and the idempotency
// ledger's cache check for a single hook step. It returns (cached result,
// found-in-cache, should-execute).
func (r *Runner) admit(ctx context.Context, req Request, step string) (map[string]any, bool, bool) {
	decision := EvaluateReceipt(step, req.Receipts)
	if decision.Reason != hook.ReasonNoReceipt {
		r.emitReceiptEvent(ctx, req, decision)
	}
	if !decision.ShouldRun {
		return nil, false, false
	}
	if !r.allowedHooks[step] {
		return nil, false, false
	}

	key := idempotencyKey(req.WorkspaceID, req.MessageID, step)
	if existing, err := r.ledger.Get(ctx, key); err == nil && existing != nil {
		return existing.ResultSummary, true, false
	}
	return nil, false, true
}

// persist records the outcome of a hook body execution, resolving ledger
// insert races in favour of whichever writer won (spec.md §5
// "contention resolves deterministically in favour of the first writer").
func (r *Runner) persist(ctx context.Context, req Request, step string, result map[string]any, execErr error) map[string]any {
	status := hook.RunCompleted
	if execErr != nil {
		status = hook.RunFailed
		r.logger.Warn("hook %s execution failed: %v", step, execErr)
		result = nil
	}
	r.obs.RecordHookRun(ctx, step, string(status))

	key := idempotencyKey(req.WorkspaceID, req.MessageID, step)
	run := hook.Run{
		IdempotencyKey: key, HookType: step, WorkspaceID: req.WorkspaceID,
		Status: status, ResultSummary: result, CreatedAt: time.Now(),
	}
	existing, alreadyExists, err := r.ledger.Insert(ctx, run)
	if err != nil {
		r.logger.Warn("hook run ledger insert failed for %s: %v", step, err)
		return result
	}
	if alreadyExists {
		return existing.ResultSummary
	}
	return result
}

// OnChatSynced runs the fixed {intent_extract, steward_analyze} pipeline.
// Each hook's own failure produces a failed HookRun entry but never
// propagates upward: the caller sees a successful Results with that
// field simply unset (spec.md §4.J step 4).
func (r *Runner) OnChatSynced(ctx context.Context, req Request) (Results, error) {
	var results Results
	var signals []string

	if cached, found, shouldRun := r.admit(ctx, req, stepIntentExtract); found {
		results.IntentExtract = cached
	} else if shouldRun && r.intentExtract != nil {
		result, sig, err := r.intentExtract(ctx, req)
		signals = sig
		if persisted := r.persist(ctx, req, stepIntentExtract, result, err); persisted != nil {
			results.IntentExtract = persisted
		}
	}

	// steward_analyze runs only if intent_extract produced a non-empty
	// signal list AND its own receipt allowed it (spec.md §4.J "Gating").
	if len(signals) == 0 {
		return results, nil
	}

	if cached, found, shouldRun := r.admit(ctx, req, stepStewardAnalyze); found {
		results.StewardAnalyze = cached
	} else if shouldRun && r.stewardAnalyze != nil {
		result, err := r.stewardAnalyze(ctx, req, signals)
		if persisted := r.persist(ctx, req, stepStewardAnalyze, result, err); persisted != nil {
			results.StewardAnalyze = persisted
		}
	}

	return results, nil
}

func (r *Runner) emitReceiptEvent(ctx context.Context, req Request, decision hook.Decision) {
	eventType := event.TypeReceiptAccepted
	if decision.ShouldRun {
		eventType = event.TypeReceiptRejected
	}
	if _, err := r.events.Append(ctx, event.Event{
		Actor: event.ActorSystem, EventType: eventType,
		WorkspaceID: req.WorkspaceID, ThreadID: req.ThreadID,
		Payload: map[string]any{"step": decision.Step, "reason": decision.Reason},
	}); err != nil {
		r.logger.Warn("receipt event append failed: %v", err)
	}
}
