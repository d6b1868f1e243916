// Package steward implements the IntentSteward (Component L): a signal
// prefilter, LLM-or-heuristic clusterer, execution-gated IntentCard
// mutator, and append-only audit log, grounded on the teacher's
// internal/meta "Steward" replay shape (NewSteward / Run(ctx, Config) /
// ValidateOutput) adapted from persona-memory replay to signal clustering.
package steward

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

const (
	minConfidence  = 0.7
	minLabelLength = 3
	maxLabelLength = 200
	maxSignals     = 20

	phaseObservation = "phase1_observation"
	phaseExecution   = "phase2_execution"

	sourceIntentStewardAuto = "intent_steward_auto"
)

// Input is analyze_turn's input (spec.md §4.L step 1). Callers are
// responsible for already scoping Signals to the trailing 24h window; the
// Steward's own filtering starts at step 2. Input carries no recent-message
// window: the analysis sees signals and visible cards only.
type Input struct {
	WorkspaceID    string
	ProfileID      string
	TurnID         string
	ConversationID string
	Signals        []intent.Signal
	VisibleCards   []intent.Card
}

// Config toggles the two gates analyze_turn consults.
type Config struct {
	// UseLLM selects the LLM clustering path; false skips straight to the
	// deterministic heuristic.
	UseLLM bool
	// AutoIntentLayout is the workspace-scoped execution gate (spec.md §4.L
	// step 4, §8 glossary "auto_intent_layout").
	AutoIntentLayout bool
}

// Steward runs analyze_turn.
type Steward struct {
	provider ports.Provider
	model    string
	cards    ports.IntentCardStore
	log      ports.IntentLog
	logger   logging.Logger
}

// NewSteward constructs a Steward.
func NewSteward(provider ports.Provider, model string, cards ports.IntentCardStore, log ports.IntentLog) *Steward {
	return &Steward{
		provider: provider, model: model, cards: cards, log: log,
		logger: logging.NewComponentLogger("steward.Steward"),
	}
}

// AnalyzeTurn runs the full pipeline: prefilter, LLM-or-heuristic
// clustering, gated execution, and audit logging.
func (s *Steward) AnalyzeTurn(ctx context.Context, in Input, cfg Config) (intent.LayoutPlan, error) {
	surviving := prefilterSignals(in.Signals)

	var plan intent.LayoutPlan
	usedLLM := false
	if cfg.UseLLM && s.provider != nil {
		if llmPlan, err := s.llmAnalyze(ctx, surviving, in.VisibleCards); err == nil {
			plan = llmPlan
			usedLLM = true
		} else {
			s.logger.Warn("steward LLM analysis failed, falling back to deterministic heuristic: %v", err)
		}
	}
	if !usedLLM {
		plan = heuristicAnalyze(ctx, surviving, in.VisibleCards)
	}

	executed := []map[string]any{}
	if cfg.AutoIntentLayout {
		executed = s.execute(ctx, in, &plan)
	}

	phase := phaseObservation
	if cfg.AutoIntentLayout {
		phase = phaseExecution
	}
	s.audit(ctx, in, plan, phase, usedLLM, executed)

	return plan, nil
}

// prefilterSignals applies spec.md §4.L step 2 in order: confidence floor,
// dedup by lowercased label, length range, then a hard cap.
func prefilterSignals(signals []intent.Signal) []intent.Signal {
	seen := make(map[string]bool, len(signals))
	out := make([]intent.Signal, 0, len(signals))
	for _, sig := range signals {
		if sig.Confidence < minConfidence {
			continue
		}
		label := strings.TrimSpace(sig.Label)
		if len(label) < minLabelLength || len(label) > maxLabelLength {
			continue
		}
		key := strings.ToLower(label)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, sig)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Confidence > out[j].Confidence })
	if len(out) > maxSignals {
		out = out[:maxSignals]
	}
	return out
}

// execute applies plan's operations against the IntentCardStore
// (spec.md §4.L step 4), mutating plan.SignalMapping in place with the
// result of each operation, and returns a summary of what ran for the
// audit log.
func (s *Steward) execute(ctx context.Context, in Input, plan *intent.LayoutPlan) []map[string]any {
	executed := make([]map[string]any, 0, len(plan.LongTermIntents))
	for i, op := range plan.LongTermIntents {
		switch op.Type {
		case intent.OpCreate:
			card := newCardFromOperation(in.ProfileID, op)
			if err := s.cards.Create(ctx, card); err != nil {
				s.logger.Warn("steward failed to create intent card: %v", err)
				continue
			}
			plan.LongTermIntents[i].IntentID = card.ID
			for _, sigID := range op.RelationSignals {
				plan.SignalMapping = append(plan.SignalMapping, intent.SignalMapping{
					SignalID: sigID, Action: "created", TargetIntentID: card.ID,
					Reasoning: op.Reasoning,
				})
			}
			executed = append(executed, map[string]any{"type": "create", "intent_id": card.ID})

		case intent.OpUpdate:
			if op.IntentID == "" {
				continue
			}
			existing, err := s.cards.Get(ctx, op.IntentID)
			if err != nil || existing == nil {
				s.logger.Warn("steward update target %q not found: %v", op.IntentID, err)
				continue
			}
			updated := applyUpdateOperation(*existing, op)
			if err := s.cards.Update(ctx, updated); err != nil {
				s.logger.Warn("steward failed to update intent card %q: %v", op.IntentID, err)
				continue
			}
			for _, sigID := range op.RelationSignals {
				plan.SignalMapping = append(plan.SignalMapping, intent.SignalMapping{
					SignalID: sigID, Action: "updated", TargetIntentID: op.IntentID,
					Reasoning: op.Reasoning,
				})
			}
			executed = append(executed, map[string]any{"type": "update", "intent_id": op.IntentID})
		}
	}
	return executed
}

func newCardFromOperation(profileID string, op intent.Operation) intent.Card {
	now := time.Now()
	metadata := map[string]any{"source": sourceIntentStewardAuto}
	if len(op.RelationSignals) > 0 {
		metadata["signal_ids"] = op.RelationSignals
	}
	card := intent.Card{
		ID: idgen.New(), ProfileID: profileID,
		Status: intent.CardActive, Priority: intent.PriorityMedium,
		Metadata:  metadata,
		CreatedAt: now, UpdatedAt: now,
	}
	applyCardFields(&card, op.Data)
	return card
}

// applyUpdateOperation snapshots the card's mutable fields into
// metadata.rollback_data before applying op.Data (spec.md §4.L step 4).
func applyUpdateOperation(existing intent.Card, op intent.Operation) intent.Card {
	rollback := map[string]any{
		"title": existing.Title, "description": existing.Description,
		"priority": existing.Priority, "status": existing.Status,
		"metadata": existing.Metadata,
	}

	updated := existing
	if updated.Metadata == nil {
		updated.Metadata = map[string]any{}
	} else {
		copied := make(map[string]any, len(existing.Metadata)+1)
		for k, v := range existing.Metadata {
			copied[k] = v
		}
		updated.Metadata = copied
	}
	updated.Metadata["rollback_data"] = rollback
	applyCardFields(&updated, op.Data)
	updated.UpdatedAt = time.Now()
	return updated
}

func applyCardFields(card *intent.Card, data map[string]any) {
	if title, ok := data["title"].(string); ok && title != "" {
		card.Title = title
	}
	if desc, ok := data["description"].(string); ok {
		card.Description = desc
	}
	if priority, ok := data["priority"].(string); ok && priority != "" {
		card.Priority = intent.Priority(priority)
	}
	if status, ok := data["status"].(string); ok && status != "" {
		card.Status = intent.CardStatus(status)
	}
}

func (s *Steward) audit(ctx context.Context, in Input, plan intent.LayoutPlan, phase string, usedLLM bool, executed []map[string]any) {
	method := "heuristic"
	if usedLLM {
		method = "llm"
	}
	entry := ports.IntentLogEntry{
		ID: idgen.New(), WorkspaceID: in.WorkspaceID, ProfileID: in.ProfileID,
		Phase: phase,
		PipelineSteps: map[string]any{
			"method":              method,
			"surviving_signals":   len(plan.SignalMapping) + len(plan.EphemeralTasks),
			"create_count":        plan.CountByType(intent.OpCreate),
			"update_count":        plan.CountByType(intent.OpUpdate),
			"ephemeral_count":     len(plan.EphemeralTasks),
		},
		FinalDecision: map[string]any{"executed_operations": executed},
		Timestamp:     time.Now(),
	}
	if err := s.log.Append(ctx, entry); err != nil {
		s.logger.Warn("steward audit log append failed: %v", err)
	}
}
