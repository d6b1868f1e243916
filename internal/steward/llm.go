package steward

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

type llmOperation struct {
	Type            string         `json:"type"`
	IntentID        string         `json:"intent_id,omitempty"`
	Data            map[string]any `json:"data"`
	RelationSignals []string       `json:"relation_signals,omitempty"`
	Confidence      float64        `json:"confidence"`
	Reasoning       string         `json:"reasoning,omitempty"`
}

type llmAnalysisResponse struct {
	Operations []llmOperation   `json:"operations"`
	Ephemeral  []map[string]any `json:"ephemeral"`
}

// llmAnalyze asks the Provider to cluster surviving signals into
// CREATE_INTENT_CARD/UPDATE_INTENT_CARD operations plus ephemeral tasks
// (spec.md §4.L step 3). A malformed or unreachable response is the
// caller's cue to fall back to the deterministic heuristic.
func (s *Steward) llmAnalyze(ctx context.Context, signals []intent.Signal, visible []intent.Card) (intent.LayoutPlan, error) {
	var sb strings.Builder
	sb.WriteString("Analyze these candidate signals against the user's visible long-term intents and propose operations as JSON: ")
	sb.WriteString(`{"operations":[{"type":"CREATE_INTENT_CARD|UPDATE_INTENT_CARD","intent_id":"(update only)","data":{"title":"...","description":"...","priority":"low|medium|high|critical"},"relation_signals":["..."],"confidence":0.0,"reasoning":"..."}],"ephemeral":[{}]}.\n`)
	sb.WriteString("At most 3 CREATE_INTENT_CARD and 5 UPDATE_INTENT_CARD operations.\n")
	sb.WriteString("Visible intents:\n")
	for _, c := range visible {
		fmt.Fprintf(&sb, "- id=%s title=%q priority=%s\n", c.ID, c.Title, c.Priority)
	}
	sb.WriteString("Candidate signals:\n")
	for _, sig := range signals {
		fmt.Fprintf(&sb, "- id=%s label=%q confidence=%.2f\n", sig.ID, sig.Label, sig.Confidence)
	}

	completion, err := s.provider.ChatCompletion(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: "Respond with JSON only, no prose."},
		{Role: ports.RoleUser, Content: sb.String()},
	}, s.model, 0, 1024)
	if err != nil {
		return intent.LayoutPlan{}, fmt.Errorf("steward provider call failed: %w", err)
	}

	var resp llmAnalysisResponse
	raw := strings.TrimSpace(completion.Text)
	if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return intent.LayoutPlan{}, fmt.Errorf("steward response is not repairable JSON: %w", repairErr)
		}
		if jsonErr := json.Unmarshal([]byte(repaired), &resp); jsonErr != nil {
			return intent.LayoutPlan{}, fmt.Errorf("repaired steward response still invalid: %w", jsonErr)
		}
	}

	plan := intent.LayoutPlan{EphemeralTasks: resp.Ephemeral}
	for _, op := range resp.Operations {
		var opType intent.OperationType
		switch op.Type {
		case "CREATE_INTENT_CARD":
			opType = intent.OpCreate
		case "UPDATE_INTENT_CARD":
			opType = intent.OpUpdate
		default:
			continue
		}
		plan.LongTermIntents = append(plan.LongTermIntents, intent.Operation{
			Type: opType, IntentID: op.IntentID, Data: op.Data,
			RelationSignals: op.RelationSignals, Confidence: op.Confidence, Reasoning: op.Reasoning,
		})
	}

	if !plan.WithinCaps() {
		return intent.LayoutPlan{}, fmt.Errorf("steward LLM plan exceeds create/update caps (%d creates, %d updates)",
			plan.CountByType(intent.OpCreate), plan.CountByType(intent.OpUpdate))
	}
	return plan, nil
}
