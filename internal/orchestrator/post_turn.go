package orchestrator

import (
	"context"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/steward"
)

// signalLookbackWindow bounds IntentSteward's input collection to recent
// candidate signals (spec.md §4.L step 1).
const signalLookbackWindow = 24 * time.Hour

// visibleCardLimit caps how many of a profile's active high/medium-priority
// IntentCards are handed to IntentSteward as matching candidates for UPDATE
// operations.
const visibleCardLimit = 10

// postTurn runs IntentSteward after every turn (spec.md §4.H step 12). The
// inline call is always observation-only: it writes the audit log and
// never mutates the IntentCard store, regardless of the workspace's
// auto_intent_layout setting. The Router starts no background pass with
// execution enabled; that runs only through the steward_analyze hook.
func (r *Router) postTurn(ctx context.Context, req Request, turnID string) {
	since := time.Now().Add(-signalLookbackWindow)
	signals, err := r.signals.ListRecent(ctx, req.WorkspaceID, since)
	if err != nil {
		r.logger.Warn("post-turn: recent signal lookup failed: %v", err)
	}

	visible, err := r.cards.ListVisible(ctx, req.ProfileID,
		[]intent.CardStatus{intent.CardActive},
		[]intent.Priority{intent.PriorityHigh, intent.PriorityMedium}, visibleCardLimit)
	if err != nil {
		r.logger.Warn("post-turn: visible card lookup failed: %v", err)
	}

	_, err = r.steward.AnalyzeTurn(ctx, steward.Input{
		WorkspaceID: req.WorkspaceID, ProfileID: req.ProfileID, TurnID: turnID,
		ConversationID: req.ThreadID, Signals: signals, VisibleCards: visible,
	}, steward.Config{UseLLM: req.UseLLM, AutoIntentLayout: false})
	if err != nil {
		r.logger.Warn("post-turn: IntentSteward analysis failed: %v", err)
	}
}
