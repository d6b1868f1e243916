package orchestrator

import (
	"context"
	"strings"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/plan"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// assignProject resolves a turn's project association (spec.md §4.H step
// 3): an explicit UI-supplied project id wins outright; otherwise a
// lightweight detector looks for a project id on the workspace's most
// recent events, only accepting the match when the message appears to
// reference the same topic. Absent either, the turn is unassigned.
func (r *Router) assignProject(ctx context.Context, workspaceID, message, uiProjectID string) plan.ProjectAssignmentDecision {
	if uiProjectID != "" {
		return plan.ProjectAssignmentDecision{
			ProjectID: uiProjectID, Relation: "explicit", Confidence: 1.0, RequiresUIConfirmation: false,
		}
	}

	recent, err := r.events.List(ctx, workspaceID, ports.EventLogListOptions{Limit: recentProjectScanLimit})
	if err != nil || len(recent) == 0 {
		return plan.ProjectAssignmentDecision{}
	}

	for i := len(recent) - 1; i >= 0; i-- {
		e := recent[i]
		if e.ProjectID == "" {
			continue
		}
		if messageReferencesEvent(message, e) {
			return plan.ProjectAssignmentDecision{
				ProjectID: e.ProjectID, Relation: "detected", Confidence: projectDetectorConfidence,
				RequiresUIConfirmation: true,
			}
		}
	}
	return plan.ProjectAssignmentDecision{}
}

// messageReferencesEvent is a coarse recency-and-overlap heuristic: it
// treats a project as referenced when the new message shares a
// significant word with the candidate event's own message payload.
func messageReferencesEvent(message string, e event.Event) bool {
	priorText, _ := e.Payload["message"].(string)
	if priorText == "" {
		return false
	}
	for _, word := range strings.Fields(strings.ToLower(priorText)) {
		if len(word) < minOverlapWordLength {
			continue
		}
		if strings.Contains(strings.ToLower(message), word) {
			return true
		}
	}
	return false
}

const (
	recentProjectScanLimit    = 50
	projectDetectorConfidence = 0.6
	minOverlapWordLength      = 5
)
