// Package registry provides the local keyword-based IntentRegistryPort
// implementation consumed by the Conversation Orchestrator's pre-pipeline
// intent extraction step (spec.md §4.H step 6, §6.2).
package registry

import (
	"context"
	"strings"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// definitions is the closed catalogue this local adapter can resolve
// against. A production deployment would swap this for an LLM- or
// embedding-backed IntentRegistryPort; this one is a direct keyword match,
// deliberately simple since it runs ahead of the Intent Pipeline proper
// (§4.F) and only seeds TimelineItem(intent_seeds).
var definitions = []ports.IntentDefinition{
	{Code: "travel_planning", Description: "Planning a trip, itinerary, or booking"},
	{Code: "writing_assistance", Description: "Drafting or editing written content"},
	{Code: "habit_tracking", Description: "Building or tracking a recurring habit"},
	{Code: "project_coordination", Description: "Coordinating tasks or people on a project"},
	{Code: "review_reflection", Description: "Reviewing progress over a past period"},
}

var keywords = map[string][]string{
	"travel_planning":      {"trip", "travel", "flight", "itinerary", "visit"},
	"writing_assistance":   {"draft", "write", "edit", "proposal", "essay"},
	"habit_tracking":       {"habit", "routine", "streak", "daily"},
	"project_coordination": {"project", "milestone", "team", "deadline"},
	"review_reflection":    {"review", "retrospective", "yearly", "reflect"},
}

// Local is the keyword-matching IntentRegistryPort.
type Local struct{}

var _ ports.IntentRegistryPort = Local{}

// ResolveIntent scores userInput against the keyword table. Every matching
// code becomes an intent; its matched keyword becomes a theme. Confidence
// is 0.5 plus 0.1 per matched code, capped at 0.9 since this is a coarse
// pre-pipeline seed, not the Intent Pipeline's own decision.
func (Local) ResolveIntent(ctx context.Context, userInput string, execCtx ports.ExecutionContext, context map[string]any, locale string) (ports.ResolvedIntent, error) {
	lower := strings.ToLower(userInput)

	var intents, themes []string
	for code, words := range keywords {
		for _, w := range words {
			if strings.Contains(lower, w) {
				intents = append(intents, code)
				themes = append(themes, w)
				break
			}
		}
	}

	confidence := 0.0
	if len(intents) > 0 {
		confidence = 0.5 + 0.1*float64(len(intents))
		if confidence > 0.9 {
			confidence = 0.9
		}
	}

	return ports.ResolvedIntent{Intents: intents, Themes: themes, Confidence: confidence}, nil
}

// ListAvailableIntents returns the closed catalogue this adapter matches
// against.
func (Local) ListAvailableIntents(ctx context.Context, execCtx ports.ExecutionContext) ([]ports.IntentDefinition, error) {
	out := make([]ports.IntentDefinition, len(definitions))
	copy(out, definitions)
	return out, nil
}
