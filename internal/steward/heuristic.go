package steward

import (
	"context"
	"sort"
	"strings"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
)

// minClusterSize and minClusterConfidence gate whether a cluster becomes a
// CREATE/UPDATE operation or stays ephemeral (spec.md §4.L step 3
// deterministic heuristic).
const (
	minClusterSize       = 2
	minClusterConfidence = 0.8
)

// heuristicAnalyze is the deterministic fallback applied when the LLM path
// is unavailable, malformed, or over its caps.
func heuristicAnalyze(ctx context.Context, signals []intent.Signal, visible []intent.Card) intent.LayoutPlan {
	clusters := clusterSignals(ctx, signals)
	sort.Slice(clusters, func(i, j int) bool {
		return topConfidence(clusters[i]) > topConfidence(clusters[j])
	})

	plan := intent.LayoutPlan{}
	creates, updates := 0, 0
	for _, c := range clusters {
		top := topConfidence(c)
		if len(c.signals) < minClusterSize || top < minClusterConfidence {
			plan.EphemeralTasks = append(plan.EphemeralTasks, ephemeralTask(c))
			continue
		}

		label := representativeLabel(c)
		if match := matchExistingCard(label, visible); match != nil {
			if updates >= intent.MaxUpdates {
				plan.EphemeralTasks = append(plan.EphemeralTasks, ephemeralTask(c))
				continue
			}
			updates++
			plan.LongTermIntents = append(plan.LongTermIntents, intent.Operation{
				Type: intent.OpUpdate, IntentID: match.ID,
				Data:            map[string]any{"title": label},
				RelationSignals: signalIDs(c),
				Confidence:      top,
				Reasoning:       "deterministic heuristic: cluster key matches an existing visible intent's title",
			})
			continue
		}

		if creates >= intent.MaxCreates {
			plan.EphemeralTasks = append(plan.EphemeralTasks, ephemeralTask(c))
			continue
		}
		creates++
		plan.LongTermIntents = append(plan.LongTermIntents, intent.Operation{
			Type:            intent.OpCreate,
			Data:            map[string]any{"title": label},
			RelationSignals: signalIDs(c),
			Confidence:      top,
			Reasoning:       "deterministic heuristic: >=2 similar signals with top confidence >=0.8",
		})
	}
	return plan
}

func topConfidence(c cluster) float64 {
	top := 0.0
	for _, sig := range c.signals {
		if sig.Confidence > top {
			top = sig.Confidence
		}
	}
	return top
}

func representativeLabel(c cluster) string {
	best := c.signals[0]
	for _, sig := range c.signals {
		if sig.Confidence > best.Confidence {
			best = sig
		}
	}
	return best.Label
}

func signalIDs(c cluster) []string {
	ids := make([]string, 0, len(c.signals))
	for _, sig := range c.signals {
		ids = append(ids, sig.ID)
	}
	return ids
}

func ephemeralTask(c cluster) map[string]any {
	return map[string]any{
		"label":      representativeLabel(c),
		"signal_ids": signalIDs(c),
	}
}

// matchExistingCard finds a visible card whose title matches label by
// lowercased equality or shared first-20-chars cluster key.
func matchExistingCard(label string, visible []intent.Card) *intent.Card {
	key := clusterKey(label)
	lowerLabel := strings.ToLower(strings.TrimSpace(label))
	for i := range visible {
		title := strings.ToLower(strings.TrimSpace(visible[i].Title))
		if title == lowerLabel || clusterKey(visible[i].Title) == key {
			return &visible[i]
		}
	}
	return nil
}
