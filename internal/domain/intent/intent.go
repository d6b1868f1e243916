// Package intent models IntentCard, IntentSignal and IntentLayoutPlan
// (Components F and L).
package intent

import "time"

// CardStatus is the closed lifecycle of a long-lived user goal.
type CardStatus string

const (
	CardActive    CardStatus = "active"
	CardPaused    CardStatus = "paused"
	CardCompleted CardStatus = "completed"
	CardArchived  CardStatus = "archived"
)

// Priority is the closed priority enum.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// Card is a long-lived user goal, exclusively owned by a profile.
type Card struct {
	ID                 string         `json:"id"`
	ProfileID          string         `json:"profile_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Status             CardStatus     `json:"status"`
	Priority           Priority       `json:"priority"`
	Tags               []string       `json:"tags,omitempty"`
	Category           string         `json:"category,omitempty"`
	ProgressPercentage int            `json:"progress_percentage"`
	Metadata           map[string]any `json:"metadata,omitempty"`

	ParentIntentID string   `json:"parent_intent_id,omitempty"`
	ChildIntentIDs []string `json:"child_intent_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SignalSource is the closed provenance enum for an IntentSignal.
type SignalSource string

const (
	SourceWSHook       SignalSource = "ws_hook"
	SourceMCPSampling  SignalSource = "mcp_sampling"
	SourceFileUpload   SignalSource = "file_upload"
	SourceLLMExtractor SignalSource = "llm_extractor"
	SourceRule         SignalSource = "rule"
)

// SignalStatus tracks whether a candidate signal has been acted on.
type SignalStatus string

const (
	SignalCandidate SignalStatus = "candidate"
	SignalAccepted  SignalStatus = "accepted"
	SignalIgnored   SignalStatus = "ignored"
)

// Signal is a transient observation produced by extractors and hooks.
type Signal struct {
	ID          string       `json:"id"`
	WorkspaceID string       `json:"workspace_id"`
	ProfileID   string       `json:"profile_id"`
	Label       string       `json:"label"`
	Confidence  float64      `json:"confidence"`
	Source      SignalSource `json:"source"`
	MessageID   string       `json:"message_id,omitempty"`
	Status      SignalStatus `json:"status"`
	CreatedAt   time.Time    `json:"created_at"`
}

// OperationType is CREATE or UPDATE within an IntentLayoutPlan.
type OperationType string

const (
	OpCreate OperationType = "create"
	OpUpdate OperationType = "update"
)

// Operation is one proposed mutation to the IntentCard set.
type Operation struct {
	Type            OperationType  `json:"type"`
	IntentID        string         `json:"intent_id,omitempty"`
	Data            map[string]any `json:"data"`
	RelationSignals []string       `json:"relation_signals,omitempty"`
	Confidence      float64        `json:"confidence"`
	Reasoning       string         `json:"reasoning,omitempty"`
}

// SignalMapping records why a particular signal fed (or did not feed) an
// operation.
type SignalMapping struct {
	SignalID       string `json:"signal_id"`
	Action         string `json:"action"`
	TargetIntentID string `json:"target_intent_id,omitempty"`
	Reasoning      string `json:"reasoning,omitempty"`
}

// MaxCreates and MaxUpdates are the IntentLayoutPlan caps (spec.md §3, §8).
const (
	MaxCreates = 3
	MaxUpdates = 5
)

// LayoutPlan is the output of IntentSteward.analyze_turn.
type LayoutPlan struct {
	LongTermIntents []Operation            `json:"long_term_intents"`
	EphemeralTasks  []map[string]any       `json:"ephemeral_tasks,omitempty"`
	SignalMapping   []SignalMapping        `json:"signal_mapping,omitempty"`
	Metadata        map[string]any         `json:"metadata,omitempty"`
}

// CountByType returns how many operations of t are present.
func (p LayoutPlan) CountByType(t OperationType) int {
	n := 0
	for _, op := range p.LongTermIntents {
		if op.Type == t {
			n++
		}
	}
	return n
}

// WithinCaps reports whether the plan respects the create/update caps.
func (p LayoutPlan) WithinCaps() bool {
	return p.CountByType(OpCreate) <= MaxCreates && p.CountByType(OpUpdate) <= MaxUpdates
}
