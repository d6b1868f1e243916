// Package timeline models the UI-facing "result card" projection (Component C).
package timeline

import "time"

// Type is the closed set of timeline item kinds. The spec leaves this
// open-ended ("closed enum: intent_seeds, daily_plan, content_draft, …");
// these are the ones the core itself produces.
type Type string

const (
	TypeIntentSeeds   Type = "intent_seeds"
	TypeDailyPlan     Type = "daily_plan"
	TypeContentDraft  Type = "content_draft"
	TypeExecutionCard Type = "execution_card"
)

// CTA is an explicit confirmation action surfaced alongside a timeline item.
type CTA struct {
	Label  string `json:"label"`
	Action string `json:"action"`
	PackID string `json:"pack_id,omitempty"`
}

// Item is a derived card projected from tasks/events into the UI right panel.
type Item struct {
	ID          string         `json:"id"`
	WorkspaceID string         `json:"workspace_id"`
	MessageID   string         `json:"message_id"`
	TaskID      string         `json:"task_id,omitempty"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Summary     string         `json:"summary"`
	Data        map[string]any `json:"data,omitempty"`
	CTA         []CTA          `json:"cta,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`

	// HasExecutionContext and friends enrich the §6.1 GET /timeline response.
	HasExecutionContext bool       `json:"has_execution_context"`
	ExecutionID         string     `json:"execution_id,omitempty"`
	TaskStatus          string     `json:"task_status,omitempty"`
	TaskStartedAt       *time.Time `json:"task_started_at,omitempty"`
	TaskCompletedAt     *time.Time `json:"task_completed_at,omitempty"`
}
