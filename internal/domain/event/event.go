// Package event models the append-only domain event stream (Component A).
package event

import "time"

// Actor identifies who produced an event.
type Actor string

const (
	ActorUser      Actor = "user"
	ActorAssistant Actor = "assistant"
	ActorSystem    Actor = "system"
)

// Type is the closed event_type enum from spec.md §3.
type Type string

const (
	TypeMessage           Type = "message"
	TypeIntentCreated     Type = "intent_created"
	TypePipelineStage     Type = "pipeline_stage"
	TypeExecutionPlan     Type = "execution_plan"
	TypeTaskUpdate        Type = "task_update"
	TypeAgentExecution    Type = "agent_execution"
	TypeArtifactCreated   Type = "artifact_created"
	TypeDecisionRequired  Type = "decision_required"
	TypeRunStateChanged   Type = "run_state_changed"
	TypeReceiptAccepted   Type = "receipt_accepted"
	TypeReceiptRejected   Type = "receipt_rejected"
)

// Event is the single append-only record. Attributes mirror spec.md §3
// exactly; events are never mutated after Append — corrections are new
// events with the same entity_ids.
type Event struct {
	ID         string         `json:"id"`
	Timestamp  time.Time      `json:"timestamp"`
	Actor      Actor          `json:"actor"`
	EventType  Type           `json:"event_type"`
	WorkspaceID string        `json:"workspace_id"`
	ThreadID   string         `json:"thread_id,omitempty"`
	ProjectID  string         `json:"project_id,omitempty"`
	ProfileID  string         `json:"profile_id,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	EntityIDs  []string       `json:"entity_ids,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// Thread is a conversation slice within a workspace.
type Thread struct {
	ID             string    `json:"id"`
	WorkspaceID    string    `json:"workspace_id"`
	Title          string    `json:"title"`
	IsDefault      bool      `json:"is_default"`
	LastMessageAt  time.Time `json:"last_message_at"`
	MessageCount   int       `json:"message_count"`
}
