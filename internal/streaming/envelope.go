// Package streaming implements the Streaming Executor (Component I): the SSE
// event envelope, the per-turn generator, context-budget truncation, and the
// connection-scoped broadcaster.
package streaming

// EventType is the closed SSE envelope type set of spec.md §4.I.
type EventType string

const (
	EventConnected                    EventType = "connected"
	EventUserMessage                   EventType = "user_message"
	EventPipelineStage                 EventType = "pipeline_stage"
	EventExecutionPlan                 EventType = "execution_plan"
	EventTaskUpdate                     EventType = "task_update"
	EventExecutionResults               EventType = "execution_results"
	EventQuickResponseComplete          EventType = "quick_response_complete"
	EventChunk                          EventType = "chunk"
	EventAgentModeParsed                EventType = "agent_mode_parsed"
	EventAgentModePlaybookExecuted       EventType = "agent_mode_playbook_executed"
	EventExecutionModePlaybookExecuted   EventType = "execution_mode_playbook_executed"
	EventPlaybookTriggered               EventType = "playbook_triggered"
	EventComplete                       EventType = "complete"
	EventError                          EventType = "error"
)

// PipelineStage is the closed stage enum for pipeline_stage events.
type PipelineStage string

const (
	StageIntentExtraction PipelineStage = "intent_extraction"
	StageContextBuilding  PipelineStage = "context_building"
	StagePlaybookSelection PipelineStage = "playbook_selection"
	StageExecutionStart   PipelineStage = "execution_start"
	StageTaskAssignment   PipelineStage = "task_assignment"
	StageNoPlaybookFound  PipelineStage = "no_playbook_found"
	StageNoActionNeeded   PipelineStage = "no_action_needed"
	StageExecutionError   PipelineStage = "execution_error"
)

// TaskUpdateKind is the closed task_update.event_type enum.
type TaskUpdateKind string

const (
	TaskCreated   TaskUpdateKind = "created"
	TaskStarted   TaskUpdateKind = "started"
	TaskSucceeded TaskUpdateKind = "succeeded"
	TaskFailed    TaskUpdateKind = "failed"
	TaskSkipped   TaskUpdateKind = "skipped"
)

// Envelope is one SSE event: {type, …type-specific fields}. Fields are
// tagged `omitempty` so the JSON wire shape matches exactly the fields spec.md
// §4.I lists as "essential" for each type.
type Envelope struct {
	Type EventType `json:"type"`

	WorkspaceID string         `json:"workspace_id,omitempty"`
	EventID     string         `json:"event_id,omitempty"`
	RunID       string         `json:"run_id,omitempty"`
	Stage       PipelineStage  `json:"stage,omitempty"`
	Message     string         `json:"message,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`

	Plan any `json:"plan,omitempty"`

	TaskEventType TaskUpdateKind `json:"event_type,omitempty"`
	Task          any            `json:"task,omitempty"`

	ExecutedTasks   any `json:"executed_tasks,omitempty"`
	SuggestionCards any `json:"suggestion_cards,omitempty"`

	MessageID string `json:"message_id,omitempty"`

	Content string `json:"content,omitempty"`
	IsFinal *bool  `json:"is_final,omitempty"`

	Part1            string   `json:"part1,omitempty"`
	Part2            string   `json:"part2,omitempty"`
	ExecutableTasks  any      `json:"executable_tasks,omitempty"`

	PlaybookCode string `json:"playbook_code,omitempty"`
	ExecutionID  string `json:"execution_id,omitempty"`
	Tasks        any    `json:"tasks,omitempty"`

	ContextTokens int `json:"context_tokens,omitempty"`
}

func boolPtr(b bool) *bool { return &b }
