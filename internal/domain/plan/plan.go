// Package plan models the per-turn ExecutionPlan produced by the Plan
// Builder (Component G) and consumed by the Streaming Executor (Component I).
package plan

import "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"

// Step is one ordered step of an ExecutionPlan.
type Step struct {
	StepID        string `json:"step_id"`
	PackID        string `json:"pack_id"`
	Goal          string `json:"goal"`
	InputTemplate string `json:"input_template,omitempty"`
}

// TaskPlan is the planned (not yet dispatched) shape of a Task.
type TaskPlan struct {
	PackID          string               `json:"pack_id"`
	TaskType        string               `json:"task_type"`
	Params          map[string]any       `json:"params,omitempty"`
	SideEffectLevel task.SideEffectLevel `json:"side_effect_level"`
	AutoExecute     bool                 `json:"auto_execute"`
	RequiresCTA     bool                 `json:"requires_cta"`
}

// ProjectAssignmentDecision records how a turn was attached to a project.
type ProjectAssignmentDecision struct {
	ProjectID               string  `json:"project_id,omitempty"`
	Relation                string  `json:"relation,omitempty"`
	Confidence              float64 `json:"confidence"`
	RequiresUIConfirmation  bool    `json:"requires_ui_confirmation"`
}

// ExecutionPlan is the per-turn plan (spec.md §3).
type ExecutionPlan struct {
	ID                        string                     `json:"id"`
	WorkspaceID               string                     `json:"workspace_id"`
	MessageID                 string                     `json:"message_id"`
	Steps                     []Step                     `json:"steps"`
	Tasks                     []TaskPlan                 `json:"tasks"`
	AITeamMembers             []string                   `json:"ai_team_members,omitempty"`
	PlanSummary               string                     `json:"plan_summary"`
	UserRequestSummary        string                     `json:"user_request_summary"`
	ProjectID                 string                     `json:"project_id,omitempty"`
	ProjectAssignmentDecision *ProjectAssignmentDecision `json:"project_assignment_decision,omitempty"`
}
