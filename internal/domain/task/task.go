// Package task models units of work spawned by an ExecutionPlan (Component B).
package task

import "time"

// Status is the closed task lifecycle. Transitions are monotonic along
// Pending -> Running -> (Succeeded|Failed|Skipped); a terminal status cannot
// revert (spec.md §4.B, §8).
type Status string

const (
	StatusPending   Status = "pending"
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusSkipped   Status = "skipped"
)

// IsTerminal reports whether status can no longer transition.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusSkipped:
		return true
	default:
		return false
	}
}

// SideEffectLevel classifies the blast radius of a task's output.
type SideEffectLevel string

const (
	SideEffectReadonly     SideEffectLevel = "readonly"
	SideEffectSoftWrite    SideEffectLevel = "soft_write"
	SideEffectExternalWrite SideEffectLevel = "external_write"
)

// Task is a unit of work spawned by a plan (spec.md §3).
type Task struct {
	ID              string            `json:"id"`
	WorkspaceID     string            `json:"workspace_id"`
	MessageID       string            `json:"message_id"`
	ExecutionID     string            `json:"execution_id"`
	PackID          string            `json:"pack_id"`
	TaskType        string            `json:"task_type"`
	Status          Status            `json:"status"`
	Params          map[string]any    `json:"params,omitempty"`
	Result          map[string]any    `json:"result,omitempty"`
	SideEffectLevel SideEffectLevel   `json:"side_effect_level"`
	AutoExecute     bool              `json:"auto_execute"`
	RequiresCTA     bool              `json:"requires_cta"`
	CreatedAt       time.Time         `json:"created_at"`
	StartedAt       *time.Time        `json:"started_at,omitempty"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
	Error           string            `json:"error,omitempty"`
}

// CanTransitionTo enforces the monotonic lifecycle invariant.
func (t *Task) CanTransitionTo(next Status) bool {
	if t.Status.IsTerminal() {
		return false
	}
	switch t.Status {
	case StatusPending:
		return next == StatusRunning || next == StatusSkipped || next == StatusFailed
	case StatusRunning:
		return next == StatusSucceeded || next == StatusFailed || next == StatusSkipped
	default:
		return false
	}
}
