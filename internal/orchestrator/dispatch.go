package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/plan"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
)

// dispatchResult is what dispatchPlan hands back to Route for the
// {executed_tasks, suggestion_cards, pending_tasks} triple spec.md §4.H
// step 9 asks for.
type dispatchResult struct {
	ExecutedTaskIDs []string
	SuggestionCards []timeline.Item
	PendingTasks    []task.Task
}

// dispatchPlan creates a Task row per plan.TaskPlan. A task whose
// auto_execute is true is immediately marked Running — this core owns
// task lifecycle tracking, not the pack-specific side-effect logic a
// capability pack performs, so "dispatch" here means "hand off for
// execution", not "execute to completion" (Non-goals: the core is not a
// general workflow engine). A task requiring CTA confirmation instead gets
// a suggestion-card TimelineItem with the confirming action attached, and
// stays Pending until a CTA action resolves it.
func (r *Router) dispatchPlan(ctx context.Context, ep plan.ExecutionPlan) dispatchResult {
	var result dispatchResult
	now := time.Now()

	for _, tp := range ep.Tasks {
		t := task.Task{
			ID: idgen.New(), WorkspaceID: ep.WorkspaceID, MessageID: ep.MessageID,
			ExecutionID: ep.ID, PackID: tp.PackID, TaskType: tp.TaskType, Params: tp.Params,
			Status: task.StatusPending, SideEffectLevel: tp.SideEffectLevel,
			AutoExecute: tp.AutoExecute, RequiresCTA: tp.RequiresCTA, CreatedAt: now,
		}
		if err := r.tasks.Create(ctx, t); err != nil {
			r.logger.Warn("dispatch: task create failed for pack %q: %v", tp.PackID, err)
			continue
		}

		switch {
		case tp.AutoExecute:
			if err := r.tasks.UpdateStatus(ctx, t.ID, task.StatusRunning, nil, "", nil); err != nil {
				r.logger.Warn("dispatch: task %q running transition failed: %v", t.ID, err)
			} else {
				t.Status = task.StatusRunning
			}
			result.ExecutedTaskIDs = append(result.ExecutedTaskIDs, t.ID)

		case tp.RequiresCTA:
			item := timeline.Item{
				ID: idgen.New(), WorkspaceID: ep.WorkspaceID, MessageID: ep.MessageID, TaskID: t.ID,
				Type: timeline.TypeExecutionCard, Title: tp.TaskType, Summary: ep.PlanSummary,
				CTA: []timeline.CTA{{Label: "Run", Action: "confirm_task", PackID: tp.PackID}},
				CreatedAt: now, HasExecutionContext: true, ExecutionID: ep.ID, TaskStatus: string(t.Status),
			}
			if err := r.timelines.Create(ctx, item); err != nil {
				r.logger.Warn("dispatch: suggestion card create failed for task %q: %v", t.ID, err)
			} else {
				result.SuggestionCards = append(result.SuggestionCards, item)
			}
		}

		if !t.Status.IsTerminal() {
			result.PendingTasks = append(result.PendingTasks, t)
		}
	}
	return result
}

// dispatchHandoffPlan creates one Task per WorkflowStep of a HandoffPlan
// (spec.md §4.H step 8). Step ordering follows plan.Steps; step_dependencies
// is recorded on each task's Params for traceability since this core's
// workflows are a fixed linear shape, not a general dependency engine
// (Non-goals).
func (r *Router) dispatchHandoffPlan(ctx context.Context, workspaceID, messageID string, hp playbook.HandoffPlan) []string {
	executionID := idgen.New()
	summaries := make([]string, 0, len(hp.Steps))
	now := time.Now()

	for _, step := range hp.Steps {
		params := map[string]any{}
		for k, v := range step.Inputs {
			params[k] = v
		}
		if deps, ok := hp.StepDependencies[step.PackID]; ok {
			params["depends_on"] = deps
		}
		t := task.Task{
			ID: idgen.New(), WorkspaceID: workspaceID, MessageID: messageID, ExecutionID: executionID,
			PackID: step.PackID, TaskType: "workflow_step", Params: params,
			Status: task.StatusPending, SideEffectLevel: task.SideEffectSoftWrite,
			RequiresCTA: step.InteractionMode == playbook.InteractionNeedsReview,
			AutoExecute: step.InteractionMode != playbook.InteractionNeedsReview,
			CreatedAt:   now,
		}
		if err := r.tasks.Create(ctx, t); err != nil {
			r.logger.Warn("handoff plan: task create failed for pack %q: %v", step.PackID, err)
			continue
		}
		if t.AutoExecute {
			if err := r.tasks.UpdateStatus(ctx, t.ID, task.StatusRunning, nil, "", nil); err != nil {
				r.logger.Warn("handoff plan: task %q running transition failed: %v", t.ID, err)
			} else {
				t.Status = task.StatusRunning
			}
		}
		summaries = append(summaries, fmt.Sprintf("%s (%s)", step.PackID, t.Status))
	}
	return summaries
}
