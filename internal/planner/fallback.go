package planner

import (
	"strings"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/plan"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
)

// mimeGroupPacks maps a coarse MIME group to the playbook best suited to
// act on it. A file whose MIME type doesn't match any group is ignored by
// the fallback planner rather than guessed at.
var mimeGroupPacks = map[string]string{
	"image":       "content_drafting",
	"audio":       "content_drafting",
	"video":       "content_drafting",
	"application": "project_planning",
	"text":        "content_drafting",
}

// keywordPacks is the closed keyword→pack_id table the deterministic
// planner consults when no file context is present. Grounded on the
// teacher's complexMarkers keyword table
// (internal/agent/app/planning_policy.go's shouldUsePlanner), generalized
// from a single complexity bit into a pack-routing table.
var keywordPacks = []struct {
	keywords []string
	packID   string
}{
	{[]string{"proposal", "提案"}, "proposal_writing"},
	{[]string{"yearly review", "year in review", "年度总结"}, "yearly_review"},
	{[]string{"habit", "routine", "习惯"}, "habit_learning"},
	{[]string{"project plan", "roadmap", "milestone", "项目计划"}, "project_planning"},
	{[]string{"draft", "write", "content", "草稿", "文案"}, "content_writing"},
}

func mimeGroup(mimeType string) string {
	idx := strings.Index(mimeType, "/")
	if idx < 0 {
		return mimeType
	}
	return mimeType[:idx]
}

// buildDeterministic inspects (a) file MIME groups, (b) message keywords,
// and (c) workspace.expected_artifacts to produce a plan without calling
// the Provider. Producing zero tasks is a legitimate "no action needed"
// outcome (spec.md §4.G step 2).
func (b *Builder) buildDeterministic(req Request) plan.ExecutionPlan {
	var tasks []plan.TaskPlan
	seen := make(map[string]bool)

	addTask := func(packID, taskType string, params map[string]any) {
		key := packID + "|" + taskType
		if seen[key] {
			return
		}
		seen[key] = true
		tasks = append(tasks, plan.TaskPlan{
			PackID: packID, TaskType: taskType, Params: params,
			SideEffectLevel: task.SideEffectSoftWrite,
		})
	}

	for _, f := range req.Files {
		if packID, ok := mimeGroupPacks[mimeGroup(f.MimeType)]; ok {
			addTask(packID, "process_attachment", map[string]any{"file_document_id": f.FileDocumentID})
		}
	}

	lower := strings.ToLower(req.Message)
	for _, kp := range keywordPacks {
		for _, kw := range kp.keywords {
			if strings.Contains(lower, strings.ToLower(kw)) {
				addTask(kp.packID, "handle_request", map[string]any{"message": req.Message})
				break
			}
		}
	}

	for _, artifact := range req.ExpectedArtifacts {
		if strings.Contains(lower, strings.ToLower(artifact)) {
			addTask("content_drafting", "produce_artifact", map[string]any{"artifact": artifact})
		}
	}

	summary := "No action needed."
	if len(tasks) > 0 {
		summary = "Deterministic plan generated from file types, keywords, and expected artifacts."
	}

	return plan.ExecutionPlan{
		Tasks:              tasks,
		PlanSummary:        summary,
		UserRequestSummary: req.Message,
	}
}
