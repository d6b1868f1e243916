// Package planner implements the Plan Builder (Component G): an
// LLM-driven structured planner with a deterministic rule-based fallback,
// grounded on the teacher's layered "try the rich path, degrade to a
// simple deterministic one" style (internal/agent/app/planning_policy.go).
package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/plan"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/idgen"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// fallbackPackID is substituted for any LLM-proposed task whose pack_id
// falls outside the effective playbook set (spec.md §4.G step 1).
const fallbackPackID = "content_drafting"

// FileRef is a submitted file's normalized identity and MIME type, used by
// the deterministic fallback planner's MIME-group inspection.
type FileRef struct {
	FileDocumentID string
	MimeType       string
}

// Request is the Plan Builder's full input (spec.md §4.G).
type Request struct {
	Message            string
	Files              []FileRef
	WorkspaceID        string
	ProfileID          string
	MessageID          string
	ProjectID          string
	UseLLM             bool
	EffectivePlaybooks []playbook.Metadata
	ExpectedArtifacts  []string // workspace.expected_artifacts
}

// Builder produces an ExecutionPlan from a Request.
type Builder struct {
	provider ports.Provider
	model    string
	logger   logging.Logger
}

// NewBuilder constructs a Builder.
func NewBuilder(provider ports.Provider, model string) *Builder {
	return &Builder{provider: provider, model: model, logger: logging.NewComponentLogger("planner.Builder")}
}

// Build produces an ExecutionPlan, trying the LLM path first (when
// req.UseLLM) and falling back to the deterministic rule-based planner on
// a disabled flag or LLM failure.
func (b *Builder) Build(ctx context.Context, req Request) (plan.ExecutionPlan, error) {
	legal := make(map[string]bool, len(req.EffectivePlaybooks))
	for _, p := range req.EffectivePlaybooks {
		legal[p.PlaybookCode] = true
	}

	var ep plan.ExecutionPlan
	var err error
	if req.UseLLM {
		ep, err = b.buildWithLLM(ctx, req, legal)
		if err != nil {
			b.logger.Warn("plan builder LLM path failed, falling back to rule-based planner: %v", err)
			ep = b.buildDeterministic(req)
		}
	} else {
		ep = b.buildDeterministic(req)
	}

	ep.ID = idgen.New()
	ep.WorkspaceID = req.WorkspaceID
	ep.MessageID = req.MessageID
	ep.ProjectID = req.ProjectID

	for i := range ep.Tasks {
		applySideEffectDefaults(&ep.Tasks[i])
	}
	return ep, nil
}

func applySideEffectDefaults(t *plan.TaskPlan) {
	if t.SideEffectLevel == "" {
		t.SideEffectLevel = task.SideEffectSoftWrite
	}
	t.AutoExecute = t.SideEffectLevel == task.SideEffectReadonly
	t.RequiresCTA = t.SideEffectLevel != task.SideEffectReadonly
}

type llmPlanResponse struct {
	Steps              []plan.Step     `json:"steps"`
	Tasks              []llmTask       `json:"tasks"`
	AITeamMembers      []string        `json:"ai_team_members"`
	PlanSummary        string          `json:"plan_summary"`
	UserRequestSummary string          `json:"user_request_summary"`
}

type llmTask struct {
	PackID          string               `json:"pack_id"`
	TaskType        string               `json:"task_type"`
	Params          map[string]any       `json:"params"`
	SideEffectLevel task.SideEffectLevel `json:"side_effect_level"`
}

func (b *Builder) buildWithLLM(ctx context.Context, req Request, legal map[string]bool) (plan.ExecutionPlan, error) {
	var sb strings.Builder
	sb.WriteString("Produce a structured execution plan for this request as JSON: ")
	sb.WriteString(`{"steps":[{"step_id":"...","pack_id":"...","goal":"...","input_template":"..."}],`)
	sb.WriteString(`"tasks":[{"pack_id":"...","task_type":"...","params":{},"side_effect_level":"readonly|soft_write|external_write"}],`)
	sb.WriteString(`"ai_team_members":["..."],"plan_summary":"...","user_request_summary":"..."}.\n`)
	sb.WriteString("Available playbooks: ")
	for code := range legal {
		sb.WriteString(code)
		sb.WriteString(" ")
	}
	sb.WriteString(fmt.Sprintf("\nMessage: %q", req.Message))

	completion, err := b.provider.ChatCompletion(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: "Respond with JSON only, no prose."},
		{Role: ports.RoleUser, Content: sb.String()},
	}, b.model, 0, 1024)
	if err != nil {
		return plan.ExecutionPlan{}, fmt.Errorf("plan builder provider call failed: %w", err)
	}

	var resp llmPlanResponse
	raw := strings.TrimSpace(completion.Text)
	if jsonErr := json.Unmarshal([]byte(raw), &resp); jsonErr != nil {
		repaired, repairErr := jsonrepair.JSONRepair(raw)
		if repairErr != nil {
			return plan.ExecutionPlan{}, fmt.Errorf("plan response is not repairable JSON: %w", repairErr)
		}
		if jsonErr := json.Unmarshal([]byte(repaired), &resp); jsonErr != nil {
			return plan.ExecutionPlan{}, fmt.Errorf("repaired plan response still invalid: %w", jsonErr)
		}
	}

	tasks := make([]plan.TaskPlan, 0, len(resp.Tasks))
	for _, t := range resp.Tasks {
		packID := t.PackID
		if !legal[packID] {
			b.logger.Warn("plan builder rejected out-of-scope pack_id %q, substituting %q", packID, fallbackPackID)
			packID = fallbackPackID
		}
		tasks = append(tasks, plan.TaskPlan{
			PackID: packID, TaskType: t.TaskType, Params: t.Params, SideEffectLevel: t.SideEffectLevel,
		})
	}

	return plan.ExecutionPlan{
		Steps:              resp.Steps,
		Tasks:              tasks,
		AITeamMembers:      resp.AITeamMembers,
		PlanSummary:        resp.PlanSummary,
		UserRequestSummary: resp.UserRequestSummary,
	}, nil
}
