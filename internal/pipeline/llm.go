package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

// callJSON sends prompt to the provider and decodes its response as JSON
// into out. A response that isn't valid JSON as-is is repaired via
// jsonrepair before decoding — reducing spurious fallbacks to deterministic
// logic caused by a model wrapping its answer in prose or trailing commas
// (spec.md DOMAIN STACK: "Repairs near-valid JSON ... before falling back
// to the deterministic path").
func callJSON(ctx context.Context, provider ports.Provider, model, prompt string, out any) error {
	completion, err := provider.ChatCompletion(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: "Respond with JSON only, no prose."},
		{Role: ports.RoleUser, Content: prompt},
	}, model, 0, 512)
	if err != nil {
		return fmt.Errorf("provider call failed: %w", err)
	}

	raw := strings.TrimSpace(completion.Text)
	if err := json.Unmarshal([]byte(raw), out); err == nil {
		return nil
	}

	repaired, err := jsonrepair.JSONRepair(raw)
	if err != nil {
		return fmt.Errorf("response is not valid or repairable JSON: %w", err)
	}
	if err := json.Unmarshal([]byte(repaired), out); err != nil {
		return fmt.Errorf("repaired response still not valid JSON: %w", err)
	}
	return nil
}

type layer1LLMResponse struct {
	InteractionType string  `json:"interaction_type"`
	Confidence      float64 `json:"confidence"`
}

func llmLayer1(ctx context.Context, provider ports.Provider, model, rawInput string) (LayerDecision, error) {
	prompt := fmt.Sprintf(
		"Classify the interaction type of this message as exactly one of "+
			"[\"qa\", \"start_playbook\", \"manage_settings\", \"unknown\"]. "+
			"Respond as JSON: {\"interaction_type\": \"...\", \"confidence\": 0.0-1.0}.\n\nMessage: %q",
		rawInput)

	var resp layer1LLMResponse
	if err := callJSON(ctx, provider, model, prompt, &resp); err != nil {
		return LayerDecision{}, err
	}
	switch InteractionType(resp.InteractionType) {
	case InteractionQA, InteractionStartPlaybook, InteractionManageSettings, InteractionUnknown:
	default:
		resp.InteractionType = string(InteractionUnknown)
	}
	return LayerDecision{Value: resp.InteractionType, Method: MethodLLMBased, Confidence: resp.Confidence}, nil
}

type layer2LLMResponse struct {
	TaskDomain string  `json:"task_domain"`
	Confidence float64 `json:"confidence"`
}

func llmLayer2(ctx context.Context, provider ports.Provider, model, rawInput string, activeIntents []string) (LayerDecision, error) {
	fewShot := ""
	if len(activeIntents) > 0 {
		fewShot = "The user's currently active intents include: " + strings.Join(activeIntents, "; ") + ".\n"
	}
	prompt := fmt.Sprintf(
		"%sClassify the task domain of this message as exactly one of "+
			"[\"proposal_writing\", \"yearly_review\", \"habit_learning\", \"project_planning\", "+
			"\"content_writing\", \"unknown\"]. "+
			"Respond as JSON: {\"task_domain\": \"...\", \"confidence\": 0.0-1.0}.\n\nMessage: %q",
		fewShot, rawInput)

	var resp layer2LLMResponse
	if err := callJSON(ctx, provider, model, prompt, &resp); err != nil {
		return LayerDecision{}, err
	}
	switch TaskDomain(resp.TaskDomain) {
	case DomainProposalWriting, DomainYearlyReview, DomainHabitLearning, DomainProjectPlanning, DomainContentWriting, DomainUnknown:
	default:
		resp.TaskDomain = string(DomainUnknown)
	}
	return LayerDecision{Value: resp.TaskDomain, Method: MethodLLMBased, Confidence: resp.Confidence}, nil
}

type layer3LLMResponse struct {
	PlaybookCode string `json:"playbook_code"`
}

// llmLayer3 asks the provider to pick one playbook code from the effective
// set. A response outside that set is "no selection" per spec.md §4.F.
func llmLayer3(ctx context.Context, provider ports.Provider, model, taskDomain, rawInput string, candidates []ports.Message, legal map[string]bool) (LayerDecision, error) {
	var sb strings.Builder
	sb.WriteString("Pick exactly one playbook_code from this list that best matches the request, ")
	sb.WriteString("or respond with an empty string if none fit:\n")
	for _, c := range candidates {
		sb.WriteString("- ")
		sb.WriteString(c.Content)
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\nTask domain: %s\nMessage: %q\n", taskDomain, rawInput))
	sb.WriteString(`Respond as JSON: {"playbook_code": "..."}`)

	var resp layer3LLMResponse
	if err := callJSON(ctx, provider, model, sb.String(), &resp); err != nil {
		return LayerDecision{}, err
	}
	if resp.PlaybookCode == "" || !legal[resp.PlaybookCode] {
		return LayerDecision{Value: "", Method: MethodLLMBased, Confidence: 0}, nil
	}
	return LayerDecision{Value: resp.PlaybookCode, Method: MethodLLMBased, Confidence: 0.8}, nil
}

type multiStepLLMResponse struct {
	MultiStep        bool                 `json:"multi_step"`
	Steps            []multiStepLLMStep   `json:"steps"`
	StepDependencies map[string][]string  `json:"step_dependencies"`
}

// multiStepLLMStep is keyed by playbook_code rather than a synthetic step
// id: playbook.WorkflowStep (the type the coordinator ultimately stores)
// has no id field of its own, so pack_id doubles as the dependency-graph
// key in StepDependencies.
type multiStepLLMStep struct {
	PlaybookCode string `json:"playbook_code"`
	Description  string `json:"description"`
}

func llmMultiStepDetect(ctx context.Context, provider ports.Provider, model, rawInput, selectedCode string) (multiStepLLMResponse, error) {
	prompt := fmt.Sprintf(
		"Does fulfilling this request require running multiple playbooks in sequence, "+
			"beyond the already-selected %q? "+
			`Respond as JSON: {"multi_step": bool, "steps": [{"playbook_code":"...","description":"..."}], `+
			`"step_dependencies": {"playbook_code": ["depends_on_playbook_code", ...]}}.`+
			"\n\nMessage: %q", selectedCode, rawInput)

	var resp multiStepLLMResponse
	err := callJSON(ctx, provider, model, prompt, &resp)
	return resp, err
}
