// Package pipeline implements the Intent Pipeline (Component F): a
// three-layer classifier — interaction type, task domain, playbook
// selection — with rule/LLM arbitration and decision logging, grounded on
// the teacher's rule-first-then-LLM planning policy
// (internal/agent/app/planning_policy.go's shouldUsePlanner) generalized
// from a single boolean gate into a three-layer pipeline.
package pipeline

import "github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"

// InteractionType is Layer 1's closed output set.
type InteractionType string

const (
	InteractionQA             InteractionType = "qa"
	InteractionStartPlaybook  InteractionType = "start_playbook"
	InteractionManageSettings InteractionType = "manage_settings"
	InteractionUnknown        InteractionType = "unknown"
)

// TaskDomain is Layer 2's closed output set.
type TaskDomain string

const (
	DomainProposalWriting TaskDomain = "proposal_writing"
	DomainYearlyReview    TaskDomain = "yearly_review"
	DomainHabitLearning   TaskDomain = "habit_learning"
	DomainProjectPlanning TaskDomain = "project_planning"
	DomainContentWriting  TaskDomain = "content_writing"
	DomainUnknown         TaskDomain = "unknown"
)

// Method records which arbitration path produced a layer's decision.
type Method string

const (
	MethodRuleBased         Method = "rule_based"
	MethodLLMBased          Method = "llm_based"
	MethodRuleBasedFallback Method = "rule_based_fallback"
	MethodNone              Method = "none"
)

// LayerDecision is the output of a single pipeline layer.
type LayerDecision struct {
	Value      string  `json:"value"`
	Method     Method  `json:"method"`
	Confidence float64 `json:"confidence"`
}

// Input is the raw material the pipeline classifies.
type Input struct {
	WorkspaceID    string
	ProfileID      string
	Channel        string
	RawInput       string
	ActiveIntents  []string // free-text few-shot examples drawn from the profile's active IntentCards
	Locale         string
	EffectivePacks []playbook.Metadata
}

// Result is the full three-layer analysis plus multi-step detection.
type Result struct {
	Layer1 LayerDecision  `json:"layer1"`
	Layer2 *LayerDecision `json:"layer2,omitempty"`
	Layer3 *LayerDecision `json:"layer3,omitempty"`

	SelectedPlaybookCode string `json:"selected_playbook_code,omitempty"`

	MultiStep        bool                         `json:"multi_step"`
	Steps            []playbook.WorkflowStep      `json:"steps,omitempty"`
	StepDependencies map[string][]string          `json:"step_dependencies,omitempty"`
}

// Config gates the rule/LLM arbitration (spec.md §4.F).
type Config struct {
	// UseLLM enables the LLM matcher at all. When false, only rule-based
	// matching is attempted and an unresolved Layer 1 falls back to Unknown
	// with method rule_based_fallback.
	UseLLM bool
	// RulePriority, when false, means the LLM matcher is always consulted
	// even after a rule hit — "rule priority disabled" in spec.md §4.F.
	RulePriority bool
}
