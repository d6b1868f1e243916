// Package playbook models the Playbook Registry's catalogue (Component D).
package playbook

// Kind distinguishes a user-authored workflow from a system tool.
type Kind string

const (
	KindUserWorkflow Kind = "user_workflow"
	KindSystemTool   Kind = "system_tool"
)

// InteractionMode is one entry of a Playbook's interaction_mode set.
type InteractionMode string

const (
	InteractionSilent        InteractionMode = "silent"
	InteractionNeedsReview   InteractionMode = "needs_review"
	InteractionConversational InteractionMode = "conversational"
)

// Source identifies which of the three discovery layers supplied a
// Playbook. Precedence is BuiltIn < CapabilityPack < User (later overrides
// earlier on code collision, per the spec's Open Question resolution).
type Source int

const (
	SourceBuiltIn Source = iota
	SourceCapabilityPack
	SourceUser
)

// WorkflowStep is one step of a structured HandoffPlan.
type WorkflowStep struct {
	PackID          string            `json:"pack_id"`
	Kind            Kind              `json:"kind"`
	InteractionMode InteractionMode   `json:"interaction_mode"`
	Inputs          map[string]any    `json:"inputs,omitempty"`
	InputMapping    map[string]string `json:"input_mapping,omitempty"`
}

// Metadata is the lightweight listing projection returned by Registry.List.
type Metadata struct {
	PlaybookCode string   `json:"playbook_code"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Tags         []string `json:"tags,omitempty"`
	OutputTypes  []string `json:"output_types,omitempty"`
	Source       Source   `json:"-"`
}

// Playbook is the full manifest, optionally carrying a structured workflow.
type Playbook struct {
	Metadata
	InteractionMode []InteractionMode `json:"interaction_mode,omitempty"`
	Kind            Kind              `json:"kind"`
	Steps           []WorkflowStep    `json:"steps,omitempty"`
}

// Run is a playbook resolved for a specific (locale, workspace) — the shape
// the Plan Builder and Intent Pipeline consume.
type Run struct {
	Playbook
}

// HasJSON reports whether a structured HandoffPlan can be generated from
// this run (i.e. it carries a non-empty Steps workflow).
func (r Run) HasJSON() bool {
	return len(r.Steps) > 0
}

// HandoffPlan is the linear sequence of WorkflowSteps derived from a
// multi-step intent (GLOSSARY).
type HandoffPlan struct {
	Steps              []WorkflowStep    `json:"steps"`
	StepDependencies   map[string][]string `json:"step_dependencies,omitempty"`
}
