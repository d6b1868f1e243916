package sampling

import "fmt"

// Template is the closed prompt-template allowlist (spec.md §4.K step 1).
type Template string

const (
	TemplateIntentExtract     Template = "intent_extract"
	TemplateStewardAnalyze    Template = "steward_analyze"
	TemplatePlanBuild         Template = "plan_build"
	TemplateAgentTaskDispatch Template = "agent_task_dispatch"
)

// AllowedTemplates is the default allowlist; a Gate may be constructed with
// a narrower set via Config.AllowedTemplates.
var AllowedTemplates = map[Template]bool{
	TemplateIntentExtract:     true,
	TemplateStewardAnalyze:    true,
	TemplatePlanBuild:         true,
	TemplateAgentTaskDispatch: true,
}

// BuildIntentExtractPrompt and its siblings are the gate's well-typed
// prompt builders (spec.md §4.K "Prompt builders") — callers build a
// prompt only through these, so a caller can never drift outside the
// allowlist by hand-assembling an arbitrary template string.
func BuildIntentExtractPrompt(rawInput string) string {
	return Redact(fmt.Sprintf("Extract intent signals from this message as JSON: %q", rawInput))
}

func BuildStewardAnalyzePrompt(signals []string) string {
	prompt := "Analyze these candidate signals and propose CREATE_INTENT_CARD/UPDATE_INTENT_CARD operations as JSON:\n"
	for _, s := range signals {
		prompt += "- " + s + "\n"
	}
	return Redact(prompt)
}

func BuildAgentTaskDispatchPrompt(taskType, params string) string {
	return Redact(fmt.Sprintf("Dispatch task_type=%s with params=%s; respond as JSON.", taskType, params))
}
