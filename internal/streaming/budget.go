package streaming

import (
	tiktoken "github.com/pkoukk/tiktoken-go"
)

// ModelBudgets is the closed table of model input-token budgets spec.md
// §4.I calls for ("a closed table keyed by model name with safe defaults").
var ModelBudgets = map[string]int{
	"gpt-3.5-turbo": 12000,
	"gpt-4":         24000,
	"gpt-4-turbo":   120000,
	"gpt-4o":        120000,
}

// DefaultBudget is used for models absent from ModelBudgets.
const DefaultBudget = 8000

// BudgetFor returns the input-token budget for model.
func BudgetFor(model string) int {
	if b, ok := ModelBudgets[model]; ok {
		return b
	}
	return DefaultBudget
}

// encodingName is fixed: every model in ModelBudgets is OpenAI-family and
// shares cl100k_base. A non-OpenAI provider's model name simply falls back
// to this same encoding for an approximate (slightly pessimistic) count.
const encodingName = "cl100k_base"

// CountTokens counts text's tokens using tiktoken-go instead of a byte/4
// heuristic, so truncation decisions in Truncate are deterministic and
// accurate (spec.md §8 "the truncation applied is deterministic given the
// same inputs").
func CountTokens(text string) int {
	enc, err := tiktoken.GetEncoding(encodingName)
	if err != nil {
		// tiktoken-go ships its encodings embedded; this only fails if the
		// encoding name itself is wrong, which is a programmer error, not a
		// runtime condition — fall back to a conservative heuristic so a
		// turn never hard-fails on token counting alone.
		return len(text)/4 + 1
	}
	return len(enc.Encode(text, nil, nil))
}

// PromptSections is the enhanced-prompt shape the Streaming Executor
// truncates in priority order (spec.md §4.I "Context budgeting").
type PromptSections struct {
	SystemInstructions string // never truncated
	UserTurn           string // never truncated
	RecentConversation string // truncated first
	RecentTimeline     string // truncated second
	WorkspaceContext   string // survives the final collapse
	ActiveIntents      string // survives the final collapse
	CurrentTasks       string // survives the final collapse
}

const (
	conversationPlaceholder = "## Recent Conversation:\n[truncated for context budget]\n"
	timelinePlaceholder     = "## Recent Timeline:\n[truncated for context budget]\n"
)

// Truncate applies the deterministic three-step truncation priority order:
// (1) recent conversation history -> placeholder, (2) recent timeline ->
// placeholder, (3) collapse to only {workspace context, active intents,
// current tasks}. Returns the rendered prompt and its token count.
func (p PromptSections) Truncate(budget int) (string, int) {
	render := func(sections PromptSections) string {
		return sections.SystemInstructions + "\n" +
			sections.WorkspaceContext + "\n" +
			sections.ActiveIntents + "\n" +
			sections.CurrentTasks + "\n" +
			sections.RecentConversation + "\n" +
			sections.RecentTimeline + "\n" +
			sections.UserTurn
	}

	full := render(p)
	if CountTokens(full) <= budget {
		return full, CountTokens(full)
	}

	step1 := p
	step1.RecentConversation = conversationPlaceholder
	rendered := render(step1)
	if CountTokens(rendered) <= budget {
		return rendered, CountTokens(rendered)
	}

	step2 := step1
	step2.RecentTimeline = timelinePlaceholder
	rendered = render(step2)
	if CountTokens(rendered) <= budget {
		return rendered, CountTokens(rendered)
	}

	step3 := PromptSections{
		SystemInstructions: p.SystemInstructions,
		UserTurn:           p.UserTurn,
		WorkspaceContext:   p.WorkspaceContext,
		ActiveIntents:      p.ActiveIntents,
		CurrentTasks:       p.CurrentTasks,
	}
	rendered = render(step3)
	return rendered, CountTokens(rendered)
}
