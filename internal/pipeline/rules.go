package pipeline

import (
	"regexp"
	"strings"
)

// ruleCommandPrefix matches an explicit command invocation — the
// "leading `/` in a chat-app channel" case spec.md §4.F names directly.
var ruleCommandPrefix = regexp.MustCompile(`^/[a-zA-Z_][a-zA-Z0-9_-]*`)

// ruleQuestionWords is the closed set of question markers that bias Layer 1
// toward qa. Grounded on the teacher's looksLikeSimpleQA /
// shouldUsePlanner heuristics (internal/agent/app/planning_policy.go),
// generalized from "should I plan" into "what is the interaction type".
var ruleQuestionWords = regexp.MustCompile(`(?i)^(what|why|how|when|where|who|can you|could you|is it|are you|do you)\b|\?\s*$|[吗呢？]\s*$`)

var ruleSettingsKeywords = []string{
	"setting", "settings", "preferences", "configure", "configuration",
	"设置", "配置", "偏好",
}

// chatCommandChannels is the closed set of channels where a leading `/`
// is treated as a command rather than literal text.
var chatCommandChannels = map[string]bool{
	"slack": true, "discord": true, "lark": true, "telegram": true,
}

// matchRules runs the closed regex/prefix rule set against raw input and
// returns (interaction type, matched) — matched is false when no rule
// fires, signalling the coordinator to fall through to the LLM matcher (or
// to rule_based_fallback if the LLM matcher is disabled).
func matchRules(channel, rawInput string) (InteractionType, bool) {
	trimmed := strings.TrimSpace(rawInput)
	if trimmed == "" {
		return InteractionUnknown, false
	}

	if chatCommandChannels[strings.ToLower(channel)] && ruleCommandPrefix.MatchString(trimmed) {
		cmd := strings.ToLower(ruleCommandPrefix.FindString(trimmed))
		if cmd == "/settings" || cmd == "/config" || cmd == "/preferences" {
			return InteractionManageSettings, true
		}
		return InteractionStartPlaybook, true
	}

	lower := strings.ToLower(trimmed)
	for _, kw := range ruleSettingsKeywords {
		if strings.Contains(lower, strings.ToLower(kw)) {
			return InteractionManageSettings, true
		}
	}

	if ruleQuestionWords.MatchString(trimmed) {
		return InteractionQA, true
	}

	return InteractionUnknown, false
}
