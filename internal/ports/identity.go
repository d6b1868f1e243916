package ports

import "context"

// ExecutionContext is the identity context constructed for a turn.
type ExecutionContext struct {
	ActorID     string   `json:"actor_id"`
	WorkspaceID string   `json:"workspace_id"`
	Tags        []string `json:"tags,omitempty"`
	MindLens    string   `json:"mind_lens,omitempty"`
}

// IdentityPort resolves the actor executing a turn. Pluggable; the local
// implementation returns a fixed single-user context (spec.md §6.2).
type IdentityPort interface {
	GetCurrentContext(ctx context.Context, workspaceID, profileID string) (ExecutionContext, error)
}

// IntentDefinition is one entry of IntentRegistryPort.ListAvailableIntents.
type IntentDefinition struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// ResolvedIntent is the result of IntentRegistryPort.ResolveIntent.
type ResolvedIntent struct {
	Intents     []string       `json:"intents"`
	Themes      []string       `json:"themes"`
	Confidence  float64        `json:"confidence,omitempty"`
	LLMAnalysis map[string]any `json:"llm_analysis,omitempty"`
}

// IntentRegistryPort resolves free-text user input into intents/themes
// ahead of the Intent Pipeline proper (spec.md §4.H step 6, §6.2).
type IntentRegistryPort interface {
	ResolveIntent(ctx context.Context, userInput string, execCtx ExecutionContext, context map[string]any, locale string) (ResolvedIntent, error)
	ListAvailableIntents(ctx context.Context, execCtx ExecutionContext) ([]IntentDefinition, error)
}
