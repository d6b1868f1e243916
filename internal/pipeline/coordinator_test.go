package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
)

type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) ProviderType() string { return "scripted" }

func (p *scriptedProvider) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	if p.calls >= len(p.responses) {
		return ports.Completion{Text: "{}"}, nil
	}
	text := p.responses[p.calls]
	p.calls++
	return ports.Completion{Text: text}, nil
}

func (p *scriptedProvider) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	return nil, nil
}

func newRegistryWithPacks(t *testing.T, packs ...playbook.Playbook) *store.PlaybookRegistry {
	t.Helper()
	reg, err := store.NewPlaybookRegistry("", "", nil)
	require.NoError(t, err)
	for _, p := range packs {
		reg.RegisterBuiltIn(p)
	}
	return reg
}

func TestArbitrateLayer1UsesRuleHitWhenRulePriorityEnabled(t *testing.T) {
	c := NewCoordinator(&scriptedProvider{}, "gpt-4", nil, nil)
	decision, err := c.arbitrateLayer1(context.Background(), Input{Channel: "slack", RawInput: "/start_proposal now"}, Config{UseLLM: true, RulePriority: true})
	require.NoError(t, err)
	assert.Equal(t, string(InteractionStartPlaybook), decision.Value)
	assert.Equal(t, MethodRuleBased, decision.Method)
	assert.Equal(t, 0.9, decision.Confidence)
}

func TestArbitrateLayer1ConsultsLLMWhenRulePriorityDisabled(t *testing.T) {
	provider := &scriptedProvider{responses: []string{`{"interaction_type":"qa","confidence":0.75}`}}
	c := NewCoordinator(provider, "gpt-4", nil, nil)

	decision, err := c.arbitrateLayer1(context.Background(), Input{Channel: "slack", RawInput: "/start_proposal now"}, Config{UseLLM: true, RulePriority: false})
	require.NoError(t, err)
	assert.Equal(t, string(InteractionQA), decision.Value)
	assert.Equal(t, MethodLLMBased, decision.Method)
	assert.Equal(t, 1, provider.calls, "LLM must be consulted despite a rule hit when rule priority is disabled")
}

func TestArbitrateLayer1FallsBackWhenNoRuleAndLLMDisabled(t *testing.T) {
	c := NewCoordinator(&scriptedProvider{}, "gpt-4", nil, nil)
	decision, err := c.arbitrateLayer1(context.Background(), Input{Channel: "web", RawInput: "gibberish text with no markers"}, Config{UseLLM: false})
	require.NoError(t, err)
	assert.Equal(t, string(InteractionUnknown), decision.Value)
	assert.Equal(t, MethodRuleBasedFallback, decision.Method)
}

func TestAnalyzeSelectsLegalPlaybookAndRejectsIllegalOne(t *testing.T) {
	reg := newRegistryWithPacks(t, playbook.Playbook{
		Metadata: playbook.Metadata{PlaybookCode: "content_drafting", Name: "Content Drafting"},
	})

	provider := &scriptedProvider{responses: []string{
		`{"interaction_type":"start_playbook","confidence":0.9}`,
		`{"task_domain":"content_writing","confidence":0.8}`,
		`{"playbook_code":"not_a_real_code"}`,
	}}

	c := NewCoordinator(provider, "gpt-4", nil, nil)
	packs, err := reg.List(context.Background(), "ws-1", "en", nil)
	require.NoError(t, err)

	result, err := c.Analyze(context.Background(), Input{
		WorkspaceID: "ws-1", RawInput: "please draft a proposal", EffectivePacks: packs,
	}, Config{UseLLM: true, RulePriority: true})
	require.NoError(t, err)

	assert.Equal(t, "", result.SelectedPlaybookCode, "an illegal playbook_code must resolve to no selection")
	assert.False(t, result.MultiStep)
}

func TestAnalyzeWritesDecisionLogRegardlessOfOutcome(t *testing.T) {
	log := store.NewIntentLog()
	c := NewCoordinator(&scriptedProvider{}, "gpt-4", nil, log)

	_, err := c.Analyze(context.Background(), Input{WorkspaceID: "ws-1", RawInput: "what is my plan today?"}, Config{UseLLM: false})
	require.NoError(t, err)

	entries, err := log.List(context.Background(), "ws-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "ws-1", entries[0].WorkspaceID)
}
