package planner

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

type scriptedProvider struct {
	text string
	err  error
}

func (p *scriptedProvider) ProviderType() string { return "scripted" }

func (p *scriptedProvider) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	if p.err != nil {
		return ports.Completion{}, p.err
	}
	return ports.Completion{Text: p.text}, nil
}

func (p *scriptedProvider) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	return nil, nil
}

func TestBuildWithLLMSubstitutesOutOfScopePackID(t *testing.T) {
	provider := &scriptedProvider{text: `{
		"tasks": [{"pack_id": "totally_unknown_pack", "task_type": "draft", "side_effect_level": "soft_write"}],
		"plan_summary": "test", "user_request_summary": "test"
	}`}
	b := NewBuilder(provider, "gpt-4")

	ep, err := b.Build(context.Background(), Request{
		Message: "draft a proposal", UseLLM: true,
		EffectivePlaybooks: []playbook.Metadata{{PlaybookCode: "content_drafting"}},
	})
	require.NoError(t, err)
	require.Len(t, ep.Tasks, 1)
	assert.Equal(t, fallbackPackID, ep.Tasks[0].PackID)
}

func TestBuildDerivesAutoExecuteAndRequiresCTAFromSideEffectLevel(t *testing.T) {
	provider := &scriptedProvider{text: `{
		"tasks": [
			{"pack_id": "content_drafting", "task_type": "search", "side_effect_level": "readonly"},
			{"pack_id": "content_drafting", "task_type": "post", "side_effect_level": "external_write"}
		]
	}`}
	b := NewBuilder(provider, "gpt-4")

	ep, err := b.Build(context.Background(), Request{
		Message: "do things", UseLLM: true,
		EffectivePlaybooks: []playbook.Metadata{{PlaybookCode: "content_drafting"}},
	})
	require.NoError(t, err)
	require.Len(t, ep.Tasks, 2)

	assert.True(t, ep.Tasks[0].AutoExecute)
	assert.False(t, ep.Tasks[0].RequiresCTA)

	assert.False(t, ep.Tasks[1].AutoExecute)
	assert.True(t, ep.Tasks[1].RequiresCTA)
}

func TestBuildFallsBackToDeterministicPlannerOnLLMFailure(t *testing.T) {
	provider := &scriptedProvider{err: assertErr{}}
	b := NewBuilder(provider, "gpt-4")

	ep, err := b.Build(context.Background(), Request{Message: "write a proposal for the client", UseLLM: true})
	require.NoError(t, err)
	require.Len(t, ep.Tasks, 2)
	assert.Equal(t, "proposal_writing", ep.Tasks[0].PackID)
	assert.Equal(t, "content_writing", ep.Tasks[1].PackID)
}

func TestBuildDeterministicCanProduceZeroTasks(t *testing.T) {
	b := NewBuilder(&scriptedProvider{}, "gpt-4")
	ep, err := b.Build(context.Background(), Request{Message: "hello there", UseLLM: false})
	require.NoError(t, err)
	assert.Empty(t, ep.Tasks)
	assert.Equal(t, "No action needed.", ep.PlanSummary)
}

func TestBuildDeterministicRoutesByFileMIMEGroup(t *testing.T) {
	b := NewBuilder(&scriptedProvider{}, "gpt-4")
	ep, err := b.Build(context.Background(), Request{
		Message: "", UseLLM: false,
		Files: []FileRef{{FileDocumentID: "f1", MimeType: "image/png"}},
	})
	require.NoError(t, err)
	require.Len(t, ep.Tasks, 1)
	assert.Equal(t, "content_drafting", ep.Tasks[0].PackID)
	assert.Equal(t, task.SideEffectSoftWrite, ep.Tasks[0].SideEffectLevel)
}

type assertErr struct{}

func (assertErr) Error() string { return "simulated provider failure" }
