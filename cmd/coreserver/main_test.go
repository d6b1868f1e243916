package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/hooks"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/registry"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/steward"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
)

type stubProvider struct{}

func (stubProvider) ProviderType() string { return "stub" }
func (stubProvider) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	return ports.Completion{Text: "{}"}, nil
}
func (stubProvider) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	return nil, nil
}

func TestIntentExtractFnResolvesKeywordMatches(t *testing.T) {
	fn := intentExtractFn(registry.Local{})

	result, signals, err := fn(context.Background(), hooks.Request{
		WorkspaceID: "ws1", Message: "help me plan a trip to Kyoto",
	})

	require.NoError(t, err)
	assert.Contains(t, signals, "travel_planning")
	assert.Equal(t, signals, result["intents"])
}

func TestStewardAnalyzeFnBuildsSignalsFromLabels(t *testing.T) {
	cards := store.NewIntentCardStore()
	intentLog := store.NewIntentLog()
	engine := steward.NewSteward(stubProvider{}, "test-model", cards, intentLog)

	fn := stewardAnalyzeFn(engine, false)
	result, err := fn(context.Background(), hooks.Request{
		WorkspaceID: "ws1", ProfileID: "p1", MessageID: "msg-1",
	}, []string{"travel_planning"})

	require.NoError(t, err)
	plan, ok := result["layout_plan"].(intent.LayoutPlan)
	require.True(t, ok)
	_ = plan
}
