package steward

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
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

func sig(id, label string, confidence float64) intent.Signal {
	return intent.Signal{ID: id, Label: label, Confidence: confidence, Source: intent.SourceRule, CreatedAt: time.Now()}
}

func TestPrefilterSignalsAppliesConfidenceDedupLengthAndCap(t *testing.T) {
	signals := []intent.Signal{
		sig("s1", "plan trip to japan", 0.9),
		sig("s2", "Plan Trip To Japan", 0.95), // dup by lowercased label
		sig("s3", "low confidence idea", 0.5), // below floor
		sig("s4", "ok", 0.8),                  // below min length 3
		sig("s5", "valid signal label", 0.75),
	}
	out := prefilterSignals(signals)
	assert.Len(t, out, 2)
	assert.Equal(t, "s1", out[0].ID, "first-seen label wins the dedup key and sorts first by confidence")
}

func TestPrefilterSignalsCapsAtTwenty(t *testing.T) {
	signals := make([]intent.Signal, 0, 30)
	for i := 0; i < 30; i++ {
		n := strconv.Itoa(i)
		signals = append(signals, sig("id-"+n, "distinct label number "+n, 0.9))
	}
	out := prefilterSignals(signals)
	assert.Len(t, out, maxSignals)
}

func newTestSteward(t *testing.T, provider ports.Provider) (*Steward, *store.IntentCardStore, *store.IntentLog) {
	t.Helper()
	cards := store.NewIntentCardStore()
	log := store.NewIntentLog()
	return NewSteward(provider, "test-model", cards, log), cards, log
}

func TestAnalyzeTurnHeuristicCreatesOperationForRepeatedSimilarSignals(t *testing.T) {
	steward, _, _ := newTestSteward(t, nil)
	in := Input{
		WorkspaceID: "ws-1", ProfileID: "p1",
		Signals: []intent.Signal{
			sig("s1", "plan a trip to japan", 0.9),
			sig("s2", "plan a trip to japanese", 0.85),
		},
	}
	plan, err := steward.AnalyzeTurn(context.Background(), in, Config{})
	require.NoError(t, err)
	require.Len(t, plan.LongTermIntents, 1)
	assert.Equal(t, intent.OpCreate, plan.LongTermIntents[0].Type)
}

func TestAnalyzeTurnHeuristicMarksSingletonEphemeral(t *testing.T) {
	steward, _, _ := newTestSteward(t, nil)
	in := Input{
		WorkspaceID: "ws-1", ProfileID: "p1",
		Signals: []intent.Signal{sig("s1", "a one-off remark", 0.9)},
	}
	plan, err := steward.AnalyzeTurn(context.Background(), in, Config{})
	require.NoError(t, err)
	assert.Empty(t, plan.LongTermIntents)
	assert.Len(t, plan.EphemeralTasks, 1)
}

func TestAnalyzeTurnObservationModeDoesNotMutateStore(t *testing.T) {
	steward, cards, _ := newTestSteward(t, nil)
	in := Input{
		WorkspaceID: "ws-1", ProfileID: "p1",
		Signals: []intent.Signal{
			sig("s1", "plan a trip to japan", 0.9),
			sig("s2", "plan a trip to japanese", 0.85),
		},
	}
	_, err := steward.AnalyzeTurn(context.Background(), in, Config{AutoIntentLayout: false})
	require.NoError(t, err)

	visible, err := cards.ListVisible(context.Background(), "p1", nil, nil, 10)
	require.NoError(t, err)
	assert.Empty(t, visible, "observation-mode analysis must not persist any IntentCard")
}

func TestAnalyzeTurnExecutionModeCreatesCard(t *testing.T) {
	steward, cards, _ := newTestSteward(t, nil)
	in := Input{
		WorkspaceID: "ws-1", ProfileID: "p1",
		Signals: []intent.Signal{
			sig("s1", "plan a trip to japan", 0.9),
			sig("s2", "plan a trip to japanese", 0.85),
		},
	}
	plan, err := steward.AnalyzeTurn(context.Background(), in, Config{AutoIntentLayout: true})
	require.NoError(t, err)
	require.Len(t, plan.LongTermIntents, 1)
	require.NotEmpty(t, plan.LongTermIntents[0].IntentID)

	created, err := cards.Get(context.Background(), plan.LongTermIntents[0].IntentID)
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Equal(t, sourceIntentStewardAuto, created.Metadata["source"])
	assert.NotEmpty(t, plan.SignalMapping)
}

func TestAnalyzeTurnExecutionModeSnapshotsRollbackDataOnUpdate(t *testing.T) {
	steward, cards, _ := newTestSteward(t, nil)
	existing := intent.Card{
		ID: "card-1", ProfileID: "p1", Title: "plan a trip to japan",
		Description: "old description", Status: intent.CardActive, Priority: intent.PriorityMedium,
		CreatedAt: time.Now(), UpdatedAt: time.Now(),
	}
	require.NoError(t, cards.Create(context.Background(), existing))

	in := Input{
		WorkspaceID: "ws-1", ProfileID: "p1",
		VisibleCards: []intent.Card{existing},
		Signals: []intent.Signal{
			sig("s1", "plan a trip to japan", 0.9),
			sig("s2", "plan a trip to japan again", 0.85),
		},
	}
	plan, err := steward.AnalyzeTurn(context.Background(), in, Config{AutoIntentLayout: true})
	require.NoError(t, err)
	require.Len(t, plan.LongTermIntents, 1)
	assert.Equal(t, intent.OpUpdate, plan.LongTermIntents[0].Type)
	assert.Equal(t, "card-1", plan.LongTermIntents[0].IntentID)

	updated, err := cards.Get(context.Background(), "card-1")
	require.NoError(t, err)
	rollback, ok := updated.Metadata["rollback_data"].(map[string]any)
	require.True(t, ok, "update must snapshot prior fields into metadata.rollback_data")
	assert.Equal(t, "old description", rollback["description"])
}

func TestAnalyzeTurnFallsBackToHeuristicWhenLLMResponseExceedsCaps(t *testing.T) {
	overCapJSON := `{"operations":[
		{"type":"CREATE_INTENT_CARD","data":{"title":"a"},"confidence":0.9},
		{"type":"CREATE_INTENT_CARD","data":{"title":"b"},"confidence":0.9},
		{"type":"CREATE_INTENT_CARD","data":{"title":"c"},"confidence":0.9},
		{"type":"CREATE_INTENT_CARD","data":{"title":"d"},"confidence":0.9}
	]}`
	steward, _, _ := newTestSteward(t, &scriptedProvider{text: overCapJSON})
	in := Input{
		WorkspaceID: "ws-1", ProfileID: "p1",
		Signals: []intent.Signal{
			sig("s1", "plan a trip to japan", 0.9),
			sig("s2", "plan a trip to japanese", 0.85),
		},
	}
	plan, err := steward.AnalyzeTurn(context.Background(), in, Config{UseLLM: true})
	require.NoError(t, err)
	assert.True(t, plan.WithinCaps())
}

func TestAnalyzeTurnWritesAuditLogRegardlessOfOutcome(t *testing.T) {
	steward, _, log := newTestSteward(t, nil)
	in := Input{WorkspaceID: "ws-1", ProfileID: "p1"}
	_, err := steward.AnalyzeTurn(context.Background(), in, Config{})
	require.NoError(t, err)

	entries, err := log.List(context.Background(), "ws-1", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, phaseObservation, entries[0].Phase)
}

func TestAnalyzeTurnAuditPhaseReflectsExecutionGate(t *testing.T) {
	steward, _, log := newTestSteward(t, nil)
	in := Input{
		WorkspaceID: "ws-2", ProfileID: "p1",
		Signals: []intent.Signal{
			sig("s1", "plan a trip to japan", 0.9),
			sig("s2", "plan a trip to japanese", 0.85),
		},
	}
	_, err := steward.AnalyzeTurn(context.Background(), in, Config{AutoIntentLayout: true})
	require.NoError(t, err)

	entries, err := log.List(context.Background(), "ws-2", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, phaseExecution, entries[0].Phase)
}
