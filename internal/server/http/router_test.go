package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/background"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/playbook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/hooks"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/identity"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/orchestrator"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/streaming"
)

type stubProvider struct{ text string }

func (p stubProvider) ProviderType() string { return "stub" }
func (p stubProvider) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	return ports.Completion{Text: p.text}, nil
}
func (p stubProvider) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	return nil, nil
}

type noopIntentRegistry struct{}

func (noopIntentRegistry) ResolveIntent(ctx context.Context, userInput string, execCtx ports.ExecutionContext, context map[string]any, locale string) (ports.ResolvedIntent, error) {
	return ports.ResolvedIntent{}, nil
}
func (noopIntentRegistry) ListAvailableIntents(ctx context.Context, execCtx ports.ExecutionContext) ([]ports.IntentDefinition, error) {
	return nil, nil
}

type emptyPlaybookRegistry struct{}

func (emptyPlaybookRegistry) List(ctx context.Context, workspaceID, locale string, source *playbook.Source) ([]playbook.Metadata, error) {
	return nil, nil
}
func (emptyPlaybookRegistry) Get(ctx context.Context, playbookCode, locale, workspaceID string) (*playbook.Playbook, error) {
	return nil, nil
}
func (emptyPlaybookRegistry) LoadRun(ctx context.Context, playbookCode, locale, workspaceID string) (*playbook.Run, error) {
	return nil, nil
}

func newTestEngine(t *testing.T) (*gin.Engine, ports.EventLog, ports.TimelineStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	events := store.NewEventLog()
	timelines := store.NewTimelineStore()
	broadcaster := streaming.NewBroadcaster(nil)

	router := orchestrator.NewRouter(orchestrator.Deps{
		Events: events, Tasks: store.NewTaskStore(), Timelines: timelines,
		Playbooks: emptyPlaybookRegistry{}, Cards: store.NewIntentCardStore(),
		Signals: store.NewSignalStore(), IntentLog: store.NewIntentLog(),
		Identity: identity.Local{}, IntentRegistry: noopIntentRegistry{},
		Provider: stubProvider{text: "synchronous reply"}, Model: "test-model",
	})
	runner := background.NewRunner(router, events, nil)

	hookRunner := hooks.NewRunner(events, store.NewHookRunLedger(), nil, nil,
		func(ctx context.Context, req hooks.Request) (map[string]any, []string, error) {
			return map[string]any{"intents": []string{"travel_planning"}}, []string{"travel_planning"}, nil
		},
		func(ctx context.Context, req hooks.Request, signals []string) (map[string]any, error) {
			return map[string]any{"clustered": len(signals)}, nil
		},
	)

	engine := NewRouter(Deps{
		Router: router, Background: runner, Events: events, Timelines: timelines, Broadcaster: broadcaster,
		Hooks: hookRunner,
		Provider: stubProvider{text: "synchronous reply"}, Model: "test-model",
		Cards: store.NewIntentCardStore(), Playbooks: emptyPlaybookRegistry{},
	})
	return engine, events, timelines
}

func TestHandleChatSynchronousReturnsDisplayEvents(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body, _ := json.Marshal(map[string]any{"message": "what's two plus two?"})
	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var result orchestrator.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.NotEmpty(t, result.DisplayEvents)
}

func TestHandleChatStreamReturns202Accepted(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body, _ := json.Marshal(map[string]any{"message": "hello", "stream": true})
	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusAccepted, rec.Code)

	var accepted background.Accepted
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &accepted))
	assert.Equal(t, "accepted", accepted.Status)
}

func TestHandleChatRequiresMessageOrAction(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws1/chat", bytes.NewReader([]byte(`{}`)))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleChatCTAActionUpdatesTimelineItem(t *testing.T) {
	engine, _, timelines := newTestEngine(t)

	item := timeline.Item{ID: "item-1", WorkspaceID: "ws1", TaskID: "task-1", Type: timeline.TypeExecutionCard, CreatedAt: time.Now()}
	require.NoError(t, timelines.Create(context.Background(), item))

	body, _ := json.Marshal(map[string]any{"timeline_item_id": "item-1", "action": "confirm_task", "confirm": true})
	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws1/chat", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	updated, err := timelines.Get(context.Background(), "item-1")
	require.NoError(t, err)
	assert.Equal(t, true, updated.Data["confirmed"])
}

func TestHandleEventsGeneratesWelcomeMessageOnInitialLoad(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	req := httptest.NewRequest(http.MethodGet, "/workspaces/ws1/events", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["total"])
}

func TestHandleEventsDoesNotDuplicateWelcomeMessageOnSecondLoad(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/workspaces/ws1/events", nil)
		rec := httptest.NewRecorder()
		engine.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/workspaces/ws1/events", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.EqualValues(t, 1, body["total"])
}

func TestHandleTimelineListsItemsForWorkspace(t *testing.T) {
	engine, _, timelines := newTestEngine(t)
	require.NoError(t, timelines.Create(context.Background(), timeline.Item{
		ID: "t1", WorkspaceID: "ws1", Type: timeline.TypeDailyPlan, CreatedAt: time.Now(),
	}))

	req := httptest.NewRequest(http.MethodGet, "/workspaces/ws1/timeline", nil)
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	items, _ := body["items"].([]any)
	assert.Len(t, items, 1)
}

func TestHandleChatSyncedRunsHookPipelineAndReturnsResults(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body, _ := json.Marshal(map[string]any{
		"message": "plan my trip", "message_id": "msg-1", "trace_id": "trace-1",
	})
	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws1/hooks/chat-synced", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body2 map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body2))
	results, _ := body2["results"].(map[string]any)
	require.NotNil(t, results)
	assert.NotNil(t, results["IntentExtract"])
	assert.NotNil(t, results["StewardAnalyze"])
}

func TestHandleChatSyncedRejectsMissingMessageID(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	body, _ := json.Marshal(map[string]any{"message": "hi"})
	req := httptest.NewRequest(http.MethodPost, "/workspaces/ws1/hooks/chat-synced", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleEventsStreamEmitsReplayedEventAsSSEDataLine(t *testing.T) {
	engine, events, _ := newTestEngine(t)
	_, err := events.Append(context.Background(), event.Event{
		WorkspaceID: "ws1", Actor: event.ActorUser, EventType: event.TypeMessage,
		Payload: map[string]any{"message": "hi"},
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/workspaces/ws1/events/stream", nil)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	req = req.WithContext(ctx)
	rec := httptest.NewRecorder()

	engine.ServeHTTP(rec, req)

	scanner := bufio.NewScanner(rec.Body)
	var sawDataLine bool
	for scanner.Scan() {
		if len(scanner.Bytes()) > len("data: ") && string(scanner.Bytes()[:5]) == "data:" {
			sawDataLine = true
			break
		}
	}
	assert.True(t, sawDataLine, "expected the replayed event to be framed as an SSE data line")
}
