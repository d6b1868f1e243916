package streaming

import (
	"context"
	"sync"
	"time"

	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/task"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
)

// fakeStreamingProvider supports ChatCompletionStream and answers with a
// fixed sequence of chunks.
type fakeStreamingProvider struct {
	chunks []string
}

func (p *fakeStreamingProvider) ProviderType() string { return "fake" }

func (p *fakeStreamingProvider) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	return ports.Completion{Text: "unused"}, nil
}

func (p *fakeStreamingProvider) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	return &fakeStreamReader{chunks: p.chunks}, nil
}

func (p *fakeStreamingProvider) SupportsStreaming() bool { return true }

type fakeStreamReader struct {
	chunks []string
	idx    int
}

func (r *fakeStreamReader) Next(ctx context.Context) (ports.StreamChunk, error) {
	if ctx.Err() != nil {
		return ports.StreamChunk{}, ctx.Err()
	}
	if r.idx >= len(r.chunks) {
		return ports.StreamChunk{Done: true}, nil
	}
	c := r.chunks[r.idx]
	r.idx++
	return ports.StreamChunk{Content: c, Done: r.idx >= len(r.chunks)}, nil
}

func (r *fakeStreamReader) Close() error { return nil }

// fakeNonStreamingProvider only supports ChatCompletion.
type fakeNonStreamingProvider struct {
	text string
}

func (p *fakeNonStreamingProvider) ProviderType() string { return "fake-nonstream" }

func (p *fakeNonStreamingProvider) ChatCompletion(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.Completion, error) {
	return ports.Completion{Text: p.text}, nil
}

func (p *fakeNonStreamingProvider) ChatCompletionStream(ctx context.Context, messages []ports.Message, model string, temperature float64, maxTokens int) (ports.StreamReader, error) {
	return nil, assertNeverCalled()
}

func assertNeverCalled() error { panic("ChatCompletionStream should not be called for a non-streaming provider") }

// recordingBroadcaster wraps a real Broadcaster but also records every
// published envelope's type in order, so tests can assert on sequencing.
type recordingBroadcaster struct {
	*Broadcaster
	mu    sync.Mutex
	types []EventType
}

func newRecordingBroadcaster() *recordingBroadcaster {
	return &recordingBroadcaster{Broadcaster: NewBroadcaster(nil)}
}

func (r *recordingBroadcaster) Publish(workspaceID string, env Envelope) {
	r.mu.Lock()
	r.types = append(r.types, env.Type)
	r.mu.Unlock()
	r.Broadcaster.Publish(workspaceID, env)
}

func newTestExecutor(t *testing.T) (*Executor, *recordingBroadcaster) {
	t.Helper()
	events := store.NewEventLog()
	tasks := store.NewTaskStore()
	t.Cleanup(tasks.Close)

	rb := newRecordingBroadcaster()
	x := &Executor{events: events, tasks: tasks, broadcaster: rb.Broadcaster, obs: nil, logger: logging.Nop()}
	return x, rb
}

func TestExecutorRunQuickResponseStreamsChunksThenCompletes(t *testing.T) {
	x, _ := newTestExecutor(t)
	ch := make(chan Envelope, 32)
	x.broadcaster.RegisterClient("ws-1", ch)

	turn := Turn{WorkspaceID: "ws-1", ThreadID: "t1", MessageID: "m1", RunID: "run-1", Model: "gpt-4"}
	provider := &fakeStreamingProvider{chunks: []string{"hello ", "world"}}

	x.RunQuickResponse(context.Background(), turn, provider, PromptSections{SystemInstructions: "sys", UserTurn: "hi"})

	var seen []EventType
	var content string
drain:
	for {
		select {
		case env := <-ch:
			seen = append(seen, env.Type)
			if env.Type == EventChunk {
				content += env.Content
			}
		default:
			break drain
		}
	}

	require.Contains(t, seen, EventChunk)
	assert.Equal(t, "hello world", content)
	assert.Equal(t, EventComplete, seen[len(seen)-1], "turn must terminate with exactly one complete event")
}

func TestExecutorFallsBackToChunkingWhenProviderLacksStreaming(t *testing.T) {
	x, _ := newTestExecutor(t)
	ch := make(chan Envelope, 32)
	x.broadcaster.RegisterClient("ws-1", ch)

	turn := Turn{WorkspaceID: "ws-1", RunID: "run-1", Model: "gpt-4"}
	provider := &fakeNonStreamingProvider{text: "a fixed non-streamed response body that exceeds one chunk in length for sure"}

	x.RunQuickResponse(context.Background(), turn, provider, PromptSections{SystemInstructions: "sys", UserTurn: "hi"})

	chunkCount := 0
	var reassembled string
drain:
	for {
		select {
		case env := <-ch:
			if env.Type == EventChunk {
				chunkCount++
				reassembled += env.Content
			}
		default:
			break drain
		}
	}

	assert.Greater(t, chunkCount, 1, "a long completion must be split into multiple fixed-size chunks")
	assert.Equal(t, provider.text, reassembled)
}

func TestExecutorCancellationSkipsPendingTasksForTheRun(t *testing.T) {
	x, _ := newTestExecutor(t)
	ch := make(chan Envelope, 32)
	x.broadcaster.RegisterClient("ws-1", ch)

	runID := "run-cancel"
	now := time.Now()
	require.NoError(t, x.tasks.Create(context.Background(), task.Task{
		ID: "task-1", WorkspaceID: "ws-1", ExecutionID: runID,
		Status: task.StatusPending, CreatedAt: now,
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	turn := Turn{WorkspaceID: "ws-1", RunID: runID, Model: "gpt-4"}
	provider := &fakeStreamingProvider{chunks: []string{"x"}}

	x.RunQuickResponse(ctx, turn, provider, PromptSections{SystemInstructions: "sys", UserTurn: "hi"})

	updated, err := x.tasks.Get(context.Background(), "task-1")
	require.NoError(t, err)
	assert.Equal(t, task.StatusSkipped, updated.Status)

	sawError := false
drain:
	for {
		select {
		case env := <-ch:
			if env.Type == EventError {
				sawError = true
			}
		default:
			break drain
		}
	}
	assert.True(t, sawError, "a cancelled turn must terminate with an error event")
}

func TestEnvelopeLogTypeOnlyMapsDomainEvents(t *testing.T) {
	_, ok := envelopeLogType(EventConnected)
	assert.False(t, ok)

	mapped, ok := envelopeLogType(EventTaskUpdate)
	assert.True(t, ok)
	assert.Equal(t, event.TypeTaskUpdate, mapped)
}
