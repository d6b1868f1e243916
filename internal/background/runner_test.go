package background

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/orchestrator"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/store"
)

type scriptedRouter struct {
	result orchestrator.Result
	err    error
	calls  chan struct{}
}

func (r *scriptedRouter) Route(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error) {
	if r.calls != nil {
		r.calls <- struct{}{}
	}
	return r.result, r.err
}

func waitForEvent(t *testing.T, log *store.EventLog, workspaceID string, pred func(event.Event) bool) event.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		events, err := log.List(context.Background(), workspaceID, ports.EventLogListOptions{})
		require.NoError(t, err)
		for _, e := range events {
			if pred(e) {
				return e
			}
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("timed out waiting for expected event")
	return event.Event{}
}

func TestAcceptReturnsImmediatelyAndWritesAcceptedEvent(t *testing.T) {
	router := &scriptedRouter{calls: make(chan struct{}, 1)}
	events := store.NewEventLog()
	runner := NewRunner(router, events, nil)

	accepted, err := runner.Accept(context.Background(), orchestrator.Request{WorkspaceID: "ws1", Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "accepted", accepted.Status)
	assert.NotEmpty(t, accepted.TaskID)
	assert.NotEmpty(t, accepted.EventID)

	select {
	case <-router.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("background Route was never invoked")
	}
}

func TestExecuteWritesSystemErrorEventOnRouteFailure(t *testing.T) {
	router := &scriptedRouter{err: errors.New("boom")}
	events := store.NewEventLog()
	runner := NewRunner(router, events, nil)

	_, err := runner.Accept(context.Background(), orchestrator.Request{WorkspaceID: "ws2", Message: "hi"})
	require.NoError(t, err)

	errEvent := waitForEvent(t, events, "ws2", func(e event.Event) bool {
		isErr, _ := e.Metadata["is_error"].(bool)
		return isErr
	})
	assert.Equal(t, event.ActorSystem, errEvent.Actor)
	assert.Equal(t, event.TypeMessage, errEvent.EventType)
}

func TestExecuteRecoversFromPanicAndWritesErrorEvent(t *testing.T) {
	router := &panicRouter{}
	events := store.NewEventLog()
	runner := NewRunner(router, events, nil)

	_, err := runner.Accept(context.Background(), orchestrator.Request{WorkspaceID: "ws3", Message: "hi"})
	require.NoError(t, err)

	errEvent := waitForEvent(t, events, "ws3", func(e event.Event) bool {
		isErr, _ := e.Metadata["is_error"].(bool)
		return isErr
	})
	assert.Contains(t, errEvent.Payload["message"], "panic")
}

type panicRouter struct{}

func (panicRouter) Route(ctx context.Context, req orchestrator.Request) (orchestrator.Result, error) {
	panic("simulated failure")
}
