package http

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/streaming"
)

// streamClientBuffer bounds this connection's fan-out channel; a slow
// client drops live envelopes rather than blocking the turn that produced
// them (mirrors streaming.Broadcaster's own drop policy).
const streamClientBuffer = 64

// handleEventsStream implements GET /workspaces/{workspace_id}/events/stream:
// an SSE connection that replays any events after last_event_id, then
// emits live Envelopes published to the workspace's Broadcaster, with a
// heartbeat comment line every 30 s (spec.md §6.1, §5 "Stream heartbeat").
func (h *handler) handleEventsStream(c *gin.Context) {
	workspaceID := c.Param("workspace_id")
	lastEventID := c.Query("last_event_id")
	if lastEventID == "" {
		lastEventID = c.GetHeader("Last-Event-ID")
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.replayEventsAfter(c, workspaceID, lastEventID)

	ch := make(chan streaming.Envelope, streamClientBuffer)
	h.Broadcaster.RegisterClient(workspaceID, ch)
	defer h.Broadcaster.UnregisterClient(workspaceID, ch)

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	ctx := c.Request.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			c.Writer.Flush()
		case env, ok := <-ch:
			if !ok {
				return
			}
			writeSSEEnvelope(c, env)
		}
	}
}

func (h *handler) replayEventsAfter(c *gin.Context, workspaceID, lastEventID string) {
	events, err := h.Events.List(c.Request.Context(), workspaceID, ports.EventLogListOptions{})
	if err != nil {
		h.logger.Warn("events/stream: replay lookup failed: %v", err)
		return
	}

	start := 0
	if lastEventID != "" {
		for i, e := range events {
			if e.ID == lastEventID {
				start = i + 1
				break
			}
		}
	}
	for _, e := range events[start:] {
		writeSSEEvent(c, e)
	}
}

func writeSSEEvent(c *gin.Context, e event.Event) {
	body, err := json.Marshal(e)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", e.ID, e.EventType, body)
	c.Writer.Flush()
}

func writeSSEEnvelope(c *gin.Context, env streaming.Envelope) {
	body, err := json.Marshal(env)
	if err != nil {
		return
	}
	var id string
	if env.EventID != "" {
		id = fmt.Sprintf("id: %s\n", env.EventID)
	}
	fmt.Fprintf(c.Writer, "%sevent: %s\ndata: %s\n\n", id, env.Type, body)
	c.Writer.Flush()
}
