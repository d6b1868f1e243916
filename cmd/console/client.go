package main

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/timeline"
)

// client is a thin HTTP client over the core's public surface
// (internal/server/http), grounded on the teacher's AgentCoordinator's
// role in cmd/alex/tui_chat: the console never touches orchestrator
// internals directly, only the wire contract a remote HTTP client would
// see.
type client struct {
	baseURL    string
	httpClient *http.Client
}

func newClient(baseURL string) *client {
	return &client{baseURL: strings.TrimRight(baseURL, "/"), httpClient: &http.Client{Timeout: 60 * time.Second}}
}

// chatRequest carries a subset of internal/server/http.chatRequest's JSON
// fields, with the same names.
type chatRequest struct {
	Message        *string `json:"message,omitempty"`
	ThreadID       string  `json:"thread_id,omitempty"`
	Stream         *bool   `json:"stream,omitempty"`
	TimelineItemID string  `json:"timeline_item_id,omitempty"`
	Action         string  `json:"action,omitempty"`
	Confirm        *bool   `json:"confirm,omitempty"`
}

func (c *client) sendMessage(ctx context.Context, workspaceID, message, threadID string) (orchestratorResult, error) {
	falseVal := false
	return c.postChat(ctx, workspaceID, chatRequest{Message: &message, ThreadID: threadID, Stream: &falseVal})
}

// sendCTA confirms (or declines) a TimelineItem's call-to-action — the
// "external write blocked by confirmation" flow spec.md §7 describes:
// nothing the assistant proposed actually runs until this follow-up turn
// posts back timeline_item_id + action + confirm.
func (c *client) sendCTA(ctx context.Context, workspaceID, timelineItemID, action string, confirm bool) (orchestratorResult, error) {
	return c.postChat(ctx, workspaceID, chatRequest{TimelineItemID: timelineItemID, Action: action, Confirm: &confirm})
}

func (c *client) postChat(ctx context.Context, workspaceID string, reqBody chatRequest) (orchestratorResult, error) {
	body, err := json.Marshal(reqBody)
	if err != nil {
		return orchestratorResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		fmt.Sprintf("%s/workspaces/%s/chat", c.baseURL, workspaceID), bytes.NewReader(body))
	if err != nil {
		return orchestratorResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return orchestratorResult{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return orchestratorResult{}, fmt.Errorf("chat request failed: %s", resp.Status)
	}

	var result orchestratorResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return orchestratorResult{}, fmt.Errorf("decode chat response: %w", err)
	}
	return result, nil
}

// orchestratorResult decodes a subset of orchestrator.Result's JSON fields
// without importing the orchestrator package — the console is a pure HTTP
// client.
type orchestratorResult struct {
	WorkspaceID       string        `json:"workspace_id"`
	DisplayEvents     []event.Event `json:"display_events"`
	TriggeredPlaybook string        `json:"triggered_playbook,omitempty"`
}

func (c *client) listTimeline(ctx context.Context, workspaceID string) ([]timeline.Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/workspaces/%s/timeline", c.baseURL, workspaceID), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("timeline request failed: %s", resp.Status)
	}

	var body struct {
		Items []timeline.Item `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode timeline response: %w", err)
	}
	return body.Items, nil
}

// streamEvents connects to the workspace's SSE endpoint and pushes raw
// event.Event values onto out until ctx is cancelled or the connection
// drops; it never reconnects on its own, matching the fire-and-forget
// streaming contract the teacher's own SSE reader uses.
func (c *client) streamEvents(ctx context.Context, workspaceID string, out chan<- event.Event) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/workspaces/%s/events/stream", c.baseURL, workspaceID), nil)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("event stream request failed: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 512*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		payload := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if payload == "" {
			continue
		}

		var e event.Event
		if err := json.Unmarshal([]byte(payload), &e); err != nil {
			continue
		}
		// Live frames after replay are streaming.Envelope values, a
		// different shape with no "id" field (task_update envelopes do
		// carry an event_type); they're skipped here rather than shown as
		// blank or mislabelled messages.
		if e.ID == "" || e.EventType == "" {
			continue
		}

		select {
		case out <- e:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return scanner.Err()
}
