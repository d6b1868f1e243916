package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/orchestrator"
)

// fileDTO is FileInput with JSON tags for the wire body.
type fileDTO struct {
	FileID   string `json:"file_id"`
	MimeType string `json:"mime_type"`
}

// chatRequest is POST /workspaces/{workspace_id}/chat's body (spec.md §6.1).
type chatRequest struct {
	Message        *string        `json:"message"`
	Files          []fileDTO      `json:"files"`
	Mode           string         `json:"mode"`
	TimelineItemID string         `json:"timeline_item_id"`
	Action         string         `json:"action"`
	ActionParams   map[string]any `json:"action_params"`
	Confirm        *bool          `json:"confirm"`
	ThreadID       string         `json:"thread_id"`
	Stream         *bool          `json:"stream"`
	MessageID      string         `json:"message_id"`
	ProfileID      string         `json:"profile_id"`
	ProjectID      string         `json:"project_id"`
	Locale         string         `json:"locale"`
}

func (r chatRequest) isCTA() bool        { return r.TimelineItemID != "" && r.Action != "" }
func (r chatRequest) isSuggestion() bool { return r.Action != "" && r.TimelineItemID == "" }
func (r chatRequest) streamRequested() bool {
	return r.Stream != nil && *r.Stream
}

// handleChat implements POST /workspaces/{workspace_id}/chat.
func (h *handler) handleChat(c *gin.Context) {
	workspaceID := c.Param("workspace_id")

	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "detail": err.Error()})
		return
	}

	switch {
	case req.isCTA():
		h.handleCTAAction(c, workspaceID, req)
	case req.isSuggestion():
		h.handleSuggestionAction(c, workspaceID, req)
	case req.Message != nil && *req.Message != "":
		h.handleMessage(c, workspaceID, req)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
	}
}

func (h *handler) toRouterRequest(workspaceID string, req chatRequest) orchestrator.Request {
	files := make([]orchestrator.FileInput, 0, len(req.Files))
	for _, f := range req.Files {
		files = append(files, orchestrator.FileInput{FileID: f.FileID, MimeType: f.MimeType})
	}
	message := ""
	if req.Message != nil {
		message = *req.Message
	}
	return orchestrator.Request{
		WorkspaceID: workspaceID, ProfileID: req.ProfileID, Message: message, Files: files,
		Mode: req.Mode, ProjectID: req.ProjectID, ThreadID: req.ThreadID, Locale: req.Locale,
		UseLLM: true,
	}
}

func (h *handler) handleMessage(c *gin.Context, workspaceID string, req chatRequest) {
	routerReq := h.toRouterRequest(workspaceID, req)

	if req.streamRequested() {
		accepted, err := h.Background.Accept(c.Request.Context(), routerReq)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusAccepted, accepted)
		return
	}

	result, err := h.Router.Route(c.Request.Context(), routerReq)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

// handleCTAAction resolves a CTA confirmation against its originating
// timeline item (spec.md §6.1 "timeline_item_id + action present → CTA
// action"). External side effects stay behind the same confirmation gate
// spec.md §7 describes: the handler only records the decision here; a
// capability pack observing a confirmed task is what performs the actual
// external write.
func (h *handler) handleCTAAction(c *gin.Context, workspaceID string, req chatRequest) {
	item, err := h.Timelines.Get(c.Request.Context(), req.TimelineItemID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "timeline item not found"})
		return
	}

	confirmed := req.Confirm == nil || *req.Confirm
	data := map[string]any{"cta_action": req.Action, "confirmed": confirmed}
	for k, v := range req.ActionParams {
		data[k] = v
	}
	if err := h.Timelines.Update(c.Request.Context(), item.ID, data, item.CTA); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	h.appendActionEvent(c, workspaceID, req.ThreadID, event.TypeTaskUpdate, map[string]any{
		"timeline_item_id": item.ID, "task_id": item.TaskID, "action": req.Action, "confirmed": confirmed,
	})
	c.JSON(http.StatusOK, gin.H{"workspace_id": workspaceID, "timeline_item_id": item.ID, "confirmed": confirmed})
}

// handleSuggestionAction handles a dynamic suggestion action that carries
// no timeline_item_id (spec.md §6.1's Suggestion Action Handler branch).
func (h *handler) handleSuggestionAction(c *gin.Context, workspaceID string, req chatRequest) {
	h.appendActionEvent(c, workspaceID, req.ThreadID, event.TypeMessage, map[string]any{
		"action": req.Action, "action_params": req.ActionParams,
	})
	c.JSON(http.StatusOK, gin.H{"workspace_id": workspaceID, "action": req.Action, "status": "recorded"})
}

func (h *handler) appendActionEvent(c *gin.Context, workspaceID, threadID string, t event.Type, payload map[string]any) {
	e := event.Event{
		Timestamp: time.Now(), Actor: event.ActorUser, EventType: t,
		WorkspaceID: workspaceID, ThreadID: threadID, Payload: payload,
	}
	if _, err := h.Events.Append(c.Request.Context(), e); err != nil {
		h.logger.Warn("chat action: event append failed: %v", err)
	}
}
