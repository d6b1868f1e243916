package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/hook"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/hooks"
)

// chatSyncedRequest is on_chat_synced's body (spec.md §4.J).
type chatSyncedRequest struct {
	ProfileID   string         `json:"profile_id"`
	Message     string         `json:"message"`
	MessageID   string         `json:"message_id"`
	TraceID     string         `json:"trace_id"`
	ThreadID    string         `json:"thread_id"`
	IDEReceipts []hook.Receipt `json:"ide_receipts"`
}

// handleChatSynced implements POST /workspaces/{workspace_id}/hooks/chat-synced,
// the Event-Hook Runner's entrypoint. It is a distinct surface from POST
// /chat: an IDE-side client calls this once a turn's output is already
// materialised locally, carrying receipts that may skip hook re-execution.
func (h *handler) handleChatSynced(c *gin.Context) {
	workspaceID := c.Param("workspace_id")

	var req chatSyncedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body", "detail": err.Error()})
		return
	}
	if req.MessageID == "" || req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message and message_id are required"})
		return
	}

	if h.Hooks == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "hook runner not configured"})
		return
	}

	results, err := h.Hooks.OnChatSynced(c.Request.Context(), hooks.Request{
		WorkspaceID: workspaceID, ProfileID: req.ProfileID, Message: req.Message,
		MessageID: req.MessageID, TraceID: req.TraceID, ThreadID: req.ThreadID,
		Receipts: req.IDEReceipts,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_id": workspaceID, "results": results})
}
