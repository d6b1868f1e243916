package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

const defaultTimelineLimit = 50

// handleTimeline implements GET /workspaces/{workspace_id}/timeline. The
// query's start_time/end_time/event_types are accepted for parity with
// GET /events but the in-memory TimelineStore's list surface (spec.md
// §4.C) only filters by workspace and limit; richer filtering is left to
// a durable Store implementation.
func (h *handler) handleTimeline(c *gin.Context) {
	workspaceID := c.Param("workspace_id")

	limit := defaultTimelineLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			limit = n
		}
	}

	items, err := h.Timelines.ListByWorkspace(c.Request.Context(), workspaceID, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"workspace_id": workspaceID, "items": items})
}
