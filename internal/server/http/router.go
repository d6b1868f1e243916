// Package http implements the core's public HTTP surface (spec.md §6.1):
// chat ingestion (synchronous and fire-and-forget), event/timeline
// history queries, and the workspace SSE stream, grounded on the
// teacher's gin-based handler wiring style (the NewRouter/RouterDeps
// constructor-injection shape of internal/delivery/server/http, adapted
// from net/http's ServeMux onto gin-gonic/gin per the domain-stack
// wiring SPEC_FULL.md commits to).
package http

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/background"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/hooks"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/logging"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/orchestrator"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/streaming"
)

// Deps collects the router's collaborators.
type Deps struct {
	Router      *orchestrator.Router
	Background  *background.Runner
	Events      ports.EventLog
	Timelines   ports.TimelineStore
	Broadcaster *streaming.Broadcaster
	// Hooks is optional; a nil value makes /hooks/chat-synced report 503.
	Hooks *hooks.Runner

	// Provider, Model, Cards, and Playbooks are optional; they back the
	// cold-start welcome message's personalized suggestions
	// (ensureWelcomeMessage). A nil Provider simply degrades to a welcome
	// message with no suggestions.
	Provider  ports.Provider
	Model     string
	Cards     ports.IntentCardStore
	Playbooks ports.PlaybookRegistry
}

// handler holds Deps plus a scoped logger; its methods are gin.HandlerFuncs.
type handler struct {
	Deps
	logger logging.Logger
}

// NewRouter builds the gin engine serving spec.md §6.1.
func NewRouter(deps Deps) *gin.Engine {
	h := &handler{Deps: deps, logger: logging.NewComponentLogger("server.http")}

	engine := gin.New()
	engine.Use(gin.Recovery())

	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, "Authorization", "Last-Event-ID")
	engine.Use(cors.New(corsCfg))

	workspaces := engine.Group("/workspaces/:workspace_id")
	workspaces.POST("/chat", h.handleChat)
	workspaces.GET("/events", h.handleEvents)
	workspaces.GET("/timeline", h.handleTimeline)
	workspaces.GET("/events/stream", h.handleEventsStream)
	workspaces.POST("/hooks/chat-synced", h.handleChatSynced)

	return engine
}

const sseHeartbeatInterval = 30 * time.Second
