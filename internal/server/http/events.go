package http

import (
	"context"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/intent"
	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/ports"
)

const defaultEventsLimit = 50

// welcomeMessageText is the fixed greeting generated on a workspace's
// first events fetch (spec.md §6.1 "if no welcome-message event exists,
// the handler generates one").
const welcomeMessageText = "Welcome! Tell me what you'd like to work on."

// maxWelcomeSuggestions caps the personalized starter actions offered
// alongside the welcome message (spec.md §8 scenario 1's
// `{is_welcome, suggestions}` payload), grounded on
// workspace_welcome_service.py's _generate_personalized_suggestions, which
// caps at 4.
const maxWelcomeSuggestions = 4

// bannedWelcomeSuggestionPatterns filters vague filler out of generated
// suggestions, grounded on workspace_welcome_service.py's banned_patterns
// list (its zh-language patterns are omitted here since this core has no
// locale-aware prompt templates to target them at).
var bannedWelcomeSuggestionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^maybe\s*(we)?\s*can\s*start`),
	regexp.MustCompile(`(?i)^start\s*now\b`),
	regexp.MustCompile(`(?i)^let'?s\s*start`),
}

// handleEvents implements GET /workspaces/{workspace_id}/events.
func (h *handler) handleEvents(c *gin.Context) {
	workspaceID := c.Param("workspace_id")
	opts, initialLoad := parseEventsQuery(c)

	if initialLoad {
		h.ensureWelcomeMessage(c, workspaceID)
	}

	events, err := h.Events.List(c.Request.Context(), workspaceID, opts)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	hasMore := opts.Limit > 0 && len(events) == opts.Limit
	c.JSON(http.StatusOK, gin.H{
		"workspace_id": workspaceID, "total": len(events), "events": events, "has_more": hasMore,
	})
}

// parseEventsQuery builds EventLogListOptions from the query string and
// reports whether this is an "initial load" (no cursor, no type filter),
// the condition that gates welcome-message generation.
func parseEventsQuery(c *gin.Context) (ports.EventLogListOptions, bool) {
	opts := ports.EventLogListOptions{
		ThreadID: c.Query("thread_id"),
		BeforeID: c.Query("before_id"),
		Limit:    defaultEventsLimit,
	}
	if limitStr := c.Query("limit"); limitStr != "" {
		if n, err := strconv.Atoi(limitStr); err == nil && n > 0 {
			opts.Limit = n
		}
	}
	if typesStr := c.Query("event_types"); typesStr != "" {
		for _, t := range strings.Split(typesStr, ",") {
			t = strings.TrimSpace(t)
			if t != "" {
				opts.Types = append(opts.Types, event.Type(t))
			}
		}
	}
	if startStr := c.Query("start_time"); startStr != "" {
		if ts, err := time.Parse(time.RFC3339, startStr); err == nil {
			opts.StartTime = &ts
		}
	}
	if endStr := c.Query("end_time"); endStr != "" {
		if ts, err := time.Parse(time.RFC3339, endStr); err == nil {
			opts.EndTime = &ts
		}
	}

	initialLoad := opts.BeforeID == "" && len(opts.Types) == 0
	return opts, initialLoad
}

func (h *handler) ensureWelcomeMessage(c *gin.Context, workspaceID string) {
	ctx := c.Request.Context()
	existing, err := h.Events.List(ctx, workspaceID, ports.EventLogListOptions{})
	if err != nil {
		h.logger.Warn("events: welcome-message lookup failed: %v", err)
		return
	}
	for _, e := range existing {
		if isWelcome, _ := e.Payload["is_welcome"].(bool); isWelcome {
			return
		}
	}

	suggestions := h.generateWelcomeSuggestions(ctx, workspaceID, c.Query("profile_id"), c.Query("locale"))
	welcome := event.Event{
		Timestamp: time.Now(), Actor: event.ActorAssistant, EventType: event.TypeMessage,
		WorkspaceID: workspaceID,
		Payload: map[string]any{
			"message":     welcomeMessageText,
			"is_welcome":  true,
			"suggestions": suggestions,
		},
	}
	if _, err := h.Events.Append(ctx, welcome); err != nil {
		h.logger.Warn("events: welcome-message append failed: %v", err)
	}
}

// generateWelcomeSuggestions asks the Provider for 2-4 short, verb-led,
// playbook-referencing starter actions from the workspace's active
// IntentCards and available playbooks, and returns the lines that survive
// parsing and filtering (so anywhere from zero to four), grounded on workspace_welcome_service.py's
// _generate_personalized_suggestions. Any failure along the way (no
// Provider configured, a failed completion, or every candidate line
// getting filtered out) degrades to no suggestions rather than failing the
// welcome message itself — the original's own docstring promises "natural
// and gentle", never a hard requirement.
func (h *handler) generateWelcomeSuggestions(ctx context.Context, workspaceID, profileID, locale string) []string {
	if h.Provider == nil {
		return nil
	}

	var activeCards []intent.Card
	if h.Cards != nil {
		activeCards, _ = h.Cards.ListVisible(ctx, profileID, []intent.CardStatus{intent.CardActive}, nil, 5)
	}

	var available []playbookSummary
	if h.Playbooks != nil {
		metas, err := h.Playbooks.List(ctx, workspaceID, locale, nil)
		if err != nil {
			h.logger.Warn("events: welcome suggestion playbook lookup failed: %v", err)
		}
		for _, m := range metas {
			available = append(available, playbookSummary{Code: m.PlaybookCode, Name: m.Name, Description: m.Description})
		}
	}

	completion, err := h.Provider.ChatCompletion(ctx, []ports.Message{
		{Role: ports.RoleSystem, Content: welcomeSuggestionSystemPrompt},
		{Role: ports.RoleUser, Content: welcomeSuggestionUserPrompt(workspaceID, activeCards, available)},
	}, h.Model, 0.8, 200)
	if err != nil {
		h.logger.Warn("events: welcome suggestion generation failed: %v", err)
		return nil
	}

	return parseWelcomeSuggestions(completion.Text)
}

type playbookSummary struct {
	Code        string
	Name        string
	Description string
}

const welcomeSuggestionSystemPrompt = "You are an onboarding coach for a new workspace. Give the user concrete, " +
	"ready-to-click starting actions.\n\n" +
	"Output 2-4 concise, actionable suggestions (each <= 15 words). Lead with a verb and be specific. " +
	"Prefer referencing an available playbook by its code when relevant. No numbered list markers; one " +
	"suggestion per line. Avoid vague filler like \"maybe\", \"let's start\", or \"start now\". If nothing " +
	"relevant applies, return nothing."

func welcomeSuggestionUserPrompt(workspaceID string, activeCards []intent.Card, playbooks []playbookSummary) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Workspace: %s\n\n", workspaceID)

	b.WriteString("Active goals:\n")
	if len(activeCards) == 0 {
		b.WriteString("No active intents yet\n")
	}
	for _, c := range activeCards {
		fmt.Fprintf(&b, "- %s: %s\n", c.Title, c.Description)
	}

	b.WriteString("\nAvailable playbooks (reference the code when relevant):\n")
	if len(playbooks) == 0 {
		b.WriteString("No specific playbooks detected\n")
	}
	limit := len(playbooks)
	if limit > 5 {
		limit = 5
	}
	for _, p := range playbooks[:limit] {
		fmt.Fprintf(&b, "- %s (%s): %s\n", p.Name, p.Code, p.Description)
	}

	b.WriteString("\nProduce 2-4 actionable starter steps (one per line, no numbering), each <= 15 words, " +
		"verb-led, specific. If nothing relevant applies, return empty.")
	return b.String()
}

// parseWelcomeSuggestions splits the provider's line-per-suggestion
// response, strips list markers, and drops banned-filler or too-short
// lines, capping at maxWelcomeSuggestions.
func parseWelcomeSuggestions(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.Trim(line, "-*•1234567890. \t"))
		if len(line) <= 5 {
			continue
		}
		banned := false
		for _, p := range bannedWelcomeSuggestionPatterns {
			if p.MatchString(line) {
				banned = true
				break
			}
		}
		if banned {
			continue
		}
		out = append(out, line)
		if len(out) == maxWelcomeSuggestions {
			break
		}
	}
	return out
}
