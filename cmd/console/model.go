package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/HansC-anafter/mindscape-ai-local-core-sub006/internal/domain/event"
)

// consoleModel is the console's Bubble Tea model: a scrolling transcript
// viewport over a textarea input, grounded on the teacher's
// cmd/alex/tui_chat.ChatTUI — adapted from an in-process AgentCoordinator
// to an HTTP client of internal/server/http's chat/events surface, since
// this console talks to coreserver as a separate process.
type consoleModel struct {
	viewport viewport.Model
	textarea textarea.Model
	renderer *glamour.TermRenderer

	messages     []message
	messageCache map[string]cachedMessage
	width        int
	height       int
	ready        bool

	client      *client
	workspaceID string
	threadID    string
	turnRunning bool

	events  chan event.Event
	errors  chan error
	cancel  context.CancelFunc
}

func newConsoleModel(c *client, workspaceID, threadID string) *consoleModel {
	ta := textarea.New()
	ta.Placeholder = "Type a message... (Enter to send, Ctrl+C to quit)"
	ta.Focus()
	ta.CharLimit = -1
	ta.ShowLineNumbers = false

	return &consoleModel{
		textarea:     ta,
		messages:     []message{},
		messageCache: make(map[string]cachedMessage),
		client:       c,
		workspaceID:  workspaceID,
		threadID:     threadID,
		events:       make(chan event.Event, 64),
		errors:       make(chan error, 1),
	}
}

func (m *consoleModel) Init() tea.Cmd {
	return tea.Batch(textarea.Blink, m.startStreaming(), m.waitForEvent())
}

// startStreaming connects the SSE reader on a detached goroutine; events
// it decodes are forwarded to m.events for waitForEvent to pick up.
func (m *consoleModel) startStreaming() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		go func() {
			if err := m.client.streamEvents(ctx, m.workspaceID, m.events); err != nil {
				select {
				case m.errors <- err:
				default:
				}
			}
		}()
		return nil
	}
}

// waitForEvent blocks on the next decoded event.Event and turns it into
// a tea.Msg, re-arming itself so the stream keeps draining.
func (m *consoleModel) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		select {
		case e := <-m.events:
			return eventToMsg(e)
		case err := <-m.errors:
			return turnErrorMsg{err: err}
		}
	}
}

func eventToMsg(e event.Event) eventMsg {
	role := "system"
	switch e.Actor {
	case event.ActorUser:
		role = "user"
	case event.ActorAssistant:
		role = "assistant"
	}
	content, _ := e.Payload["message"].(string)
	if content == "" {
		content = fmt.Sprintf("[%s]", e.EventType)
	}
	return eventMsg{role: role, content: content}
}

func (m *consoleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case eventMsg:
		m.appendMessage(msg.role, msg.content)
		return m, m.waitForEvent()

	case turnCompleteMsg:
		m.turnRunning = false
		m.messages = append(m.messages, msg.displayed...)
		m.updateViewport()
		return m, nil

	case turnErrorMsg:
		m.turnRunning = false
		m.appendMessage("system", "error: "+msg.err.Error())
		return m, m.waitForEvent()
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *consoleModel) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		if m.cancel != nil {
			m.cancel()
		}
		return m, tea.Quit

	case tea.KeyEnter:
		return m.sendMessage()
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

func (m *consoleModel) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height

	headerHeight, helpHeight, textareaHeight := 3, 2, 4
	viewportHeight := msg.Height - headerHeight - helpHeight - textareaHeight
	if viewportHeight < 1 {
		viewportHeight = 1
	}

	if !m.ready {
		m.viewport = viewport.New(msg.Width, viewportHeight)
		m.ready = true
		m.appendMessage("system", "Connected to "+m.client.baseURL+". Type a message and press Enter.")
	} else {
		m.viewport.Width = msg.Width
		m.viewport.Height = viewportHeight
	}

	m.textarea.SetWidth(msg.Width - 4)
	m.textarea.SetHeight(textareaHeight)

	oldRenderer := m.renderer
	if m.renderer == nil || m.width != msg.Width {
		m.messageCache = make(map[string]cachedMessage)
		renderer, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(msg.Width-8))
		if err != nil {
			m.renderer = oldRenderer
		} else {
			m.renderer = renderer
		}
	}

	m.updateViewport()
	return m, nil
}

func (m *consoleModel) sendMessage() (tea.Model, tea.Cmd) {
	content := strings.TrimSpace(m.textarea.Value())
	if content == "" || m.turnRunning {
		return m, nil
	}
	m.textarea.Reset()
	m.turnRunning = true

	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		result, err := m.client.sendMessage(ctx, m.workspaceID, content, m.threadID)
		if err != nil {
			return turnErrorMsg{err: err}
		}
		return turnCompleteMsg{displayed: eventsToMessages(result.DisplayEvents)}
	}
}

func eventsToMessages(events []event.Event) []message {
	out := make([]message, 0, len(events))
	for _, e := range events {
		msg := eventToMsg(e)
		out = append(out, message{id: e.ID, role: msg.role, content: msg.content, timestamp: e.Timestamp})
	}
	return out
}

func (m *consoleModel) appendMessage(role, content string) {
	m.messages = append(m.messages, message{
		id: fmt.Sprintf("%d-%d", time.Now().UnixNano(), len(m.messages)),
		role: role, content: content, timestamp: time.Now(),
	})
	m.updateViewport()
}

func (m *consoleModel) View() string {
	if !m.ready {
		return "Connecting to the core..."
	}
	return lipgloss.JoinVertical(lipgloss.Top,
		m.renderHeader(), m.viewport.View(), m.textarea.View(), m.renderHelp())
}

func (m *consoleModel) renderHeader() string {
	status := "Ready"
	if m.turnRunning {
		status = "Waiting for reply..."
	}
	style := lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("12")).
		Padding(0, 1)
	return style.Render(fmt.Sprintf("Core Console | %s | %s", m.workspaceID, status))
}

func (m *consoleModel) renderHelp() string {
	helpStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	keyStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("12")).Bold(true)
	return lipgloss.JoinHorizontal(lipgloss.Left,
		helpStyle.Render("Press "), keyStyle.Render("Enter"), helpStyle.Render(" to send • "),
		keyStyle.Render("Ctrl+C"), helpStyle.Render(" to quit"))
}
