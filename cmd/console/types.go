package main

import "time"

// message is a single rendered line in the console's transcript,
// grounded on the teacher's cmd/alex/tui_chat.Message.
type message struct {
	id        string
	role      string // "user", "assistant", "system"
	content   string
	timestamp time.Time
}

// cachedMessage stores a message already rendered at a given width, so
// resizes don't force a full re-render of every prior message.
type cachedMessage struct {
	width   int
	content string
}

// eventMsg carries one event.Event received over the workspace SSE
// stream into the bubbletea update loop.
type eventMsg struct {
	role    string
	content string
}

// turnCompleteMsg carries a synchronous chat response back into the
// update loop once sendMessage's round trip finishes.
type turnCompleteMsg struct {
	displayed []message
}

// turnErrorMsg reports a failed chat round trip.
type turnErrorMsg struct {
	err error
}
