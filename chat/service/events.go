package service

import (
	"chat-aggregator/backend/session/models"
)

// Event types emitted while a turn progresses
const (
	EventUserMessage      = "user_message"
	EventAssistantMessage = "assistant_message"
	EventTurnComplete     = "turn_complete"
)

// Event describes one step of an in-flight turn. Pending lists the provider
// ids still awaited; the turn is complete when it drains.
type Event struct {
	Type      string          `json:"type"`
	SessionID string          `json:"session_id"`
	Message   *models.Message `json:"message,omitempty"`
	Pending   []string        `json:"pending,omitempty"`
}

// EventSink receives turn events, e.g. the WebSocket hub. Implementations
// must not block.
type EventSink interface {
	Publish(event Event)
}

// noopSink drops events when no sink is wired
type noopSink struct{}

func (noopSink) Publish(Event) {}
