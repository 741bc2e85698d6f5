package models

import (
	"time"
)

// SessionStatus is the lifecycle state of a session. Archiving never deletes
// data; the status is a binary toggle.
type SessionStatus string

// Session statuses
const (
	StatusActive   SessionStatus = "active"
	StatusArchived SessionStatus = "archived"
)

// ChatSession owns exactly one transcript. UpdatedAt is refreshed on every
// transcript mutation; ID is assigned once at creation and never reused.
type ChatSession struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Messages  []Message      `json:"messages"`
	Model     ModelSelection `json:"model"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	Status    SessionStatus  `json:"status"`
}

// Touch bumps UpdatedAt, keeping it strictly monotonic even on coarse clocks
func (s *ChatSession) Touch() {
	now := time.Now()
	if !now.After(s.UpdatedAt) {
		now = s.UpdatedAt.Add(time.Nanosecond)
	}
	s.UpdatedAt = now
}

// Append adds a pre-stamped message to the transcript and bumps UpdatedAt
func (s *ChatSession) Append(msg Message) {
	s.Messages = append(s.Messages, msg)
	s.Touch()
}

// Clone returns a deep copy so callers can mutate without sharing state
func (s *ChatSession) Clone() *ChatSession {
	out := *s
	out.Messages = make([]Message, len(s.Messages))
	copy(out.Messages, s.Messages)
	return &out
}
