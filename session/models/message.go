package models

import (
	"time"
)

// Role identifies who produced a message
type Role string

// Message roles
const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// Message is a single entry in a session transcript. Messages are immutable
// once appended; transcript order is conversation order.
type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Provider  string    `json:"model,omitempty"`
	CreatedAt time.Time `json:"timestamp"`
}

// NewMessage creates a message stamped with the current time
func NewMessage(role Role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
}

// NewProviderMessage creates an assistant message tagged with the provider
// that generated it
func NewProviderMessage(providerID, content string) Message {
	msg := NewMessage(RoleAssistant, content)
	msg.Provider = providerID
	return msg
}
