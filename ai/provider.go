// Package ai implements the completion provider capability: one adapter per
// vendor API, each translating the transcript into the vendor's request shape
// and extracting the generated text. Adapters make a single best-effort
// attempt per call; recovery from failure is the caller's concern.
package ai

import (
	"context"
)

// Turn is one role/content entry passed to a provider
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Turn roles
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
)

// Provider generates a completion for a transcript. Implementations are safe
// for concurrent use.
type Provider interface {
	// ID returns the provider identifier used in routing and mentions
	ID() string

	// Complete returns generated text for the transcript, or an error when
	// the vendor call fails for any reason
	Complete(ctx context.Context, turns []Turn) (string, error)
}
