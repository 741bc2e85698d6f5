package models

import (
	"fmt"
	"time"
)

// FileAttachment is a plain-text document folded into the transcript as a
// system message at attach time. It is never persisted as a structured entity.
type FileAttachment struct {
	Name      string    `json:"name"`
	Content   string    `json:"content"`
	MediaType string    `json:"media_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"timestamp"`
}

// AsSystemMessage renders the attachment as the system message appended to
// the transcript
func (a FileAttachment) AsSystemMessage() Message {
	return NewMessage(RoleSystem, fmt.Sprintf("File attached: %s\n\n%s", a.Name, a.Content))
}
