package service

import (
	"fmt"
	"strings"

	"chat-aggregator/backend/session/models"
)

// Transcript assembly: every mutation appends whole messages and bumps the
// session's UpdatedAt. Messages are never edited or removed individually;
// the only destructive operation is clearing the whole transcript.

// AppendUser stamps and appends the user's utterance
func AppendUser(sess *models.ChatSession, content string) models.Message {
	msg := models.NewMessage(models.RoleUser, content)
	sess.Append(msg)
	return msg
}

// AppendResult appends exactly one assistant message for a provider: the
// generated text on success, a human-readable unavailability notice on
// failure.
func AppendResult(sess *models.ChatSession, providerID, text string, failed bool) models.Message {
	content := text
	if failed {
		content = UnavailableNotice(providerID)
	}
	msg := models.NewProviderMessage(providerID, content)
	sess.Append(msg)
	return msg
}

// AppendSystem appends a system message, e.g. folded attachment content
func AppendSystem(sess *models.ChatSession, content string) models.Message {
	msg := models.NewMessage(models.RoleSystem, content)
	sess.Append(msg)
	return msg
}

// Clear truncates the transcript. There is no undo; the confirmation gate
// lives at the UI boundary.
func Clear(sess *models.ChatSession) {
	sess.Messages = []models.Message{}
	sess.Touch()
}

// UnavailableNotice is the placeholder content for a failed provider call
func UnavailableNotice(providerID string) string {
	return fmt.Sprintf("Note: %s is unavailable.", strings.ToUpper(providerID))
}
