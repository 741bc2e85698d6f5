package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTouchIsStrictlyMonotonic(t *testing.T) {
	sess := &ChatSession{}

	var previous time.Time
	for i := 0; i < 100; i++ {
		sess.Touch()
		assert.True(t, sess.UpdatedAt.After(previous), "UpdatedAt must strictly advance")
		previous = sess.UpdatedAt
	}
}

func TestTouchNeverMovesBackwards(t *testing.T) {
	future := time.Now().Add(time.Hour)
	sess := &ChatSession{UpdatedAt: future}

	sess.Touch()
	assert.True(t, sess.UpdatedAt.After(future))
}

func TestAppendBumpsUpdatedAt(t *testing.T) {
	sess := &ChatSession{}
	before := sess.UpdatedAt

	sess.Append(NewMessage(RoleUser, "hello"))

	assert.Len(t, sess.Messages, 1)
	assert.True(t, sess.UpdatedAt.After(before))
}

func TestCloneDoesNotShareTranscript(t *testing.T) {
	sess := &ChatSession{ID: "s1", Messages: []Message{NewMessage(RoleUser, "hi")}}

	clone := sess.Clone()
	clone.Messages[0].Content = "changed"
	clone.Messages = append(clone.Messages, NewMessage(RoleUser, "more"))

	assert.Equal(t, "hi", sess.Messages[0].Content)
	assert.Len(t, sess.Messages, 1)
}

func TestAttachmentAsSystemMessage(t *testing.T) {
	att := FileAttachment{Name: "notes.md", Content: "# Notes"}

	msg := att.AsSystemMessage()

	assert.Equal(t, RoleSystem, msg.Role)
	assert.Equal(t, "File attached: notes.md\n\n# Notes", msg.Content)
	assert.False(t, msg.CreatedAt.IsZero())
}
