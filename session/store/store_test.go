package store

import (
	"context"
	"encoding/json"
	"io"
	"testing"

	"chat-aggregator/backend/pkg/kv"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/session/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRecordKey = "chat_sessions"

func newTestStore() (*SessionStore, kv.Store) {
	medium := kv.NewMemoryStore()
	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	return NewSessionStore(medium, testRecordKey, nil, log), medium
}

func TestCreatePersistsSession(t *testing.T) {
	ctx := context.Background()
	store, medium := newTestStore()

	sess, err := store.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	assert.NotEmpty(t, sess.ID)
	assert.Contains(t, sess.Name, "Chat ")
	assert.Equal(t, models.StatusActive, sess.Status)
	assert.Empty(t, sess.Messages)

	raw, err := medium.Get(ctx, testRecordKey)
	require.NoError(t, err)
	var persisted []*models.ChatSession
	require.NoError(t, json.Unmarshal(raw, &persisted))
	require.Len(t, persisted, 1)
	assert.Equal(t, sess.ID, persisted[0].ID)
}

func TestUpsertReplacesById(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	sess, err := store.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	sess.Name = "renamed"
	require.NoError(t, store.Upsert(ctx, sess))

	got, ok := store.Get(ctx, sess.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Name)
	assert.Len(t, store.List(ctx), 1)
}

func TestUpsertAppendsUnknownId(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	sess := &models.ChatSession{ID: "fresh", Name: "fresh", Status: models.StatusActive}
	require.NoError(t, store.Upsert(ctx, sess))

	assert.Len(t, store.List(ctx), 1)
}

func TestUpdateAppliesAgainstLatestState(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	sess, err := store.Create(ctx, models.SingleSelection("openai"))
	require.NoError(t, err)

	updated, ok := store.Update(ctx, sess.ID, func(cs *models.ChatSession) {
		cs.Append(models.NewMessage(models.RoleUser, "hello"))
	})
	require.True(t, ok)
	assert.Len(t, updated.Messages, 1)

	got, ok := store.Get(ctx, sess.ID)
	require.True(t, ok)
	assert.Len(t, got.Messages, 1)
}

func TestUpdateUnknownIdReportsFalse(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	_, ok := store.Update(ctx, "missing", func(cs *models.ChatSession) {
		t.Fatal("update fn must not run for an unknown id")
	})
	assert.False(t, ok)
}

func TestDeleteAbsentIdIsNoOp(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	sess, err := store.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "missing"))
	assert.Len(t, store.List(ctx), 1)

	require.NoError(t, store.Delete(ctx, sess.ID))
	assert.Empty(t, store.List(ctx))
}

func TestSetArchivedToggles(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	sess, err := store.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	require.NoError(t, store.SetArchived(ctx, sess.ID))
	got, _ := store.Get(ctx, sess.ID)
	assert.Equal(t, models.StatusArchived, got.Status)

	// toggling again restores the transcript untouched
	require.NoError(t, store.SetArchived(ctx, sess.ID))
	got, _ = store.Get(ctx, sess.ID)
	assert.Equal(t, models.StatusActive, got.Status)

	// absent id is a no-op
	require.NoError(t, store.SetArchived(ctx, "missing"))
}

func TestCorruptRecordDegradesToEmpty(t *testing.T) {
	ctx := context.Background()
	store, medium := newTestStore()

	require.NoError(t, medium.Set(ctx, testRecordKey, []byte("{not json")))

	assert.Empty(t, store.List(ctx))

	// the store stays usable after the bad read
	_, err := store.Create(ctx, models.AllSelection())
	require.NoError(t, err)
	assert.Len(t, store.List(ctx), 1)
}

func TestLoadBackfillsLegacyRecords(t *testing.T) {
	ctx := context.Background()
	store, medium := newTestStore()

	// a record written before status and message timestamps existed
	legacy := `[{"id":"old","name":"Old chat","model":"openai",` +
		`"messages":[{"role":"user","content":"hi"}]}]`
	require.NoError(t, medium.Set(ctx, testRecordKey, []byte(legacy)))

	got, ok := store.Get(ctx, "old")
	require.True(t, ok)
	assert.Equal(t, models.StatusActive, got.Status)
	require.Len(t, got.Messages, 1)
	assert.False(t, got.Messages[0].CreatedAt.IsZero())
	assert.Equal(t, models.SelectionSingle, got.Model.Kind())
}

func TestMissingRecordIsEmptyCollection(t *testing.T) {
	ctx := context.Background()
	store, _ := newTestStore()

	assert.Empty(t, store.List(ctx))
	_, ok := store.Get(ctx, "anything")
	assert.False(t, ok)
}
