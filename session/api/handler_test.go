package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"chat-aggregator/backend/pkg/config"
	"chat-aggregator/backend/pkg/errors"
	"chat-aggregator/backend/pkg/kv"
	"chat-aggregator/backend/pkg/logger"
	"chat-aggregator/backend/session/models"
	"chat-aggregator/backend/session/service"
	"chat-aggregator/backend/session/store"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) (*gin.Engine, *store.SessionStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	sessions := store.NewSessionStore(kv.NewMemoryStore(), "chat_sessions", nil, log)
	svc := service.NewSessionService(sessions, config.Get(), log)

	engine := gin.New()
	engine.Use(logger.Middleware(log))
	engine.Use(errors.ErrorHandler())

	v1 := engine.Group("/api/v1")
	NewSessionHandler(svc).RegisterRoutes(v1)
	return engine, sessions
}

func doJSON(engine *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestCreateAndGetSession(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(engine, http.MethodPost, "/api/v1/sessions", gin.H{"model": "all"})
	require.Equal(t, http.StatusCreated, w.Code)

	var created models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, models.SelectionAll, created.Model.Kind())

	w = doJSON(engine, http.MethodGet, "/api/v1/sessions/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetUnknownSessionReturnsErrorEnvelope(t *testing.T) {
	engine, _ := newTestServer(t)

	w := doJSON(engine, http.MethodGet, "/api/v1/sessions/nope", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "SESSION_NOT_FOUND", envelope.Error.Code)
}

func TestListSessionsFiltersArchived(t *testing.T) {
	engine, sessions := newTestServer(t)
	ctx := context.Background()

	active, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)
	archived, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)
	require.NoError(t, sessions.SetArchived(ctx, archived.ID))

	w := doJSON(engine, http.MethodGet, "/api/v1/sessions", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, active.ID, listed[0].ID)

	w = doJSON(engine, http.MethodGet, "/api/v1/sessions?include_archived=true", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	assert.Len(t, listed, 2)
}

func TestRenameSession(t *testing.T) {
	engine, sessions := newTestServer(t)

	sess, err := sessions.Create(context.Background(), models.AllSelection())
	require.NoError(t, err)

	w := doJSON(engine, http.MethodPatch, "/api/v1/sessions/"+sess.ID, gin.H{"name": "Trip planning"})
	require.Equal(t, http.StatusOK, w.Code)

	got, _ := sessions.Get(context.Background(), sess.ID)
	assert.Equal(t, "Trip planning", got.Name)
}

func TestArchiveToggle(t *testing.T) {
	engine, sessions := newTestServer(t)

	sess, err := sessions.Create(context.Background(), models.AllSelection())
	require.NoError(t, err)

	w := doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/archive", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.ChatSession
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusArchived, got.Status)

	w = doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/archive", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, models.StatusActive, got.Status)
}

func TestClearTranscript(t *testing.T) {
	engine, sessions := newTestServer(t)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)
	_, ok := sessions.Update(ctx, sess.ID, func(cs *models.ChatSession) {
		cs.Append(models.NewMessage(models.RoleUser, "hello"))
	})
	require.True(t, ok)

	w := doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/clear", nil)
	require.Equal(t, http.StatusOK, w.Code)

	got, _ := sessions.Get(ctx, sess.ID)
	assert.Empty(t, got.Messages)
}

func TestDeleteActiveSessionReturnsReplacement(t *testing.T) {
	engine, sessions := newTestServer(t)
	ctx := context.Background()

	doomed, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)
	survivor, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	w := doJSON(engine, http.MethodDelete, "/api/v1/sessions/"+doomed.ID+"?active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Deleted     bool                `json:"deleted"`
		Replacement *models.ChatSession `json:"replacement"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Deleted)
	require.NotNil(t, resp.Replacement)
	assert.Equal(t, survivor.ID, resp.Replacement.ID)
}

func TestDeleteLastActiveSessionCreatesFresh(t *testing.T) {
	engine, sessions := newTestServer(t)
	ctx := context.Background()

	only, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	w := doJSON(engine, http.MethodDelete, "/api/v1/sessions/"+only.ID+"?active=true", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Replacement *models.ChatSession `json:"replacement"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.Replacement)
	assert.NotEqual(t, only.ID, resp.Replacement.ID)
	assert.Len(t, sessions.List(ctx), 1)
}

func TestAttachValidatesMediaTypeAndSize(t *testing.T) {
	engine, sessions := newTestServer(t)
	ctx := context.Background()

	sess, err := sessions.Create(ctx, models.AllSelection())
	require.NoError(t, err)

	w := doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/attachments", gin.H{
		"name":       "img.png",
		"content":    "...",
		"media_type": "image/png",
		"size_bytes": 100,
	})
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

	w = doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/attachments", gin.H{
		"name":       "big.txt",
		"content":    "...",
		"media_type": "text/plain",
		"size_bytes": 6 << 20,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// oversize content is rejected even when the declared size lies
	w = doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/attachments", gin.H{
		"name":       "big.txt",
		"content":    strings.Repeat("x", 6<<20),
		"media_type": "text/plain",
		"size_bytes": 7,
	})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)

	// no partial state from the rejected attempts
	got, _ := sessions.Get(ctx, sess.ID)
	assert.Empty(t, got.Messages)

	w = doJSON(engine, http.MethodPost, "/api/v1/sessions/"+sess.ID+"/attachments", gin.H{
		"name":       "notes.md",
		"content":    "# Notes",
		"media_type": "text/markdown",
		"size_bytes": 7,
	})
	require.Equal(t, http.StatusOK, w.Code)

	got, _ = sessions.Get(ctx, sess.ID)
	require.Len(t, got.Messages, 1)
	assert.Equal(t, models.RoleSystem, got.Messages[0].Role)
	assert.Equal(t, "File attached: notes.md\n\n# Notes", got.Messages[0].Content)
}
