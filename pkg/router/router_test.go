package router

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"chat-aggregator/backend/pkg/config"
	"chat-aggregator/backend/pkg/di"
	"chat-aggregator/backend/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) *Router {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := logger.New(logger.Config{Level: "error", JSON: true, Output: io.Discard})
	container, err := di.New(config.Get(), log)
	require.NoError(t, err)

	r := New(container)
	r.SetupRoutes()
	return r
}

func TestHealthRoute(t *testing.T) {
	r := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Status    string   `json:"status"`
		Backend   string   `json:"backend"`
		Providers []string `json:"providers"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, []string{"openai", "anthropic", "gemini"}, resp.Providers)
}

func TestCORSPreflight(t *testing.T) {
	r := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodOptions, "/api/v1/sessions", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "http://localhost:3000", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestResolveOrigin(t *testing.T) {
	restricted := []string{"http://localhost:3000", "https://app.example.com"}

	assert.Equal(t, "http://localhost:3000", resolveOrigin(restricted, "http://localhost:3000"))
	assert.Equal(t, "https://App.Example.com", resolveOrigin(restricted, "https://App.Example.com"))
	assert.Equal(t, "", resolveOrigin(restricted, "https://evil.example.com"))
	assert.Equal(t, "", resolveOrigin(restricted, ""))

	wildcard := []string{"*"}
	assert.Equal(t, "http://anywhere.test", resolveOrigin(wildcard, "http://anywhere.test"))
	assert.Equal(t, "*", resolveOrigin(wildcard, ""))
}

func TestCORSRejectsUnlistedOrigin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(corsMiddleware([]string{"http://localhost:3000"}))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req, _ := http.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestWebSocketRouteRequiresSessionID(t *testing.T) {
	r := newTestRouter(t)

	req, _ := http.NewRequest(http.MethodGet, "/ws", nil)
	w := httptest.NewRecorder()
	r.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
