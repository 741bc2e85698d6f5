package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newBodyLimitEngine(maxBytes int64) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(BodySizeLimitMiddleware(maxBytes))
	engine.POST("/echo", func(c *gin.Context) {
		var payload struct {
			Content string `json:"content"`
		}
		if err := c.ShouldBindJSON(&payload); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"length": len(payload.Content)})
	})
	return engine
}

func TestBodySizeLimitRejectsDeclaredOversize(t *testing.T) {
	engine := newBodyLimitEngine(64)

	body := `{"content":"` + strings.Repeat("x", 200) + `"}`
	req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestBodySizeLimitCapsUndeclaredBody(t *testing.T) {
	engine := newBodyLimitEngine(64)

	body := `{"content":"` + strings.Repeat("x", 200) + `"}`
	req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	req.TransferEncoding = []string{"chunked"}
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBodySizeLimitPassesSmallBody(t *testing.T) {
	engine := newBodyLimitEngine(64)

	req, _ := http.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{"content":"hi"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
