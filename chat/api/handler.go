package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-aggregator/backend/ai"
	"chat-aggregator/backend/chat/service"
	"chat-aggregator/backend/pkg/errors"
)

// ChatHandler handles turn submission and direct provider completion
type ChatHandler struct {
	turns    *service.TurnService
	registry *ai.Registry
}

// NewChatHandler creates a new chat handler
func NewChatHandler(turns *service.TurnService, registry *ai.Registry) *ChatHandler {
	return &ChatHandler{turns: turns, registry: registry}
}

// RegisterRoutes registers the chat routes on a versioned group
func (h *ChatHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/sessions/:id/turns", h.SubmitTurn)
	rg.POST("/complete/:provider", h.Complete)
}

type submitTurnRequest struct {
	Content string `json:"content" binding:"required"`
}

type completeRequest struct {
	Messages []ai.Turn `json:"messages" binding:"required"`
}

// SubmitTurn runs one full chat turn against the session's routed providers
func (h *ChatHandler) SubmitTurn(c *gin.Context) {
	var req submitTurnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	result, err := h.turns.Submit(c.Request.Context(), c.Param("id"), req.Content)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// Complete invokes a single provider directly, outside any session. Exposed
// for thin clients that manage their own transcript.
func (h *ChatHandler) Complete(c *gin.Context) {
	providerID := c.Param("provider")
	provider, ok := h.registry.Get(providerID)
	if !ok {
		c.Error(errors.NewBadRequestError("UNKNOWN_PROVIDER", "unknown provider: "+providerID))
		return
	}

	var req completeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	content, err := provider.Complete(c.Request.Context(), req.Messages)
	if err != nil {
		c.Error(errors.NewBadGatewayError("PROVIDER_UNAVAILABLE", err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": content})
}
