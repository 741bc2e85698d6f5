package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"chat-aggregator/backend/session/models"
	"chat-aggregator/backend/session/query"
	"chat-aggregator/backend/session/service"
)

// SessionHandler handles session lifecycle endpoints
type SessionHandler struct {
	service *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(service *service.SessionService) *SessionHandler {
	return &SessionHandler{service: service}
}

// RegisterRoutes registers the session routes on a versioned group
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	sessions := rg.Group("/sessions")
	{
		sessions.GET("", h.ListSessions)
		sessions.POST("", h.CreateSession)
		sessions.GET("/:id", h.GetSession)
		sessions.PATCH("/:id", h.UpdateSession)
		sessions.DELETE("/:id", h.DeleteSession)
		sessions.POST("/:id/archive", h.ToggleArchive)
		sessions.POST("/:id/clear", h.ClearTranscript)
		sessions.POST("/:id/attachments", h.AttachFile)
	}
}

type createSessionRequest struct {
	Model models.ModelSelection `json:"model"`
}

type updateSessionRequest struct {
	Name  *string                `json:"name"`
	Model *models.ModelSelection `json:"model"`
}

func (h *SessionHandler) ListSessions(c *gin.Context) {
	opts := service.ListOptions{
		Query:           c.Query("q"),
		Sort:            query.SortOrder(c.Query("sort")),
		IncludeArchived: c.Query("include_archived") == "true",
	}
	sessions := h.service.List(c.Request.Context(), opts)
	if sessions == nil {
		sessions = []*models.ChatSession{}
	}
	c.JSON(http.StatusOK, sessions)
}

func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.service.Create(c.Request.Context(), req.Model)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusCreated, sess)
}

func (h *SessionHandler) GetSession(c *gin.Context) {
	sess, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) UpdateSession(c *gin.Context) {
	var req updateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	var sess *models.ChatSession
	var err error
	if req.Name != nil {
		if sess, err = h.service.Rename(c.Request.Context(), id, *req.Name); err != nil {
			c.Error(err)
			return
		}
	}
	if req.Model != nil {
		if sess, err = h.service.SetModel(c.Request.Context(), id, *req.Model); err != nil {
			c.Error(err)
			return
		}
	}
	if sess == nil {
		if sess, err = h.service.Get(c.Request.Context(), id); err != nil {
			c.Error(err)
			return
		}
	}
	c.JSON(http.StatusOK, sess)
}

// DeleteSession removes a session. With ?active=true the response carries a
// replacement session for the client to switch to.
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	wasActive := c.Query("active") == "true"
	replacement, err := h.service.Delete(c.Request.Context(), c.Param("id"), wasActive)
	if err != nil {
		c.Error(err)
		return
	}
	if replacement != nil {
		c.JSON(http.StatusOK, gin.H{"deleted": true, "replacement": replacement})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *SessionHandler) ToggleArchive(c *gin.Context) {
	sess, err := h.service.ToggleArchive(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) ClearTranscript(c *gin.Context) {
	sess, err := h.service.ClearTranscript(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sess)
}

func (h *SessionHandler) AttachFile(c *gin.Context) {
	var att models.FileAttachment
	if err := c.ShouldBindJSON(&att); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, err := h.service.Attach(c.Request.Context(), c.Param("id"), att)
	if err != nil {
		c.Error(err)
		return
	}
	c.JSON(http.StatusOK, sess)
}
