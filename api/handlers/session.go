// Package handlers provides HTTP API request handlers.
package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agent-relay/afk/internal/model"
	"github.com/agent-relay/afk/internal/repository"
	"github.com/agent-relay/afk/internal/ws"
)

// SessionHandler handles HTTP requests for session inspection.
type SessionHandler struct {
	repo *repository.SessionRepository
	hub  *ws.Hub
}

// NewSessionHandler creates a new SessionHandler.
func NewSessionHandler(repo *repository.SessionRepository, hub *ws.Hub) *SessionHandler {
	return &SessionHandler{
		repo: repo,
		hub:  hub,
	}
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error details.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// sendError sends an error response with the appropriate status code.
func sendError(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	})
}

// recentSessionLimit caps the session sample included in /api/stats.
const recentSessionLimit = 10

var validStatuses = map[model.SessionStatus]bool{
	model.SessionStatusPending:      true,
	model.SessionStatusResponded:    true,
	model.SessionStatusTimeout:      true,
	model.SessionStatusDisconnected: true,
}

// List handles GET /api/sessions - lists sessions, newest first,
// optionally filtered by ?status=.
func (h *SessionHandler) List(c *gin.Context) {
	status := model.SessionStatus(c.Query("status"))
	if status != "" && !validStatuses[status] {
		sendError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Unknown status filter: "+string(status))
		return
	}

	sessions, err := h.repo.List(c.Request.Context(), status)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions: "+err.Error())
		return
	}
	if sessions == nil {
		sessions = []*model.Session{}
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// Get handles GET /api/sessions/:id - gets a specific session.
func (h *SessionHandler) Get(c *gin.Context) {
	sessionID := c.Param("id")

	sess, err := h.repo.GetByID(c.Request.Context(), sessionID)
	if err != nil {
		if errors.Is(err, model.ErrSessionNotFound) {
			sendError(c, http.StatusNotFound, "SESSION_NOT_FOUND", "Session "+sessionID+" not found")
			return
		}
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to get session: "+err.Error())
		return
	}

	c.JSON(http.StatusOK, sess)
}

// Stats handles GET /api/stats - live connection counts plus stored
// session totals per status.
func (h *SessionHandler) Stats(c *gin.Context) {
	counts, err := h.repo.CountsByStatus(c.Request.Context())
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to count sessions: "+err.Error())
		return
	}

	recent, err := h.repo.List(c.Request.Context(), "")
	if err != nil {
		sendError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list sessions: "+err.Error())
		return
	}
	if len(recent) > recentSessionLimit {
		recent = recent[:recentSessionLimit]
	}
	if recent == nil {
		recent = []*model.Session{}
	}

	c.JSON(http.StatusOK, gin.H{
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
		"hook_connections": h.hub.HookCount(),
		"ui_connections":   h.hub.UICount(),
		"hook_session_ids": h.hub.HookSessionIDs(),
		"session_counts":   counts,
		"recent_sessions":  recent,
	})
}

// RegisterRoutes registers the session handler routes on a Gin router group.
func (h *SessionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/sessions", h.List)
	rg.GET("/sessions/:id", h.Get)
	rg.GET("/stats", h.Stats)
}
