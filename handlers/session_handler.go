package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"autombs-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SessionHandler handles HTTP requests for coding sessions
type SessionHandler struct {
	sessionService *service.SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService *service.SessionService) *SessionHandler {
	return &SessionHandler{
		sessionService: sessionService,
	}
}

// CreateSession handles POST /api/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	var req struct {
		UserID string `json:"user_id" binding:"required"`
		Name   string `json:"name"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body: " + err.Error(),
			},
		})
		return
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "Invalid user_id format",
			},
		})
		return
	}

	result, err := h.sessionService.CreateSession(c.Request.Context(), service.CreateSessionRequest{
		UserID: userID,
		Name:   req.Name,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "CREATE_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.Session,
	})
}

// ListSessions handles GET /api/sessions
func (h *SessionHandler) ListSessions(c *gin.Context) {
	userIDStr := c.Query("user_id")
	userID, err := uuid.Parse(userIDStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_USER_ID",
				"message": "user_id query parameter is required and must be a UUID",
			},
		})
		return
	}

	limit := 50
	offset := 0
	if _, err := fmt.Sscanf(c.DefaultQuery("limit", "50"), "%d", &limit); err != nil || limit <= 0 {
		limit = 50
	}
	if _, err := fmt.Sscanf(c.DefaultQuery("offset", "0"), "%d", &offset); err != nil || offset < 0 {
		offset = 0
	}

	result, err := h.sessionService.ListSessions(c.Request.Context(), service.ListSessionsRequest{
		UserID: userID,
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "LIST_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Sessions,
	})
}

// GetSession handles GET /api/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	result, err := h.sessionService.GetSession(c.Request.Context(), service.GetSessionRequest{ID: id})
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"session": result.Session,
			"turns":   result.Turns,
		},
	})
}

// RenameSession handles PUT /api/sessions/:id
func (h *SessionHandler) RenameSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "name is required",
			},
		})
		return
	}

	result, err := h.sessionService.RenameSession(c.Request.Context(), service.RenameSessionRequest{
		ID:   id,
		Name: req.Name,
	})
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    result.Session,
	})
}

// DuplicateSession handles POST /api/sessions/:id/duplicate
func (h *SessionHandler) DuplicateSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	result, err := h.sessionService.DuplicateSession(c.Request.Context(), service.DuplicateSessionRequest{ID: id})
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data":    result.Session,
	})
}

// DeleteSession handles DELETE /api/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	if _, err := h.sessionService.DeleteSession(c.Request.Context(), service.DeleteSessionRequest{ID: id}); err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
	})
}

// ExportSession handles GET /api/sessions/:id/export
func (h *SessionHandler) ExportSession(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	result, err := h.sessionService.ExportSession(c.Request.Context(), service.ExportSessionRequest{ID: id})
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"session-%s.json\"", id))
	c.JSON(http.StatusOK, result.Export)
}

// ComposeHighlights handles POST /api/sessions/:id/highlights
func (h *SessionHandler) ComposeHighlights(c *gin.Context) {
	id, ok := h.sessionID(c)
	if !ok {
		return
	}

	var req struct {
		NoteText string `json:"noteText"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "Invalid request body: " + err.Error(),
			},
		})
		return
	}

	result, err := h.sessionService.ComposeHighlights(c.Request.Context(), service.ComposeHighlightsRequest{
		ID:       id,
		NoteText: req.NoteText,
	})
	if err != nil {
		h.sessionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"segments": result.Segments,
		},
	})
}

// sessionID parses the :id path parameter, writing the error response
// itself when the parameter is malformed
func (h *SessionHandler) sessionID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid session ID format",
			},
		})
		return uuid.Nil, false
	}
	return id, true
}

// sessionError maps service errors onto the response envelope
func (h *SessionHandler) sessionError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrSessionNotFound) {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "Session not found",
			},
		})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{
		"success": false,
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	})
}
