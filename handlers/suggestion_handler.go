package handlers

import (
	"errors"
	"net/http"

	"autombs-backend/models"
	"autombs-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// SuggestionHandler handles HTTP requests for code suggestions
type SuggestionHandler struct {
	suggestionService *service.SuggestionService
}

// NewSuggestionHandler creates a new suggestion handler
func NewSuggestionHandler(suggestionService *service.SuggestionService) *SuggestionHandler {
	return &SuggestionHandler{
		suggestionService: suggestionService,
	}
}

// mbsCodesRequest is the POST /api/mbs-codes body
type mbsCodesRequest struct {
	NoteText    string              `json:"noteText"`
	Attachments []models.Attachment `json:"attachments"`
	Options     models.Options      `json:"options"`
	SessionID   *string             `json:"session_id"`
}

// SuggestCodes handles POST /api/mbs-codes
func (h *SuggestionHandler) SuggestCodes(c *gin.Context) {
	var req mbsCodesRequest
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

	if req.NoteText == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_NOTE_TEXT",
				"message": "noteText is required",
			},
		})
		return
	}

	var sessionID *uuid.UUID
	if req.SessionID != nil && *req.SessionID != "" {
		id, err := uuid.Parse(*req.SessionID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "INVALID_SESSION_ID",
					"message": "Invalid session_id format",
				},
			})
			return
		}
		sessionID = &id
	}

	result, err := h.suggestionService.Suggest(c.Request.Context(), service.SuggestRequest{
		NoteText:    req.NoteText,
		Attachments: req.Attachments,
		Options:     req.Options,
		SessionID:   sessionID,
	})
	if err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SESSION_NOT_FOUND",
					"message": "Session not found",
				},
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SUGGESTION_FAILED",
				"message": err.Error(),
			},
		})
		return
	}

	// The suggestion contract is returned as-is, not wrapped: a failed
	// reasoning call still renders through this same path with empty
	// suggestions and raw_debug guidance.
	c.JSON(http.StatusOK, result.Response)
}
