package handlers

import (
	"fmt"
	"net/http"
	"path/filepath"
	"strings"

	"autombs-backend/models"
	"autombs-backend/repository"
	"autombs-backend/storage"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// FileHandler handles HTTP requests for note attachment files
type FileHandler struct {
	fileRepo         *repository.FileRepository
	sessionRepo      *repository.SessionRepository
	storage          storage.Storage
	maxFileSize      int64
	allowedMimeTypes map[string]bool
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileRepo *repository.FileRepository, sessionRepo *repository.SessionRepository, storage storage.Storage) *FileHandler {
	return &FileHandler{
		fileRepo:    fileRepo,
		sessionRepo: sessionRepo,
		storage:     storage,
		maxFileSize: 10 * 1024 * 1024, // 10MB
		allowedMimeTypes: map[string]bool{
			"text/plain":      true,
			"text/markdown":   true,
			"application/pdf": true,
			"image/png":       true,
			"image/jpeg":      true,
		},
	}
}

// UploadFile handles POST /api/files/upload
func (h *FileHandler) UploadFile(c *gin.Context) {
	sessionIDStr := c.PostForm("session_id")
	var sessionID *uuid.UUID
	var userID uuid.UUID

	if sessionIDStr != "" {
		sid, err := uuid.Parse(sessionIDStr)
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
		sessionID = &sid

		// Attribute the upload to the session's owner
		session, err := h.sessionRepo.GetByID(c.Request.Context(), sid)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "SESSION_NOT_FOUND",
					"message": "Session not found",
				},
			})
			return
		}
		userID = session.UserID
	} else {
		userIDStr := c.PostForm("user_id")
		if userIDStr == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error": gin.H{
					"code":    "MISSING_USER_ID",
					"message": "Either session_id or user_id is required",
				},
			})
			return
		}
		uid, err := uuid.Parse(userIDStr)
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
		userID = uid
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "File is required",
			},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File size exceeds maximum of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_OPEN_ERROR",
				"message": err.Error(),
			},
		})
		return
	}
	defer file.Close()

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = inferMimeType(fileHeader.Filename)
	}

	if !h.allowedMimeTypes[mimeType] && !strings.HasPrefix(mimeType, "text/") {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "File type not allowed. Allowed types: TXT, MD, PDF, PNG, JPG",
			},
		})
		return
	}

	fileID := uuid.New()

	storagePath, err := h.storage.Upload(c.Request.Context(), fileID, fileHeader.Filename, file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": fmt.Sprintf("Failed to upload file: %v", err),
			},
		})
		return
	}

	fileRecord := &models.File{
		ID:          fileID,
		UserID:      userID,
		SessionID:   sessionID,
		Filename:    fileHeader.Filename,
		MimeType:    mimeType,
		Size:        fileHeader.Size,
		StoragePath: storagePath,
	}

	err = h.fileRepo.Create(c.Request.Context(), fileRecord)
	if err != nil {
		// Try to clean up uploaded file
		h.storage.Delete(c.Request.Context(), storagePath)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": fmt.Sprintf("Failed to save file record: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":         fileRecord.ID,
			"filename":   fileRecord.Filename,
			"mime_type":  fileRecord.MimeType,
			"size":       fileRecord.Size,
			"session_id": fileRecord.SessionID,
			"created_at": fileRecord.CreatedAt,
		},
	})
}

// GetFile handles GET /api/files/:id
func (h *FileHandler) GetFile(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid file ID format",
			},
		})
		return
	}

	file, err := h.fileRepo.GetByID(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "NOT_FOUND",
				"message": "File not found",
			},
		})
		return
	}

	reader, err := h.storage.Download(c.Request.Context(), file.StoragePath)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOWNLOAD_FAILED",
				"message": fmt.Sprintf("Failed to download file: %v", err),
			},
		})
		return
	}
	defer reader.Close()

	c.Header("Content-Type", file.MimeType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", file.Filename))
	c.DataFromReader(http.StatusOK, file.Size, file.MimeType, reader, nil)
}

// inferMimeType guesses a MIME type from the filename extension
func inferMimeType(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".txt":
		return "text/plain"
	case ".md":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		return "application/octet-stream"
	}
}
