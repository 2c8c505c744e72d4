package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Storage interface for attachment storage operations
type Storage interface {
	// Upload stores an attachment and returns the storage path
	Upload(ctx context.Context, fileID uuid.UUID, filename string, data io.Reader) (string, error)

	// Download retrieves an attachment by storage path
	Download(ctx context.Context, storagePath string) (io.ReadCloser, error)

	// Delete removes an attachment by storage path
	Delete(ctx context.Context, storagePath string) error
}

// BackendType represents the storage backend type
type BackendType string

const (
	BackendLocal BackendType = "local"
	BackendS3    BackendType = "s3"
)

// Config holds configuration for attachment storage
type Config struct {
	Backend      BackendType
	LocalPath    string // For local storage
	S3Bucket     string // For S3 storage
	S3Region     string // For S3 storage
	AWSAccessKey string
	AWSSecretKey string
}

// New creates a storage instance based on configuration
func New(cfg Config) (Storage, error) {
	switch cfg.Backend {
	case BackendLocal:
		return NewLocalStorage(cfg.LocalPath)
	case BackendS3:
		return NewS3Storage(cfg)
	default:
		return nil, fmt.Errorf("unknown storage backend: %s", cfg.Backend)
	}
}

// NewFromEnv creates a storage instance from environment variables
func NewFromEnv() (Storage, error) {
	backend := os.Getenv("STORAGE_BACKEND")
	if backend == "" {
		backend = "local" // Default to local for development
	}

	cfg := Config{
		Backend: BackendType(backend),
	}

	switch cfg.Backend {
	case BackendLocal:
		localPath := os.Getenv("STORAGE_LOCAL_PATH")
		if localPath == "" {
			localPath = "./storage/attachments"
		}
		cfg.LocalPath = localPath
		return NewLocalStorage(cfg.LocalPath)

	case BackendS3:
		cfg.S3Bucket = os.Getenv("AWS_S3_BUCKET")
		cfg.S3Region = os.Getenv("AWS_REGION")
		if cfg.S3Region == "" {
			cfg.S3Region = "ap-southeast-2" // Default region
		}
		cfg.AWSAccessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		cfg.AWSSecretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")

		if cfg.S3Bucket == "" {
			return nil, errors.New("AWS_S3_BUCKET environment variable is required for S3 storage")
		}

		return NewS3Storage(cfg)

	default:
		return nil, fmt.Errorf("unknown storage backend: %s", backend)
	}
}

// attachmentPath builds a sharded storage path for an attachment
func attachmentPath(fileID uuid.UUID, filename string) string {
	ext := filepath.Ext(filename)
	baseName := strings.TrimSuffix(filepath.Base(filename), ext)
	// Sanitize filename
	baseName = strings.ReplaceAll(baseName, " ", "_")
	baseName = strings.ReplaceAll(baseName, "/", "_")
	baseName = strings.ReplaceAll(baseName, "\\", "_")

	// First two hex chars of the ID shard the tree; the full ID keeps paths unique
	return fmt.Sprintf("%s/%s_%s%s", fileID.String()[:2], fileID.String(), baseName, ext)
}
