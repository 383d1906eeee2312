package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pharmsource/sourcing-api/internal/config"
	"go.uber.org/zap"
)

// Archiver stores raw bulk import payloads so past runs stay auditable.
// Archive returns the storage path persisted on the batch record.
type Archiver interface {
	Archive(ctx context.Context, fileName string, payload []byte) (string, error)
	Fetch(ctx context.Context, storagePath string) (io.ReadCloser, error)
	Delete(ctx context.Context, storagePath string) error
}

// NewArchiver creates an archiver based on configuration.
// For local mode, payloads are stored on the local filesystem.
// For cloud/azure mode, payloads are stored in Azure Blob Storage.
func NewArchiver(cfg *config.StorageConfig, logger *zap.Logger) (Archiver, error) {
	switch cfg.Mode {
	case "local":
		return NewLocalArchiver(cfg.LocalBasePath)
	case "cloud", "azure":
		if cfg.CloudConnectionString == "" {
			return nil, fmt.Errorf("cloud connection string required for azure storage")
		}
		return NewAzureBlobArchiver(cfg.CloudConnectionString, cfg.CloudContainer, logger)
	default:
		return nil, fmt.Errorf("unsupported storage mode: %s", cfg.Mode)
	}
}

// LocalArchiver implements Archiver for the local filesystem
type LocalArchiver struct {
	basePath string
}

// NewLocalArchiver creates a new local archiver instance
func NewLocalArchiver(basePath string) (*LocalArchiver, error) {
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &LocalArchiver{
		basePath: basePath,
	}, nil
}

// Archive writes an import payload to local storage
func (s *LocalArchiver) Archive(ctx context.Context, fileName string, payload []byte) (string, error) {
	storagePath := archivePath(fileName)
	fullPath := filepath.Join(s.basePath, storagePath)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	if err := os.WriteFile(fullPath, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write payload: %w", err)
	}

	return storagePath, nil
}

// Fetch reads an archived payload from local storage
func (s *LocalArchiver) Fetch(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	fullPath := filepath.Join(s.basePath, storagePath)

	file, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("payload not found: %s", storagePath)
		}
		return nil, fmt.Errorf("failed to open payload: %w", err)
	}

	return file, nil
}

// Delete removes an archived payload from local storage
func (s *LocalArchiver) Delete(ctx context.Context, storagePath string) error {
	fullPath := filepath.Join(s.basePath, storagePath)

	if err := os.Remove(fullPath); err != nil {
		if os.IsNotExist(err) {
			return nil // Already deleted
		}
		return fmt.Errorf("failed to delete payload: %w", err)
	}

	return nil
}

// archivePath builds a date-partitioned unique path for a payload
func archivePath(fileName string) string {
	id := uuid.New().String()
	name := id + ".json"
	if fileName != "" {
		name = id + "-" + filepath.Base(fileName) + ".json"
	}
	return filepath.Join(time.Now().UTC().Format("2006/01/02"), name)
}
