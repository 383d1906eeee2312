package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"go.uber.org/zap"
)

// AzureBlobArchiver implements Archiver for Azure Blob Storage
type AzureBlobArchiver struct {
	client        *azblob.Client
	containerName string
	logger        *zap.Logger
}

// NewAzureBlobArchiver creates a new Azure Blob Storage archiver
func NewAzureBlobArchiver(connectionString, containerName string, logger *zap.Logger) (*AzureBlobArchiver, error) {
	client, err := azblob.NewClientFromConnectionString(connectionString, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	// Ensure container exists
	_, err = client.CreateContainer(context.Background(), containerName, nil)
	if err != nil && !strings.Contains(err.Error(), "ContainerAlreadyExists") {
		return nil, fmt.Errorf("failed to create container: %w", err)
	}

	logger.Info("Azure Blob Storage initialized",
		zap.String("container", containerName),
	)

	return &AzureBlobArchiver{
		client:        client,
		containerName: containerName,
		logger:        logger,
	}, nil
}

// Archive uploads an import payload to Azure Blob Storage
func (s *AzureBlobArchiver) Archive(ctx context.Context, fileName string, payload []byte) (string, error) {
	blobName := archivePath(fileName)
	contentType := "application/json"

	uploadOptions := &azblob.UploadStreamOptions{
		HTTPHeaders: &blob.HTTPHeaders{
			BlobContentType: &contentType,
		},
	}

	_, err := s.client.UploadStream(ctx, s.containerName, blobName, bytes.NewReader(payload), uploadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to upload blob: %w", err)
	}

	s.logger.Info("Import payload archived to Azure Blob Storage",
		zap.String("blobName", blobName),
		zap.String("container", s.containerName),
		zap.Int("size", len(payload)),
	)

	return blobName, nil
}

// Fetch downloads an archived payload from Azure Blob Storage
func (s *AzureBlobArchiver) Fetch(ctx context.Context, storagePath string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.containerName, storagePath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download blob: %w", err)
	}

	return resp.Body, nil
}

// Delete removes an archived payload from Azure Blob Storage
func (s *AzureBlobArchiver) Delete(ctx context.Context, storagePath string) error {
	_, err := s.client.DeleteBlob(ctx, s.containerName, storagePath, nil)
	if err != nil {
		if strings.Contains(err.Error(), "BlobNotFound") {
			s.logger.Debug("Blob already deleted or not found",
				zap.String("blobName", storagePath),
				zap.String("container", s.containerName),
			)
			return nil
		}
		return fmt.Errorf("failed to delete blob: %w", err)
	}

	return nil
}
