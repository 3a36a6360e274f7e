// Package storage wraps MinIO for supplier invoice documents.
package storage

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// PresignedURLTTL is how long an issued upload or download URL stays valid.
const PresignedURLTTL = 15 * time.Minute

// PresignedURL contains the URL and metadata for a presigned operation.
type PresignedURL struct {
	URL       string    `json:"url"`
	FileKey   string    `json:"fileKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// Config defines the configuration interface for storage.
type Config interface {
	GetMinIOEndpoint() string
	GetMinIOAccessKey() string
	GetMinIOSecretKey() string
	GetMinIOUseSSL() bool
	GetMinIOMaxFileSize() int64
	IsMinIOEnabled() bool
}

// MinIOService issues presigned URLs against a MinIO server.
type MinIOService struct {
	client      *minio.Client
	maxFileSize int64
}

// NewMinIOService creates a new MinIO storage service.
func NewMinIOService(cfg Config) (*MinIOService, error) {
	if !cfg.IsMinIOEnabled() {
		return nil, fmt.Errorf("MinIO is not configured")
	}

	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	return &MinIOService{client: client, maxFileSize: cfg.GetMinIOMaxFileSize()}, nil
}

// EnsureBucketExists creates the bucket if it doesn't exist.
func (s *MinIOService) EnsureBucketExists(ctx context.Context, bucket string) error {
	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket existence: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
	}
	return nil
}

// GenerateUploadURL creates a presigned PUT URL for an invoice file.
func (s *MinIOService) GenerateUploadURL(ctx context.Context, bucket, folder, fileName, contentType string, sizeBytes int64) (*PresignedURL, error) {
	if err := ValidateContentType(contentType); err != nil {
		return nil, err
	}
	if err := ValidateFileSize(sizeBytes, s.maxFileSize); err != nil {
		return nil, err
	}

	fileKey := ObjectKey(folder, fileName, uuid.New())
	expiresAt := time.Now().Add(PresignedURLTTL)
	presigned, err := s.client.PresignedPutObject(ctx, bucket, fileKey, PresignedURLTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned upload URL: %w", err)
	}

	return &PresignedURL{URL: presigned.String(), FileKey: fileKey, ExpiresAt: expiresAt}, nil
}

// GenerateDownloadURL creates a presigned GET URL for a stored invoice.
func (s *MinIOService) GenerateDownloadURL(ctx context.Context, bucket, fileKey string) (*PresignedURL, error) {
	expiresAt := time.Now().Add(PresignedURLTTL)
	presigned, err := s.client.PresignedGetObject(ctx, bucket, fileKey, PresignedURLTTL, url.Values{})
	if err != nil {
		return nil, fmt.Errorf("failed to generate presigned download URL: %w", err)
	}
	return &PresignedURL{URL: presigned.String(), FileKey: fileKey, ExpiresAt: expiresAt}, nil
}

// ObjectKey builds a collision-free key under folder for the given file name.
func ObjectKey(folder, fileName string, id uuid.UUID) string {
	base := path.Base(strings.ReplaceAll(strings.TrimSpace(fileName), "\\", "/"))
	if base == "." || base == "/" || base == "" {
		base = "invoice"
	}
	ext := path.Ext(base)
	stem := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		case r == ' ' || r == '.':
			return '_'
		default:
			return -1
		}
	}, strings.TrimSuffix(base, ext))
	if stem == "" {
		stem = "invoice"
	}
	return path.Join(folder, fmt.Sprintf("%s_%s%s", stem, id.String()[:8], strings.ToLower(ext)))
}
