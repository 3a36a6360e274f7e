package storage

import (
	"fmt"
	"strings"
)

// AllowedContentTypes defines the MIME types accepted for invoice uploads.
var AllowedContentTypes = map[string]bool{
	"application/pdf": true,
	"image/jpeg":      true,
	"image/png":       true,
	"image/webp":      true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	normalized := strings.TrimSpace(strings.ToLower(strings.Split(contentType, ";")[0]))
	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateFileSize checks if the file size is within limits.
func ValidateFileSize(sizeBytes, maxFileSize int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("file size must be greater than 0")
	}
	if maxFileSize > 0 && sizeBytes > maxFileSize {
		return fmt.Errorf("file size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, maxFileSize)
	}
	return nil
}
