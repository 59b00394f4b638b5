package storage

import (
	"fmt"
	"strings"
)

// MaxTranscriptBytes caps a single archived transcript.
const MaxTranscriptBytes = 5 << 20

// AllowedContentTypes lists the MIME types the archiver writes.
var AllowedContentTypes = map[string]bool{
	"text/plain":       true,
	"application/json": true,
}

// ValidateContentType checks if the content type is allowed.
func ValidateContentType(contentType string) error {
	normalized := strings.Split(contentType, ";")[0]
	normalized = strings.TrimSpace(strings.ToLower(normalized))

	if !AllowedContentTypes[normalized] {
		return fmt.Errorf("content type %q is not allowed", contentType)
	}
	return nil
}

// ValidateSize checks if the object size is within limits.
func ValidateSize(sizeBytes int64) error {
	if sizeBytes <= 0 {
		return fmt.Errorf("object size must be greater than 0")
	}
	if sizeBytes > MaxTranscriptBytes {
		return fmt.Errorf("object size %d bytes exceeds maximum allowed size of %d bytes", sizeBytes, MaxTranscriptBytes)
	}
	return nil
}
