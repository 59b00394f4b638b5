// Package storage archives call artifacts in S3-compatible object storage.
package storage

import (
	"context"
	"io"
)

// ObjectStore is the subset of object storage the archiver depends on.
type ObjectStore interface {
	// EnsureBucketExists creates the bucket if it doesn't exist.
	EnsureBucketExists(ctx context.Context, bucket string) error

	// PutObject writes reader under fileKey, replacing any existing object.
	PutObject(ctx context.Context, bucket, fileKey, contentType string, reader io.Reader, size int64) error
}
