package service

import (
	"context"
	"io"
	"time"
)

// BlobStorage is the blob store collaborator: content addressed by path,
// download access issued as expiring signed URLs.
type BlobStorage interface {
	Put(ctx context.Context, path string, file io.Reader, contentType string) error
	Delete(ctx context.Context, path string) error
	SignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	Close() error
}
