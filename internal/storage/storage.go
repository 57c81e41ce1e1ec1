package storage

import (
	"context"
	"io"
)

// UploadOptions conveys upload destination metadata.
type UploadOptions struct {
	Bucket    string
	KeyPrefix string
}

// Service stores uploaded user assets (avatars) in remote object storage
// and returns a URL the rendered pages can reference.
type Service interface {
	UploadObject(ctx context.Context, opts UploadOptions, key, contentType string, body io.Reader) (string, error)
	DeleteObject(ctx context.Context, bucket, key string) error
}
