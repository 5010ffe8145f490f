// Package storage holds rendered export files until their download link expires.
package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrObjectNotFound is returned by Open when the named object is absent.
var ErrObjectNotFound = errors.New("object not found")

// Object is an open stored file.
type Object struct {
	Body        io.ReadCloser
	Size        int64
	ContentType string
}

// Store is the backend contract shared by the local disk and MinIO drivers.
type Store interface {
	Put(ctx context.Context, name, contentType string, data []byte) error
	Open(ctx context.Context, name string) (*Object, error)
	Delete(ctx context.Context, name string) error
	CleanupOlderThan(ctx context.Context, ttl time.Duration) ([]string, error)
}
