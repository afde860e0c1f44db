package storage

import (
	"context"
	"errors"
)

// ErrNotConfigured is returned by a store that lacks required settings.
var ErrNotConfigured = errors.New("storage: backend not configured")

// ObjectStore persists listing images and returns their public URL.
type ObjectStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
	Delete(ctx context.Context, key string) error
}
