// Package object holds uploaded payloads for external jobs
package object

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get for a missing key
var ErrNotFound = errors.New("object not found")

// Store is a key-value blob store with URIs the job backend can read
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	URI(key string) string
}

// ExpiringStore can expire objects under a prefix independently of application cleanup
type ExpiringStore interface {
	Store
	EnsureBucket(ctx context.Context) error
	SetExpiration(ctx context.Context, prefix string, days int) error
}
