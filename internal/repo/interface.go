package repo

import (
	"context"
)

// BlobStore is the persistence boundary: a flat keyspace of opaque values.
// Values are JSON documents produced by the store package.
type BlobStore interface {
	// Get returns the value under key and whether it exists.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set replaces the value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error
	Close() error
}
