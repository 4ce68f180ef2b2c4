package cache

import (
	"context"
	"time"
)

// Store is the record store the worker uses to suppress duplicate deliveries
// and keep in-flight records. Backed by Redis in production.
type Store interface {
	// Set sets the value for the given key with expiration.
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	// SetNX sets the key only if absent; reports whether it was set.
	SetNX(ctx context.Context, key string, value any, expiration time.Duration) (bool, error)
	// Delete removes the value for the given key.
	Delete(ctx context.Context, key string) error
	// ScanPrefix retrieves all key-value pairs with the given prefix.
	ScanPrefix(ctx context.Context, prefix string) (map[string]string, error)
}
