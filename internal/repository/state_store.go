package repository

import (
	"context"
	"time"
)

// StateStore abstracts ephemeral key-value state shared between instances.
// Implementations: Redis (production) or in-memory (local dev / single instance).
type StateStore interface {
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Get(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	// Incr bumps a counter and starts its ttl on the first increment of a window.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
