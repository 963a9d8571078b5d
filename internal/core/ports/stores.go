package ports

import (
	"context"
	"time"

	"vtu-backend/internal/core/domain"
)

// Cache is a key -> (value, expiry) store injected wherever results are cached.
// Get returns nil, nil on a miss.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// ReferenceLock serializes work on one reference across processes.
type ReferenceLock interface {
	// Acquire returns true if the lock was taken, false if another holder has it.
	Acquire(ctx context.Context, reference string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, reference string) error
}

// EventPublisher fans transaction lifecycle events out to subscribers.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.TransactionEvent) error
}

// HealthChecker is a dependency checked by the /health endpoint.
type HealthChecker interface {
	Ping(ctx context.Context) error
	Name() string
}
