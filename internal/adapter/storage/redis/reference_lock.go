package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// ReferenceLock implements ports.ReferenceLock with SET NX plus a TTL, so a
// crashed holder cannot wedge a reference forever.
type ReferenceLock struct {
	client goredis.Cmdable
	prefix string
}

func NewReferenceLock(client goredis.Cmdable) *ReferenceLock {
	return &ReferenceLock{
		client: client,
		prefix: keyPrefix + "lock:",
	}
}

// Acquire returns false without error when another holder owns the reference.
func (l *ReferenceLock) Acquire(ctx context.Context, reference string, ttl time.Duration) (bool, error) {
	result, err := l.client.SetArgs(ctx, l.prefix+reference, 1, goredis.SetArgs{
		Mode: "NX",
		TTL:  ttl,
	}).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis lock acquire %s: %w", reference, err)
	}
	return result == "OK", nil
}

func (l *ReferenceLock) Release(ctx context.Context, reference string) error {
	if err := l.client.Del(ctx, l.prefix+reference).Err(); err != nil {
		return fmt.Errorf("redis lock release %s: %w", reference, err)
	}
	return nil
}
