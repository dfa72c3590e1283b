package ingress

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrDuplicateRequest is returned by IdempotencyCache.Reserve when the
// caller-supplied key has already been seen within the TTL window.
var ErrDuplicateRequest = errors.New("ingress: duplicate request")

// IdempotencyCache deduplicates order submissions keyed by a caller-
// supplied request id, backed by Redis (grounded on the microcoin
// manifest's go-redis usage). This belongs to the ingress layer, not
// the core: the core has no concept of a request id, only an order id.
type IdempotencyCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewIdempotencyCache wraps an existing redis client.
func NewIdempotencyCache(client *redis.Client, ttl time.Duration) *IdempotencyCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &IdempotencyCache{client: client, ttl: ttl}
}

// Reserve atomically claims key for the duration of the TTL. Returns
// ErrDuplicateRequest if key was already reserved by an earlier,
// possibly still in-flight, request.
func (c *IdempotencyCache) Reserve(ctx context.Context, key string) error {
	ok, err := c.client.SetNX(ctx, idempotencyKey(key), "1", c.ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateRequest
	}
	return nil
}

// Release removes a reservation, used when a request fails validation
// after Reserve succeeded and should be retryable immediately.
func (c *IdempotencyCache) Release(ctx context.Context, key string) error {
	return c.client.Del(ctx, idempotencyKey(key)).Err()
}

func idempotencyKey(key string) string {
	return "exchange:idempotency:" + key
}
