// Package rate implements sliding-window admission control over a Redis
// sorted set per key. Each check purges entries older than the window,
// counts what remains, records the current request, and refreshes the key's
// TTL, all as one atomic MULTI/EXEC round trip, so concurrent checks on the
// same key cannot double-count.
package rate

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrUnavailable is returned when Redis cannot serve the check. A failed
// check is a hard failure: it is never reported as "not limited" and never
// as "limited".
var ErrUnavailable = errors.New("rate limit store unavailable")

// DefaultKeyPrefix namespaces rate-limit keys in the shared store.
const DefaultKeyPrefix = "rate_limit:"

// Limiter is a sliding-window rate limiter. It holds no per-key state in
// process; any number of instances may share one Redis.
type Limiter struct {
	redis     redis.UniversalClient
	keyPrefix string
	now       func() time.Time
}

// New creates a Limiter. keyPrefix defaults to [DefaultKeyPrefix] and now
// defaults to time.Now.
func New(client redis.UniversalClient, keyPrefix string, now func() time.Time) *Limiter {
	if keyPrefix == "" {
		keyPrefix = DefaultKeyPrefix
	}
	if now == nil {
		now = time.Now
	}
	return &Limiter{redis: client, keyPrefix: keyPrefix, now: now}
}

// Key builds the store key for a client host and request path pair. Scoping
// by path gives every route an independent budget.
func (l *Limiter) Key(host, path string) string {
	return l.keyPrefix + host + ":" + path
}

// IsRateLimited records the current request under key and reports whether
// the request budget was already consumed before it. With maxRequests = N,
// calls 1..N inside one window are admitted and call N+1 is rejected.
// The rejected request still counts toward the window.
func (l *Limiter) IsRateLimited(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	now := l.now()
	windowStart := now.Add(-window).Unix()

	var card *redis.IntCmd
	_, err := l.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRemRangeByScore(ctx, key, "0", strconv.FormatInt(windowStart, 10))
		card = pipe.ZCard(ctx, key)
		pipe.ZAdd(ctx, key, redis.Z{
			Score: float64(now.Unix()),
			// Nanosecond members keep two requests in the same second
			// distinct.
			Member: strconv.FormatInt(now.UnixNano(), 10),
		})
		pipe.Expire(ctx, key, window)
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return card.Val() >= int64(maxRequests), nil
}
