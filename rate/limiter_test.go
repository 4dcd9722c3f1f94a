package rate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestLimiter(t *testing.T, now func() time.Time) (*Limiter, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return New(rdb, "", now), mr
}

func TestBudgetExhaustion(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l, _ := newTestLimiter(t, func() time.Time { return current })
	ctx := context.Background()

	key := l.Key("10.0.0.1", "/api/v1/auth/token")

	for i := 1; i <= 5; i++ {
		current = base.Add(time.Duration(i) * time.Second)
		limited, err := l.IsRateLimited(ctx, key, 5, 60*time.Second)
		if err != nil {
			t.Fatalf("check %d failed: %v", i, err)
		}
		if limited {
			t.Fatalf("call %d inside budget was rejected", i)
		}
	}

	current = base.Add(6 * time.Second)
	limited, err := l.IsRateLimited(ctx, key, 5, 60*time.Second)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !limited {
		t.Error("sixth call inside the window was admitted")
	}
}

func TestWindowSlides(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l, _ := newTestLimiter(t, func() time.Time { return current })
	ctx := context.Background()

	key := l.Key("10.0.0.1", "/api/v1/auth/token")

	for i := 0; i < 6; i++ {
		current = base.Add(time.Duration(i) * time.Second)
		if _, err := l.IsRateLimited(ctx, key, 5, 60*time.Second); err != nil {
			t.Fatalf("check failed: %v", err)
		}
	}

	// After the window passes with no traffic, the budget is fresh.
	current = base.Add(70 * time.Second)
	limited, err := l.IsRateLimited(ctx, key, 5, 60*time.Second)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if limited {
		t.Error("request rejected after the window elapsed")
	}
}

func TestRoutesHaveIndependentBudgets(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	current := base
	l, _ := newTestLimiter(t, func() time.Time { return current })
	ctx := context.Background()

	tokenKey := l.Key("10.0.0.1", "/api/v1/auth/token")
	refreshKey := l.Key("10.0.0.1", "/api/v1/auth/refresh")

	for i := 0; i < 6; i++ {
		current = base.Add(time.Duration(i) * time.Second)
		if _, err := l.IsRateLimited(ctx, tokenKey, 5, 60*time.Second); err != nil {
			t.Fatalf("check failed: %v", err)
		}
	}

	limited, err := l.IsRateLimited(ctx, refreshKey, 5, 60*time.Second)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if limited {
		t.Error("exhausting one route's budget limited another route")
	}
}

func TestSameSecondRequestsAreCounted(t *testing.T) {
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	// Same wall-clock second, distinct nanoseconds.
	l, _ := newTestLimiter(t, func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Nanosecond)
	})
	ctx := context.Background()

	key := l.Key("10.0.0.1", "/api/v1/auth/token")
	for i := 1; i <= 2; i++ {
		if _, err := l.IsRateLimited(ctx, key, 2, 60*time.Second); err != nil {
			t.Fatalf("check failed: %v", err)
		}
	}

	limited, err := l.IsRateLimited(ctx, key, 2, 60*time.Second)
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}
	if !limited {
		t.Error("third same-second call was admitted with maxRequests=2")
	}
}

func TestStoreDownIsFatal(t *testing.T) {
	l, mr := newTestLimiter(t, nil)
	mr.Close()

	_, err := l.IsRateLimited(context.Background(), l.Key("10.0.0.1", "/"), 5, time.Minute)
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("check with store down: err = %v, want ErrUnavailable", err)
	}
}
