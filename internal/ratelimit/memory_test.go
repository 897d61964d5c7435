package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/inkwell-ai/creditledger/internal/models"
)

func TestMemoryLimiter_EnforcesLimitWithinWindow(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 3; i++ {
		res, err := limiter.Allow(context.Background(), "u:1", 3, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	res, err := limiter.Allow(context.Background(), "u:1", 3, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Allowed {
		t.Fatalf("fourth request in the same second should be rejected")
	}
	if res.Remaining != 0 {
		t.Fatalf("expected remaining 0, got %d", res.Remaining)
	}
}

func TestMemoryLimiter_WindowResets(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 2; i++ {
		if res, _ := limiter.Allow(context.Background(), "u:1", 2, now); !res.Allowed {
			t.Fatalf("request %d should be allowed", i+1)
		}
	}
	if res, _ := limiter.Allow(context.Background(), "u:1", 2, now); res.Allowed {
		t.Fatalf("third request should be rejected")
	}
	if res, _ := limiter.Allow(context.Background(), "u:1", 2, now.Add(time.Second)); !res.Allowed {
		t.Fatalf("next window should allow again")
	}
}

func TestMemoryLimiter_ZeroLimitAllows(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Now()
	for i := 0; i < 10; i++ {
		res, err := limiter.Allow(context.Background(), "u:1", 0, now)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !res.Allowed {
			t.Fatalf("zero limit should never reject")
		}
	}
}

func TestMemoryLimiter_KeysAreIsolated(t *testing.T) {
	limiter := NewMemoryLimiter()
	now := time.Now()
	if res, _ := limiter.Allow(context.Background(), UserKey(1), 1, now); !res.Allowed {
		t.Fatalf("first key should be allowed")
	}
	if res, _ := limiter.Allow(context.Background(), UserKey(2), 1, now); !res.Allowed {
		t.Fatalf("second key should not share the first key's counter")
	}
	if res, _ := limiter.Allow(context.Background(), UserKey(1), 1, now); res.Allowed {
		t.Fatalf("first key should now be exhausted")
	}
}

func TestResolveLimit_Priority(t *testing.T) {
	now := time.Now()
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	planID := uint64(1)
	user := &models.User{
		ID:                 1,
		PlanID:             &planID,
		PlanEffectiveStart: &start,
		PlanEffectiveEnd:   &end,
		RateLimit:          5,
	}
	plan := &models.Plan{ID: planID, RateLimit: 10}

	if got := ResolveLimit(user, plan, 2, now); got != 5 {
		t.Fatalf("user override should win, got %d", got)
	}
	user.RateLimit = 0
	if got := ResolveLimit(user, plan, 2, now); got != 10 {
		t.Fatalf("plan limit should apply, got %d", got)
	}
	if got := ResolveLimit(user, nil, 2, now); got != 2 {
		t.Fatalf("default should apply, got %d", got)
	}
	if got := ResolveLimit(user, nil, 0, now); got != 0 {
		t.Fatalf("zero default means unlimited, got %d", got)
	}
}

func TestResolveLimit_PlanLimitIgnoredWhenExpired(t *testing.T) {
	now := time.Now()
	start := now.Add(-48 * time.Hour)
	end := now.Add(-time.Hour)
	planID := uint64(1)
	user := &models.User{
		ID:                 1,
		PlanID:             &planID,
		PlanEffectiveStart: &start,
		PlanEffectiveEnd:   &end,
	}
	plan := &models.Plan{ID: planID, RateLimit: 10}
	if got := ResolveLimit(user, plan, 2, now); got != 2 {
		t.Fatalf("expired plan should fall back to default, got %d", got)
	}
}
