package ratelimit

import (
	"time"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// ResolveLimit returns the effective per-second rate limit for a user.
// The per-user override wins, then the active plan's limit, then the
// configured default. Zero means unlimited.
func ResolveLimit(user *models.User, plan *models.Plan, defaultLimit int, now time.Time) int {
	if user != nil && user.RateLimit > 0 {
		return user.RateLimit
	}
	if plan != nil && plan.RateLimit > 0 && user != nil && user.HasActivePlan(now) {
		return plan.RateLimit
	}
	if defaultLimit > 0 {
		return defaultLimit
	}
	return 0
}
