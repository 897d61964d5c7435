package models

import "time"

// User represents an end-user account stored in the database.
type User struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Email    string `gorm:"type:text;not null;uniqueIndex"` // Email address, login identifier.
	Name     string `gorm:"type:text"`                      // Display name.
	Password string `gorm:"type:text;not null"`             // Hashed password.

	PlanID *uint64 `gorm:"index"`             // Active plan ID, nil when no plan is subscribed.
	Plan   *Plan   `gorm:"foreignKey:PlanID"` // Active plan.

	// PlanEffectiveStart and PlanEffectiveEnd bound the validity window of
	// the current subscription. Plan-gated operations outside this window
	// fail with a subscription error.
	PlanEffectiveStart *time.Time ``
	PlanEffectiveEnd   *time.Time ``

	RateLimit int `gorm:"not null;default:0"` // Per-user rate limit override, 0 means plan/default.

	Active bool `gorm:"not null;default:true"` // Whether the user can sign in.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// HasActivePlan reports whether the user has a plan whose effective
// window contains now.
func (u *User) HasActivePlan(now time.Time) bool {
	if u == nil || u.PlanID == nil {
		return false
	}
	if u.PlanEffectiveStart != nil && now.Before(*u.PlanEffectiveStart) {
		return false
	}
	if u.PlanEffectiveEnd != nil && now.After(*u.PlanEffectiveEnd) {
		return false
	}
	return true
}

// PlanExpired reports whether the user had a plan whose effective window
// has lapsed.
func (u *User) PlanExpired(now time.Time) bool {
	if u == nil || u.PlanID == nil {
		return false
	}
	return u.PlanEffectiveEnd != nil && now.After(*u.PlanEffectiveEnd)
}
