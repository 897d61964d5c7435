package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/inkwell-ai/creditledger/internal/models"
	internalsettings "github.com/inkwell-ai/creditledger/internal/settings"

	"gorm.io/gorm"
)

// Access source values reported by CheckFeatureAccess.
const (
	// AccessSourceSubscription unlocks via the active plan.
	AccessSourceSubscription = "subscription"
	// AccessSourceCredits unlocks via a positive credit balance.
	AccessSourceCredits = "credits"
	// AccessSourceAdminGrant unlocks via an operator feature grant.
	AccessSourceAdminGrant = "adminGrant"
	// AccessSourceTrial unlocks via an active trial.
	AccessSourceTrial = "trial"
	// AccessSourceNone means no source grants access.
	AccessSourceNone = "none"
)

// FeatureAccessResult reports whether and why a feature is accessible.
type FeatureAccessResult struct {
	HasAccess bool       `json:"has_access"`
	Source    string     `json:"source"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// CheckFeatureAccess resolves feature access in strict priority order,
// returning on the first source that matches: plan subscription, credit
// balance, operator feature grant, active trial. The order is part of
// the contract; it decides which billing source is reported to the user
// even though the actual deduction happens elsewhere.
func (s *Service) CheckFeatureAccess(ctx context.Context, userID uint64, feature models.Feature, planEnablesFeature, creditsAvailable bool) (FeatureAccessResult, error) {
	if !feature.Valid() {
		return FeatureAccessResult{Source: AccessSourceNone}, errors.New("ledger: unknown feature")
	}

	if planEnablesFeature {
		return FeatureAccessResult{HasAccess: true, Source: AccessSourceSubscription}, nil
	}
	if creditsAvailable {
		return FeatureAccessResult{HasAccess: true, Source: AccessSourceCredits}, nil
	}

	now := s.nowFn()

	var grant models.FeatureGrant
	errGrant := s.db.WithContext(ctx).
		Where("user_id = ? AND feature = ? AND expires_at > ?", userID, feature, now).
		Take(&grant).Error
	if errGrant == nil {
		expires := grant.ExpiresAt
		return FeatureAccessResult{HasAccess: true, Source: AccessSourceAdminGrant, ExpiresAt: &expires}, nil
	}
	if !errors.Is(errGrant, gorm.ErrRecordNotFound) {
		return FeatureAccessResult{Source: AccessSourceNone}, errGrant
	}

	if s.trialUnlocks(ctx, userID, feature, now) {
		var account models.CreditAccount
		if errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&account).Error; errFind == nil {
			return FeatureAccessResult{HasAccess: true, Source: AccessSourceTrial, ExpiresAt: account.TrialExpiresAt}, nil
		}
	}

	return FeatureAccessResult{Source: AccessSourceNone}, nil
}

// trialUnlocks reports whether an active, unexpired trial enables the
// feature per the trial settings.
func (s *Service) trialUnlocks(ctx context.Context, userID uint64, feature models.Feature, now time.Time) bool {
	if feature == models.FeatureOfferGeneration &&
		!internalsettings.BoolValue(s.db, internalsettings.TrialEnablesOffersKey, internalsettings.DefaultTrialEnablesOffers) {
		return false
	}
	// The trial unlocks offer generation only; other features stay gated
	// by plan or credits.
	if feature != models.FeatureOfferGeneration {
		return false
	}

	var account models.CreditAccount
	if errFind := s.db.WithContext(ctx).Where("user_id = ?", userID).Take(&account).Error; errFind != nil {
		return false
	}
	return account.HasUsedTrial && account.TrialExpiresAt != nil && now.Before(*account.TrialExpiresAt)
}
