package ledger

import (
	"context"
	"time"

	dbutil "github.com/inkwell-ai/creditledger/internal/db"
	"github.com/inkwell-ai/creditledger/internal/models"
	internalsettings "github.com/inkwell-ai/creditledger/internal/settings"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// TrialResult reports the outcome of starting a trial.
type TrialResult struct {
	ExpiresAt         time.Time `json:"expires_at"`          // Trial window end.
	OfferCreditsGiven int64     `json:"offer_credits_given"` // Offer credits granted.
}

// StartTrial begins the one-time free trial: a time-boxed window plus a
// grant of trial offer credits, both sized by settings. A second call
// fails with TrialAlreadyUsedError even after the first trial expired.
func (s *Service) StartTrial(ctx context.Context, userID uint64) (TrialResult, error) {
	now := s.nowFn()
	trialDays := internalsettings.IntValue(s.db, internalsettings.TrialDaysKey, internalsettings.DefaultTrialDays)
	offerCredits := int64(internalsettings.IntValue(s.db, internalsettings.TrialOfferCreditsKey, internalsettings.DefaultTrialOfferCredits))
	expiresAt := now.AddDate(0, 0, trialDays)

	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		account, errAccount := s.lockAccount(tx, userID, now)
		if errAccount != nil {
			return errAccount
		}
		if account.HasUsedTrial {
			return &TrialAlreadyUsedError{}
		}
		if errRoll := s.rollCycleLocked(tx, account, now); errRoll != nil {
			return errRoll
		}

		if errUpdate := tx.Model(&models.CreditAccount{}).
			Where("id = ?", account.ID).
			Updates(map[string]any{
				"has_used_trial":            true,
				"trial_expires_at":          expiresAt,
				"trial_offer_credits_given": offerCredits,
				"trial_offer_credits_used":  0,
				"updated_at":                now,
			}).Error; errUpdate != nil {
			return errUpdate
		}

		balance, errBalance := lockBalance(tx, account.ID, models.CreditTypeOffers)
		if errBalance != nil {
			return errBalance
		}
		return tx.Model(&models.CreditBalance{}).
			Where("id = ?", balance.ID).
			Updates(map[string]any{
				"trial_balance": gorm.Expr("trial_balance + ?", offerCredits),
				"updated_at":    now,
			}).Error
	})
	if errTx != nil {
		return TrialResult{}, errTx
	}

	if errAudit := appendAudit(s.db.WithContext(ctx), userID, models.TransactionTypeTrialGrant, models.CreditTypeOffers, offerCredits, "free trial started", nil, now); errAudit != nil {
		log.WithError(errAudit).WithField("user_id", userID).Warn("ledger: trial audit write failed")
	}
	return TrialResult{ExpiresAt: expiresAt, OfferCreditsGiven: offerCredits}, nil
}
