package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	dbutil "github.com/inkwell-ai/creditledger/internal/db"
	"github.com/inkwell-ai/creditledger/internal/models"

	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Service is the credit ledger. All balance mutation for a user goes
// through it so the audit trail stays consistent with the balances.
// Operations on one account are linearized by the store transaction plus
// a row lock on the account; operations on different accounts are fully
// independent.
type Service struct {
	db    *gorm.DB
	nowFn func() time.Time
}

// NewService constructs a ledger Service on the given database handle.
func NewService(conn *gorm.DB) *Service {
	return &Service{db: conn, nowFn: func() time.Time { return time.Now().UTC() }}
}

// newServiceAt constructs a Service with a fixed clock for tests.
func newServiceAt(conn *gorm.DB, nowFn func() time.Time) *Service {
	return &Service{db: conn, nowFn: nowFn}
}

// GetSummary reads the current balances for every credit type, applying
// cycle rollover first when the stored cycle has elapsed.
func (s *Service) GetSummary(ctx context.Context, userID uint64) (Summary, error) {
	if s == nil || s.db == nil {
		return Summary{}, errors.New("ledger: not initialized")
	}
	if userID == 0 {
		return Summary{}, errors.New("ledger: missing user id")
	}

	now := s.nowFn()
	var summary Summary
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		account, errAccount := s.lockAccount(tx, userID, now)
		if errAccount != nil {
			return errAccount
		}
		if errRoll := s.rollCycleLocked(tx, account, now); errRoll != nil {
			return errRoll
		}
		balances, errBalances := loadBalances(tx, account.ID)
		if errBalances != nil {
			return errBalances
		}
		user, plan, errPlan := loadUserPlan(tx, userID)
		if errPlan != nil {
			return errPlan
		}
		summary = calculateSummary(account, balances, plan, user.HasActivePlan(now), now)
		return nil
	})
	if errTx != nil {
		return Summary{}, errTx
	}
	return summary, nil
}

// PreflightCheck verifies that at least estimatedAmount credits of the
// given type are available before the caller starts expensive work. It
// reserves nothing; the caller deducts the actual amount afterwards.
func (s *Service) PreflightCheck(ctx context.Context, userID uint64, creditType models.CreditType, estimatedAmount int64) error {
	if !creditType.Valid() {
		return fmt.Errorf("ledger: unknown credit type %q", creditType)
	}
	if estimatedAmount < 0 {
		return fmt.Errorf("ledger: negative preflight amount %d", estimatedAmount)
	}
	if estimatedAmount == 0 {
		return nil
	}

	now := s.nowFn()
	return dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		account, errAccount := s.lockAccount(tx, userID, now)
		if errAccount != nil {
			return errAccount
		}
		if errRoll := s.rollCycleLocked(tx, account, now); errRoll != nil {
			return errRoll
		}
		balances, errBalances := loadBalances(tx, account.ID)
		if errBalances != nil {
			return errBalances
		}
		user, plan, errPlan := loadUserPlan(tx, userID)
		if errPlan != nil {
			return errPlan
		}
		summary := calculateSummary(account, balances, plan, user.HasActivePlan(now), now)
		entry := summary.Get(creditType)
		if entry.Available >= estimatedAmount {
			return nil
		}
		// Out of credits entirely: the actionable error depends on the
		// subscription state, not the balance arithmetic.
		if entry.Available == 0 {
			if user.PlanID == nil {
				return &SubscriptionRequiredError{}
			}
			if user.PlanExpired(now) {
				return &SubscriptionExpiredError{}
			}
		}
		return &InsufficientCreditError{CreditType: creditType, Requested: estimatedAmount, Available: entry.Available}
	})
}

// Deduct atomically removes amount credits of the given type, drawing
// buckets down in priority order: addon balance, then admin balance,
// then trial balance (offer credits only), then the plan usage counter.
// The whole operation fails with InsufficientCreditError when the
// available balance is short; a zero amount is a no-op and writes no
// audit entry.
func (s *Service) Deduct(ctx context.Context, userID uint64, creditType models.CreditType, amount int64, txType models.TransactionType, description string, metadata map[string]any) error {
	if !creditType.Valid() {
		return fmt.Errorf("ledger: unknown credit type %q", creditType)
	}
	if amount < 0 {
		return fmt.Errorf("ledger: negative deduction amount %d", amount)
	}
	if amount == 0 {
		return nil
	}

	now := s.nowFn()
	return dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		account, errAccount := s.lockAccount(tx, userID, now)
		if errAccount != nil {
			return errAccount
		}
		if errRoll := s.rollCycleLocked(tx, account, now); errRoll != nil {
			return errRoll
		}
		balance, errBalance := lockBalance(tx, account.ID, creditType)
		if errBalance != nil {
			return errBalance
		}
		user, plan, errPlan := loadUserPlan(tx, userID)
		if errPlan != nil {
			return errPlan
		}

		summary := calculateSummary(account, []models.CreditBalance{*balance}, plan, user.HasActivePlan(now), now)
		entry := summary.Get(creditType)
		if entry.Available < amount {
			return &InsufficientCreditError{CreditType: creditType, Requested: amount, Available: entry.Available}
		}

		remaining := amount
		take := func(bucket int64) int64 {
			taken := bucket
			if taken > remaining {
				taken = remaining
			}
			remaining -= taken
			return taken
		}

		fromAddon := take(balance.AddonBalance)
		fromAdmin := take(balance.AdminBalance)
		fromTrial := take(entry.TrialBalance)

		updates := map[string]any{
			"addon_balance": balance.AddonBalance - fromAddon,
			"admin_balance": balance.AdminBalance - fromAdmin,
			"updated_at":    now,
		}
		if fromTrial > 0 {
			updates["trial_balance"] = balance.TrialBalance - fromTrial
		}
		if remaining > 0 {
			updates["used_this_cycle"] = balance.UsedThisCycle + remaining
		}
		if errUpdate := tx.Model(&models.CreditBalance{}).
			Where("id = ?", balance.ID).
			Updates(updates).Error; errUpdate != nil {
			return errUpdate
		}
		if fromTrial > 0 {
			if errAccountUpdate := tx.Model(&models.CreditAccount{}).
				Where("id = ?", account.ID).
				Update("trial_offer_credits_used", gorm.Expr("trial_offer_credits_used + ?", fromTrial)).Error; errAccountUpdate != nil {
				return errAccountUpdate
			}
		}

		return appendAudit(tx, userID, txType, creditType, -amount, description, metadata, now)
	})
}

// Grant adds credits to a user. Purchase-type transactions route to
// the addon bucket, everything else to the admin bucket. The account is
// created lazily when absent. The audit entry is appended after the
// balance transaction commits; an audit failure is logged, never
// returned, so the balance mutation stands on its own.
func (s *Service) Grant(ctx context.Context, userID uint64, creditType models.CreditType, amount int64, txType models.TransactionType, description string, metadata map[string]any) error {
	if !creditType.Valid() {
		return fmt.Errorf("ledger: unknown credit type %q", creditType)
	}
	if amount <= 0 {
		return fmt.Errorf("ledger: grant amount must be positive, got %d", amount)
	}

	now := s.nowFn()
	column := "admin_balance"
	if txType.IsPurchase() {
		column = "addon_balance"
	}

	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		account, errAccount := s.lockAccount(tx, userID, now)
		if errAccount != nil {
			return errAccount
		}
		if errRoll := s.rollCycleLocked(tx, account, now); errRoll != nil {
			return errRoll
		}
		balance, errBalance := lockBalance(tx, account.ID, creditType)
		if errBalance != nil {
			return errBalance
		}
		return tx.Model(&models.CreditBalance{}).
			Where("id = ?", balance.ID).
			Updates(map[string]any{
				column:       gorm.Expr(column+" + ?", amount),
				"updated_at": now,
			}).Error
	})
	if errTx != nil {
		return errTx
	}

	if errAudit := appendAudit(s.db.WithContext(ctx), userID, txType, creditType, amount, description, metadata, now); errAudit != nil {
		log.WithError(errAudit).WithField("user_id", userID).Warn("ledger: grant audit write failed")
	}
	return nil
}

// Refund returns previously deducted usage by decrementing the plan
// usage counter, floored at zero. Refunds are best-effort bookkeeping:
// failures are logged and swallowed so the business action that
// triggered the refund (for example a project deletion) is never
// blocked.
func (s *Service) Refund(ctx context.Context, userID uint64, creditType models.CreditType, amount int64, txType models.TransactionType, description string, metadata map[string]any) {
	if !creditType.Valid() || amount <= 0 {
		return
	}

	now := s.nowFn()
	errTx := dbutil.RunInTx(ctx, s.db, func(tx *gorm.DB) error {
		account, errAccount := s.lockAccount(tx, userID, now)
		if errAccount != nil {
			return errAccount
		}
		if errRoll := s.rollCycleLocked(tx, account, now); errRoll != nil {
			return errRoll
		}
		balance, errBalance := lockBalance(tx, account.ID, creditType)
		if errBalance != nil {
			return errBalance
		}
		restored := balance.UsedThisCycle
		if restored > amount {
			restored = amount
		}
		if restored == 0 {
			return nil
		}
		return tx.Model(&models.CreditBalance{}).
			Where("id = ?", balance.ID).
			Updates(map[string]any{
				"used_this_cycle": balance.UsedThisCycle - restored,
				"updated_at":      now,
			}).Error
	})
	if errTx != nil {
		log.WithError(errTx).WithField("user_id", userID).Warn("ledger: refund failed")
		return
	}

	if errAudit := appendAudit(s.db.WithContext(ctx), userID, txType, creditType, amount, description, metadata, now); errAudit != nil {
		log.WithError(errAudit).WithField("user_id", userID).Warn("ledger: refund audit write failed")
	}
}

// ListTransactions returns the user's audit entries, newest first.
func (s *Service) ListTransactions(ctx context.Context, userID uint64, limit int) ([]models.CreditTransaction, error) {
	if userID == 0 {
		return nil, errors.New("ledger: missing user id")
	}
	if limit < 1 || limit > 200 {
		limit = 50
	}
	var rows []models.CreditTransaction
	if errFind := s.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&rows).Error; errFind != nil {
		return nil, errFind
	}
	return rows, nil
}

// lockAccount loads the user's account under an update lock, creating
// it first when absent. The anchor day of a lazily created account is
// the creation day.
func (s *Service) lockAccount(tx *gorm.DB, userID uint64, now time.Time) (*models.CreditAccount, error) {
	var account models.CreditAccount
	errFind := dbutil.WithUpdateLock(tx).Where("user_id = ?", userID).First(&account).Error
	if errFind == nil {
		return &account, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	start, end := CycleBounds(now.Day(), now)
	fresh := models.CreditAccount{
		UserID:            userID,
		CycleAnchorDay:    now.Day(),
		BillingCycleStart: start,
		BillingCycleEnd:   end,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	if errCreate := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(&fresh).Error; errCreate != nil {
		return nil, errCreate
	}
	if errReload := dbutil.WithUpdateLock(tx).Where("user_id = ?", userID).First(&account).Error; errReload != nil {
		return nil, errReload
	}
	return &account, nil
}

// rollCycleLocked advances the billing cycle when it has elapsed,
// resetting every usage counter. Must run with the account row locked,
// inside the same transaction as whatever read or deduction triggered
// the check, so no caller observes a stale boundary mixed with
// post-rollover counters.
func (s *Service) rollCycleLocked(tx *gorm.DB, account *models.CreditAccount, now time.Time) error {
	if !now.After(account.BillingCycleEnd) {
		return nil
	}

	start, end := CycleBounds(account.CycleAnchorDay, now)
	if errUpdate := tx.Model(&models.CreditAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"billing_cycle_start": start,
			"billing_cycle_end":   end,
			"updated_at":          now,
		}).Error; errUpdate != nil {
		return errUpdate
	}
	if errReset := tx.Model(&models.CreditBalance{}).
		Where("account_id = ? AND used_this_cycle <> 0", account.ID).
		Updates(map[string]any{
			"used_this_cycle": 0,
			"updated_at":      now,
		}).Error; errReset != nil {
		return errReset
	}

	account.BillingCycleStart = start
	account.BillingCycleEnd = end
	return nil
}

// lockBalance loads the balance row for one credit type under an update
// lock, creating a zero row when absent.
func lockBalance(tx *gorm.DB, accountID uint64, creditType models.CreditType) (*models.CreditBalance, error) {
	var balance models.CreditBalance
	errFind := dbutil.WithUpdateLock(tx).
		Where("account_id = ? AND credit_type = ?", accountID, creditType).
		First(&balance).Error
	if errFind == nil {
		return &balance, nil
	}
	if !errors.Is(errFind, gorm.ErrRecordNotFound) {
		return nil, errFind
	}

	fresh := models.CreditBalance{AccountID: accountID, CreditType: creditType}
	if errCreate := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "account_id"}, {Name: "credit_type"}},
		DoNothing: true,
	}).Create(&fresh).Error; errCreate != nil {
		return nil, errCreate
	}
	if errReload := dbutil.WithUpdateLock(tx).
		Where("account_id = ? AND credit_type = ?", accountID, creditType).
		First(&balance).Error; errReload != nil {
		return nil, errReload
	}
	return &balance, nil
}

// loadBalances returns all balance rows of an account.
func loadBalances(tx *gorm.DB, accountID uint64) ([]models.CreditBalance, error) {
	var balances []models.CreditBalance
	if errFind := tx.Where("account_id = ?", accountID).Find(&balances).Error; errFind != nil {
		return nil, errFind
	}
	return balances, nil
}

// loadUserPlan loads the user and, when one is linked, the plan.
func loadUserPlan(tx *gorm.DB, userID uint64) (*models.User, *models.Plan, error) {
	var user models.User
	if errFind := tx.Where("id = ?", userID).First(&user).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			// Ledger access can precede user provisioning in tests and
			// imports; treat it as a planless user.
			return &models.User{ID: userID}, nil, nil
		}
		return nil, nil, errFind
	}
	if user.PlanID == nil {
		return &user, nil, nil
	}
	var plan models.Plan
	if errFind := tx.Where("id = ?", *user.PlanID).First(&plan).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return &user, nil, nil
		}
		return nil, nil, errFind
	}
	return &user, &plan, nil
}

// appendAudit writes one immutable audit entry.
func appendAudit(conn *gorm.DB, userID uint64, txType models.TransactionType, creditType models.CreditType, amount int64, description string, metadata map[string]any, now time.Time) error {
	row := models.CreditTransaction{
		UserID:      userID,
		Type:        txType,
		CreditType:  creditType,
		Amount:      amount,
		Description: description,
		CreatedAt:   now,
	}
	if len(metadata) > 0 {
		payload, errMarshal := json.Marshal(metadata)
		if errMarshal != nil {
			return fmt.Errorf("ledger: marshal audit metadata: %w", errMarshal)
		}
		row.Metadata = datatypes.JSON(payload)
	}
	return conn.Create(&row).Error
}
