package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	dbutil "github.com/inkwell-ai/creditledger/internal/db"
	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
)

// amountEpsilon absorbs gateway rounding on decimal amounts.
const amountEpsilon = 0.01

// ErrDuplicateInvoice is returned when a callback names an invoice that
// was already processed. The original outcome stands.
var ErrDuplicateInvoice = errors.New("invoice already processed")

// ErrAmountMismatch is returned when the settled amount does not match
// the catalog price. The payment is recorded as rejected and no credits
// are granted.
var ErrAmountMismatch = errors.New("charged amount does not match catalog price")

// PlanPurchase describes a plan payment callback to process.
type PlanPurchase struct {
	InvoiceID string
	UserID    uint64
	PlanID    uint64
}

// AddonPurchase describes an addon pack payment callback to process.
type AddonPurchase struct {
	InvoiceID string
	UserID    uint64
	AddonID   uint64
}

// Processor verifies payment callbacks and applies the purchase:
// plan payments activate a subscription window and re-anchor the
// billing cycle, addon payments credit the purchased pack through
// the ledger.
type Processor struct {
	db       *gorm.DB
	verifier Verifier
	ledger   *ledger.Service
	nowFn    func() time.Time
}

// NewProcessor constructs a Processor.
func NewProcessor(conn *gorm.DB, verifier Verifier, ledgerService *ledger.Service) *Processor {
	return &Processor{
		db:       conn,
		verifier: verifier,
		ledger:   ledgerService,
		nowFn:    func() time.Time { return time.Now().UTC() },
	}
}

// ProcessPlanPurchase verifies and applies a plan payment. On success the
// user's subscription window covers one month from now and the billing
// cycle re-anchors to today's day of month.
func (p *Processor) ProcessPlanPurchase(ctx context.Context, purchase PlanPurchase) (*models.Payment, error) {
	invoiceID := strings.TrimSpace(purchase.InvoiceID)
	if invoiceID == "" || purchase.UserID == 0 || purchase.PlanID == 0 {
		return nil, errors.New("invoice_id, user_id and plan_id are required")
	}

	var plan models.Plan
	if errFind := p.db.WithContext(ctx).
		Where("id = ? AND is_enabled = ?", purchase.PlanID, true).
		First(&plan).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("plan %d not found", purchase.PlanID)
		}
		return nil, errFind
	}

	charge, errVerify := p.verifier.Verify(ctx, invoiceID)
	if errVerify != nil {
		return nil, fmt.Errorf("verify invoice: %w", errVerify)
	}

	payment := &models.Payment{
		InvoiceID:      invoiceID,
		UserID:         purchase.UserID,
		Kind:           models.PaymentKindPlan,
		PlanID:         &plan.ID,
		ExpectedAmount: plan.MonthPrice,
		ChargedAmount:  charge.Amount,
		Detail:         charge.Raw,
	}
	if !amountsMatch(plan.MonthPrice, charge.Amount) {
		return p.reject(ctx, payment)
	}

	now := p.nowFn()
	errTx := dbutil.RunInTx(ctx, p.db, func(tx *gorm.DB) error {
		payment.Status = models.PaymentStatusVerified
		if errCreate := tx.Create(payment).Error; errCreate != nil {
			return errCreate
		}

		start := now
		end := now.AddDate(0, 1, 0)
		res := tx.Model(&models.User{}).
			Where("id = ?", purchase.UserID).
			Updates(map[string]any{
				"plan_id":              plan.ID,
				"plan_effective_start": start,
				"plan_effective_end":   end,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %d not found", purchase.UserID)
		}
		if errAnchor := p.reanchorCycle(tx, purchase.UserID, now); errAnchor != nil {
			return errAnchor
		}
		return appendPlanAudit(tx, purchase.UserID, &plan, invoiceID, now)
	})
	if errTx != nil {
		if isUniqueViolation(errTx) {
			return nil, ErrDuplicateInvoice
		}
		return nil, errTx
	}
	return payment, nil
}

// ProcessAddonPurchase verifies and applies an addon pack payment. On
// success the pack's credits land in the user's addon bucket.
func (p *Processor) ProcessAddonPurchase(ctx context.Context, purchase AddonPurchase) (*models.Payment, error) {
	invoiceID := strings.TrimSpace(purchase.InvoiceID)
	if invoiceID == "" || purchase.UserID == 0 || purchase.AddonID == 0 {
		return nil, errors.New("invoice_id, user_id and addon_id are required")
	}

	var pack models.AddonPack
	if errFind := p.db.WithContext(ctx).
		Where("id = ? AND is_enabled = ?", purchase.AddonID, true).
		First(&pack).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("addon pack %d not found", purchase.AddonID)
		}
		return nil, errFind
	}

	charge, errVerify := p.verifier.Verify(ctx, invoiceID)
	if errVerify != nil {
		return nil, fmt.Errorf("verify invoice: %w", errVerify)
	}

	payment := &models.Payment{
		InvoiceID:      invoiceID,
		UserID:         purchase.UserID,
		Kind:           models.PaymentKindAddon,
		AddonID:        &pack.ID,
		ExpectedAmount: pack.Price,
		ChargedAmount:  charge.Amount,
		Detail:         charge.Raw,
	}
	if !amountsMatch(pack.Price, charge.Amount) {
		return p.reject(ctx, payment)
	}

	payment.Status = models.PaymentStatusVerified
	if errCreate := p.db.WithContext(ctx).Create(payment).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return nil, ErrDuplicateInvoice
		}
		return nil, errCreate
	}

	errGrant := p.ledger.Grant(ctx, purchase.UserID, pack.CreditType, pack.Credits,
		purchaseTransactionType(pack.CreditType),
		fmt.Sprintf("addon pack %q purchase", pack.Name),
		map[string]any{"invoice_id": invoiceID, "addon_id": pack.ID})
	if errGrant != nil {
		// The payment row exists and the invoice is settled; surface the
		// failure so the operator can re-credit manually.
		log.WithError(errGrant).
			WithField("invoice_id", invoiceID).
			Error("addon payment verified but credit grant failed")
		return payment, fmt.Errorf("grant addon credits: %w", errGrant)
	}
	return payment, nil
}

// reject records a failed verification. The stored row keeps both the
// expected and charged amounts for operator review.
func (p *Processor) reject(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	payment.Status = models.PaymentStatusRejected
	if errCreate := p.db.WithContext(ctx).Create(payment).Error; errCreate != nil {
		if isUniqueViolation(errCreate) {
			return nil, ErrDuplicateInvoice
		}
		return nil, errCreate
	}
	log.WithFields(log.Fields{
		"invoice_id": payment.InvoiceID,
		"expected":   payment.ExpectedAmount,
		"charged":    payment.ChargedAmount,
	}).Warn("payment rejected: amount mismatch")
	return payment, ErrAmountMismatch
}

// reanchorCycle moves the billing cycle anchor to now's day of month and
// resets the per-cycle usage counters so the fresh subscription starts
// with full allotments.
func (p *Processor) reanchorCycle(tx *gorm.DB, userID uint64, now time.Time) error {
	var account models.CreditAccount
	errFind := tx.Where("user_id = ?", userID).First(&account).Error
	if errors.Is(errFind, gorm.ErrRecordNotFound) {
		// No account yet; the ledger creates one lazily with today's
		// anchor on first use, which matches the purchase date.
		return nil
	}
	if errFind != nil {
		return errFind
	}

	anchor := now.Day()
	start, end := ledger.CycleBounds(anchor, now)
	if errUpdate := tx.Model(&models.CreditAccount{}).
		Where("id = ?", account.ID).
		Updates(map[string]any{
			"cycle_anchor_day":    anchor,
			"billing_cycle_start": start,
			"billing_cycle_end":   end,
		}).Error; errUpdate != nil {
		return errUpdate
	}
	return tx.Model(&models.CreditBalance{}).
		Where("account_id = ? AND used_this_cycle <> 0", account.ID).
		Update("used_this_cycle", 0).Error
}

func appendPlanAudit(tx *gorm.DB, userID uint64, plan *models.Plan, invoiceID string, now time.Time) error {
	meta, _ := json.Marshal(map[string]any{"invoice_id": invoiceID, "plan_id": plan.ID})
	entry := models.CreditTransaction{
		UserID:      userID,
		Type:        models.TransactionTypePlanPurchase,
		CreditType:  models.CreditTypeWords,
		Amount:      0,
		Description: fmt.Sprintf("plan %q purchase", plan.Name),
		Metadata:    meta,
		CreatedAt:   now,
	}
	return tx.Create(&entry).Error
}

func purchaseTransactionType(creditType models.CreditType) models.TransactionType {
	switch creditType {
	case models.CreditTypeBooks:
		return models.TransactionTypeBookPurchase
	case models.CreditTypeOffers:
		return models.TransactionTypeOfferPurchase
	default:
		return models.TransactionTypeWordPurchase
	}
}

func amountsMatch(expected, charged float64) bool {
	return math.Abs(expected-charged) <= amountEpsilon
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") ||
		strings.Contains(msg, "duplicate key") ||
		strings.Contains(msg, "constraint failed")
}
