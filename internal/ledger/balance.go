package ledger

import (
	"time"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// TypeSummary reports the balance state of one credit type.
type TypeSummary struct {
	PlanAllotment int64 `json:"plan_allotment"` // Per-cycle allotment from the active plan.
	Used          int64 `json:"used"`           // Plan allotment consumed this cycle.
	AddonBalance  int64 `json:"addon_balance"`  // Purchased credits remaining.
	AdminBalance  int64 `json:"admin_balance"`  // Operator-granted credits remaining.
	TrialBalance  int64 `json:"trial_balance"`  // Usable trial credits remaining.
	Available     int64 `json:"available"`      // Total spendable right now.
	Total         int64 `json:"total"`          // Allotment plus outstanding buckets.
}

// Summary reports the balance state of every credit type for one user.
type Summary struct {
	UserID     uint64                              `json:"user_id"`
	CycleStart time.Time                           `json:"cycle_start"`
	CycleEnd   time.Time                           `json:"cycle_end"`
	PlanActive bool                                `json:"plan_active"`
	Credits    map[models.CreditType]TypeSummary   `json:"credits"`
}

// Get returns the summary entry for a credit type, zero-valued when the
// type has no balance row yet.
func (s Summary) Get(creditType models.CreditType) TypeSummary {
	return s.Credits[creditType]
}

// calculateSummary derives per-type availability from the account state.
// Callers must have applied cycle rollover first or the summary will
// misreport a pre-rollover state. Pure over its inputs.
//
// available = max(0, planAllotment - used) + addons + admin (+ trial for
// offer credits while the trial is unexpired).
func calculateSummary(account *models.CreditAccount, balances []models.CreditBalance, plan *models.Plan, planActive bool, now time.Time) Summary {
	summary := Summary{
		PlanActive: planActive,
		Credits:    make(map[models.CreditType]TypeSummary, len(models.AllCreditTypes)),
	}
	if account != nil {
		summary.UserID = account.UserID
		summary.CycleStart = account.BillingCycleStart
		summary.CycleEnd = account.BillingCycleEnd
	}

	trialActive := account != nil &&
		account.TrialExpiresAt != nil &&
		now.Before(*account.TrialExpiresAt)

	byType := make(map[models.CreditType]models.CreditBalance, len(balances))
	for _, balance := range balances {
		byType[balance.CreditType] = balance
	}

	for _, creditType := range models.AllCreditTypes {
		balance := byType[creditType]

		var allotment int64
		if planActive {
			allotment = plan.AllotmentFor(creditType)
		}

		planRemaining := allotment - balance.UsedThisCycle
		if planRemaining < 0 {
			planRemaining = 0
		}

		trial := int64(0)
		if trialActive && creditType == models.CreditTypeOffers {
			trial = balance.TrialBalance
		}

		summary.Credits[creditType] = TypeSummary{
			PlanAllotment: allotment,
			Used:          balance.UsedThisCycle,
			AddonBalance:  balance.AddonBalance,
			AdminBalance:  balance.AdminBalance,
			TrialBalance:  trial,
			Available:     planRemaining + balance.AddonBalance + balance.AdminBalance + trial,
			Total:         allotment + balance.AddonBalance + balance.AdminBalance + trial,
		}
	}
	return summary
}
