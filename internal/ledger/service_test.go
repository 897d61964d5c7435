package ledger

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/inkwell-ai/creditledger/internal/db"
	"github.com/inkwell-ai/creditledger/internal/models"

	"gorm.io/gorm"
)

// testClock is a settable clock shared by a test and its service.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newTestService(t *testing.T) (*Service, *gorm.DB, *testClock) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "ledger-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	clock := &testClock{now: time.Date(2025, time.June, 10, 12, 0, 0, 0, time.UTC)}
	return newServiceAt(conn, clock.Now), conn, clock
}

// seedUser creates a user, optionally subscribed to a plan valid for a
// year from the clock's current time.
func seedUser(t *testing.T, conn *gorm.DB, clock *testClock, plan *models.Plan) uint64 {
	t.Helper()
	user := models.User{Email: "author@example.com", Name: "Author", Password: "x"}
	if plan != nil {
		if errPlan := conn.Create(plan).Error; errPlan != nil {
			t.Fatalf("create plan: %v", errPlan)
		}
		start := clock.Now().AddDate(0, -1, 0)
		end := clock.Now().AddDate(1, 0, 0)
		user.PlanID = &plan.ID
		user.PlanEffectiveStart = &start
		user.PlanEffectiveEnd = &end
	}
	if errUser := conn.Create(&user).Error; errUser != nil {
		t.Fatalf("create user: %v", errUser)
	}
	return user.ID
}

func balanceRow(t *testing.T, conn *gorm.DB, userID uint64, creditType models.CreditType) models.CreditBalance {
	t.Helper()
	var account models.CreditAccount
	if errFind := conn.Where("user_id = ?", userID).First(&account).Error; errFind != nil {
		t.Fatalf("find account: %v", errFind)
	}
	var balance models.CreditBalance
	if errFind := conn.Where("account_id = ? AND credit_type = ?", account.ID, creditType).First(&balance).Error; errFind != nil {
		t.Fatalf("find balance: %v", errFind)
	}
	return balance
}

func auditCount(t *testing.T, conn *gorm.DB, userID uint64) int64 {
	t.Helper()
	var count int64
	if errCount := conn.Model(&models.CreditTransaction{}).Where("user_id = ?", userID).Count(&count).Error; errCount != nil {
		t.Fatalf("count transactions: %v", errCount)
	}
	return count
}

func TestDeduct_PriorityOrder(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, &models.Plan{Name: "Pro", WordCreditsPerMonth: 10, IsEnabled: true})
	ctx := context.Background()

	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 5, models.TransactionTypeWordPurchase, "addon pack", nil); errGrant != nil {
		t.Fatalf("grant addon: %v", errGrant)
	}
	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 3, models.TransactionTypeAdminAllocation, "operator grant", nil); errGrant != nil {
		t.Fatalf("grant admin: %v", errGrant)
	}

	if errDeduct := svc.Deduct(ctx, userID, models.CreditTypeWords, 12, models.TransactionTypeWordUsage, "chapter draft", nil); errDeduct != nil {
		t.Fatalf("deduct: %v", errDeduct)
	}

	balance := balanceRow(t, conn, userID, models.CreditTypeWords)
	if balance.AddonBalance != 0 {
		t.Fatalf("expected addon balance 0, got %d", balance.AddonBalance)
	}
	if balance.AdminBalance != 0 {
		t.Fatalf("expected admin balance 0, got %d", balance.AdminBalance)
	}
	if balance.UsedThisCycle != 4 {
		t.Fatalf("expected used 4, got %d", balance.UsedThisCycle)
	}

	summary, errSummary := svc.GetSummary(ctx, userID)
	if errSummary != nil {
		t.Fatalf("summary: %v", errSummary)
	}
	if got := summary.Get(models.CreditTypeWords).Available; got != 6 {
		t.Fatalf("expected 6 available plan credits, got %d", got)
	}
}

func TestDeduct_OverdraftRejectedAtomically(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 10, models.TransactionTypeAdminAllocation, "seed", nil); errGrant != nil {
		t.Fatalf("grant: %v", errGrant)
	}
	before := auditCount(t, conn, userID)

	errDeduct := svc.Deduct(ctx, userID, models.CreditTypeWords, 11, models.TransactionTypeWordUsage, "too much", nil)
	var insufficient *InsufficientCreditError
	if !errors.As(errDeduct, &insufficient) {
		t.Fatalf("expected InsufficientCreditError, got %v", errDeduct)
	}
	if insufficient.Available != 10 || insufficient.Requested != 11 {
		t.Fatalf("expected available=10 requested=11, got %+v", insufficient)
	}

	balance := balanceRow(t, conn, userID, models.CreditTypeWords)
	if balance.AdminBalance != 10 || balance.UsedThisCycle != 0 {
		t.Fatalf("expected balances unchanged, got admin=%d used=%d", balance.AdminBalance, balance.UsedThisCycle)
	}
	if after := auditCount(t, conn, userID); after != before {
		t.Fatalf("expected no audit entry for rejected deduction, got %d new", after-before)
	}
}

func TestDeduct_ZeroAmountIsNoop(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, &models.Plan{Name: "Pro", WordCreditsPerMonth: 10, IsEnabled: true})
	ctx := context.Background()

	if errDeduct := svc.Deduct(ctx, userID, models.CreditTypeWords, 0, models.TransactionTypeWordUsage, "empty output", nil); errDeduct != nil {
		t.Fatalf("zero deduct: %v", errDeduct)
	}
	if count := auditCount(t, conn, userID); count != 0 {
		t.Fatalf("expected no audit entries, got %d", count)
	}
}

func TestRollover_ResetsUsageKeepsAddons(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, &models.Plan{Name: "Pro", WordCreditsPerMonth: 100, IsEnabled: true})
	ctx := context.Background()

	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 20, models.TransactionTypeWordPurchase, "addon", nil); errGrant != nil {
		t.Fatalf("grant: %v", errGrant)
	}
	if errDeduct := svc.Deduct(ctx, userID, models.CreditTypeWords, 70, models.TransactionTypeWordUsage, "drafting", nil); errDeduct != nil {
		t.Fatalf("deduct: %v", errDeduct)
	}
	// 20 addon first, then 50 from the plan allotment.
	if balance := balanceRow(t, conn, userID, models.CreditTypeWords); balance.UsedThisCycle != 50 {
		t.Fatalf("expected used 50, got %d", balance.UsedThisCycle)
	}

	var accountBefore models.CreditAccount
	if errFind := conn.Where("user_id = ?", userID).First(&accountBefore).Error; errFind != nil {
		t.Fatalf("find account: %v", errFind)
	}

	// Jump past the cycle end; the next read must roll the cycle.
	clock.Set(accountBefore.BillingCycleEnd.Add(24 * time.Hour))

	summary, errSummary := svc.GetSummary(ctx, userID)
	if errSummary != nil {
		t.Fatalf("summary: %v", errSummary)
	}
	entry := summary.Get(models.CreditTypeWords)
	if entry.Used != 0 {
		t.Fatalf("expected used reset to 0, got %d", entry.Used)
	}
	if entry.AddonBalance != 0 {
		t.Fatalf("expected addon balance 0 after earlier draw-down, got %d", entry.AddonBalance)
	}
	if entry.Available != 100 {
		t.Fatalf("expected full allotment available, got %d", entry.Available)
	}

	var accountAfter models.CreditAccount
	if errFind := conn.Where("user_id = ?", userID).First(&accountAfter).Error; errFind != nil {
		t.Fatalf("find account: %v", errFind)
	}
	if !accountAfter.BillingCycleStart.After(accountBefore.BillingCycleStart) {
		t.Fatalf("expected cycle start to advance, got %v -> %v", accountBefore.BillingCycleStart, accountAfter.BillingCycleStart)
	}
	if accountAfter.BillingCycleStart.Day() != accountBefore.CycleAnchorDay {
		t.Fatalf("expected new cycle anchored on day %d, got %v", accountBefore.CycleAnchorDay, accountAfter.BillingCycleStart)
	}
	wantStart, wantEnd := CycleBounds(accountBefore.CycleAnchorDay, clock.Now())
	if !accountAfter.BillingCycleStart.Equal(wantStart) || !accountAfter.BillingCycleEnd.Equal(wantEnd) {
		t.Fatalf("expected cycle %v..%v, got %v..%v", wantStart, wantEnd, accountAfter.BillingCycleStart, accountAfter.BillingCycleEnd)
	}
}

func TestRollover_PreservesAddonAndAdminBuckets(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, &models.Plan{Name: "Pro", WordCreditsPerMonth: 100, IsEnabled: true})
	ctx := context.Background()

	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 20, models.TransactionTypeWordPurchase, "addon", nil); errGrant != nil {
		t.Fatalf("grant addon: %v", errGrant)
	}
	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 7, models.TransactionTypeAdminAllocation, "operator", nil); errGrant != nil {
		t.Fatalf("grant admin: %v", errGrant)
	}

	var account models.CreditAccount
	if errFind := conn.Where("user_id = ?", userID).First(&account).Error; errFind != nil {
		t.Fatalf("find account: %v", errFind)
	}
	clock.Set(account.BillingCycleEnd.Add(time.Hour))

	summary, errSummary := svc.GetSummary(ctx, userID)
	if errSummary != nil {
		t.Fatalf("summary: %v", errSummary)
	}
	entry := summary.Get(models.CreditTypeWords)
	if entry.AddonBalance != 20 || entry.AdminBalance != 7 {
		t.Fatalf("expected addon=20 admin=7 across rollover, got addon=%d admin=%d", entry.AddonBalance, entry.AdminBalance)
	}
}

func TestConcurrentDeduction_ExactlyOneSucceeds(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, 10, models.TransactionTypeAdminAllocation, "seed", nil); errGrant != nil {
		t.Fatalf("grant: %v", errGrant)
	}

	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			results[slot] = svc.Deduct(ctx, userID, models.CreditTypeWords, 6, models.TransactionTypeWordUsage, "concurrent", nil)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, errDeduct := range results {
		if errDeduct == nil {
			succeeded++
			continue
		}
		var insufficient *InsufficientCreditError
		if !errors.As(errDeduct, &insufficient) {
			t.Fatalf("expected nil or InsufficientCreditError, got %v", errDeduct)
		}
	}
	if succeeded != 1 {
		t.Fatalf("expected exactly one deduction to succeed, got %d", succeeded)
	}

	balance := balanceRow(t, conn, userID, models.CreditTypeWords)
	if balance.AdminBalance != 4 {
		t.Fatalf("expected final balance 4, got %d", balance.AdminBalance)
	}
}

func TestGrant_RoutesByTransactionType(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	if errGrant := svc.Grant(ctx, userID, models.CreditTypeBooks, 2, models.TransactionTypeBookPurchase, "book pack", nil); errGrant != nil {
		t.Fatalf("purchase grant: %v", errGrant)
	}
	if errGrant := svc.Grant(ctx, userID, models.CreditTypeBooks, 1, models.TransactionTypeAdminAllocation, "goodwill", nil); errGrant != nil {
		t.Fatalf("admin grant: %v", errGrant)
	}

	balance := balanceRow(t, conn, userID, models.CreditTypeBooks)
	if balance.AddonBalance != 2 {
		t.Fatalf("expected addon balance 2, got %d", balance.AddonBalance)
	}
	if balance.AdminBalance != 1 {
		t.Fatalf("expected admin balance 1, got %d", balance.AdminBalance)
	}

	var rows []models.CreditTransaction
	if errFind := conn.Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error; errFind != nil {
		t.Fatalf("list transactions: %v", errFind)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(rows))
	}
	for _, row := range rows {
		if row.Amount <= 0 {
			t.Fatalf("expected positive audit amounts for grants, got %d", row.Amount)
		}
	}
}

func TestRefund_DecrementsUsageFlooredAtZero(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, &models.Plan{Name: "Pro", BookCreditsPerMonth: 5, IsEnabled: true})
	ctx := context.Background()

	if errDeduct := svc.Deduct(ctx, userID, models.CreditTypeBooks, 2, models.TransactionTypeBookCreation, "two projects", nil); errDeduct != nil {
		t.Fatalf("deduct: %v", errDeduct)
	}

	svc.Refund(ctx, userID, models.CreditTypeBooks, 1, models.TransactionTypeBookDeletion, "project deleted", nil)
	if balance := balanceRow(t, conn, userID, models.CreditTypeBooks); balance.UsedThisCycle != 1 {
		t.Fatalf("expected used 1 after refund, got %d", balance.UsedThisCycle)
	}

	// Refunding more than was used floors at zero, never negative.
	svc.Refund(ctx, userID, models.CreditTypeBooks, 10, models.TransactionTypeBookDeletion, "bulk delete", nil)
	if balance := balanceRow(t, conn, userID, models.CreditTypeBooks); balance.UsedThisCycle != 0 {
		t.Fatalf("expected used 0 after over-refund, got %d", balance.UsedThisCycle)
	}
}

func TestStartTrial_SingleUse(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	result, errTrial := svc.StartTrial(ctx, userID)
	if errTrial != nil {
		t.Fatalf("start trial: %v", errTrial)
	}
	if result.OfferCreditsGiven <= 0 {
		t.Fatalf("expected positive trial offer credits, got %d", result.OfferCreditsGiven)
	}
	if !result.ExpiresAt.After(clock.Now()) {
		t.Fatalf("expected trial expiry in the future, got %v", result.ExpiresAt)
	}

	if balance := balanceRow(t, conn, userID, models.CreditTypeOffers); balance.TrialBalance != result.OfferCreditsGiven {
		t.Fatalf("expected trial balance %d, got %d", result.OfferCreditsGiven, balance.TrialBalance)
	}

	// A second start fails even after the first trial expired.
	clock.Set(result.ExpiresAt.AddDate(0, 2, 0))
	_, errAgain := svc.StartTrial(ctx, userID)
	var alreadyUsed *TrialAlreadyUsedError
	if !errors.As(errAgain, &alreadyUsed) {
		t.Fatalf("expected TrialAlreadyUsedError, got %v", errAgain)
	}
}

func TestTrialCredits_SpendableForOffersWhileActive(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	result, errTrial := svc.StartTrial(ctx, userID)
	if errTrial != nil {
		t.Fatalf("start trial: %v", errTrial)
	}

	if errDeduct := svc.Deduct(ctx, userID, models.CreditTypeOffers, 1, models.TransactionTypeOfferCreation, "first offer", nil); errDeduct != nil {
		t.Fatalf("deduct trial offer credit: %v", errDeduct)
	}
	if balance := balanceRow(t, conn, userID, models.CreditTypeOffers); balance.TrialBalance != result.OfferCreditsGiven-1 {
		t.Fatalf("expected trial balance %d, got %d", result.OfferCreditsGiven-1, balance.TrialBalance)
	}

	// Expired trial credits are no longer spendable.
	clock.Set(result.ExpiresAt.Add(time.Hour))
	errExpired := svc.Deduct(ctx, userID, models.CreditTypeOffers, 1, models.TransactionTypeOfferCreation, "late offer", nil)
	var insufficient *InsufficientCreditError
	if !errors.As(errExpired, &insufficient) {
		t.Fatalf("expected InsufficientCreditError after trial expiry, got %v", errExpired)
	}
}

func TestPreflight_SubscriptionErrors(t *testing.T) {
	svc, conn, clock := newTestService(t)
	ctx := context.Background()

	// Never subscribed, no credits at all.
	noPlanUser := seedUser(t, conn, clock, nil)
	errRequired := svc.PreflightCheck(ctx, noPlanUser, models.CreditTypeWords, 100)
	var required *SubscriptionRequiredError
	if !errors.As(errRequired, &required) {
		t.Fatalf("expected SubscriptionRequiredError, got %v", errRequired)
	}

	// Plan whose effective window has lapsed.
	plan := models.Plan{Name: "Pro", WordCreditsPerMonth: 100, IsEnabled: true}
	if errPlan := conn.Create(&plan).Error; errPlan != nil {
		t.Fatalf("create plan: %v", errPlan)
	}
	start := clock.Now().AddDate(0, -3, 0)
	end := clock.Now().AddDate(0, -1, 0)
	expiredUser := models.User{Email: "expired@example.com", Password: "x", PlanID: &plan.ID, PlanEffectiveStart: &start, PlanEffectiveEnd: &end}
	if errUser := conn.Create(&expiredUser).Error; errUser != nil {
		t.Fatalf("create user: %v", errUser)
	}
	errExpired := svc.PreflightCheck(ctx, expiredUser.ID, models.CreditTypeWords, 100)
	var expired *SubscriptionExpiredError
	if !errors.As(errExpired, &expired) {
		t.Fatalf("expected SubscriptionExpiredError, got %v", errExpired)
	}

	// Some credits, just not enough: an insufficient-credit error, not a
	// subscription error.
	if errGrant := svc.Grant(ctx, noPlanUser, models.CreditTypeWords, 5, models.TransactionTypeWordPurchase, "small pack", nil); errGrant != nil {
		t.Fatalf("grant: %v", errGrant)
	}
	errShort := svc.PreflightCheck(ctx, noPlanUser, models.CreditTypeWords, 100)
	var insufficient *InsufficientCreditError
	if !errors.As(errShort, &insufficient) {
		t.Fatalf("expected InsufficientCreditError, got %v", errShort)
	}

	if errOK := svc.PreflightCheck(ctx, noPlanUser, models.CreditTypeWords, 5); errOK != nil {
		t.Fatalf("expected preflight to pass, got %v", errOK)
	}
}

func TestNoNegativeBalances_AcrossSequences(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, &models.Plan{Name: "Pro", WordCreditsPerMonth: 10, IsEnabled: true})
	ctx := context.Background()

	steps := []struct {
		grant  int64
		deduct int64
	}{
		{grant: 3}, {deduct: 8}, {deduct: 8}, {grant: 2}, {deduct: 7}, {deduct: 100},
	}
	for i, step := range steps {
		if step.grant > 0 {
			if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, step.grant, models.TransactionTypeWordPurchase, "pack", nil); errGrant != nil {
				t.Fatalf("step %d grant: %v", i, errGrant)
			}
		}
		if step.deduct > 0 {
			errDeduct := svc.Deduct(ctx, userID, models.CreditTypeWords, step.deduct, models.TransactionTypeWordUsage, "work", nil)
			var insufficient *InsufficientCreditError
			if errDeduct != nil && !errors.As(errDeduct, &insufficient) {
				t.Fatalf("step %d deduct: %v", i, errDeduct)
			}
		}
		balance := balanceRow(t, conn, userID, models.CreditTypeWords)
		if balance.AddonBalance < 0 || balance.AdminBalance < 0 || balance.TrialBalance < 0 || balance.UsedThisCycle < 0 {
			t.Fatalf("step %d produced a negative counter: %+v", i, balance)
		}
	}
}

func TestListTransactions_NewestFirst(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if errGrant := svc.Grant(ctx, userID, models.CreditTypeWords, int64(i+1), models.TransactionTypeAdminAllocation, "grant", nil); errGrant != nil {
			t.Fatalf("grant %d: %v", i, errGrant)
		}
	}

	rows, errList := svc.ListTransactions(ctx, userID, 10)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].Amount != 3 || rows[2].Amount != 1 {
		t.Fatalf("expected newest first, got amounts %d..%d", rows[0].Amount, rows[2].Amount)
	}
	_ = conn
}
