package payments

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/db"
	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
)

// fakeVerifier returns a fixed amount per invoice.
type fakeVerifier struct {
	amounts map[string]float64
	err     error
}

func (f *fakeVerifier) Verify(_ context.Context, invoiceID string) (Charge, error) {
	if f.err != nil {
		return Charge{}, f.err
	}
	amount, ok := f.amounts[invoiceID]
	if !ok {
		return Charge{}, errors.New("unknown invoice")
	}
	return Charge{InvoiceID: invoiceID, Amount: amount, Raw: []byte(`{"source":"test"}`)}, nil
}

func newTestProcessor(t *testing.T, verifier Verifier) (*Processor, *gorm.DB) {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "payments-test.db")
	conn, err := db.Open(dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return NewProcessor(conn, verifier, ledger.NewService(conn)), conn
}

func seedUser(t *testing.T, conn *gorm.DB) uint64 {
	t.Helper()
	user := models.User{Email: "author@example.com", Name: "Author", Password: "x"}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("create user: %v", errCreate)
	}
	return user.ID
}

func TestProcessPlanPurchase_ActivatesSubscription(t *testing.T) {
	verifier := &fakeVerifier{amounts: map[string]float64{"inv-1": 29.90}}
	processor, conn := newTestProcessor(t, verifier)
	userID := seedUser(t, conn)
	plan := models.Plan{Name: "Author Pro", MonthPrice: 29.90, WordCreditsPerMonth: 50000, IsEnabled: true}
	if errPlan := conn.Create(&plan).Error; errPlan != nil {
		t.Fatalf("create plan: %v", errPlan)
	}

	payment, err := processor.ProcessPlanPurchase(context.Background(), PlanPurchase{
		InvoiceID: "inv-1", UserID: userID, PlanID: plan.ID,
	})
	if err != nil {
		t.Fatalf("process plan purchase: %v", err)
	}
	if payment.Status != models.PaymentStatusVerified {
		t.Fatalf("expected verified payment, got status %d", payment.Status)
	}

	var user models.User
	if errFind := conn.First(&user, userID).Error; errFind != nil {
		t.Fatalf("find user: %v", errFind)
	}
	if user.PlanID == nil || *user.PlanID != plan.ID {
		t.Fatalf("expected plan %d active, got %v", plan.ID, user.PlanID)
	}
	if !user.HasActivePlan(time.Now().UTC()) {
		t.Fatalf("subscription window should contain now")
	}

	var count int64
	conn.Model(&models.CreditTransaction{}).
		Where("user_id = ? AND type = ?", userID, models.TransactionTypePlanPurchase).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected 1 plan purchase audit entry, got %d", count)
	}
}

func TestProcessPlanPurchase_AmountMismatchRejects(t *testing.T) {
	verifier := &fakeVerifier{amounts: map[string]float64{"inv-2": 1.00}}
	processor, conn := newTestProcessor(t, verifier)
	userID := seedUser(t, conn)
	plan := models.Plan{Name: "Author Pro", MonthPrice: 29.90, IsEnabled: true}
	if errPlan := conn.Create(&plan).Error; errPlan != nil {
		t.Fatalf("create plan: %v", errPlan)
	}

	payment, err := processor.ProcessPlanPurchase(context.Background(), PlanPurchase{
		InvoiceID: "inv-2", UserID: userID, PlanID: plan.ID,
	})
	if !errors.Is(err, ErrAmountMismatch) {
		t.Fatalf("expected amount mismatch, got %v", err)
	}
	if payment == nil || payment.Status != models.PaymentStatusRejected {
		t.Fatalf("expected rejected payment record")
	}

	var user models.User
	if errFind := conn.First(&user, userID).Error; errFind != nil {
		t.Fatalf("find user: %v", errFind)
	}
	if user.PlanID != nil {
		t.Fatalf("rejected payment must not activate a plan")
	}
}

func TestProcessAddonPurchase_GrantsCredits(t *testing.T) {
	verifier := &fakeVerifier{amounts: map[string]float64{"inv-3": 9.90}}
	processor, conn := newTestProcessor(t, verifier)
	userID := seedUser(t, conn)
	pack := models.AddonPack{Name: "Word Booster", CreditType: models.CreditTypeWords, Credits: 10000, Price: 9.90, IsEnabled: true}
	if errPack := conn.Create(&pack).Error; errPack != nil {
		t.Fatalf("create pack: %v", errPack)
	}

	payment, err := processor.ProcessAddonPurchase(context.Background(), AddonPurchase{
		InvoiceID: "inv-3", UserID: userID, AddonID: pack.ID,
	})
	if err != nil {
		t.Fatalf("process addon purchase: %v", err)
	}
	if payment.Status != models.PaymentStatusVerified {
		t.Fatalf("expected verified payment, got status %d", payment.Status)
	}

	summary, errSummary := processor.ledger.GetSummary(context.Background(), userID)
	if errSummary != nil {
		t.Fatalf("get summary: %v", errSummary)
	}
	words := summary.Get(models.CreditTypeWords)
	if words.AddonBalance != 10000 {
		t.Fatalf("expected addon balance 10000, got %d", words.AddonBalance)
	}
}

func TestProcessAddonPurchase_DuplicateInvoiceGrantsOnce(t *testing.T) {
	verifier := &fakeVerifier{amounts: map[string]float64{"inv-4": 9.90}}
	processor, conn := newTestProcessor(t, verifier)
	userID := seedUser(t, conn)
	pack := models.AddonPack{Name: "Word Booster", CreditType: models.CreditTypeWords, Credits: 10000, Price: 9.90, IsEnabled: true}
	if errPack := conn.Create(&pack).Error; errPack != nil {
		t.Fatalf("create pack: %v", errPack)
	}

	request := AddonPurchase{InvoiceID: "inv-4", UserID: userID, AddonID: pack.ID}
	if _, err := processor.ProcessAddonPurchase(context.Background(), request); err != nil {
		t.Fatalf("first purchase: %v", err)
	}
	if _, err := processor.ProcessAddonPurchase(context.Background(), request); !errors.Is(err, ErrDuplicateInvoice) {
		t.Fatalf("expected duplicate invoice error, got %v", err)
	}

	summary, errSummary := processor.ledger.GetSummary(context.Background(), userID)
	if errSummary != nil {
		t.Fatalf("get summary: %v", errSummary)
	}
	if got := summary.Get(models.CreditTypeWords).AddonBalance; got != 10000 {
		t.Fatalf("replayed invoice must not grant twice, got %d", got)
	}
}

func TestProcessPlanPurchase_VerifierFailureNoRecord(t *testing.T) {
	verifier := &fakeVerifier{err: errors.New("gateway unreachable")}
	processor, conn := newTestProcessor(t, verifier)
	userID := seedUser(t, conn)
	plan := models.Plan{Name: "Author Pro", MonthPrice: 29.90, IsEnabled: true}
	if errPlan := conn.Create(&plan).Error; errPlan != nil {
		t.Fatalf("create plan: %v", errPlan)
	}

	if _, err := processor.ProcessPlanPurchase(context.Background(), PlanPurchase{
		InvoiceID: "inv-5", UserID: userID, PlanID: plan.ID,
	}); err == nil {
		t.Fatalf("expected verification error")
	}
	var count int64
	conn.Model(&models.Payment{}).Count(&count)
	if count != 0 {
		t.Fatalf("failed verification must not record a payment, got %d rows", count)
	}
}
