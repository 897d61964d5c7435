package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/inkwell-ai/creditledger/internal/models"
)

func TestCheckFeatureAccess_PriorityOrder(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	// Plan flag wins over everything else.
	result, errCheck := svc.CheckFeatureAccess(ctx, userID, models.FeatureOfferGeneration, true, true)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if !result.HasAccess || result.Source != AccessSourceSubscription {
		t.Fatalf("expected subscription source, got %+v", result)
	}

	// Credits next.
	result, errCheck = svc.CheckFeatureAccess(ctx, userID, models.FeatureOfferGeneration, false, true)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if !result.HasAccess || result.Source != AccessSourceCredits {
		t.Fatalf("expected credits source, got %+v", result)
	}

	// Admin grant next.
	grant := models.FeatureGrant{
		UserID:    userID,
		Feature:   models.FeatureOfferGeneration,
		ExpiresAt: clock.Now().Add(48 * time.Hour),
		GrantedBy: "ops",
		GrantedAt: clock.Now(),
	}
	if errCreate := conn.Create(&grant).Error; errCreate != nil {
		t.Fatalf("create grant: %v", errCreate)
	}
	result, errCheck = svc.CheckFeatureAccess(ctx, userID, models.FeatureOfferGeneration, false, false)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if !result.HasAccess || result.Source != AccessSourceAdminGrant {
		t.Fatalf("expected adminGrant source, got %+v", result)
	}
	if result.ExpiresAt == nil || !result.ExpiresAt.Equal(grant.ExpiresAt) {
		t.Fatalf("expected grant expiry %v, got %v", grant.ExpiresAt, result.ExpiresAt)
	}
}

func TestCheckFeatureAccess_ExpiredGrantIgnored(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	grant := models.FeatureGrant{
		UserID:    userID,
		Feature:   models.FeaturePDFExport,
		ExpiresAt: clock.Now().Add(-time.Hour),
		GrantedBy: "ops",
		GrantedAt: clock.Now().Add(-48 * time.Hour),
	}
	if errCreate := conn.Create(&grant).Error; errCreate != nil {
		t.Fatalf("create grant: %v", errCreate)
	}

	result, errCheck := svc.CheckFeatureAccess(ctx, userID, models.FeaturePDFExport, false, false)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if result.HasAccess || result.Source != AccessSourceNone {
		t.Fatalf("expected no access for expired grant, got %+v", result)
	}
}

func TestCheckFeatureAccess_TrialUnlocksOffers(t *testing.T) {
	svc, conn, clock := newTestService(t)
	userID := seedUser(t, conn, clock, nil)
	ctx := context.Background()

	if _, errTrial := svc.StartTrial(ctx, userID); errTrial != nil {
		t.Fatalf("start trial: %v", errTrial)
	}

	result, errCheck := svc.CheckFeatureAccess(ctx, userID, models.FeatureOfferGeneration, false, false)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if !result.HasAccess || result.Source != AccessSourceTrial {
		t.Fatalf("expected trial source, got %+v", result)
	}

	// The trial does not unlock unrelated features.
	result, errCheck = svc.CheckFeatureAccess(ctx, userID, models.FeatureBookGeneration, false, false)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if result.HasAccess {
		t.Fatalf("expected book generation to stay locked, got %+v", result)
	}

	// Expired trial grants nothing.
	clock.Set(clock.Now().AddDate(0, 1, 0))
	result, errCheck = svc.CheckFeatureAccess(ctx, userID, models.FeatureOfferGeneration, false, false)
	if errCheck != nil {
		t.Fatalf("check: %v", errCheck)
	}
	if result.HasAccess {
		t.Fatalf("expected expired trial to grant nothing, got %+v", result)
	}
}
