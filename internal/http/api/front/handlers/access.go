package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
)

// AccessFrontHandler resolves feature access for the current user.
type AccessFrontHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewAccessFrontHandler constructs an AccessFrontHandler.
func NewAccessFrontHandler(db *gorm.DB, ledgerService *ledger.Service) *AccessFrontHandler {
	return &AccessFrontHandler{db: db, ledger: ledgerService}
}

// Check resolves access for one feature.
func (h *AccessFrontHandler) Check(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	feature := models.Feature(strings.TrimSpace(c.Param("feature")))
	if !feature.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid feature"})
		return
	}

	planEnables, errPlan := h.planEnables(c, userID, feature)
	if errPlan != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "resolve plan failed"})
		return
	}

	creditsAvailable := false
	if creditType, ok := featureCreditType(feature); ok {
		summary, errSummary := h.ledger.GetSummary(c.Request.Context(), userID)
		if errSummary != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "get summary failed"})
			return
		}
		creditsAvailable = summary.Get(creditType).Available > 0
	}

	result, errCheck := h.ledger.CheckFeatureAccess(c.Request.Context(), userID, feature, planEnables, creditsAvailable)
	if errCheck != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "check access failed"})
		return
	}
	c.JSON(http.StatusOK, result)
}

// planEnables reports whether the user's active plan unlocks the feature.
// Offer generation additionally requires the plan's offer flag.
func (h *AccessFrontHandler) planEnables(c *gin.Context, userID uint64, feature models.Feature) (bool, error) {
	var user models.User
	errFind := h.db.WithContext(c.Request.Context()).First(&user, userID).Error
	if errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errFind
	}
	if !user.HasActivePlan(time.Now().UTC()) || user.PlanID == nil {
		return false, nil
	}
	if feature != models.FeatureOfferGeneration {
		return true, nil
	}

	var plan models.Plan
	if errPlan := h.db.WithContext(c.Request.Context()).First(&plan, *user.PlanID).Error; errPlan != nil {
		if errors.Is(errPlan, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, errPlan
	}
	return plan.EnablesOffers, nil
}

// featureCreditType maps a feature to the credit type that can unlock
// it. PDF export is plan- or grant-gated only.
func featureCreditType(feature models.Feature) (models.CreditType, bool) {
	switch feature {
	case models.FeatureWordGeneration:
		return models.CreditTypeWords, true
	case models.FeatureBookGeneration:
		return models.CreditTypeBooks, true
	case models.FeatureOfferGeneration:
		return models.CreditTypeOffers, true
	}
	return "", false
}
