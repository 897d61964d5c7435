package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// PlanFrontHandler serves the purchasable catalog.
type PlanFrontHandler struct {
	db *gorm.DB
}

// NewPlanFrontHandler constructs a PlanFrontHandler.
func NewPlanFrontHandler(db *gorm.DB) *PlanFrontHandler {
	return &PlanFrontHandler{db: db}
}

// List returns enabled plans.
func (h *PlanFrontHandler) List(c *gin.Context) {
	var plans []models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("is_enabled = ?", true).
		Order("sort_order ASC, created_at DESC").
		Find(&plans).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}

	out := make([]gin.H, 0, len(plans))
	for _, plan := range plans {
		out = append(out, gin.H{
			"id":                      plan.ID,
			"name":                    plan.Name,
			"month_price":             plan.MonthPrice,
			"description":             plan.Description,
			"word_credits_per_month":  plan.WordCreditsPerMonth,
			"book_credits_per_month":  plan.BookCreditsPerMonth,
			"offer_credits_per_month": plan.OfferCreditsPerMonth,
			"enables_offers":          plan.EnablesOffers,
			"sort_order":              plan.SortOrder,
		})
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// ListAddons returns enabled addon packs.
func (h *PlanFrontHandler) ListAddons(c *gin.Context) {
	var packs []models.AddonPack
	if errFind := h.db.WithContext(c.Request.Context()).
		Where("is_enabled = ?", true).
		Order("sort_order ASC, created_at DESC").
		Find(&packs).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list addon packs failed"})
		return
	}

	out := make([]gin.H, 0, len(packs))
	for _, pack := range packs {
		out = append(out, gin.H{
			"id":          pack.ID,
			"name":        pack.Name,
			"credit_type": pack.CreditType,
			"credits":     pack.Credits,
			"price":       pack.Price,
			"sort_order":  pack.SortOrder,
		})
	}
	c.JSON(http.StatusOK, gin.H{"addon_packs": out})
}
