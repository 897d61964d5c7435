package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// PlanHandler manages admin CRUD endpoints for plans.
type PlanHandler struct {
	db *gorm.DB // Database handle for plan records.
}

// NewPlanHandler constructs a plan handler.
func NewPlanHandler(db *gorm.DB) *PlanHandler {
	return &PlanHandler{db: db}
}

// createPlanRequest captures the payload for creating a plan.
type createPlanRequest struct {
	Name                 string  `json:"name"`                    // Plan name.
	MonthPrice           float64 `json:"month_price"`             // Monthly price.
	Description          string  `json:"description"`             // Plan description.
	WordCreditsPerMonth  int64   `json:"word_credits_per_month"`  // Word allotment per cycle.
	BookCreditsPerMonth  int64   `json:"book_credits_per_month"`  // Book allotment per cycle.
	OfferCreditsPerMonth int64   `json:"offer_credits_per_month"` // Offer allotment per cycle.
	EnablesOffers        bool    `json:"enables_offers"`          // Offer feature flag.
	SortOrder            int     `json:"sort_order"`              // Display order.
	RateLimit            int     `json:"rate_limit"`              // Rate limit per second.
	IsEnabled            *bool   `json:"is_enabled"`              // Optional active flag.
}

// Create validates input and inserts a new plan.
func (h *PlanHandler) Create(c *gin.Context) {
	var body createPlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.Name) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required"})
		return
	}
	if body.WordCreditsPerMonth < 0 || body.BookCreditsPerMonth < 0 || body.OfferCreditsPerMonth < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "allotments cannot be negative"})
		return
	}

	isEnabled := true
	if body.IsEnabled != nil {
		isEnabled = *body.IsEnabled
	}

	now := time.Now().UTC()
	plan := models.Plan{
		Name:                 strings.TrimSpace(body.Name),
		MonthPrice:           body.MonthPrice,
		Description:          body.Description,
		WordCreditsPerMonth:  body.WordCreditsPerMonth,
		BookCreditsPerMonth:  body.BookCreditsPerMonth,
		OfferCreditsPerMonth: body.OfferCreditsPerMonth,
		EnablesOffers:        body.EnablesOffers,
		SortOrder:            body.SortOrder,
		RateLimit:            body.RateLimit,
		IsEnabled:            isEnabled,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if errCreate := h.db.WithContext(c.Request.Context()).Create(&plan).Error; errCreate != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "create plan failed"})
		return
	}
	c.JSON(http.StatusCreated, h.formatPlan(&plan))
}

// List returns all plans, optionally filtered by enabled flag.
func (h *PlanHandler) List(c *gin.Context) {
	enabledQ := strings.TrimSpace(c.Query("is_enabled"))

	q := h.db.WithContext(c.Request.Context()).Model(&models.Plan{})
	if enabledQ != "" {
		if enabledQ == "true" || enabledQ == "1" {
			q = q.Where("is_enabled = ?", true)
		} else if enabledQ == "false" || enabledQ == "0" {
			q = q.Where("is_enabled = ?", false)
		}
	}

	var rows []models.Plan
	if errFind := q.Order("sort_order ASC, created_at DESC").Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list plans failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, h.formatPlan(&row))
	}
	c.JSON(http.StatusOK, gin.H{"plans": out})
}

// Get fetches a plan by ID.
func (h *PlanHandler) Get(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var plan models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&plan, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}
	c.JSON(http.StatusOK, h.formatPlan(&plan))
}

// updatePlanRequest captures optional fields for plan updates.
type updatePlanRequest struct {
	Name                 *string  `json:"name"`                    // Optional name update.
	MonthPrice           *float64 `json:"month_price"`             // Optional monthly price.
	Description          *string  `json:"description"`             // Optional description.
	WordCreditsPerMonth  *int64   `json:"word_credits_per_month"`  // Optional word allotment.
	BookCreditsPerMonth  *int64   `json:"book_credits_per_month"`  // Optional book allotment.
	OfferCreditsPerMonth *int64   `json:"offer_credits_per_month"` // Optional offer allotment.
	EnablesOffers        *bool    `json:"enables_offers"`          // Optional offer flag.
	SortOrder            *int     `json:"sort_order"`              // Optional display order.
	RateLimit            *int     `json:"rate_limit"`              // Optional rate limit per second.
	IsEnabled            *bool    `json:"is_enabled"`              // Optional active flag.
}

// Update validates and applies plan field updates.
func (h *PlanHandler) Update(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body updatePlanRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}

	var existing models.Plan
	if errFind := h.db.WithContext(c.Request.Context()).First(&existing, id).Error; errFind != nil {
		if errors.Is(errFind, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "query failed"})
		return
	}

	updates := map[string]any{
		"updated_at": time.Now().UTC(),
	}
	if body.Name != nil {
		n := strings.TrimSpace(*body.Name)
		if n == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "name cannot be empty"})
			return
		}
		updates["name"] = n
	}
	if body.MonthPrice != nil {
		updates["month_price"] = *body.MonthPrice
	}
	if body.Description != nil {
		updates["description"] = *body.Description
	}
	if body.WordCreditsPerMonth != nil {
		if *body.WordCreditsPerMonth < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "allotments cannot be negative"})
			return
		}
		updates["word_credits_per_month"] = *body.WordCreditsPerMonth
	}
	if body.BookCreditsPerMonth != nil {
		if *body.BookCreditsPerMonth < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "allotments cannot be negative"})
			return
		}
		updates["book_credits_per_month"] = *body.BookCreditsPerMonth
	}
	if body.OfferCreditsPerMonth != nil {
		if *body.OfferCreditsPerMonth < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "allotments cannot be negative"})
			return
		}
		updates["offer_credits_per_month"] = *body.OfferCreditsPerMonth
	}
	if body.EnablesOffers != nil {
		updates["enables_offers"] = *body.EnablesOffers
	}
	if body.SortOrder != nil {
		updates["sort_order"] = *body.SortOrder
	}
	if body.RateLimit != nil {
		updates["rate_limit"] = *body.RateLimit
	}
	if body.IsEnabled != nil {
		updates["is_enabled"] = *body.IsEnabled
	}

	res := h.db.WithContext(c.Request.Context()).Model(&models.Plan{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Delete removes a plan by ID. Users keep their subscription window; the
// ledger treats a missing plan as zero allotment.
func (h *PlanHandler) Delete(c *gin.Context) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Delete(&models.Plan{}, id)
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "delete failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Enable marks a plan purchasable.
func (h *PlanHandler) Enable(c *gin.Context) {
	h.setEnabled(c, true)
}

// Disable hides a plan from the catalog.
func (h *PlanHandler) Disable(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *PlanHandler) setEnabled(c *gin.Context, enabled bool) {
	id, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	res := h.db.WithContext(c.Request.Context()).Model(&models.Plan{}).
		Where("id = ?", id).
		Updates(map[string]any{"is_enabled": enabled, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	if res.RowsAffected == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *PlanHandler) formatPlan(plan *models.Plan) gin.H {
	return gin.H{
		"id":                      plan.ID,
		"name":                    plan.Name,
		"month_price":             plan.MonthPrice,
		"description":             plan.Description,
		"word_credits_per_month":  plan.WordCreditsPerMonth,
		"book_credits_per_month":  plan.BookCreditsPerMonth,
		"offer_credits_per_month": plan.OfferCreditsPerMonth,
		"enables_offers":          plan.EnablesOffers,
		"sort_order":              plan.SortOrder,
		"rate_limit":              plan.RateLimit,
		"is_enabled":              plan.IsEnabled,
		"created_at":              plan.CreatedAt,
		"updated_at":              plan.UpdatedAt,
	}
}
