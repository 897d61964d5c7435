package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// PaymentHandler lists payment records for operator review.
type PaymentHandler struct {
	db *gorm.DB
}

// NewPaymentHandler constructs a payment handler.
func NewPaymentHandler(db *gorm.DB) *PaymentHandler {
	return &PaymentHandler{db: db}
}

// List returns payments newest first, optionally filtered by user or status.
func (h *PaymentHandler) List(c *gin.Context) {
	q := h.db.WithContext(c.Request.Context()).Model(&models.Payment{})
	if userQ := strings.TrimSpace(c.Query("user_id")); userQ != "" {
		userID, errParse := strconv.ParseUint(userQ, 10, 64)
		if errParse != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user_id"})
			return
		}
		q = q.Where("user_id = ?", userID)
	}
	switch strings.TrimSpace(c.Query("status")) {
	case "verified":
		q = q.Where("status = ?", models.PaymentStatusVerified)
	case "rejected":
		q = q.Where("status = ?", models.PaymentStatusRejected)
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var rows []models.Payment
	if errFind := q.Order("id DESC").Limit(limit).Find(&rows).Error; errFind != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list payments failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":              row.ID,
			"invoice_id":      row.InvoiceID,
			"user_id":         row.UserID,
			"kind":            row.Kind,
			"plan_id":         row.PlanID,
			"addon_id":        row.AddonID,
			"expected_amount": row.ExpectedAmount,
			"charged_amount":  row.ChargedAmount,
			"status":          row.Status,
			"created_at":      row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"payments": out})
}
