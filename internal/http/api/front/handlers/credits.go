package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
)

// CreditFrontHandler serves the current user's ledger endpoints.
type CreditFrontHandler struct {
	ledger *ledger.Service
}

// NewCreditFrontHandler constructs a CreditFrontHandler.
func NewCreditFrontHandler(ledgerService *ledger.Service) *CreditFrontHandler {
	return &CreditFrontHandler{ledger: ledgerService}
}

// Summary returns the per-type credit summary for the current user.
func (h *CreditFrontHandler) Summary(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	summary, errSummary := h.ledger.GetSummary(c.Request.Context(), userID)
	if errSummary != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get summary failed"})
		return
	}

	out := gin.H{}
	for _, creditType := range models.AllCreditTypes {
		entry := summary.Get(creditType)
		out[string(creditType)] = gin.H{
			"plan_allotment": entry.PlanAllotment,
			"used":           entry.Used,
			"addon_balance":  entry.AddonBalance,
			"admin_balance":  entry.AdminBalance,
			"trial_balance":  entry.TrialBalance,
			"available":      entry.Available,
			"total":          entry.Total,
		}
	}
	c.JSON(http.StatusOK, gin.H{"credits": out})
}

// preflightRequest captures an estimated consumption check.
type preflightRequest struct {
	CreditType string `json:"credit_type"` // Credit type to check.
	Amount     int64  `json:"amount"`      // Estimated consumption.
}

// Preflight checks whether an estimated amount could be deducted.
func (h *CreditFrontHandler) Preflight(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body preflightRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	creditType := models.CreditType(strings.TrimSpace(body.CreditType))
	if !creditType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit_type"})
		return
	}
	if body.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount cannot be negative"})
		return
	}

	if errCheck := h.ledger.PreflightCheck(c.Request.Context(), userID, creditType, body.Amount); errCheck != nil {
		status, payload := ledgerErrorResponse(errCheck)
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// deductRequest captures an actual consumption report.
type deductRequest struct {
	CreditType  string         `json:"credit_type"` // Credit type to charge.
	Amount      int64          `json:"amount"`      // Actual consumption.
	Type        string         `json:"type"`        // Transaction type for the audit trail.
	Description string         `json:"description"` // Human-readable summary.
	Metadata    map[string]any `json:"metadata"`    // Caller context, stored as JSON.
}

// Deduct charges actual consumption against the current user's balance.
func (h *CreditFrontHandler) Deduct(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body deductRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	creditType := models.CreditType(strings.TrimSpace(body.CreditType))
	if !creditType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit_type"})
		return
	}
	if body.Amount < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount cannot be negative"})
		return
	}
	txType := usageTransactionType(creditType, strings.TrimSpace(body.Type))

	errDeduct := h.ledger.Deduct(c.Request.Context(), userID, creditType, body.Amount,
		txType, body.Description, body.Metadata)
	if errDeduct != nil {
		status, payload := ledgerErrorResponse(errDeduct)
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// refundRequest captures a usage refund, typically on project deletion.
type refundRequest struct {
	CreditType  string         `json:"credit_type"` // Credit type to return.
	Amount      int64          `json:"amount"`      // Usage units to return.
	Description string         `json:"description"` // Human-readable summary.
	Metadata    map[string]any `json:"metadata"`    // Caller context, stored as JSON.
}

// Refund returns usage units to the current user's cycle counter.
// Best-effort: always reports success.
func (h *CreditFrontHandler) Refund(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body refundRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	creditType := models.CreditType(strings.TrimSpace(body.CreditType))
	if !creditType.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid credit_type"})
		return
	}
	if body.Amount <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount must be positive"})
		return
	}

	txType := models.TransactionTypeRefund
	if creditType == models.CreditTypeBooks {
		txType = models.TransactionTypeBookDeletion
	}
	h.ledger.Refund(c.Request.Context(), userID, creditType, body.Amount,
		txType, body.Description, body.Metadata)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Transactions lists the current user's audit entries, newest first.
func (h *CreditFrontHandler) Transactions(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, errList := h.ledger.ListTransactions(c.Request.Context(), userID, limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"type":        row.Type,
			"credit_type": row.CreditType,
			"amount":      row.Amount,
			"description": row.Description,
			"created_at":  row.CreatedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"transactions": out})
}

// usageTransactionType resolves the audit type for a deduction, falling
// back to the credit type's default creation type.
func usageTransactionType(creditType models.CreditType, requested string) models.TransactionType {
	switch models.TransactionType(requested) {
	case models.TransactionTypeWordUsage, models.TransactionTypeBookCreation, models.TransactionTypeOfferCreation:
		return models.TransactionType(requested)
	}
	switch creditType {
	case models.CreditTypeBooks:
		return models.TransactionTypeBookCreation
	case models.CreditTypeOffers:
		return models.TransactionTypeOfferCreation
	default:
		return models.TransactionTypeWordUsage
	}
}

// ledgerErrorResponse maps typed ledger errors to HTTP responses with
// their user-facing messages.
func ledgerErrorResponse(err error) (int, gin.H) {
	var insufficient *ledger.InsufficientCreditError
	if errors.As(err, &insufficient) {
		return http.StatusPaymentRequired, gin.H{
			"error":       insufficient.Error(),
			"code":        "insufficient_credit",
			"credit_type": insufficient.CreditType,
			"requested":   insufficient.Requested,
			"available":   insufficient.Available,
		}
	}
	var required *ledger.SubscriptionRequiredError
	if errors.As(err, &required) {
		return http.StatusPaymentRequired, gin.H{"error": required.Error(), "code": "subscription_required"}
	}
	var expired *ledger.SubscriptionExpiredError
	if errors.As(err, &expired) {
		return http.StatusPaymentRequired, gin.H{"error": expired.Error(), "code": "subscription_expired"}
	}
	return http.StatusInternalServerError, gin.H{"error": "ledger operation failed"}
}
