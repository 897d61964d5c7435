package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
)

// CreditHandler exposes ledger operations on the admin surface: account
// inspection, manual grants and refunds, and audit history.
type CreditHandler struct {
	db     *gorm.DB
	ledger *ledger.Service
}

// NewCreditHandler constructs a credit handler.
func NewCreditHandler(db *gorm.DB, ledgerService *ledger.Service) *CreditHandler {
	return &CreditHandler{db: db, ledger: ledgerService}
}

// Summary returns the per-type credit summary for a user.
func (h *CreditHandler) Summary(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	summary, errSummary := h.ledger.GetSummary(c.Request.Context(), userID)
	if errSummary != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "get summary failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user_id": userID, "credits": formatSummary(summary)})
}

// grantRequest captures a manual credit allocation.
type grantRequest struct {
	CreditType  string `json:"credit_type"` // Credit type to grant.
	Amount      int64  `json:"amount"`      // Credits to add, must be positive.
	Description string `json:"description"` // Operator note for the audit trail.
}

// Grant adds credits to a user's admin bucket.
func (h *CreditHandler) Grant(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	var body grantRequest
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

	metadata := map[string]any{"admin_id": c.GetUint64("adminID")}
	errGrant := h.ledger.Grant(c.Request.Context(), userID, creditType, body.Amount,
		models.TransactionTypeAdminAllocation, body.Description, metadata)
	if errGrant != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "grant failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// refundRequest captures a manual usage refund.
type refundRequest struct {
	CreditType  string `json:"credit_type"` // Credit type to refund.
	Amount      int64  `json:"amount"`      // Usage units to return, must be positive.
	Description string `json:"description"` // Operator note for the audit trail.
}

// Refund returns usage units to a user's cycle counter. Best-effort:
// always reports success, matching the ledger's refund contract.
func (h *CreditHandler) Refund(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
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

	metadata := map[string]any{"admin_id": c.GetUint64("adminID")}
	h.ledger.Refund(c.Request.Context(), userID, creditType, body.Amount,
		models.TransactionTypeRefund, body.Description, metadata)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// Transactions lists a user's audit entries, newest first.
func (h *CreditHandler) Transactions(c *gin.Context) {
	userID, errParse := strconv.ParseUint(strings.TrimSpace(c.Param("id")), 10, 64)
	if errParse != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))

	rows, errList := h.ledger.ListTransactions(c.Request.Context(), userID, limit)
	if errList != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "list transactions failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transactions": formatTransactions(rows)})
}

func formatSummary(summary ledger.Summary) gin.H {
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
	return out
}

func formatTransactions(rows []models.CreditTransaction) []gin.H {
	out := make([]gin.H, 0, len(rows))
	for _, row := range rows {
		out = append(out, gin.H{
			"id":          row.ID,
			"type":        row.Type,
			"credit_type": row.CreditType,
			"amount":      row.Amount,
			"description": row.Description,
			"metadata":    row.Metadata,
			"created_at":  row.CreatedAt,
		})
	}
	return out
}
