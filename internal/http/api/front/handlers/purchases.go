package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-ai/creditledger/internal/payments"
)

// PurchaseFrontHandler confirms settled invoices against the gateway and
// applies the purchase to the current user's account.
type PurchaseFrontHandler struct {
	processor *payments.Processor
}

// NewPurchaseFrontHandler constructs a PurchaseFrontHandler.
func NewPurchaseFrontHandler(processor *payments.Processor) *PurchaseFrontHandler {
	return &PurchaseFrontHandler{processor: processor}
}

// planPurchaseRequest carries the invoice for a plan purchase.
type planPurchaseRequest struct {
	InvoiceID string `json:"invoice_id"`
	PlanID    uint64 `json:"plan_id"`
}

// Plan verifies and applies a plan purchase.
func (h *PurchaseFrontHandler) Plan(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body planPurchaseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.InvoiceID) == "" || body.PlanID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_id and plan_id are required"})
		return
	}

	payment, errProcess := h.processor.ProcessPlanPurchase(c.Request.Context(), payments.PlanPurchase{
		InvoiceID: body.InvoiceID,
		UserID:    userID,
		PlanID:    body.PlanID,
	})
	if errProcess != nil {
		status, payload := purchaseErrorResponse(errProcess)
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "payment_id": payment.ID})
}

// addonPurchaseRequest carries the invoice for an addon pack purchase.
type addonPurchaseRequest struct {
	InvoiceID string `json:"invoice_id"`
	AddonID   uint64 `json:"addon_id"`
}

// Addon verifies and applies an addon pack purchase.
func (h *PurchaseFrontHandler) Addon(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	var body addonPurchaseRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if strings.TrimSpace(body.InvoiceID) == "" || body.AddonID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invoice_id and addon_id are required"})
		return
	}

	payment, errProcess := h.processor.ProcessAddonPurchase(c.Request.Context(), payments.AddonPurchase{
		InvoiceID: body.InvoiceID,
		UserID:    userID,
		AddonID:   body.AddonID,
	})
	if errProcess != nil {
		status, payload := purchaseErrorResponse(errProcess)
		c.JSON(status, payload)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "payment_id": payment.ID})
}

func purchaseErrorResponse(err error) (int, gin.H) {
	switch {
	case errors.Is(err, payments.ErrDuplicateInvoice):
		return http.StatusConflict, gin.H{"error": err.Error(), "code": "duplicate_invoice"}
	case errors.Is(err, payments.ErrAmountMismatch):
		return http.StatusUnprocessableEntity, gin.H{"error": err.Error(), "code": "amount_mismatch"}
	default:
		return http.StatusBadGateway, gin.H{"error": "payment processing failed"}
	}
}
