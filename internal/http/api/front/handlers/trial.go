package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/inkwell-ai/creditledger/internal/ledger"
)

// TrialFrontHandler serves trial activation.
type TrialFrontHandler struct {
	ledger *ledger.Service
}

// NewTrialFrontHandler constructs a TrialFrontHandler.
func NewTrialFrontHandler(ledgerService *ledger.Service) *TrialFrontHandler {
	return &TrialFrontHandler{ledger: ledgerService}
}

// Start activates the one-time trial for the current user.
func (h *TrialFrontHandler) Start(c *gin.Context) {
	userID := getUserID(c)
	if userID == 0 {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	result, errStart := h.ledger.StartTrial(c.Request.Context(), userID)
	if errStart != nil {
		var used *ledger.TrialAlreadyUsedError
		if errors.As(errStart, &used) {
			c.JSON(http.StatusConflict, gin.H{"error": used.Error(), "code": "trial_already_used"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "start trial failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"expires_at":          result.ExpiresAt,
		"offer_credits_given": result.OfferCreditsGiven,
	})
}
