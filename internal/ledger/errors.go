package ledger

import (
	"fmt"

	"github.com/inkwell-ai/creditledger/internal/models"
)

// InsufficientCreditError reports that a requested amount exceeds the
// available balance of a credit type. The message is user-facing.
type InsufficientCreditError struct {
	CreditType models.CreditType // Credit type that ran short.
	Requested  int64             // Amount the caller asked for.
	Available  int64             // Amount actually available.
}

// Error implements the error interface.
func (e *InsufficientCreditError) Error() string {
	return fmt.Sprintf("insufficient %s credits: requested %d, available %d", e.CreditType, e.Requested, e.Available)
}

// SubscriptionRequiredError reports that a feature requires an active
// plan and the user has never subscribed to one.
type SubscriptionRequiredError struct{}

// Error implements the error interface.
func (e *SubscriptionRequiredError) Error() string {
	return "an active subscription is required for this feature"
}

// SubscriptionExpiredError reports that the user's plan effective window
// has lapsed.
type SubscriptionExpiredError struct{}

// Error implements the error interface.
func (e *SubscriptionExpiredError) Error() string {
	return "your subscription has expired, please renew to continue"
}

// TrialAlreadyUsedError reports that the one-time trial was already
// consumed, regardless of whether it has since expired.
type TrialAlreadyUsedError struct{}

// Error implements the error interface.
func (e *TrialAlreadyUsedError) Error() string {
	return "the free trial has already been used on this account"
}
