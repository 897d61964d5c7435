package payments

import (
	"context"
	"errors"
)

// Charge is the gateway's authoritative record of one settled invoice.
type Charge struct {
	InvoiceID string
	Amount    float64
	Raw       []byte
}

// Verifier confirms a callback invoice against the payment gateway.
// Implementations must return the amount the gateway actually settled,
// never the amount reported by the caller.
type Verifier interface {
	Verify(ctx context.Context, invoiceID string) (Charge, error)
}

// UnconfiguredVerifier rejects every invoice. Used when no gateway
// integration is wired so purchase endpoints fail closed.
type UnconfiguredVerifier struct{}

// Verify always fails.
func (UnconfiguredVerifier) Verify(context.Context, string) (Charge, error) {
	return Charge{}, errors.New("payment gateway not configured")
}
