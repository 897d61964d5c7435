package models

import (
	"time"

	"gorm.io/datatypes"
)

// PaymentKind identifies what a payment purchased.
type PaymentKind int

// PaymentKind constants define purchase categories.
const (
	// PaymentKindPlan purchases a subscription plan.
	PaymentKindPlan PaymentKind = 1
	// PaymentKindAddon purchases an addon credit pack.
	PaymentKindAddon PaymentKind = 2
)

// PaymentStatus represents the lifecycle state of a payment record.
type PaymentStatus int

// PaymentStatus constants define payment lifecycle states.
const (
	// PaymentStatusVerified marks a gateway charge that matched the expected amount.
	PaymentStatusVerified PaymentStatus = 1
	// PaymentStatusRejected marks a gateway charge that failed verification.
	PaymentStatusRejected PaymentStatus = 2
)

// Payment records the outcome of one payment-gateway callback. The ledger
// grant happens only for verified payments; rejected rows are kept for
// operator review.
type Payment struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	InvoiceID string `gorm:"type:varchar(255);not null;uniqueIndex"` // Gateway invoice identifier.
	UserID    uint64 `gorm:"not null;index"`                         // Paying user ID.

	Kind    PaymentKind `gorm:"not null"` // What was purchased.
	PlanID  *uint64     `gorm:"index"`    // Purchased plan, for plan payments.
	AddonID *uint64     `gorm:"index"`    // Purchased addon pack, for addon payments.

	ExpectedAmount float64 `gorm:"type:decimal(10,2);not null"` // Catalog price at verification time.
	ChargedAmount  float64 `gorm:"type:decimal(10,2);not null"` // Amount the gateway reports as paid.

	Status PaymentStatus  `gorm:"not null"`   // Verification outcome.
	Detail datatypes.JSON `gorm:"type:jsonb"` // Raw gateway payload for audit.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
}
