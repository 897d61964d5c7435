package models

import (
	"time"

	"gorm.io/datatypes"
)

// TransactionType identifies the business reason for a ledger entry.
type TransactionType string

// TransactionType constants define audit entry categories.
const (
	// TransactionTypeWordUsage records word consumption by generation.
	TransactionTypeWordUsage TransactionType = "word_usage"
	// TransactionTypeBookCreation records a book credit consumption.
	TransactionTypeBookCreation TransactionType = "book_creation"
	// TransactionTypeOfferCreation records an offer credit consumption.
	TransactionTypeOfferCreation TransactionType = "offer_creation"
	// TransactionTypeWordPurchase records purchased addon word credits.
	TransactionTypeWordPurchase TransactionType = "word_purchase"
	// TransactionTypeBookPurchase records purchased addon book credits.
	TransactionTypeBookPurchase TransactionType = "book_purchase"
	// TransactionTypeOfferPurchase records purchased addon offer credits.
	TransactionTypeOfferPurchase TransactionType = "offer_purchase"
	// TransactionTypeAdminAllocation records an operator grant.
	TransactionTypeAdminAllocation TransactionType = "admin_allocation"
	// TransactionTypeBookDeletion records a refund for a deleted book project.
	TransactionTypeBookDeletion TransactionType = "book_deletion"
	// TransactionTypeRefund records a generic usage refund.
	TransactionTypeRefund TransactionType = "refund"
	// TransactionTypeTrialGrant records trial credits issued at trial start.
	TransactionTypeTrialGrant TransactionType = "trial_grant"
	// TransactionTypePlanPurchase records a verified plan payment.
	TransactionTypePlanPurchase TransactionType = "plan_purchase"
)

// IsPurchase reports whether the transaction type represents an addon
// purchase. Purchase-type grants route to the addon bucket; everything
// else routes to the admin bucket.
func (t TransactionType) IsPurchase() bool {
	switch t {
	case TransactionTypeWordPurchase, TransactionTypeBookPurchase, TransactionTypeOfferPurchase:
		return true
	}
	return false
}

// CreditTransaction is an append-only audit entry for every grant and
// deduction. Immutable once written; never the source of truth for
// current balance.
type CreditTransaction struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;index"` // Owning user ID.

	Type       TransactionType `gorm:"type:varchar(32);not null;index"` // Business reason.
	CreditType CreditType      `gorm:"type:varchar(16);not null"`       // Metered resource category.

	// Amount is signed: negative for deductions, positive for grants.
	Amount int64 `gorm:"not null"`

	Description string         `gorm:"type:text"`  // Human-readable summary.
	Metadata    datatypes.JSON `gorm:"type:jsonb"` // Caller-supplied context.

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index"` // Creation timestamp.
}

// TableName overrides the default table name.
func (CreditTransaction) TableName() string { return "credit_transactions" }
