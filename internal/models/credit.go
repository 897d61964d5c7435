package models

import "time"

// CreditType identifies a metered resource category tracked by the ledger.
type CreditType string

// CreditType constants define the closed set of metered resources.
const (
	// CreditTypeWords meters generated words.
	CreditTypeWords CreditType = "words"
	// CreditTypeBooks meters book projects.
	CreditTypeBooks CreditType = "books"
	// CreditTypeOffers meters marketing offer generations.
	CreditTypeOffers CreditType = "offers"
)

// AllCreditTypes lists every credit type in a stable order.
var AllCreditTypes = []CreditType{CreditTypeWords, CreditTypeBooks, CreditTypeOffers}

// Valid reports whether the credit type is one of the known types.
func (t CreditType) Valid() bool {
	switch t {
	case CreditTypeWords, CreditTypeBooks, CreditTypeOffers:
		return true
	}
	return false
}

// CreditAccount holds per-user billing cycle state. One row per user,
// created lazily on first ledger access. Balance fields live in
// CreditBalance rows keyed by credit type.
type CreditAccount struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID uint64 `gorm:"not null;uniqueIndex"` // Owning user ID.

	// CycleAnchorDay is the day-of-month the billing cycle starts on.
	// Defaults to the account creation day when no plan was ever chosen.
	CycleAnchorDay int `gorm:"not null;default:1"`

	BillingCycleStart time.Time `gorm:"not null"` // Current metering window start.
	BillingCycleEnd   time.Time `gorm:"not null"` // Current metering window end.

	HasUsedTrial           bool       `gorm:"not null;default:false"` // Whether the one-time trial was consumed.
	TrialExpiresAt         *time.Time ``                              // Trial window end, nil if never started.
	TrialOfferCreditsGiven int64      `gorm:"not null;default:0"`     // Offer credits granted by the trial.
	TrialOfferCreditsUsed  int64      `gorm:"not null;default:0"`     // Offer credits consumed from the trial.

	Balances []CreditBalance `gorm:"foreignKey:AccountID"` // Per-type balance rows.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (CreditAccount) TableName() string { return "credit_accounts" }

// CreditBalance holds the mutable buckets for one credit type of one
// account. All counters are non-negative at all times; mutation happens
// only inside ledger transactions holding a row lock.
type CreditBalance struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	AccountID  uint64     `gorm:"not null;uniqueIndex:idx_credit_balances_account_type"`           // Owning account ID.
	CreditType CreditType `gorm:"type:varchar(16);not null;uniqueIndex:idx_credit_balances_account_type"` // Metered resource category.

	UsedThisCycle int64 `gorm:"not null;default:0"` // Plan allotment consumed in the current cycle.
	AddonBalance  int64 `gorm:"not null;default:0"` // Purchased credits, persist across cycles.
	AdminBalance  int64 `gorm:"not null;default:0"` // Operator-granted credits, persist across cycles.
	TrialBalance  int64 `gorm:"not null;default:0"` // Trial credits (offers only), persist until trial expiry.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (CreditBalance) TableName() string { return "credit_balances" }
