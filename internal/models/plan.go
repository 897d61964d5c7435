package models

import "time"

// Plan represents a subscription plan configuration. Plans are read-only
// reference data during ledger operations; the catalog is managed through
// the admin API.
type Plan struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name        string  `gorm:"type:varchar(255);not null"`            // Plan name.
	MonthPrice  float64 `gorm:"type:decimal(10,2);not null;default:0"` // Monthly price.
	Description string  `gorm:"type:text"`                             // Plan description.

	WordCreditsPerMonth  int64 `gorm:"not null;default:0"` // Word allotment per billing cycle.
	BookCreditsPerMonth  int64 `gorm:"not null;default:0"` // Book allotment per billing cycle.
	OfferCreditsPerMonth int64 `gorm:"not null;default:0"` // Offer allotment per billing cycle.

	EnablesOffers bool `gorm:"not null;default:false"` // Whether the plan unlocks offer generation directly.

	SortOrder int `gorm:"not null;default:0"` // Display ordering weight.
	RateLimit int `gorm:"not null;default:0"` // Request rate limit per second, 0 means default.

	IsEnabled bool `gorm:"not null;default:true"` // Whether the plan can be purchased.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// AllotmentFor returns the per-cycle allotment for a credit type.
func (p *Plan) AllotmentFor(creditType CreditType) int64 {
	if p == nil {
		return 0
	}
	switch creditType {
	case CreditTypeWords:
		return p.WordCreditsPerMonth
	case CreditTypeBooks:
		return p.BookCreditsPerMonth
	case CreditTypeOffers:
		return p.OfferCreditsPerMonth
	}
	return 0
}

// AddonPack represents a purchasable credit bundle outside any plan.
// Payment verification matches the charged amount against Price.
type AddonPack struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	Name       string     `gorm:"type:varchar(255);not null"`            // Pack name.
	CreditType CreditType `gorm:"type:varchar(16);not null"`             // Credit type granted.
	Credits    int64      `gorm:"not null;default:0"`                    // Credits granted on purchase.
	Price      float64    `gorm:"type:decimal(10,2);not null;default:0"` // Pack price.

	SortOrder int  `gorm:"not null;default:0"`    // Display ordering weight.
	IsEnabled bool `gorm:"not null;default:true"` // Whether the pack can be purchased.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
