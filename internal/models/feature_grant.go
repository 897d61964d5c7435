package models

import "time"

// Feature identifies a gated product capability.
type Feature string

// Feature constants define the gated capabilities.
const (
	// FeatureBookGeneration gates creating book projects.
	FeatureBookGeneration Feature = "book_generation"
	// FeatureWordGeneration gates AI text generation.
	FeatureWordGeneration Feature = "word_generation"
	// FeatureOfferGeneration gates marketing offer generation.
	FeatureOfferGeneration Feature = "offer_generation"
	// FeaturePDFExport gates PDF rendering of finished books.
	FeaturePDFExport Feature = "pdf_export"
)

// Valid reports whether the feature is one of the known features.
func (f Feature) Valid() bool {
	switch f {
	case FeatureBookGeneration, FeatureWordGeneration, FeatureOfferGeneration, FeaturePDFExport:
		return true
	}
	return false
}

// FeatureGrant is a time-boxed capability unlock independent of credit
// balance, typically set by an operator. At most one row exists per
// (user, feature); re-granting overwrites the expiry.
type FeatureGrant struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID  uint64  `gorm:"not null;uniqueIndex:idx_feature_grants_user_feature"`           // Owning user ID.
	Feature Feature `gorm:"type:varchar(32);not null;uniqueIndex:idx_feature_grants_user_feature"` // Granted capability.

	ExpiresAt time.Time `gorm:"not null"`           // Grant expiry.
	GrantedBy string    `gorm:"type:varchar(255)"`  // Operator identifier.
	GrantedAt time.Time `gorm:"not null"`           // Grant timestamp.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}
