package db

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/inkwell-ai/creditledger/internal/models"
	internalsettings "github.com/inkwell-ai/creditledger/internal/settings"
	"gorm.io/gorm"
)

// Migrate applies the schema and seeds required settings rows.
func Migrate(conn *gorm.DB) error {
	if conn == nil {
		return fmt.Errorf("db: nil connection")
	}

	if errAutoMigrate := conn.AutoMigrate(
		&models.Admin{},
		&models.User{},
		&models.Plan{},
		&models.AddonPack{},
		&models.CreditAccount{},
		&models.CreditBalance{},
		&models.CreditTransaction{},
		&models.FeatureGrant{},
		&models.Payment{},
		&models.Setting{},
	); errAutoMigrate != nil {
		return fmt.Errorf("db: migrate: %w", errAutoMigrate)
	}

	if errSeed := ensureDefaultSettings(conn); errSeed != nil {
		return errSeed
	}
	return nil
}

// ensureDefaultSettings inserts missing settings rows with defaults.
func ensureDefaultSettings(conn *gorm.DB) error {
	defaults := map[string]string{
		internalsettings.SiteNameKey:           internalsettings.DefaultSiteName,
		internalsettings.TrialDaysKey:          strconv.Itoa(internalsettings.DefaultTrialDays),
		internalsettings.TrialOfferCreditsKey:  strconv.Itoa(internalsettings.DefaultTrialOfferCredits),
		internalsettings.TrialEnablesOffersKey: strconv.FormatBool(internalsettings.DefaultTrialEnablesOffers),
		internalsettings.RateLimitKey:          strconv.Itoa(internalsettings.DefaultRateLimit),
	}

	for key, value := range defaults {
		var existing models.Setting
		errFind := conn.Where("key = ?", key).First(&existing).Error
		if errFind == nil {
			continue
		}
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			return fmt.Errorf("db: read setting %s: %w", key, errFind)
		}
		if errCreate := conn.Create(&models.Setting{Key: key, Value: value}).Error; errCreate != nil {
			return fmt.Errorf("db: seed setting %s: %w", key, errCreate)
		}
	}
	return nil
}
