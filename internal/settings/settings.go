package settings

import (
	"strconv"
	"strings"

	"github.com/inkwell-ai/creditledger/internal/models"
	"gorm.io/gorm"
)

// Value reads a settings row, reporting whether it exists.
func Value(conn *gorm.DB, key string) (string, bool) {
	if conn == nil || strings.TrimSpace(key) == "" {
		return "", false
	}
	var row models.Setting
	if errFind := conn.Where("key = ?", key).Take(&row).Error; errFind != nil {
		return "", false
	}
	return strings.TrimSpace(row.Value), true
}

// IntValue reads a settings row as a non-negative integer, falling back
// when the row is missing or malformed.
func IntValue(conn *gorm.DB, key string, fallback int) int {
	raw, ok := Value(conn, key)
	if !ok {
		return fallback
	}
	parsed, errParse := strconv.Atoi(raw)
	if errParse != nil || parsed < 0 {
		return fallback
	}
	return parsed
}

// BoolValue reads a settings row as a boolean, falling back when the
// row is missing or malformed.
func BoolValue(conn *gorm.DB, key string, fallback bool) bool {
	raw, ok := Value(conn, key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return fallback
}
