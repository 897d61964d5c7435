package ratelimit

import (
	"strings"

	"gorm.io/gorm"

	internalsettings "github.com/inkwell-ai/creditledger/internal/settings"
)

// SettingsConfig carries the rate limit options read from the settings table.
type SettingsConfig struct {
	Limit         int
	RedisEnabled  bool
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

// LoadSettings reads the rate limit configuration from the database,
// falling back to defaults for anything unset.
func LoadSettings(conn *gorm.DB) SettingsConfig {
	cfg := SettingsConfig{
		Limit:       internalsettings.DefaultRateLimit,
		RedisPrefix: internalsettings.DefaultRateLimitRedisPrefix,
	}
	if conn == nil {
		return cfg
	}
	cfg.Limit = internalsettings.IntValue(conn, internalsettings.RateLimitKey, cfg.Limit)
	cfg.RedisEnabled = internalsettings.BoolValue(conn, internalsettings.RateLimitRedisEnabledKey, false)
	if addr, ok := internalsettings.Value(conn, internalsettings.RateLimitRedisAddrKey); ok {
		cfg.RedisAddr = strings.TrimSpace(addr)
	}
	if password, ok := internalsettings.Value(conn, internalsettings.RateLimitRedisPasswordKey); ok {
		cfg.RedisPassword = password
	}
	cfg.RedisDB = internalsettings.IntValue(conn, internalsettings.RateLimitRedisDBKey, 0)
	if prefix, ok := internalsettings.Value(conn, internalsettings.RateLimitRedisPrefixKey); ok {
		if prefix = strings.TrimSpace(prefix); prefix != "" {
			cfg.RedisPrefix = prefix
		}
	}
	if cfg.RedisAddr == "" {
		cfg.RedisEnabled = false
	}
	return cfg
}
