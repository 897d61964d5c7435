package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

const redisBreakerCooldown = 30 * time.Second

// SettingsProvider returns the current rate limit settings.
type SettingsProvider func() SettingsConfig

// Manager coordinates the active limiter backend. When Redis is
// configured it is preferred; on Redis errors the manager trips a
// breaker and serves from the in-memory limiter until the cooldown
// passes.
type Manager struct {
	provider SettingsProvider
	memory   *MemoryLimiter

	mu          sync.Mutex
	redisClient *redis.Client
	redisLim    *RedisLimiter
	redisAddr   string
	redisDB     int
	redisPrefix string
	brokenUntil time.Time
}

// NewManager constructs a Manager. provider must not be nil.
func NewManager(provider SettingsProvider) *Manager {
	return &Manager{
		provider: provider,
		memory:   NewMemoryLimiter(),
	}
}

// Allow checks the request against the active backend using the given
// per-request limit. A limit of zero or below always allows.
func (m *Manager) Allow(ctx context.Context, key string, limit int, now time.Time) Result {
	if m == nil || limit <= 0 || key == "" {
		return Result{Allowed: true}
	}
	cfg := m.provider()
	limiter := m.pick(cfg, now)
	if limiter == nil {
		return Result{Allowed: true}
	}
	res, errAllow := limiter.Allow(ctx, key, limit, now)
	if errAllow != nil {
		if _, isRedis := limiter.(*RedisLimiter); isRedis {
			m.tripBreaker(now)
			log.WithError(errAllow).Warn("rate limit redis check failed, falling back to memory")
			res, errAllow = m.memory.Allow(ctx, key, limit, now)
		}
		if errAllow != nil {
			log.WithError(errAllow).Warn("rate limit check failed, allowing request")
			return Result{Allowed: true}
		}
	}
	return res
}

func (m *Manager) pick(cfg SettingsConfig, now time.Time) Limiter {
	if !cfg.RedisEnabled || cfg.RedisAddr == "" {
		return m.memory
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if now.Before(m.brokenUntil) {
		return m.memory
	}
	if m.redisClient == nil || m.redisAddr != cfg.RedisAddr || m.redisDB != cfg.RedisDB || m.redisPrefix != cfg.RedisPrefix {
		if m.redisClient != nil {
			_ = m.redisClient.Close()
		}
		m.redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		m.redisLim = NewRedisLimiter(m.redisClient, cfg.RedisPrefix)
		m.redisAddr = cfg.RedisAddr
		m.redisDB = cfg.RedisDB
		m.redisPrefix = cfg.RedisPrefix
	}
	return m.redisLim
}

func (m *Manager) tripBreaker(now time.Time) {
	m.mu.Lock()
	m.brokenUntil = now.Add(redisBreakerCooldown)
	m.mu.Unlock()
}
