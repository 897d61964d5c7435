package settings

// DB config keys and defaults for settings.
const (
	// SiteNameKey is the DB config key for the UI site name.
	SiteNameKey = "SITE_NAME"
	// DefaultSiteName is the fallback UI site name.
	DefaultSiteName = "Inkwell"
	// TrialDaysKey controls how many days a started trial lasts.
	TrialDaysKey = "TRIAL_DAYS"
	// TrialOfferCreditsKey controls how many offer credits a trial grants.
	TrialOfferCreditsKey = "TRIAL_OFFER_CREDITS"
	// TrialEnablesOffersKey toggles whether an active trial unlocks offer generation.
	TrialEnablesOffersKey = "TRIAL_ENABLES_OFFERS"
	// RateLimitKey controls the default rate limit per second.
	RateLimitKey = "RATE_LIMIT"
	// RateLimitRedisEnabledKey toggles Redis-backed rate limiting.
	RateLimitRedisEnabledKey = "RATE_LIMIT_REDIS_ENABLED"
	// RateLimitRedisAddrKey defines the Redis address for rate limiting.
	RateLimitRedisAddrKey = "RATE_LIMIT_REDIS_ADDR"
	// RateLimitRedisPasswordKey defines the Redis password for rate limiting.
	RateLimitRedisPasswordKey = "RATE_LIMIT_REDIS_PASSWORD"
	// RateLimitRedisDBKey defines the Redis DB index for rate limiting.
	RateLimitRedisDBKey = "RATE_LIMIT_REDIS_DB"
	// RateLimitRedisPrefixKey defines the Redis key prefix for rate limiting.
	RateLimitRedisPrefixKey = "RATE_LIMIT_REDIS_PREFIX"
	// DefaultTrialDays is the fallback trial duration in days.
	DefaultTrialDays = 7
	// DefaultTrialOfferCredits is the fallback trial offer credit grant.
	DefaultTrialOfferCredits = 3
	// DefaultTrialEnablesOffers sets the trial offer-unlock default.
	DefaultTrialEnablesOffers = true
	// DefaultRateLimit is the fallback rate limit (0 means unlimited).
	DefaultRateLimit = 0
	// DefaultRateLimitRedisPrefix is the fallback Redis key prefix.
	DefaultRateLimitRedisPrefix = "inkwell:rl"
)
