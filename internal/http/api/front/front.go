package front

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/config"
	handlers "github.com/inkwell-ai/creditledger/internal/http/api/front/handlers"
	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
	"github.com/inkwell-ai/creditledger/internal/payments"
	"github.com/inkwell-ai/creditledger/internal/ratelimit"
	"github.com/inkwell-ai/creditledger/internal/security"
)

// RegisterFrontRoutes registers user-facing routes, middleware, and handlers.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, ledgerService *ledger.Service, processor *payments.Processor, limiter *ratelimit.Manager) {
	if r == nil || db == nil {
		return
	}

	group := r.Group("/v0")

	authHandler := handlers.NewAuthFrontHandler(db, jwtCfg)
	group.POST("/login", authHandler.Login)

	authed := group.Group("")
	authed.Use(userAuthMiddleware(db, jwtCfg))
	authed.Use(rateLimitMiddleware(db, limiter))

	planHandler := handlers.NewPlanFrontHandler(db)
	authed.GET("/plans", planHandler.List)
	authed.GET("/addon-packs", planHandler.ListAddons)

	creditHandler := handlers.NewCreditFrontHandler(ledgerService)
	authed.GET("/credits", creditHandler.Summary)
	authed.POST("/credits/preflight", creditHandler.Preflight)
	authed.POST("/credits/deduct", creditHandler.Deduct)
	authed.POST("/credits/refund", creditHandler.Refund)
	authed.GET("/credits/transactions", creditHandler.Transactions)

	trialHandler := handlers.NewTrialFrontHandler(ledgerService)
	authed.POST("/trial", trialHandler.Start)

	accessHandler := handlers.NewAccessFrontHandler(db, ledgerService)
	authed.GET("/access/:feature", accessHandler.Check)

	purchaseHandler := handlers.NewPurchaseFrontHandler(processor)
	authed.POST("/purchases/plan", purchaseHandler.Plan)
	authed.POST("/purchases/addon", purchaseHandler.Addon)
}

// userAuthMiddleware validates user JWTs and loads user context.
func userAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var user models.User
		if errFind := db.WithContext(c.Request.Context()).First(&user, claims.UserID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "user not found"})
			return
		}
		if !user.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "account disabled"})
			return
		}

		c.Set("userID", user.ID)
		c.Next()
	}
}

// rateLimitMiddleware enforces the per-user rate limit resolved from the
// user override, the active plan, and the settings default.
func rateLimitMiddleware(db *gorm.DB, limiter *ratelimit.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}
		userID := c.GetUint64("userID")
		if userID == 0 {
			c.Next()
			return
		}

		now := time.Now().UTC()
		limit := resolveUserLimit(c, db, userID, now)
		if limit <= 0 {
			c.Next()
			return
		}

		res := limiter.Allow(c.Request.Context(), ratelimit.UserKey(userID), limit, now)
		if !res.Allowed {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}

func resolveUserLimit(c *gin.Context, db *gorm.DB, userID uint64, now time.Time) int {
	var user models.User
	if errFind := db.WithContext(c.Request.Context()).First(&user, userID).Error; errFind != nil {
		return 0
	}
	var plan *models.Plan
	if user.PlanID != nil {
		var row models.Plan
		errPlan := db.WithContext(c.Request.Context()).First(&row, *user.PlanID).Error
		if errPlan == nil {
			plan = &row
		} else if !errors.Is(errPlan, gorm.ErrRecordNotFound) {
			return 0
		}
	}
	cfg := ratelimit.LoadSettings(db)
	return ratelimit.ResolveLimit(&user, plan, cfg.Limit, now)
}
