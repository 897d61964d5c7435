package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/inkwell-ai/creditledger/internal/config"
	handlers "github.com/inkwell-ai/creditledger/internal/http/api/admin/handlers"
	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/models"
	"github.com/inkwell-ai/creditledger/internal/security"
)

// RegisterAdminRoutes registers admin routes, middleware, and handlers.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, jwtCfg config.JWTConfig, ledgerService *ledger.Service) {
	if r == nil || db == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(db)
	r.GET("/healthz", healthHandler.Healthz)

	adminGroup := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	adminGroup.POST("/login", authHandler.Login)

	authed := adminGroup.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg))

	mfaHandler := handlers.NewMFAHandler(db)
	authed.GET("/mfa/status", mfaHandler.Status)
	authed.POST("/mfa/totp/prepare", mfaHandler.PrepareTOTP)
	authed.POST("/mfa/totp/confirm", mfaHandler.ConfirmTOTP)
	authed.POST("/mfa/totp/disable", mfaHandler.DisableTOTP)

	planHandler := handlers.NewPlanHandler(db)
	authed.POST("/plans", planHandler.Create)
	authed.GET("/plans", planHandler.List)
	authed.GET("/plans/:id", planHandler.Get)
	authed.PUT("/plans/:id", planHandler.Update)
	authed.DELETE("/plans/:id", planHandler.Delete)
	authed.POST("/plans/:id/enable", planHandler.Enable)
	authed.POST("/plans/:id/disable", planHandler.Disable)

	addonHandler := handlers.NewAddonPackHandler(db)
	authed.POST("/addon-packs", addonHandler.Create)
	authed.GET("/addon-packs", addonHandler.List)
	authed.PUT("/addon-packs/:id", addonHandler.Update)
	authed.DELETE("/addon-packs/:id", addonHandler.Delete)

	userHandler := handlers.NewUserHandler(db)
	authed.POST("/users", userHandler.Create)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id", userHandler.Update)
	authed.PUT("/users/:id/plan", userHandler.SetPlan)
	authed.POST("/users/:id/disable", userHandler.Disable)
	authed.POST("/users/:id/enable", userHandler.Enable)

	creditHandler := handlers.NewCreditHandler(db, ledgerService)
	authed.GET("/users/:id/credits", creditHandler.Summary)
	authed.POST("/users/:id/credits/grant", creditHandler.Grant)
	authed.POST("/users/:id/credits/refund", creditHandler.Refund)
	authed.GET("/users/:id/transactions", creditHandler.Transactions)

	featureGrantHandler := handlers.NewFeatureGrantHandler(db)
	authed.POST("/users/:id/feature-grants", featureGrantHandler.Upsert)
	authed.GET("/users/:id/feature-grants", featureGrantHandler.List)
	authed.DELETE("/users/:id/feature-grants/:feature", featureGrantHandler.Revoke)

	paymentHandler := handlers.NewPaymentHandler(db)
	authed.GET("/payments", paymentHandler.List)

	settingHandler := handlers.NewSettingHandler(db)
	authed.POST("/settings", settingHandler.Create)
	authed.GET("/settings", settingHandler.List)
	authed.GET("/settings/:key", settingHandler.Get)
	authed.PUT("/settings/:key", settingHandler.Update)
	authed.DELETE("/settings/:key", settingHandler.Delete)

	superAdmin := authed.Group("")
	superAdmin.Use(requireSuperAdmin())

	adminHandler := handlers.NewAdminHandler(db)
	superAdmin.POST("/admins", adminHandler.Create)
	superAdmin.GET("/admins", adminHandler.List)
	superAdmin.PUT("/admins/:id/password", adminHandler.ChangePassword)
	superAdmin.POST("/admins/:id/disable", adminHandler.Disable)
	superAdmin.POST("/admins/:id/enable", adminHandler.Enable)
}

// adminAuthMiddleware validates admin JWTs and loads admin context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminUsername", admin.Username)
		c.Set("adminIsSuperAdmin", admin.IsSuperAdmin)
		c.Next()
	}
}

// requireSuperAdmin gates admin management endpoints.
func requireSuperAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool("adminIsSuperAdmin") {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "super admin required"})
			return
		}
		c.Next()
	}
}
