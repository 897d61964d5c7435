package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/inkwell-ai/creditledger/internal/config"
	"github.com/inkwell-ai/creditledger/internal/db"
	adminapi "github.com/inkwell-ai/creditledger/internal/http/api/admin"
	frontapi "github.com/inkwell-ai/creditledger/internal/http/api/front"
	"github.com/inkwell-ai/creditledger/internal/ledger"
	"github.com/inkwell-ai/creditledger/internal/payments"
	"github.com/inkwell-ai/creditledger/internal/ratelimit"
)

// Options carries optional collaborators for RunServer.
type Options struct {
	// Verifier confirms payment invoices with the gateway. When nil,
	// purchase endpoints stay registered but fail closed.
	Verifier payments.Verifier
}

// Migrate opens the database and runs migrations.
func Migrate(ctx context.Context, configPath string) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	return db.Migrate(conn)
}

// RunServer boots the ledger API server.
func RunServer(ctx context.Context, configPath string, opts Options) error {
	cfg, errLoad := config.Load(config.ResolveConfigPath(configPath))
	if errLoad != nil {
		return errLoad
	}
	if cfg.JWT.Secret == "" {
		return fmt.Errorf("missing jwt secret (set JWT_SECRET or `jwt.secret` in the config file)")
	}

	conn, errOpen := db.Open(cfg.DatabaseDSN)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	if errBootstrap := EnsureBootstrapAdmin(conn); errBootstrap != nil {
		return errBootstrap
	}

	verifier := opts.Verifier
	if verifier == nil {
		verifier = payments.UnconfiguredVerifier{}
	}
	ledgerService := ledger.NewService(conn)
	processor := payments.NewProcessor(conn, verifier, ledgerService)
	limiter := ratelimit.NewManager(func() ratelimit.SettingsConfig {
		return ratelimit.LoadSettings(conn)
	})

	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(requestLogMiddleware())
	engine.Use(corsMiddleware())

	adminapi.RegisterAdminRoutes(engine, conn, cfg.JWT, ledgerService)
	frontapi.RegisterFrontRoutes(engine, conn, cfg.JWT, ledgerService, processor, limiter)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Port).Info("ledger server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if errShutdown := server.Shutdown(shutdownCtx); errShutdown != nil {
			return errShutdown
		}
		return nil
	case errServe := <-errCh:
		if errServe == http.ErrServerClosed {
			return nil
		}
		return errServe
	}
}

// requestLogMiddleware logs completed requests with method, path,
// status, and latency.
func requestLogMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
		}).Debug("request completed")
	}
}

// corsMiddleware enables permissive CORS for the API.
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Authorization, Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
