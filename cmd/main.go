package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"thinkpath/gatekeeper/internal/config"
	"thinkpath/gatekeeper/internal/handler"
	"thinkpath/gatekeeper/internal/model"
	"thinkpath/gatekeeper/internal/repository"
	"thinkpath/gatekeeper/internal/service"
	jwtpkg "thinkpath/gatekeeper/pkg/jwt"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// 2. Initialize logger
	logger, err := newLogger(cfg.Log)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	// 3. Connect to the database
	db, err := config.NewDB(cfg.Database)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
	}

	// 4. Auto-migrate if enabled
	if cfg.Database.AutoMigrateEnabled() {
		if err := model.AutoMigrate(db); err != nil {
			logger.Fatal("failed to auto-migrate", zap.Error(err))
		}
		logger.Info("database migration completed")
	}

	// 5. Initialize state store (Redis or in-memory)
	var stateStore repository.StateStore
	switch cfg.State.Backend {
	case "redis":
		redisClient, err := config.NewRedisClient(cfg.Database.Redis)
		if err != nil {
			logger.Fatal("failed to connect to redis", zap.Error(err))
		}
		defer redisClient.Close()
		stateStore = repository.NewRedisStateStore(redisClient)
		logger.Info("using Redis state store")
	case "memory":
		stateStore = repository.NewMemoryStateStore()
		logger.Info("using in-memory state store")
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.State.Backend))
	}

	// 6. Initialize repositories
	store := repository.NewGormStore(db)

	// 7. Initialize token verification
	keySet := jwtpkg.NewRemoteKeySet(jwtpkg.KeySetConfig{
		URL:                cfg.Auth.JWKSURL,
		Issuer:             cfg.Auth.Issuer,
		RefreshInterval:    cfg.Auth.RefreshInterval,
		MinRefreshInterval: cfg.Auth.MinRefreshInterval,
		HTTPClient:         &http.Client{Timeout: cfg.Auth.HTTPTimeout},
		Logger:             logger.Named("jwks"),
	})
	warmCtx, warmCancel := context.WithTimeout(context.Background(), cfg.Auth.HTTPTimeout)
	if err := keySet.Refresh(warmCtx); err != nil {
		// Not fatal: the set loads lazily on the first request.
		logger.Warn("initial jwks load failed", zap.Error(err))
	}
	warmCancel()
	verifier := jwtpkg.NewVerifier(cfg.Auth.Issuer, keySet, cfg.Auth.Leeway)

	// 8. Initialize services
	allowList := service.NewDomainAllowList(cfg.Admission.AllowedEmailDomains)
	if allowList.Empty() {
		logger.Info("no email domains allow-listed, admission is invite-only")
	}
	limiter := service.NewInviteAttemptLimiter(
		stateStore,
		cfg.Admission.InviteAttempts.Max,
		cfg.Admission.InviteAttempts.Window,
		logger,
	)
	accessService := service.NewAccessService(store, allowList, limiter, logger)

	mailer, err := service.NewSMTPInviteMailer(cfg.SMTP)
	if err != nil {
		logger.Fatal("invalid smtp config", zap.Error(err))
	}
	inviteService := service.NewInviteService(store.InviteCodes(), mailer, logger)

	// 9. Initialize handlers
	accessHandler := handler.NewAccessHandler(accessService, logger)
	var adminHandler *handler.AdminHandler
	if len(cfg.Admin.Subjects) > 0 {
		adminHandler = handler.NewAdminHandler(inviteService, logger)
	}

	// 10. Setup router
	router, err := handler.SetupRouter(cfg, logger, verifier, accessHandler, adminHandler)
	if err != nil {
		logger.Fatal("failed to setup router", zap.Error(err))
	}

	// 11. Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
	}

	// 12. Start server with graceful shutdown
	go func() {
		logger.Info("server starting", zap.String("addr", addr), zap.String("issuer", cfg.Auth.Issuer))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	// 13. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced to shutdown", zap.Error(err))
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server exited gracefully")
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	if cfg.Format == "json" {
		zcfg = zap.NewProductionConfig()
	}
	if cfg.Level != "" {
		level, err := zap.ParseAtomicLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zcfg.Level = level
	}
	return zcfg.Build()
}
