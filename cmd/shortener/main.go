package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/yetla/redirector/internal/auth"
	"github.com/yetla/redirector/internal/config"
	"github.com/yetla/redirector/internal/handler"
	"github.com/yetla/redirector/internal/metrics"
	"github.com/yetla/redirector/internal/repository"
	"github.com/yetla/redirector/internal/service"
	"github.com/yetla/redirector/internal/view"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.ParseFlags()
	if err != nil {
		logger, _ := zap.NewDevelopment()
		logger.Fatal("Configuration error", zap.Error(err))
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	sugar := logger.Sugar()

	sugar.Infow(
		"Starting redirect service",
		"server_address", cfg.ServerAddress,
		"base_domain", cfg.BaseDomain,
		"short_code_length", cfg.ShortCodeLength,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := repository.New(ctx, cfg.DatabaseDSN, logger)
	if err != nil {
		sugar.Fatalw("Failed to open storage", "error", err)
	}
	defer repo.Close()

	svc := service.NewService(repo, auth.NewHasher(cfg.PasswordIterations), service.Options{
		BaseDomain:    cfg.BaseDomain,
		CodeLength:    cfg.ShortCodeLength,
		AdminUser:     cfg.AdminUser,
		AdminPassword: cfg.AdminPass,
		AdminEmail:    cfg.AdminEmail,
	}, logger)

	if err := svc.EnsureDefaultAdmin(ctx); err != nil {
		sugar.Fatalw("Failed to bootstrap default admin", "error", err)
	}

	views, err := view.New()
	if err != nil {
		sugar.Fatalw("Failed to load templates", "error", err)
	}

	h := handler.NewHandler(
		svc,
		auth.NewSessionCodec(cfg.SessionSecret),
		views,
		metrics.New(),
		auth.CookieOptions{Secure: cfg.SessionCookieSecure, MaxAge: cfg.SessionMaxAge},
		logger,
	)

	server := &http.Server{
		Addr:              cfg.ServerAddress,
		Handler:           h.SetupRouter(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	go func() {
		sugar.Infow("Server starting", "address", cfg.ServerAddress)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			sugar.Fatalw(err.Error(), "event", "start server")
		}
	}()

	<-ctx.Done()
	sugar.Infow("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Errorw("Graceful shutdown failed", "error", err)
	}
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	zcfg := zap.NewDevelopmentConfig()
	if cfg.Production() {
		zcfg = zap.NewProductionConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(level)
	return zcfg.Build()
}
