package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/facegate/internal/api"
	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegate/internal/service"
	"github.com/saturnino-fabrica-de-software/facegate/internal/ws"
)

const retentionInterval = time.Hour

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.ValidateDashboard(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting FaceGate dashboard",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.Duration("session_ttl", cfg.SessionTTL),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MigrateOnStart {
		if err := database.MigrateUp(cfg.DatabaseURL); err != nil {
			return fmt.Errorf("failed to run migrations: %w", err)
		}
	}

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	identities := repository.NewIdentityRepository(pool)
	sessions := repository.NewSessionRepository(pool)
	events := repository.NewAccessEventRepository(pool)
	auditLogger := audit.NewSlogLogger(logger)

	dashboard := service.NewDashboardService(sessions, identities, events, auditLogger, logger, cfg.SessionTTL)

	retention := audit.NewRetention(events, auditLogger, logger, cfg.AuditRetention, retentionInterval)
	if err := retention.Start(ctx); err != nil {
		return fmt.Errorf("failed to start retention: %w", err)
	}
	defer retention.Stop()

	hub := ws.NewHub()
	go hub.Run(ctx)

	watcher := ws.NewSessionWatcher(dashboard, hub, logger, cfg.SessionPushInterval)
	go watcher.Start(ctx)
	defer watcher.Stop()

	router := api.NewRouter(logger, &api.Dependencies{
		Dashboard: dashboard,
		DB:        pool,
		Hub:       hub,
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	if err := router.Shutdown(); err != nil {
		logger.Error("shutdown error", slog.Any("error", err))
	}

	logger.Info("server stopped")
	return nil
}
