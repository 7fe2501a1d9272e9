package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/camera"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/face"
	"github.com/saturnino-fabrica-de-software/facegate/internal/operator"
	"github.com/saturnino-fabrica-de-software/facegate/internal/recognition"
	"github.com/saturnino-fabrica-de-software/facegate/internal/relay"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

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
	if err := cfg.ValidateKiosk(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment)
	slog.SetDefault(logger)

	logger.Info("starting FaceGate kiosk",
		slog.String("environment", cfg.Environment),
		slog.String("detector", cfg.Detector),
		slog.String("camera", cfg.CameraDevice),
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

	// A session left over from a previous run must not log anyone in.
	if err := sessions.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear stale session: %w", err)
	}

	detector, err := face.NewDetector(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialise detector: %w", err)
	}

	capture, err := camera.Open(cfg.CameraDevice)
	if err != nil {
		_ = detector.Close()
		return fmt.Errorf("failed to open camera: %w", err)
	}

	gate := relay.Open(ctx, cfg.RelayAddress, []byte(cfg.RelayPayload), cfg.RelayTimeout, logger)

	auditLogger := audit.NewSlogLogger(logger)
	prompter := operator.NewTerminalPrompter(os.Stdin, os.Stdout)

	loop := recognition.NewLoop(
		recognition.Config{
			ProcessEveryN: cfg.ProcessEveryNFrames,
			Scale:         cfg.DownsampleFactor,
			Threshold:     cfg.RecognitionThreshold,
			Validation:    true,
		},
		recognition.Deps{
			Camera:   capture,
			Display:  camera.NewWindow(cfg.WindowTitle),
			Detector: detector,
			Gallery:  identities,
			Session:  sessions,
			Relay:    gate,
			Recorder: audit.NewRecorder(events, auditLogger, logger, cfg.AccessEventWindow),
			Enroller: recognition.NewEnroller(identities, prompter, auditLogger, logger),
			Logger:   logger,
		},
	)

	logger.Info("controls: [q] quit  [v] toggle validation  [c] enroll")

	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("recognition loop: %w", err)
	}

	logger.Info("kiosk stopped")
	return nil
}
