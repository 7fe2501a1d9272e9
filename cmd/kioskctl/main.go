package main

import (
	"context"
	"fmt"
	"os"

	"github.com/saturnino-fabrica-de-software/facegate/cmd/kioskctl/commands"
	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/config"
	"github.com/saturnino-fabrica-de-software/facegate/internal/database"
	"github.com/saturnino-fabrica-de-software/facegate/internal/repository"
)

func main() {
	if err := commands.Execute(openBackend); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func openBackend(ctx context.Context) (*commands.Backend, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}

	return &commands.Backend{
		Identities: repository.NewIdentityRepository(pool),
		Sessions:   repository.NewSessionRepository(pool),
		Audit:      audit.NewSlogLogger(config.NewLogger(cfg.Environment)),
		Close:      pool.Close,
	}, nil
}
