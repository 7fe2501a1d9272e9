// Package commands implements the kioskctl operator CLI.
package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegate/internal/domain"
)

const auditSource = "kioskctl"

var outputFormat string

type IdentityAdmin interface {
	List(ctx context.Context) ([]domain.Identity, error)
	GetByID(ctx context.Context, id int64) (*domain.Identity, error)
	Delete(ctx context.Context, id int64) error
}

type SessionAdmin interface {
	Get(ctx context.Context) (domain.Session, error)
	Clear(ctx context.Context) error
}

// Backend is what every subcommand operates on. Close releases the
// underlying connection.
type Backend struct {
	Identities IdentityAdmin
	Sessions   SessionAdmin
	Audit      audit.Logger
	Close      func()
}

// Opener connects to the store on demand so that --help works offline.
type Opener func(ctx context.Context) (*Backend, error)

// NewRootCmd builds the command tree.
func NewRootCmd(open Opener) *cobra.Command {
	root := &cobra.Command{
		Use:   "kioskctl",
		Short: "Administer the FaceGate kiosk",
		Long: `Administer the FaceGate kiosk gallery and session.

Reads DATABASE_URL from the environment or a .env file.

Examples:
  kioskctl identities list
  kioskctl identities delete 7
  kioskctl session show --format json
  kioskctl session clear`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&outputFormat, "format", "table", "Output format: table or json")

	root.AddCommand(newIdentitiesCmd(open))
	root.AddCommand(newSessionCmd(open))

	return root
}

// Execute runs the CLI against backends produced by open.
func Execute(open Opener) error {
	return NewRootCmd(open).Execute()
}

func withBackend(cmd *cobra.Command, open Opener, fn func(ctx context.Context, b *Backend) error) error {
	if outputFormat != "table" && outputFormat != "json" {
		return fmt.Errorf("invalid --format %q (use: table, json)", outputFormat)
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	b, err := open(ctx)
	if err != nil {
		return fmt.Errorf("connecting to store: %w", err)
	}
	if b.Close != nil {
		defer b.Close()
	}
	if b.Audit == nil {
		b.Audit = &audit.NoOpLogger{}
	}

	return fn(ctx, b)
}
