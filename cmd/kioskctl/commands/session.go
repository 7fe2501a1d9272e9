package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
)

func newSessionCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Inspect or reset the face-login session",
	}

	cmd.AddCommand(newSessionShowCmd(open))
	cmd.AddCommand(newSessionClearCmd(open))

	return cmd
}

// The raw slot is shown; expiry is only applied by the dashboard.
func newSessionShowCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the raw session slot",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				session, err := b.Sessions.Get(ctx)
				if err != nil {
					return fmt.Errorf("reading session: %w", err)
				}

				out := cmd.OutOrStdout()
				if outputFormat == "json" {
					data, err := json.MarshalIndent(session, "", "  ")
					if err != nil {
						return fmt.Errorf("marshaling JSON: %w", err)
					}
					fmt.Fprintf(out, "%s\n", data)
					return nil
				}

				if !session.Active() {
					fmt.Fprintln(out, "No active session")
					return nil
				}
				fmt.Fprintf(out, "User:    %s (id=%d)\n", *session.UserName, *session.UserID)
				fmt.Fprintf(out, "Started: %s (%s ago)\n",
					session.StartedAt.Format(time.RFC3339),
					time.Since(*session.StartedAt).Truncate(time.Second))
				return nil
			})
		},
	}
}

func newSessionClearCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Log out whoever is on the dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				if err := b.Sessions.Clear(ctx); err != nil {
					return fmt.Errorf("clearing session: %w", err)
				}

				_ = b.Audit.Log(ctx, audit.Event{
					EventType: audit.EventSessionCleared,
					Source:    auditSource,
					Success:   true,
				})

				fmt.Fprintln(cmd.OutOrStdout(), "Session cleared")
				return nil
			})
		},
	}
}
