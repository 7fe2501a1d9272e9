package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegate/internal/audit"
)

func newIdentitiesCmd(open Opener) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "identities",
		Aliases: []string{"identity", "id"},
		Short:   "Inspect and remove enrolled identities",
	}

	cmd.AddCommand(newIdentitiesListCmd(open))
	cmd.AddCommand(newIdentitiesDeleteCmd(open))

	return cmd
}

func newIdentitiesListCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List enrolled identities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				identities, err := b.Identities.List(ctx)
				if err != nil {
					return fmt.Errorf("listing identities: %w", err)
				}

				out := cmd.OutOrStdout()
				if outputFormat == "json" {
					data, err := json.MarshalIndent(identities, "", "  ")
					if err != nil {
						return fmt.Errorf("marshaling JSON: %w", err)
					}
					fmt.Fprintf(out, "%s\n", data)
					return nil
				}

				if len(identities) == 0 {
					fmt.Fprintln(out, "No identities enrolled")
					return nil
				}

				w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				fmt.Fprintf(w, "ID\tNAME\tPROFILE\tENROLLED\n")
				for _, identity := range identities {
					fmt.Fprintf(w, "%d\t%s\t%s\t%s\n",
						identity.ID,
						identity.Name,
						identity.Profile,
						identity.CreatedAt.Format("2006-01-02 15:04"))
				}
				if err := w.Flush(); err != nil {
					return err
				}
				fmt.Fprintf(out, "\nTotal: %d identity(ies)\n", len(identities))
				return nil
			})
		},
	}
}

func newIdentitiesDeleteCmd(open Opener) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Remove an identity from the gallery",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || id <= 0 {
				return fmt.Errorf("invalid identity id %q", args[0])
			}

			return withBackend(cmd, open, func(ctx context.Context, b *Backend) error {
				identity, err := b.Identities.GetByID(ctx, id)
				if err != nil {
					return fmt.Errorf("looking up identity %d: %w", id, err)
				}

				if err := b.Identities.Delete(ctx, id); err != nil {
					return fmt.Errorf("deleting identity %d: %w", id, err)
				}

				_ = b.Audit.Log(ctx, audit.Event{
					EventType:    audit.EventIdentityDeleted,
					IdentityID:   identity.ID,
					IdentityName: identity.Name,
					Source:       auditSource,
					Success:      true,
				})

				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s (id=%d)\n", identity.Name, identity.ID)
				return nil
			})
		},
	}
}
