package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyrelay/internal/app"
)

func migrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the key tables if they do not exist",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withWire(cmd.Context(), func(w *app.Wire) error {
				if err := w.Migrate(cmd.Context()); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Tables ready")
				return nil
			})
		},
	}
}
