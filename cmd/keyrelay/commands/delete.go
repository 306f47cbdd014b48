package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"keyrelay/internal/app"
)

func deleteCmd(c *cli) *cobra.Command {
	var target deviceFlags
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every key of an account, or of one device with --device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := target.accountID()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withWire(ctx, func(w *app.Wire) error {
				if cmd.Flags().Changed("device") {
					if err := w.Keys.DeleteDevice(ctx, account, target.device); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Deleted keys of %s.%d\n", account, target.device)
					return nil
				}
				if err := w.Keys.DeleteAccount(ctx, account); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted keys of %s\n", account)
				return nil
			})
		},
	}
	target.register(cmd)
	return cmd
}
