package commands

import (
	"github.com/spf13/cobra"

	"keyrelay/internal/app"
	"keyrelay/internal/domain"
)

// bundleView is the JSON form of domain.DeviceKeys.
type bundleView struct {
	Device   domain.DeviceID      `json:"device"`
	ECSigned *domain.SignedPreKey `json:"ecSignedPreKey"`
	EC       *domain.PreKey       `json:"ecOneTimePreKey"`
	PQ       *domain.SignedPreKey `json:"pqPreKey"`
}

func takeCmd(c *cli) *cobra.Command {
	var target deviceFlags
	cmd := &cobra.Command{
		Use:   "take",
		Short: "Take one session bundle for a device",
		Long: "Take one session bundle for a device. The one-time keys in the bundle are " +
			"removed from storage and will not be handed out again.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := target.accountID()
			if err != nil {
				return err
			}
			return c.withWire(cmd.Context(), func(w *app.Wire) error {
				keys, err := w.Keys.TakeDeviceKeys(cmd.Context(), account, target.device)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), bundleView{
					Device:   keys.Device,
					ECSigned: keys.ECSigned.Ptr(),
					EC:       keys.EC.Ptr(),
					PQ:       keys.PQ.Ptr(),
				})
			})
		},
	}
	target.register(cmd)
	return cmd
}
