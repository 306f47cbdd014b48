package commands

import (
	"slices"

	"github.com/spf13/cobra"

	"keyrelay/internal/app"
	"keyrelay/internal/domain"
)

type deviceStatus struct {
	Device     domain.DeviceID `json:"device"`
	ECCount    int             `json:"ecCount"`
	PQCount    int             `json:"pqCount"`
	PQEnabled  bool            `json:"pqEnabled"`
	LastResort *keyView        `json:"lastResort,omitempty"`
	ECSigned   *keyView        `json:"ecSigned,omitempty"`
}

type accountStatus struct {
	Account          string            `json:"account"`
	PQEnabledDevices []domain.DeviceID `json:"pqEnabledDevices"`
	Devices          []deviceStatus    `json:"devices"`
}

func statusCmd(c *cli) *cobra.Command {
	var (
		account string
		devices []uint
	)
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Print key counts and post-quantum state of an account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := (&deviceFlags{account: account}).accountID()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			return c.withWire(ctx, func(w *app.Wire) error {
				enabled, err := w.Keys.GetPQEnabledDevices(ctx, id)
				if err != nil {
					return err
				}
				out := accountStatus{Account: id.String(), PQEnabledDevices: enabled.ToSlice()}
				slices.Sort(out.PQEnabledDevices)
				for _, d := range devices {
					st, err := statusOf(cmd, w.Keys, id, domain.DeviceID(d))
					if err != nil {
						return err
					}
					out.Devices = append(out.Devices, st)
				}
				return printJSON(cmd.OutOrStdout(), out)
			})
		},
	}
	cmd.Flags().StringVarP(&account, "account", "a", "", "account id (UUID)")
	cmd.Flags().UintSliceVarP(&devices, "device", "d", []uint{uint(domain.PrimaryDeviceID)}, "device ids to report")
	_ = cmd.MarkFlagRequired("account")
	return cmd
}

func statusOf(cmd *cobra.Command, keys domain.KeysService, account domain.AccountID, device domain.DeviceID) (deviceStatus, error) {
	ctx := cmd.Context()
	st := deviceStatus{Device: device}
	var err error
	if st.ECCount, err = keys.GetECCount(ctx, account, device); err != nil {
		return st, err
	}
	if st.PQCount, err = keys.GetPQCount(ctx, account, device); err != nil {
		return st, err
	}
	if st.PQEnabled, err = keys.IsPQEnabled(ctx, account, device); err != nil {
		return st, err
	}
	last, err := keys.GetLastResort(ctx, account, device)
	if err != nil {
		return st, err
	}
	st.LastResort = viewOf(last)
	signed, err := keys.GetECSignedPreKey(ctx, account, device)
	if err != nil {
		return st, err
	}
	st.ECSigned = viewOf(signed)
	return st, nil
}
