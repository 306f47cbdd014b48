package commands

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keyrelay/internal/app"
	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

var errBadSignature = errors.New("pre-key signature does not verify against the identity key")

func uploadCmd(c *cli) *cobra.Command {
	var (
		target deviceFlags
		file   string
	)
	cmd := &cobra.Command{
		Use:   "upload",
		Short: "Verify an upload file and store its keys for a device",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			account, err := target.accountID()
			if err != nil {
				return err
			}
			var f uploadFile
			if err := readJSON(file, &f); err != nil {
				return err
			}
			if !f.verify(crypto.Ed25519Verifier{}) {
				return errBadSignature
			}
			return c.withWire(cmd.Context(), func(w *app.Wire) error {
				if err := w.Keys.Store(cmd.Context(), account, target.device, f.upload()); err != nil {
					return err
				}
				zerolog.Ctx(cmd.Context()).Info().
					Stringer("account", account).
					Stringer("device", target.device).
					Int("ec", len(f.ECOneTime)).
					Int("pq", len(f.PQOneTime)).
					Msg("stored pre-keys")
				fmt.Fprintf(cmd.OutOrStdout(), "Stored keys for %s.%d\n", account, target.device)
				return nil
			})
		},
	}
	target.register(cmd)
	cmd.Flags().StringVarP(&file, "file", "f", "", "upload file written by generate")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

// deviceFlags are the --account and --device flags shared by most commands.
type deviceFlags struct {
	account string
	device  domain.DeviceID
}

func (d *deviceFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&d.account, "account", "a", "", "account id (UUID)")
	cmd.Flags().Uint32VarP((*uint32)(&d.device), "device", "d", uint32(domain.PrimaryDeviceID), "device id")
	_ = cmd.MarkFlagRequired("account")
}

func (d *deviceFlags) accountID() (domain.AccountID, error) {
	account, err := domain.ParseAccountID(d.account)
	if err != nil {
		return domain.AccountID{}, fmt.Errorf("invalid account %q: %w", d.account, err)
	}
	return account, nil
}
