package commands

import (
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"keyrelay/internal/crypto"
	"keyrelay/internal/domain"
)

func generateCmd() *cobra.Command {
	var (
		ecCount    int
		pqCount    int
		firstID    uint32
		out        string
		passphrase string
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate an identity and a signed pre-key upload file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return fmt.Errorf("output file required (--out)")
			}
			if ecCount < 0 || ecCount > domain.MaxPreKeyBatchSize || pqCount < 0 || pqCount > domain.MaxPreKeyBatchSize {
				return fmt.Errorf("--ec and --pq must be between 0 and %d", domain.MaxPreKeyBatchSize)
			}
			if passphrase != "" {
				if err := crypto.CheckPassphrase(passphrase); err != nil {
					return err
				}
			}
			public, secret, err := generateKeys(domain.KeyID(firstID), ecCount, pqCount)
			if err != nil {
				return err
			}
			defer secret.wipe()

			if err := writeJSON(out, public, 0o644); err != nil {
				return err
			}
			if passphrase != "" {
				raw, err := json.Marshal(secret)
				if err != nil {
					return err
				}
				defer crypto.Wipe(raw)
				sealed, err := crypto.Seal(passphrase, raw)
				if err != nil {
					return err
				}
				if err := writeFile(out+".secret", sealed, 0o600); err != nil {
					return err
				}
			} else {
				zerolog.Ctx(cmd.Context()).Warn().Msg("no passphrase given; private keys were discarded")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\nIdentity fingerprint: %s\n", out, crypto.Fingerprint(public.IdentityKey))
			return nil
		},
	}
	cmd.Flags().IntVar(&ecCount, "ec", 10, "number of one-time elliptic-curve keys")
	cmd.Flags().IntVar(&pqCount, "pq", 10, "number of one-time post-quantum keys")
	cmd.Flags().Uint32Var(&firstID, "first-id", 1, "key id of the first generated key")
	cmd.Flags().StringVarP(&out, "out", "o", "", "upload file to write")
	cmd.Flags().StringVarP(&passphrase, "passphrase", "p", "", "seal the private keys to <out>.secret with this passphrase")
	return cmd
}

// generateKeys creates a fresh identity and a full set of pre-keys signed by it.
// One-time keys are numbered from first; the last-resort key follows the
// post-quantum one-time keys.
func generateKeys(first domain.KeyID, ecCount, pqCount int) (uploadFile, *secretFile, error) {
	idPriv, idPub, err := crypto.GenerateEd25519()
	if err != nil {
		return uploadFile{}, nil, err
	}
	defer crypto.Wipe(idPriv[:])

	public := uploadFile{IdentityKey: idPub.Slice()}
	secret := &secretFile{
		IdentityKey: append([]byte(nil), idPriv[:]...),
		ECOneTime:   make(map[domain.KeyID][]byte, ecCount),
		PQOneTime:   make(map[domain.KeyID][]byte, pqCount),
	}
	sign := func(id domain.KeyID, pub []byte) domain.SignedPreKey {
		return domain.SignedPreKey{KeyID: id, PublicKey: pub, Signature: crypto.SignEd25519(idPriv, pub)}
	}

	for i := range ecCount {
		priv, pub, err := crypto.GenerateX25519()
		if err != nil {
			return uploadFile{}, nil, err
		}
		id := first + domain.KeyID(i)
		public.ECOneTime = append(public.ECOneTime, domain.PreKey{KeyID: id, PublicKey: pub.Slice()})
		secret.ECOneTime[id] = priv.Slice()
	}
	for i := range pqCount {
		seed, ek, err := crypto.GenerateMLKEM768()
		if err != nil {
			return uploadFile{}, nil, err
		}
		id := first + domain.KeyID(i)
		public.PQOneTime = append(public.PQOneTime, sign(id, ek))
		secret.PQOneTime[id] = seed
	}

	seed, ek, err := crypto.GenerateMLKEM768()
	if err != nil {
		return uploadFile{}, nil, err
	}
	lastResort := sign(first+domain.KeyID(pqCount), ek)
	public.PQLastResort = &lastResort
	secret.PQLastResort = seed

	priv, pub, err := crypto.GenerateX25519()
	if err != nil {
		return uploadFile{}, nil, err
	}
	signed := sign(first, pub.Slice())
	public.ECSigned = &signed
	secret.ECSigned = priv.Slice()

	return public, secret, nil
}
