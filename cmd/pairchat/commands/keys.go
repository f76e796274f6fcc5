package commands

import (
	"bytes"
	"fmt"

	"github.com/spf13/cobra"

	"pairchat/internal/crypto"
	"pairchat/internal/custody"
	"pairchat/internal/store"
)

// keywrap <name>: generate and store a wrapped keypair.
func keywrapCmd() *cobra.Command {
	var (
		out  string
		sign bool
	)
	cmd := &cobra.Command{
		Use:   "keywrap <name>",
		Short: "Generate an RSA keypair and store it wrapped under a password",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errPasswordRequired
			}
			if err := wire.Identity.CheckPassword(password); err != nil {
				return err
			}
			pair, err := custody.NewKeyPair(password)
			if err != nil {
				return describe(err)
			}
			var signing *custody.KeyPair
			if sign {
				sp, err := custody.NewKeyPair(password)
				if err != nil {
					return describe(err)
				}
				signing = &sp
			}
			rec := store.NewKeyRecord("", "", pair, signing)

			where := out
			if out != "" {
				err = store.WriteRecord(out, rec)
			} else {
				where = args[0]
				err = wire.Keys.Save(args[0], rec)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "stored %s\nFingerprint: %s\n", where, wire.Identity.Fingerprint(pair.PublicKey))
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "write to this file instead of the key store")
	cmd.Flags().BoolVar(&sign, "sign", false, "also generate a signing keypair")
	return cmd
}

// unwrap <name>: check a stored key opens with the password.
func unwrapCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "unwrap [name]",
		Short: "Check that a stored private key opens with a password",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errPasswordRequired
			}
			rec, err := loadRecord(args, file)
			if err != nil {
				return err
			}
			if err := checkUnwrap(rec.WrappedKey, rec.PublicKey); err != nil {
				return describe(fmt.Errorf("transport key: %w", err))
			}
			if len(rec.SigningKey) > 0 {
				if err := checkUnwrap(rec.SigningKey, rec.SigningPublicKey); err != nil {
					return describe(fmt.Errorf("signing key: %w", err))
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "ok: private key opens with this password")
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read a record from this file instead of the key store")
	return cmd
}

// fingerprint <name>: print the fingerprints of a stored record.
func fingerprintCmd() *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "fingerprint [name]",
		Short: "Print the fingerprint of a stored public key",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := loadRecord(args, file)
			if err != nil {
				return err
			}
			transport, signing, err := wire.Identity.FingerprintRecord(rec)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Fingerprint: %s\n", transport)
			if signing != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Signing:     %s\n", signing)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read a record from this file instead of the key store")
	return cmd
}

func loadRecord(args []string, file string) (store.KeyRecord, error) {
	switch {
	case file != "" && len(args) > 0:
		return store.KeyRecord{}, fmt.Errorf("give either a name or --file, not both")
	case file != "":
		return store.ReadRecord(file)
	case len(args) == 1:
		return wire.Keys.Load(args[0])
	default:
		return store.KeyRecord{}, fmt.Errorf("a record name or --file is required")
	}
}

func checkUnwrap(blob custody.WrappedKey, publicKey []byte) error {
	priv, err := custody.UnwrapRSA(blob, password)
	if err != nil {
		return err
	}
	pub, err := crypto.MarshalPublicKey(&priv.PublicKey)
	if err != nil {
		return err
	}
	if !bytes.Equal(pub, publicKey) {
		return fmt.Errorf("private key does not match the stored public key")
	}
	return nil
}
