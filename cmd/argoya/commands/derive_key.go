package commands

import (
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"argoya/internal/crypto"
)

// derive-key: PBKDF2-HMAC-SHA-256 a password into an AES-256 key.
func deriveKeyCmd() *cobra.Command {
	var password, salt string
	cmd := &cobra.Command{
		Use:   "derive-key",
		Short: "Derive an AES-256 key from a password and salt",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := appCtx.Keys.DeriveFromPassword(password, salt)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\n", hex.EncodeToString(key))
			fmt.Fprintf(cmd.ErrOrStderr(), "PBKDF2-HMAC-SHA-256, %d iterations\n", crypto.PBKDF2Iterations)
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password to derive from")
	cmd.Flags().StringVar(&salt, "salt", "", "salt")
	_ = cmd.MarkFlagRequired("password")
	_ = cmd.MarkFlagRequired("salt")
	return cmd
}
