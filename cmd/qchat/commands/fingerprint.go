package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qchat/internal/crypto"
)

func fingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Print the saved session's key fingerprint",
		RunE: func(cmd *cobra.Command, args []string) error {
			if passphrase == "" {
				return fmt.Errorf("passphrase required (-p)")
			}
			sess, ok, err := wire.Sessions.LoadSession(passphrase)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("no saved session in %s", home)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session:     %s\nFingerprint: %s\n",
				sess.SessionID, crypto.Fingerprint(sess.QuantumKey))
			return nil
		},
	}
	return cmd
}
