package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"qchat/internal/domain"
)

// send <session-id> <alice|bob> <message>: encrypt and broadcast over REST.
func sendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <session-id> <alice|bob> <message>",
		Short: "Send a message over the REST endpoint",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			sender, err := domain.ParseSender(args[1])
			if err != nil {
				return err
			}
			msg, err := wire.Backend.SendMessage(cmd.Context(), domain.SessionID(args[0]), sender, args[2])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent: %s\n", msg.CiphertextPreview(previewLen))
			return nil
		},
	}
}
