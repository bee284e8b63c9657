package commands

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"qchat/internal/domain"
)

func sessionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sessions",
		Short: "List the backend's active sessions",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			infos, err := wire.Backend.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active sessions.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "SESSION\tFINGERPRINT\tBITS\tQBER\tMESSAGES\tCREATED")
			for _, s := range infos {
				qber := "-"
				if s.QBER != nil {
					qber = fmt.Sprintf("%.2f%%", *s.QBER*100)
				}
				created := "-"
				if !s.CreatedAt.IsZero() {
					created = s.CreatedAt.Local().Format("2006-01-02 15:04:05")
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
					s.SessionID, s.KeyFingerprint, s.KeyLength, qber, s.MessageCount, created)
			}
			return tw.Flush()
		},
	}
}

func sessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session <session-id>",
		Short: "Show one session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			detail, err := wire.Backend.GetSession(cmd.Context(), domain.SessionID(args[0]))
			if err != nil {
				return err
			}
			printSessionInfo(cmd.OutOrStdout(), detail.SessionInfo)
			return nil
		},
	}
}

func historyCmd() *cobra.Command {
	var raw bool
	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Print a session's transcript, decrypting each message",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := domain.SessionID(args[0])
			detail, err := wire.Backend.GetSession(ctx, id)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(detail.Messages) == 0 {
				fmt.Fprintln(out, "No messages.")
				return nil
			}

			// One request per distinct ciphertext.
			plain := make(map[string]string)
			for _, m := range detail.Messages {
				if !raw {
					if _, seen := plain[m.Ciphertext]; !seen {
						pt, err := wire.Backend.DecryptMessage(ctx, id, m.Ciphertext)
						if err != nil {
							fmt.Fprintf(cmd.ErrOrStderr(), "decrypt %s: %v\n", m.CiphertextPreview(previewLen), err)
						}
						plain[m.Ciphertext] = pt
					}
					m.Plaintext = plain[m.Ciphertext]
				}
				fmt.Fprintln(out, formatMessage(m))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&raw, "raw", false, "print ciphertexts without decrypting")
	return cmd
}

func decryptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decrypt <session-id> <ciphertext>",
		Short: "Decrypt one ciphertext with a session's key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pt, err := wire.Backend.DecryptMessage(cmd.Context(), domain.SessionID(args[0]), args[1])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pt)
			return nil
		},
	}
}

func deleteSessionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-session <session-id>",
		Short: "Delete a session on the backend",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := domain.SessionID(args[0])
			if err := wire.Backend.DeleteSession(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Session %s deleted.\n", id)

			// Forget the saved copy too if it was this one.
			if passphrase != "" {
				if saved, ok, err := wire.Sessions.LoadSession(passphrase); err == nil && ok && saved.SessionID == id {
					return wire.Sessions.ClearSession()
				}
			}
			return nil
		},
	}
}

func healthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Check the backend's health",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, err := wire.Backend.Health(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Status: %s\nActive sessions: %d\n", h.Status, h.ActiveSessions)
			return nil
		},
	}
}
