package commands

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"qchat/internal/domain"
)

// protocolFlags binds the key-exchange form to flags. Unset flags keep the
// config file defaults.
type protocolFlags struct {
	keyLength uint
	eve       bool
	eveProb   float64
	threshold float64
}

func (p *protocolFlags) register(fs *pflag.FlagSet) {
	fs.UintVar(&p.keyLength, "key-length", 0, "key length in bits (default from config)")
	fs.BoolVar(&p.eve, "eve", false, "simulate an eavesdropper")
	fs.Float64Var(&p.eveProb, "eve-prob", 0, "eavesdropper intercept probability, 0..1 (default from config)")
	fs.Float64Var(&p.threshold, "qber-threshold", 0, "QBER security threshold, 0..0.25 (default from config)")
}

func (p *protocolFlags) config(fs *pflag.FlagSet) domain.ProtocolConfig {
	pc := cfg.Protocol.ProtocolConfig()
	if fs.Changed("key-length") {
		pc.KeyLength = p.keyLength
	}
	if fs.Changed("eve") {
		pc.EnableEve = p.eve
	}
	if fs.Changed("eve-prob") {
		pc.EveInterceptProb = p.eveProb
	}
	if fs.Changed("qber-threshold") {
		pc.QBERThreshold = p.threshold
	}
	return pc
}

func keyExchangeCmd() *cobra.Command {
	var pf protocolFlags
	cmd := &cobra.Command{
		Use:   "key-exchange",
		Short: "Run a BB84 key exchange and print its security report",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			sess, err := wire.Handshake.ExchangeKey(cmd.Context(), pf.config(cmd.Flags()))
			if err != nil {
				printHandshakeError(out, err)
				return err
			}
			printReport(out, sess)

			if passphrase != "" {
				if err := wire.Sessions.SaveSession(passphrase, sess); err != nil {
					return fmt.Errorf("save session: %w", err)
				}
				fmt.Fprintln(out, "Session saved; resume it with: qchat chat --resume -p <passphrase>")
			}
			return nil
		},
	}
	pf.register(cmd.Flags())
	return cmd
}
