package commands

import (
	"context"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"qchat/internal/app"
)

var (
	home       string
	passphrase string
	configPath string

	apiURL      string
	wsURL       string
	logLevel    string
	metricsAddr string

	cfg       *app.Config
	wire      *app.Wire
	logCloser io.Closer
)

func Execute() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := &cobra.Command{
		Use:          "qchat",
		Short:        "Client for the BB84 quantum-key chat backend",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if home == "" {
				dir, err := os.UserHomeDir()
				if err != nil {
					return err
				}
				home = filepath.Join(dir, ".qchat")
			}
			if err := os.MkdirAll(home, 0o700); err != nil {
				return err
			}

			var err error
			if configPath != "" {
				cfg, err = app.LoadFile(configPath)
			} else {
				cfg, err = app.LoadFileOrDefault(filepath.Join(home, app.ConfigFileName))
			}
			if err != nil {
				return err
			}
			if err := applyFlagOverrides(cfg); err != nil {
				return err
			}

			log, closer, err := app.NewLogger(cfg.Logging)
			if err != nil {
				return err
			}
			logCloser = closer

			wire, err = app.NewWire(cfg, app.Options{Home: home, Log: log})
			if err != nil {
				return err
			}

			if cfg.Metrics.Address != "" {
				if _, err := app.ServeMetrics(cmd.Context(), cfg.Metrics.Address, wire.MetricsHandler(), log); err != nil {
					return err
				}
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&home, "home", "", "state dir (default ~/.qchat)")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default <home>/"+app.ConfigFileName+")")
	root.PersistentFlags().StringVarP(&passphrase, "passphrase", "p", "", "passphrase protecting the saved session")
	root.PersistentFlags().StringVar(&apiURL, "api", "", "backend base URL (e.g. http://localhost:8000)")
	root.PersistentFlags().StringVar(&wsURL, "ws", "", "websocket base URL (derived from --api when empty)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address")

	root.AddCommand(
		initCmd(),
		keyExchangeCmd(),
		chatCmd(),
		sendCmd(),
		sessionsCmd(),
		sessionCmd(),
		historyCmd(),
		decryptCmd(),
		deleteSessionCmd(),
		healthCmd(),
		fingerprintCmd(),
	)
	return root.ExecuteContext(ctx)
}

// applyFlagOverrides lets command-line flags win over the config file.
func applyFlagOverrides(c *app.Config) error {
	if apiURL != "" {
		c.Server.APIURL = apiURL
	}
	if wsURL != "" {
		c.Server.WebSocketURL = wsURL
	}
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if metricsAddr != "" {
		c.Metrics.Address = metricsAddr
	}
	return c.FixupAndValidate()
}
