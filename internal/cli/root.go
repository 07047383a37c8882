// Package cli provides the courier command line interface.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/courier-im/courier/internal/config"
	"github.com/courier-im/courier/internal/identity"
	"github.com/courier-im/courier/internal/logging"
	"github.com/courier-im/courier/internal/remote"
	"github.com/courier-im/courier/internal/session"
	"github.com/courier-im/courier/internal/tui"
)

var (
	cfgFile    string
	serverAddr string
	logLevel   string
	logFormat  string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "courier",
	Short: "Private 1:1 messaging client",
	Long: `courier is a terminal client for identity-addressed direct messaging.
Run without arguments to open the interactive TUI.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := loadConfig()
		if err != nil {
			return err
		}
		cfg = loaded

		logging.Init(logging.Config{
			Level:        cfg.Logging.Level,
			Format:       cfg.Logging.Format,
			EnableCaller: cfg.Logging.EnableCaller,
		})
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runTUI(cmd)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/courier/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&serverAddr, "server", "", "store daemon address (host:port)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "override logging format (json, console)")
}

// Execute runs the root command.
func Execute(version string) error {
	rootCmd.Version = version
	return rootCmd.Execute()
}

func loadConfig() (*config.Config, error) {
	loader := config.NewLoader()
	if cfgFile != "" {
		loader.SetConfigFile(cfgFile)
	}
	loaded, err := loader.Load()
	if err != nil {
		return nil, err
	}

	if serverAddr != "" {
		loaded.Server.Addr = serverAddr
	}
	if logLevel != "" {
		loaded.Logging.Level = logLevel
	}
	if logFormat != "" {
		loaded.Logging.Format = logFormat
	}
	return loaded, nil
}

func runTUI(cmd *cobra.Command) error {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return fmt.Errorf("standard output is not a terminal; use a subcommand such as 'courier threads'")
	}
	if err := cfg.EnsureDirectories(); err != nil {
		return err
	}

	sess := session.New(cfg)
	if err := sess.Start(cmd.Context()); err != nil {
		return err
	}
	defer sess.Close()

	contexts := config.NewContextStore("")
	return tui.Run(sess, contexts, tui.Config{
		Theme:          cfg.TUI.Theme,
		ShowTimestamps: cfg.TUI.ShowTimestamps,
	})
}

// resolveIdentity loads or creates the local keypair for one-shot commands.
func resolveIdentity() (*identity.Identity, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, err
	}
	id, err := identity.LoadOrGenerate(cfg.IdentityKeyPath())
	if err != nil {
		return nil, fmt.Errorf("failed to resolve identity: %w", err)
	}
	return id, nil
}

// newClient builds a one-shot wire client over the resolved identity.
func newClient() (*remote.Client, *identity.Identity, error) {
	id, err := resolveIdentity()
	if err != nil {
		return nil, nil, err
	}
	return remote.New(cfg.Server.Addr, id), id, nil
}
