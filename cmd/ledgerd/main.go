package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/IanTeda/personal-ledger-backend/internal/cli"
	"github.com/IanTeda/personal-ledger-backend/internal/config"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
)

var version = "dev"

// app carries the state PersistentPreRunE prepares for every subcommand.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	logger  *log.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	rootCmd := &cobra.Command{
		Use:   "ledgerd",
		Short: "Personal ledger categories daemon",
		Long: `ledgerd serves the personal ledger categories over gRPC, backed by
SQLite or Postgres, and provides the operator commands that sit outside
the RPC surface.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&a.cfgFile, "config", "", "config file (default: config/ledger-backend.yaml)")
	flags.String("log-level", "warn", "log level (trace, debug, info, warn, error, off)")
	flags.String("log-format", "text", "log format (text, json)")
	flags.String("address", "127.0.0.1", "address the RPC server binds or ping dials")
	flags.Int("port", 50059, "RPC port")
	flags.String("data-dir", "data/", "directory holding the SQLite database")
	flags.String("db-engine", "sqlite", "database engine (sqlite, postgres)")
	flags.String("db-path", "personal_ledger.db", "SQLite database file, relative to --data-dir")
	flags.String("db-url", "", "Postgres connection URL")
	flags.String("auth-token", "", "bearer token the server requires and ping sends")

	// Bind flags to viper
	for key, name := range map[string]string{
		"server.log_level":  "log-level",
		"server.log_format": "log-format",
		"server.address":    "address",
		"server.port":       "port",
		"server.data_dir":   "data-dir",
		"database.engine":   "db-engine",
		"database.path":     "db-path",
		"database.url":      "db-url",
		"server.auth_token": "auth-token",
	} {
		_ = a.v.BindPFlag(key, flags.Lookup(name))
	}

	// Add commands
	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(migrateCmd(a))
	rootCmd.AddCommand(purgeCmd(a))
	rootCmd.AddCommand(pingCmd(a))
	rootCmd.AddCommand(eventsCmd(a))
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}

func main() {
	// Set up signal handling
	ctx, cancel := cli.GracefulShutdown(context.Background())

	err := newRootCmd().ExecuteContext(ctx)
	cancel() // Always cleanup

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func (a *app) initConfig(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}

	cfg, err := cli.LoadAndValidateConfig(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}

	a.cfg = cfg
	a.logger = logger
	return nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		// Skip config loading so version works anywhere.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ledgerd version %s\n", version)
		},
	}
}
