package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/IanTeda/personal-ledger-backend/internal/backend"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version
without starting the server.`,
		RunE: a.runMigrate,
	}

	// Flags
	cmd.Flags().Bool("status", false, "Show current migration status without applying changes")

	return cmd
}

func (a *app) runMigrate(cmd *cobra.Command, _ []string) error {
	status, _ := cmd.Flags().GetBool("status")

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	if err := bcfg.Validate(); err != nil {
		return err
	}
	if bcfg.Engine == storage.EngineSQLite {
		if err := os.MkdirAll(filepath.Dir(bcfg.SQLitePath), 0755); err != nil {
			return fmt.Errorf("create db directory: %w", err)
		}
	}

	a.logger.Info("Starting database migration",
		log.FieldEngine, bcfg.Engine,
		"status_only", status)

	if !status {
		if err := storage.RunMigrations(bcfg.Engine, bcfg.DSN()); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	st, err := storage.ReadMigrationStatus(bcfg.Engine, bcfg.DSN())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch {
	case !st.Applied:
		fmt.Fprintf(out, "%s: no migrations applied\n", bcfg.Engine)
	case st.Dirty:
		fmt.Fprintf(out, "%s: schema version %d (dirty)\n", bcfg.Engine, st.Version)
	default:
		fmt.Fprintf(out, "%s: schema version %d\n", bcfg.Engine, st.Version)
	}
	return nil
}
