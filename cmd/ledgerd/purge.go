package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/IanTeda/personal-ledger-backend/internal/backend"
	"github.com/IanTeda/personal-ledger-backend/internal/core"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
)

func purgeCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Permanently delete categories",
		Long: `Hard delete a single category by id, or every inactive category.

Deleted rows free their code, name and slug for reuse. This is not
reachable over RPC.`,
		RunE: a.runPurge,
	}

	cmd.Flags().String("id", "", "id of the category to delete")
	cmd.Flags().Bool("inactive", false, "delete every inactive category")
	cmd.MarkFlagsMutuallyExclusive("id", "inactive")
	cmd.MarkFlagsOneRequired("id", "inactive")

	return cmd
}

func (a *app) runPurge(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	rawID, _ := cmd.Flags().GetString("id")

	var id core.RowID
	if rawID != "" {
		var err error
		if id, err = core.ParseRowID(rawID); err != nil {
			return err
		}
	}

	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return err
	}
	res, err := backend.NewFactory(a.logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			a.logger.Error("Failed to release backend", log.FieldError, err)
		}
	}()

	out := cmd.OutOrStdout()
	if rawID != "" {
		if err := res.Service.Delete(ctx, id); err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted category %s\n", id)
		return nil
	}

	n, err := res.Service.PurgeInactive(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "purged %d inactive categories\n", n)
	return nil
}
