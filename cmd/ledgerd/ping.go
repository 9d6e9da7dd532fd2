package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/IanTeda/personal-ledger-backend/internal/rpc"
)

func pingCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that a running server answers",
		Long: `Call UtilitiesService.Ping and the health service on the configured
address and print the results.`,
		RunE: a.runPing,
	}

	cmd.Flags().Duration("timeout", 5*time.Second, "how long to wait for the server")

	return cmd
}

func (a *app) runPing(cmd *cobra.Command, _ []string) error {
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	target := a.cfg.ListenAddress()
	client, err := rpc.Dial(target, a.cfg.Server.AuthToken)
	if err != nil {
		return err
	}
	defer client.Close()

	msg, err := client.Ping(ctx)
	if err != nil {
		return fmt.Errorf("ping %s: %w", target, err)
	}
	status, err := client.Health(ctx, "")
	if err != nil {
		return fmt.Errorf("health %s: %w", target, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", target, msg, status)
	return nil
}
