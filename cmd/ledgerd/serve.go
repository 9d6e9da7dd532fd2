package main

import (
	"context"
	"fmt"
	"net"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IanTeda/personal-ledger-backend/internal/backend"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/rpc"
)

func serveCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the categories RPC API",
		Long: `Open the configured store, apply pending migrations and serve the
categories, utilities and health services until interrupted.`,
		RunE: a.runServe,
	}

	cmd.Flags().Int("requests-per-minute", 0, "per-peer request limit (0 disables)")
	_ = a.v.BindPFlag("server.requests_per_minute", cmd.Flags().Lookup("requests-per-minute"))

	return cmd
}

func (a *app) runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

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

	lis, err := net.Listen("tcp", a.cfg.ListenAddress())
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.cfg.ListenAddress(), err)
	}

	srv := rpc.NewServer(res.Service, rpc.Options{
		AuthToken:         a.cfg.Server.AuthToken,
		RequestsPerMinute: a.cfg.Server.RequestsPerMinute,
		Logger:            a.logger,
	})

	a.logger.Info("Starting ledgerd",
		"version", version,
		log.FieldAddress, lis.Addr().String(),
		log.FieldEngine, bcfg.Engine,
		"auth_enabled", a.cfg.Server.AuthToken != "",
		"rate_limit", a.cfg.Server.RequestsPerMinute)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Serve(lis)
	})
	g.Go(func() error {
		if err := srv.MarkServing(gctx); err != nil {
			srv.Shutdown(gctx)
			return err
		}
		<-gctx.Done()

		a.logger.Info("Shutting down RPC server", "timeout", a.cfg.Server.ShutdownTimeout)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer cancel()
		srv.Shutdown(shutdownCtx)
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped gracefully", "served", srv.Metrics().TotalRequests)
	return nil
}
