package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/IanTeda/personal-ledger-backend/internal/amqp"
	"github.com/IanTeda/personal-ledger-backend/internal/cache"
	"github.com/IanTeda/personal-ledger-backend/internal/rpc"
	"github.com/IanTeda/personal-ledger-backend/internal/worker"
)

func eventsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Follow category change events",
		Long: `Consume the category change events published to AMQP and print each
new version once, as JSON lines. With --resolve the current row is
fetched from the running server for every event.`,
		RunE: a.runEvents,
	}

	cmd.Flags().Bool("resolve", false, "fetch the current row over RPC for each event")
	cmd.Flags().Duration("sweep-interval", time.Minute, "how often to drop expired dedupe entries")

	return cmd
}

func (a *app) runEvents(cmd *cobra.Command, _ []string) error {
	resolve, _ := cmd.Flags().GetBool("resolve")
	sweep, _ := cmd.Flags().GetDuration("sweep-interval")

	if a.cfg.AMQP.URL == "" {
		return fmt.Errorf("amqp.url must be set to follow events")
	}

	client, err := amqp.NewClient(a.cfg.AMQP.URL, a.cfg.AMQP.Exchange, a.cfg.AMQP.Queue)
	if err != nil {
		return err
	}
	defer client.Close()

	opts := worker.Options{Logger: a.logger}
	if resolve {
		rc, err := rpc.Dial(a.cfg.ListenAddress(), a.cfg.Server.AuthToken)
		if err != nil {
			return err
		}
		defer rc.Close()
		opts.Fetcher = rc
	}
	w := worker.NewEventWorker(cmd.OutOrStdout(), opts)

	g, ctx := errgroup.WithContext(cmd.Context())
	g.Go(func() error {
		cache.NewJanitor(w.Seen()).Run(ctx, sweep)
		return nil
	})
	g.Go(func() error {
		return client.ConsumeCategoryEvents(ctx, w.HandleEvent)
	})

	err = g.Wait()
	st := w.Stats()
	a.logger.Info("Stopped following events",
		"processed", st.Processed,
		"skipped", st.Skipped)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
