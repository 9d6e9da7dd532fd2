// Package worker follows the category change events the daemon publishes.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/IanTeda/personal-ledger-backend/internal/amqp"
	"github.com/IanTeda/personal-ledger-backend/internal/cache"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/rpc"
)

const (
	DefaultSeenSize = 10000
	DefaultSeenTTL  = time.Hour
)

// Fetcher loads the current row for an event. *rpc.Client satisfies it.
type Fetcher interface {
	CategoryGet(ctx context.Context, in *rpc.CategoryGetRequest) (*rpc.CategoryGetResponse, error)
}

// Record is one line written to the sink.
type Record struct {
	Event    amqp.CategoryEvent `json:"event"`
	Category *rpc.Category      `json:"category,omitempty"`
}

// Stats counts what the worker has done.
type Stats struct {
	Processed int64
	Skipped   int64
	Fetched   int64
}

// Options configures an EventWorker.
type Options struct {
	// Fetcher, when set, resolves each event to the current row.
	Fetcher  Fetcher
	SeenSize int
	SeenTTL  time.Duration
	Logger   *log.Logger
}

// EventWorker writes each new category version to a sink exactly once.
// Redeliveries and versions older than one already seen are skipped.
type EventWorker struct {
	seen    *cache.LRU[string, time.Time]
	fetcher Fetcher
	logger  *log.Logger

	mu    sync.Mutex
	enc   *json.Encoder
	stats Stats
}

func NewEventWorker(sink io.Writer, opts Options) *EventWorker {
	if opts.SeenSize <= 0 {
		opts.SeenSize = DefaultSeenSize
	}
	if opts.SeenTTL <= 0 {
		opts.SeenTTL = DefaultSeenTTL
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &EventWorker{
		seen:    cache.NewLRU[string, time.Time](opts.SeenSize, opts.SeenTTL),
		fetcher: opts.Fetcher,
		logger:  logger.WithComponent(log.ComponentAMQP),
		enc:     json.NewEncoder(sink),
	}
}

// Seen exposes the dedupe cache so a janitor can sweep it.
func (w *EventWorker) Seen() cache.Cleaner {
	return w.seen
}

// HandleEvent processes a single category event from AMQP.
func (w *EventWorker) HandleEvent(ctx context.Context, ev amqp.CategoryEvent) error {
	if w.duplicate(ev) {
		w.mu.Lock()
		w.stats.Skipped++
		w.mu.Unlock()
		w.logger.DebugContext(ctx, "Skipping already seen category event",
			"type", ev.Type,
			log.FieldCategoryID, ev.ID,
			"updated_on", ev.UpdatedOn)
		return nil
	}

	rec := Record{Event: ev}
	if w.fetcher != nil && ev.Type != amqp.EventDeleted {
		resp, err := w.fetcher.CategoryGet(ctx, &rpc.CategoryGetRequest{ID: ev.ID})
		switch {
		case status.Code(err) == codes.NotFound:
			// deleted since the event was published
		case err != nil:
			return fmt.Errorf("fetch category %s: %w", ev.ID, err)
		default:
			c := resp.Category
			rec.Category = &c
		}
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.enc.Encode(rec); err != nil {
		return fmt.Errorf("write event: %w", err)
	}
	w.remember(ev)
	w.stats.Processed++
	if rec.Category != nil {
		w.stats.Fetched++
	}
	return nil
}

// Stats returns a snapshot of the counters.
func (w *EventWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.stats
}

func (w *EventWorker) duplicate(ev amqp.CategoryEvent) bool {
	if ev.Type == amqp.EventDeleted {
		return false
	}
	last, ok := w.seen.Get(ev.ID)
	return ok && !ev.UpdatedOn.After(last)
}

func (w *EventWorker) remember(ev amqp.CategoryEvent) {
	if ev.Type == amqp.EventDeleted {
		w.seen.Delete(ev.ID)
		return
	}
	w.seen.Set(ev.ID, ev.UpdatedOn)
}
