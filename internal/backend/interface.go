// Package backend wires the store, publisher and category service for an
// engine chosen by configuration.
package backend

import (
	"context"
	"time"

	"github.com/IanTeda/personal-ledger-backend/internal/services"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// BackendResult contains the assembled service and its cleanup function
type BackendResult struct {
	Service    *services.CategoryService
	Repository *storage.CategoryRepository
	Cleanup    CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	// CreateBackend opens the store, migrating it first, and builds the
	// service on top of it.
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Engine storage.Engine

	// SQLite
	SQLitePath string

	// Postgres
	PostgresURL string

	MaxOpenConns int
	PageSize     int
	QueryTimeout time.Duration

	// AMQP is optional; an empty URL disables change events.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func (c Config) storageOptions() storage.Options {
	return storage.Options{
		PageSize:     c.PageSize,
		QueryTimeout: c.QueryTimeout,
		MaxOpenConns: c.MaxOpenConns,
	}
}
