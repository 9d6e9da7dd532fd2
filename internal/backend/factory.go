package backend

import (
	"context"
	"fmt"

	"github.com/IanTeda/personal-ledger-backend/internal/amqp"
	"github.com/IanTeda/personal-ledger-backend/internal/log"
	"github.com/IanTeda/personal-ledger-backend/internal/services"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *log.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *log.Logger) Factory {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DefaultFactory{
		logger: logger.WithComponent(log.ComponentBackend),
	}
}

// CreateBackend implements Factory.CreateBackend
func (f *DefaultFactory) CreateBackend(ctx context.Context, config Config) (*BackendResult, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(config)
	if err != nil {
		return nil, err
	}

	// Initialize AMQP client (optional)
	var events services.EventPublisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			events = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	svc := services.NewCategoryService(repo, events)

	f.logger.InfoContext(ctx, "Initialized category backend",
		log.FieldEngine, config.Engine,
		"amqp_enabled", events != nil)

	return &BackendResult{
		Service:    svc,
		Repository: repo,
		Cleanup:    svc.Close,
	}, nil
}

func (f *DefaultFactory) openRepository(config Config) (*storage.CategoryRepository, error) {
	switch config.Engine {
	case storage.EngineSQLite:
		repo, err := storage.NewSQLiteRepository(config.SQLitePath, config.storageOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		return repo, nil
	case storage.EnginePostgres:
		repo, err := storage.NewPostgresRepository(config.PostgresURL, config.storageOptions())
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported engine: %s", config.Engine)
	}
}
