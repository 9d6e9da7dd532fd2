package backend

import (
	"fmt"

	"github.com/IanTeda/personal-ledger-backend/internal/config"
	"github.com/IanTeda/personal-ledger-backend/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}

	engine, err := storage.ParseEngine(appConfig.Database.Engine)
	if err != nil {
		return Config{}, fmt.Errorf("invalid engine in config: %w", err)
	}

	return Config{
		Engine: engine,

		SQLitePath:  appConfig.DatabasePath(),
		PostgresURL: appConfig.Database.URL,

		MaxOpenConns: appConfig.Database.MaxOpenConns,
		PageSize:     appConfig.Database.PageSize,
		QueryTimeout: appConfig.Database.QueryTimeout,

		AMQPURL:      appConfig.AMQP.URL,
		AMQPExchange: appConfig.AMQP.Exchange,
		AMQPQueue:    appConfig.AMQP.Queue,
	}, nil
}

// DSN returns the connection string golang-migrate and the driver use.
func (c Config) DSN() string {
	if c.Engine == storage.EnginePostgres {
		return c.PostgresURL
	}
	return c.SQLitePath
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if !c.Engine.IsValid() {
		return fmt.Errorf("invalid engine: %s", c.Engine)
	}

	switch c.Engine {
	case storage.EngineSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLite database path is required for sqlite engine")
		}
	case storage.EnginePostgres:
		if c.PostgresURL == "" {
			return fmt.Errorf("database URL is required for postgres engine")
		}
	}

	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return fmt.Errorf("AMQP exchange and queue are required when AMQP URL is set")
	}

	return nil
}
