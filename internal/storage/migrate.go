package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepgx "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/sqlite/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

// MigrationStatus describes the schema version of a store.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	Applied bool
}

// RunMigrations applies every pending migration for the engine.
func RunMigrations(engine Engine, dsn string) error {
	return withMigrator(engine, dsn, func(m *migrate.Migrate) error {
		if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
			return fmt.Errorf("run migrations: %w", err)
		}
		return nil
	})
}

// ReadMigrationStatus reports the applied version without changing anything.
func ReadMigrationStatus(engine Engine, dsn string) (MigrationStatus, error) {
	var status MigrationStatus
	err := withMigrator(engine, dsn, func(m *migrate.Migrate) error {
		version, dirty, err := m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read migration version: %w", err)
		}
		status = MigrationStatus{Version: version, Dirty: dirty, Applied: true}
		return nil
	})
	return status, err
}

func withMigrator(engine Engine, dsn string, fn func(*migrate.Migrate) error) error {
	if !engine.IsValid() {
		return fmt.Errorf("unsupported database engine %q", engine)
	}
	if engine == EngineSQLite {
		dsn = sqliteDSN(dsn)
	}

	// Create a separate connection for migrations to avoid interfering with the main connection
	migrateDB, err := sql.Open(engine.driverName(), dsn)
	if err != nil {
		return fmt.Errorf("open migration database: %w", err)
	}
	defer migrateDB.Close()

	var driver database.Driver
	switch engine {
	case EnginePostgres:
		driver, err = migratepgx.WithInstance(migrateDB, &migratepgx.Config{})
	default:
		driver, err = sqlite.WithInstance(migrateDB, &sqlite.Config{})
	}
	if err != nil {
		return fmt.Errorf("create %s migration driver: %w", engine, err)
	}

	d, err := iofs.New(migrationsFS, "migrations/"+engine.String())
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", d, engine.String(), driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	return fn(m)
}
