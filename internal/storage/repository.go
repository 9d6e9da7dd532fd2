package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// DefaultPageSize is used when Options.PageSize is zero.
const DefaultPageSize = 50

// Options tune a repository. Values are supplied by the caller's
// configuration.
type Options struct {
	PageSize     int
	QueryTimeout time.Duration
	MaxOpenConns int
}

// CategoryRepository is the only reader and writer of the categories table.
// It is safe for concurrent use; the *sql.DB pool is its only shared state.
type CategoryRepository struct {
	db           *sql.DB
	engine       Engine
	pageSize     int
	queryTimeout time.Duration
	now          func() time.Time
}

// NewCategoryRepository wraps an open pool that already carries the schema.
func NewCategoryRepository(db *sql.DB, engine Engine, opts Options) *CategoryRepository {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return &CategoryRepository{
		db:           db,
		engine:       engine,
		pageSize:     pageSize,
		queryTimeout: opts.QueryTimeout,
		now:          currentTime,
	}
}

// currentTime is truncated to the precision both engines store.
func currentTime() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// NewSQLiteRepository opens (creating if needed) the database file at
// dbPath, migrates it and returns a repository.
func NewSQLiteRepository(dbPath string, opts Options) (*CategoryRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	return open(EngineSQLite, dbPath, opts)
}

// NewPostgresRepository connects to url, migrates the schema and returns a
// repository.
func NewPostgresRepository(url string, opts Options) (*CategoryRepository, error) {
	return open(EnginePostgres, url, opts)
}

func open(engine Engine, dsn string, opts Options) (*CategoryRepository, error) {
	// Run migrations
	if err := RunMigrations(engine, dsn); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	if engine == EngineSQLite {
		dsn = sqliteDSN(dsn)
	}
	db, err := sql.Open(engine.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", engine, err)
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
		db.SetMaxIdleConns(opts.MaxOpenConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return NewCategoryRepository(db, engine, opts), nil
}

// Engine reports which store backs the repository.
func (r *CategoryRepository) Engine() Engine {
	return r.engine
}

// PageSize is the default List page size.
func (r *CategoryRepository) PageSize() int {
	return r.pageSize
}

// Ping checks that the store answers.
func (r *CategoryRepository) Ping(ctx context.Context) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	return classify("ping database", r.db.PingContext(ctx))
}

func (r *CategoryRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *CategoryRepository) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

// inTx runs fn in a transaction. Any error, including a cancelled context,
// rolls back every statement fn issued.
func (r *CategoryRepository) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", markUnique(err))
	}
	return nil
}

// retryUnique runs fn again when the store, not the pre-check, rejected a
// duplicate. The second run's pre-check normally attributes the collision;
// a repeated store rejection is classified as validation by classify.
func retryUnique(fn func() error) error {
	err := fn()
	var uv *uniqueViolation
	if err == nil || !errors.As(err, &uv) {
		return err
	}
	return fn()
}

func (r *CategoryRepository) q(query string) string {
	return r.engine.rebind(query)
}
