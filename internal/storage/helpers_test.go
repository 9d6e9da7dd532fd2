package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

// postgresURLEnv points the suite at a scratch Postgres database. The
// categories table in it is truncated before every test.
const postgresURLEnv = "LEDGER_TEST_POSTGRES_URL"

// createTestRepository opens a migrated SQLite repository in a temp dir.
func createTestRepository(t *testing.T) *CategoryRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "ledger.db"), Options{PageSize: 10, MaxOpenConns: 4})
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

// forEachEngine runs fn against SQLite and, when configured, Postgres.
func forEachEngine(t *testing.T, fn func(t *testing.T, repo *CategoryRepository)) {
	t.Run("sqlite", func(t *testing.T) {
		fn(t, createTestRepository(t))
	})

	url := os.Getenv(postgresURLEnv)
	t.Run("postgres", func(t *testing.T) {
		if url == "" {
			t.Skipf("%s not set", postgresURLEnv)
		}
		repo, err := NewPostgresRepository(url, Options{PageSize: 10, MaxOpenConns: 4})
		require.NoError(t, err)
		t.Cleanup(func() { _ = repo.Close() })
		_, err = repo.db.Exec("TRUNCATE categories")
		require.NoError(t, err)
		fn(t, repo)
	})
}

// steppingClock returns a clock that advances by step on every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	var (
		mu  sync.Mutex
		cur = start.UTC().Truncate(time.Microsecond)
	)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t := cur
		cur = cur.Add(step)
		return t
	}
}

func ptr[T any](v T) *T { return &v }

func draft(t *testing.T, code, name, typ string) core.Draft {
	t.Helper()
	d, err := core.NewDraft(core.DraftInput{Code: code, Name: name, CategoryType: typ})
	require.NoError(t, err)
	return d
}

func mustCreate(t *testing.T, repo *CategoryRepository, d core.Draft) core.Category {
	t.Helper()
	c, err := repo.Create(context.Background(), d)
	require.NoError(t, err)
	return c
}

func patch(t *testing.T, in core.PatchInput) core.Patch {
	t.Helper()
	p, err := core.NewPatch(in)
	require.NoError(t, err)
	return p
}

func requireKind(t *testing.T, err error, kind core.Kind) {
	t.Helper()
	require.Error(t, err)
	require.Equal(t, kind, core.KindOf(err), "error: %v", err)
}

func requireValidation(t *testing.T, err error, field, rule string) {
	t.Helper()
	requireKind(t, err, core.KindValidation)
	ce, _ := core.AsError(err)
	ve := ce.(*core.ValidationError)
	require.Equal(t, field, ve.Field, "error: %v", err)
	require.Equal(t, rule, ve.Rule, "error: %v", err)
}
