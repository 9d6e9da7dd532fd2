package storage

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

func TestParseEngine(t *testing.T) {
	e, err := ParseEngine(" SQLite ")
	require.NoError(t, err)
	assert.Equal(t, EngineSQLite, e)

	e, err = ParseEngine("postgres")
	require.NoError(t, err)
	assert.Equal(t, EnginePostgres, e)

	_, err = ParseEngine("mysql")
	assert.Error(t, err)
}

func TestEngineRebind(t *testing.T) {
	q := "SELECT id FROM categories WHERE code = ? AND name = ? LIMIT ?"
	assert.Equal(t, q, EngineSQLite.rebind(q))
	assert.Equal(t, "SELECT id FROM categories WHERE code = $1 AND name = $2 LIMIT $3", EnginePostgres.rebind(q))
}

func TestEngineTimeArg(t *testing.T) {
	ts := time.Date(2025, 6, 1, 8, 30, 0, 123456000, time.FixedZone("AEST", 10*3600))
	assert.Equal(t, "2025-05-31T22:30:00.123456Z", EngineSQLite.timeArg(ts))
	assert.Equal(t, ts.UTC(), EnginePostgres.timeArg(ts))
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t,
		"file:data/ledger.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate",
		sqliteDSN("data/ledger.db"))
	assert.Equal(t,
		"file:x.db?mode=rwc&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate",
		sqliteDSN("file:x.db?mode=rwc"))
}

func TestTimestampScan(t *testing.T) {
	var ts timestamp
	require.NoError(t, ts.Scan("2025-05-31T22:30:00.123456Z"))
	assert.Equal(t, time.Date(2025, 5, 31, 22, 30, 0, 123456000, time.UTC), ts.t)

	require.NoError(t, ts.Scan([]byte("2025-05-31T22:30:00Z")))
	assert.Equal(t, time.Date(2025, 5, 31, 22, 30, 0, 0, time.UTC), ts.t)

	local := time.Date(2025, 1, 1, 10, 0, 0, 0, time.FixedZone("AEST", 10*3600))
	require.NoError(t, ts.Scan(local))
	assert.Equal(t, time.UTC, ts.t.Location())

	assert.Error(t, ts.Scan(42))
	assert.Error(t, ts.Scan("yesterday"))
}

func TestCursorRoundTrip(t *testing.T) {
	id, err := core.NewRowID()
	require.NoError(t, err)
	c := core.Category{ID: id, CreatedOn: time.Date(2025, 2, 3, 4, 5, 6, 7000, time.UTC)}

	decoded, err := decodeCursor(encodeCursor(c))
	require.NoError(t, err)
	assert.Equal(t, id.String(), decoded.ID)
	assert.True(t, c.CreatedOn.Equal(decoded.CreatedOn))

	for _, bad := range []string{"%%%", "e30", "eyJjIjoiMjAyNS0wMS0wMVQwMDowMDowMFoiLCJpIjoiYWJjIn0"} {
		_, err := decodeCursor(bad)
		requireValidation(t, err, "cursor", core.RuleFormat)
	}
}

func TestClassify(t *testing.T) {
	assert.NoError(t, classify("op", nil))

	inner := core.NotFound("id", "x")
	assert.Same(t, inner, classify("op", fmt.Errorf("wrapped: %w", inner)))

	pgUnique := &pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "categories_name_key"}
	requireValidation(t, classify("op", fmt.Errorf("insert: %w", pgUnique)), core.FieldName, core.RuleUnique)

	pgCheck := &pgconn.PgError{Code: pgCheckViolation, ConstraintName: "categories_color_check"}
	requireValidation(t, classify("op", pgCheck), core.FieldColor, core.RuleFormat)

	marked := markUnique(&pgconn.PgError{Code: pgUniqueViolation, ConstraintName: "categories_code_key"})
	var uv *uniqueViolation
	require.ErrorAs(t, marked, &uv)
	assert.Equal(t, core.FieldCode, uv.field)
	requireValidation(t, classify("op", marked), core.FieldCode, core.RuleUnique)

	err := classify("list categories", errors.New("disk I/O error"))
	requireKind(t, err, core.KindInternal)
	assert.Contains(t, err.Error(), "list categories")
}

func TestFieldFromConstraint(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"UNIQUE constraint failed: categories.name", core.FieldName},
		{"UNIQUE constraint failed: categories.url_slug", core.FieldSlug},
		{"UNIQUE constraint failed: index 'categories_code_key'", core.FieldCode},
		{"CHECK constraint failed: categories_category_type_check", core.FieldCategoryType},
		{"categories_pkey", core.FieldID},
		{"something else", "category"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fieldFromConstraint(tt.in), tt.in)
	}
}

func TestRetryUnique(t *testing.T) {
	calls := 0
	err := retryUnique(func() error {
		calls++
		if calls == 1 {
			return &uniqueViolation{field: core.FieldCode, err: errors.New("raced")}
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, calls)

	calls = 0
	err = retryUnique(func() error {
		calls++
		return &uniqueViolation{field: core.FieldName, err: errors.New("raced again")}
	})
	assert.Equal(t, 2, calls)
	requireValidation(t, classify("create category", err), core.FieldName, core.RuleUnique)

	calls = 0
	err = retryUnique(func() error {
		calls++
		return core.Invalid(core.FieldName, core.RuleUnique, "taken")
	})
	assert.Equal(t, 1, calls)
	requireValidation(t, err, core.FieldName, core.RuleUnique)
}
