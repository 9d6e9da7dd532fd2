package storage

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Engine selects the relational store and its SQL dialect.
type Engine string

const (
	EngineSQLite   Engine = "sqlite"
	EnginePostgres Engine = "postgres"
)

// Engines returns every supported engine.
func Engines() []Engine {
	return []Engine{EngineSQLite, EnginePostgres}
}

// ParseEngine accepts the names used in configuration.
func ParseEngine(s string) (Engine, error) {
	e := Engine(strings.ToLower(strings.TrimSpace(s)))
	if !e.IsValid() {
		return "", fmt.Errorf("unsupported database engine %q: must be one of %v", s, Engines())
	}
	return e, nil
}

func (e Engine) String() string { return string(e) }

// IsValid returns true if the engine is supported
func (e Engine) IsValid() bool {
	switch e {
	case EngineSQLite, EnginePostgres:
		return true
	default:
		return false
	}
}

// driverName is the database/sql driver registered for the engine.
func (e Engine) driverName() string {
	if e == EnginePostgres {
		return "pgx"
	}
	return "sqlite"
}

// rebind rewrites ? placeholders into $n for Postgres.
func (e Engine) rebind(query string) string {
	if e != EnginePostgres {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// timestampLayout is fixed width so SQLite text timestamps sort correctly.
const timestampLayout = "2006-01-02T15:04:05.000000Z"

// timeArg converts t into the engine's bind value for timestamp columns.
func (e Engine) timeArg(t time.Time) any {
	if e == EnginePostgres {
		return t.UTC()
	}
	return t.UTC().Format(timestampLayout)
}

// sqliteDSN adds the pragmas every connection needs. Immediate transactions
// make concurrent writers queue on busy_timeout instead of failing on lock
// upgrade.
func sqliteDSN(path string) string {
	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate"
}
