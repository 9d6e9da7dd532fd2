package storage

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

// Postgres SQLSTATE codes.
const (
	pgUniqueViolation = "23505"
	pgCheckViolation  = "23514"
)

// uniqueViolation is a duplicate key rejected by the store itself, after the
// pre-check passed. It lives only until the retry decision is made.
type uniqueViolation struct {
	field string
	err   error
}

func (e *uniqueViolation) Error() string {
	return fmt.Sprintf("unique violation on %s: %v", e.field, e.err)
}

func (e *uniqueViolation) Unwrap() error { return e.err }

// storeConstraint reports whether err is a unique or check violation raised
// by SQLite or Postgres, and the column it names.
func storeConstraint(err error) (unique bool, check bool, field string) {
	var se *sqlite.Error
	if errors.As(err, &se) {
		switch se.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return true, false, fieldFromConstraint(se.Error())
		case sqlite3.SQLITE_CONSTRAINT_CHECK:
			return false, true, fieldFromConstraint(se.Error())
		}
		return false, false, ""
	}

	var pe *pgconn.PgError
	if errors.As(err, &pe) {
		constraint := pe.ConstraintName
		if constraint == "" {
			constraint = pe.Message
		}
		switch pe.Code {
		case pgUniqueViolation:
			return true, false, fieldFromConstraint(constraint)
		case pgCheckViolation:
			return false, true, fieldFromConstraint(constraint)
		}
	}
	return false, false, ""
}

// fieldFromConstraint maps a constraint name or driver message onto the wire
// field it protects.
func fieldFromConstraint(s string) string {
	s = strings.ToLower(s)
	switch {
	case strings.Contains(s, "code"):
		return core.FieldCode
	case strings.Contains(s, "url_slug"), strings.Contains(s, "slug"):
		return core.FieldSlug
	case strings.Contains(s, "category_type"):
		return core.FieldCategoryType
	case strings.Contains(s, "color"):
		return core.FieldColor
	case strings.Contains(s, "name"):
		return core.FieldName
	case strings.Contains(s, "pkey"), strings.Contains(s, ".id"):
		return core.FieldID
	case strings.Contains(s, "updated_on"):
		return "updated_on"
	}
	return "category"
}

// markUnique wraps store unique violations so the caller can retry once.
// Everything else passes through untouched.
func markUnique(err error) error {
	if err == nil {
		return nil
	}
	if unique, _, field := storeConstraint(err); unique {
		return &uniqueViolation{field: field, err: err}
	}
	return err
}

// classify is the single exit point for repository errors. Nothing leaves
// the package without a core kind.
func classify(op string, err error) error {
	if err == nil {
		return nil
	}
	if ce, ok := core.AsError(err); ok {
		return ce
	}

	var uv *uniqueViolation
	if errors.As(err, &uv) {
		return core.Invalid(uv.field, core.RuleUnique, "value is already used by another category")
	}
	unique, check, field := storeConstraint(err)
	switch {
	case unique:
		return core.Invalid(field, core.RuleUnique, "value is already used by another category")
	case check:
		return core.Invalid(field, core.RuleFormat, "rejected by a store constraint")
	}
	return core.Internal(op, err)
}
