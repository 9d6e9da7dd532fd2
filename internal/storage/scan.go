package storage

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

const categoryColumns = "id, code, name, description, url_slug, category_type, color, icon, is_active, created_on, updated_on"

// timestamp scans TEXT timestamps from SQLite and timestamptz from Postgres.
type timestamp struct {
	t time.Time
}

func (ts *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		ts.t = v.UTC()
	case string:
		return ts.parse(v)
	case []byte:
		return ts.parse(string(v))
	default:
		return fmt.Errorf("scan timestamp: unsupported type %T", src)
	}
	return nil
}

func (ts *timestamp) parse(s string) error {
	t, err := time.Parse(timestampLayout, s)
	if err != nil {
		t, err = time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("scan timestamp %q: %w", s, err)
		}
	}
	ts.t = t.UTC()
	return nil
}

// rowID scans TEXT ids from SQLite and uuid ids from Postgres.
type rowID struct {
	id core.RowID
}

func (r *rowID) Scan(src any) error {
	var s string
	switch v := src.(type) {
	case string:
		s = v
	case []byte:
		if len(v) == 16 {
			u, err := uuid.FromBytes(v)
			if err != nil {
				return fmt.Errorf("scan id: %w", err)
			}
			s = u.String()
		} else {
			s = string(v)
		}
	case [16]byte:
		s = uuid.UUID(v).String()
	default:
		return fmt.Errorf("scan id: unsupported type %T", src)
	}
	id, err := core.ParseRowID(s)
	if err != nil {
		return fmt.Errorf("scan id %q: %v", s, err)
	}
	r.id = id
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCategory reads one row selected with categoryColumns. Stored values
// go back through the domain parsers so a corrupt row fails loudly.
func scanCategory(row rowScanner) (core.Category, error) {
	var (
		id                   rowID
		code, name, typ      string
		description, slug    sql.NullString
		color, icon          sql.NullString
		active               bool
		createdOn, updatedOn timestamp
	)
	if err := row.Scan(&id, &code, &name, &description, &slug, &typ, &color, &icon, &active, &createdOn, &updatedOn); err != nil {
		return core.Category{}, err
	}

	c := core.Category{
		ID:        id.id,
		IsActive:  active,
		CreatedOn: createdOn.t,
		UpdatedOn: updatedOn.t,
	}
	var err error
	if c.Code, err = core.ParseCode(code); err != nil {
		return core.Category{}, corruptRow(id.id, err)
	}
	if c.Name, err = core.ParseName(name); err != nil {
		return core.Category{}, corruptRow(id.id, err)
	}
	if c.Type, err = core.ParseCategoryType(typ); err != nil {
		return core.Category{}, corruptRow(id.id, err)
	}
	if description.Valid {
		c.Description = &description.String
	}
	if icon.Valid {
		c.Icon = &icon.String
	}
	if slug.Valid {
		s, err := core.ParseSlug(slug.String)
		if err != nil {
			return core.Category{}, corruptRow(id.id, err)
		}
		c.Slug = &s
	}
	if color.Valid {
		hc, err := core.ParseHexColor(color.String)
		if err != nil {
			return core.Category{}, corruptRow(id.id, err)
		}
		c.Color = &hc
	}
	return c, nil
}

// corruptRow keeps a parse failure on stored data from surfacing as a
// caller validation error.
func corruptRow(id core.RowID, err error) error {
	return &core.InternalError{Op: "decode stored category " + id.String(), Err: err}
}

func nullableString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}

func slugArg(s *core.Slug) any {
	if s == nil {
		return nil
	}
	return s.String()
}

func colorArg(c *core.HexColor) any {
	if c == nil {
		return nil
	}
	return c.String()
}
