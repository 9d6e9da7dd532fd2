package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"
	"time"

	"github.com/IanTeda/personal-ledger-backend/internal/core"
)

// ListResult is one page of categories.
type ListResult struct {
	Items []core.Category
	// NextCursor is empty on the last page.
	NextCursor string
}

// uniqueProbe holds the unique columns to check. Nil fields are skipped.
type uniqueProbe struct {
	code    *core.Code
	name    *core.Name
	slug    *core.Slug
	exclude *core.RowID
}

// Create stores d under a fresh id with both timestamps set to now.
func (r *CategoryRepository) Create(ctx context.Context, d core.Draft) (core.Category, error) {
	const op = "create category"
	if err := d.Validate(); err != nil {
		return core.Category{}, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var created core.Category
	err := retryUnique(func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			c, err := r.insert(ctx, tx, d)
			created = c
			return err
		})
	})
	if err != nil {
		return core.Category{}, classify(op, err)
	}

	slog.DebugContext(ctx, "Category saved",
		"id", created.ID.String(),
		"code", created.Code.String(),
		"engine", r.engine.String())
	return created, nil
}

// CreateBatch stores every draft or none of them.
func (r *CategoryRepository) CreateBatch(ctx context.Context, drafts []core.Draft) ([]core.Category, error) {
	const op = "create category batch"
	if len(drafts) == 0 {
		return []core.Category{}, nil
	}
	if err := checkBatch(drafts); err != nil {
		return nil, err
	}
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var created []core.Category
	err := retryUnique(func() error {
		created = make([]core.Category, 0, len(drafts))
		return r.inTx(ctx, func(tx *sql.Tx) error {
			for _, d := range drafts {
				c, err := r.insert(ctx, tx, d)
				if err != nil {
					return err
				}
				created = append(created, c)
			}
			return nil
		})
	})
	if err != nil {
		return nil, classify(op, err)
	}

	slog.DebugContext(ctx, "Category batch saved", "count", len(created), "engine", r.engine.String())
	return created, nil
}

// checkBatch rejects drafts that collide with each other.
func checkBatch(drafts []core.Draft) error {
	codes := make(map[string]int, len(drafts))
	names := make(map[string]int, len(drafts))
	slugs := make(map[string]int, len(drafts))
	for i, d := range drafts {
		if err := d.Validate(); err != nil {
			return err
		}
		if j, ok := codes[d.Code.Key()]; ok {
			return core.Invalid(core.FieldCode, core.RuleUnique, fmt.Sprintf("code %q appears at positions %d and %d", d.Code, j, i))
		}
		codes[d.Code.Key()] = i
		if j, ok := names[d.Name.String()]; ok {
			return core.Invalid(core.FieldName, core.RuleUnique, fmt.Sprintf("name %q appears at positions %d and %d", d.Name, j, i))
		}
		names[d.Name.String()] = i
		if d.Slug != nil {
			if j, ok := slugs[d.Slug.String()]; ok {
				return core.Invalid(core.FieldSlug, core.RuleUnique, fmt.Sprintf("slug %q appears at positions %d and %d", d.Slug, j, i))
			}
			slugs[d.Slug.String()] = i
		}
	}
	return nil
}

func (r *CategoryRepository) insert(ctx context.Context, tx *sql.Tx, d core.Draft) (core.Category, error) {
	if err := r.checkUnique(ctx, tx, uniqueProbe{code: &d.Code, name: &d.Name, slug: d.Slug}); err != nil {
		return core.Category{}, err
	}

	id, err := core.NewRowID()
	if err != nil {
		return core.Category{}, err
	}
	now := r.now()
	c := core.Category{
		ID:          id,
		Code:        d.Code,
		Name:        d.Name,
		Description: d.Description,
		Slug:        d.Slug,
		Type:        d.Type,
		Color:       d.Color,
		Icon:        d.Icon,
		IsActive:    d.IsActive,
		CreatedOn:   now,
		UpdatedOn:   now,
	}

	_, err = tx.ExecContext(ctx, r.q(`INSERT INTO categories (`+categoryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		c.ID.String(),
		c.Code.String(),
		c.Name.String(),
		nullableString(c.Description),
		slugArg(c.Slug),
		c.Type.String(),
		colorArg(c.Color),
		nullableString(c.Icon),
		c.IsActive,
		r.engine.timeArg(c.CreatedOn),
		r.engine.timeArg(c.UpdatedOn),
	)
	if err != nil {
		return core.Category{}, markUnique(fmt.Errorf("insert category: %w", err))
	}
	return c, nil
}

// checkUnique looks for rows, active or not, that already hold one of the
// probe's values, and names the first column that collides.
func (r *CategoryRepository) checkUnique(ctx context.Context, tx *sql.Tx, p uniqueProbe) error {
	var (
		conds []string
		args  []any
	)
	if p.code != nil {
		conds = append(conds, "lower(code) = ?")
		args = append(args, p.code.Key())
	}
	if p.name != nil {
		conds = append(conds, "name = ?")
		args = append(args, p.name.String())
	}
	if p.slug != nil {
		conds = append(conds, "url_slug = ?")
		args = append(args, p.slug.String())
	}
	if len(conds) == 0 {
		return nil
	}
	query := "SELECT code, name, url_slug FROM categories WHERE (" + strings.Join(conds, " OR ") + ")"
	if p.exclude != nil {
		query += " AND id <> ?"
		args = append(args, p.exclude.String())
	}

	rows, err := tx.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return fmt.Errorf("check unique values: %w", err)
	}
	defer rows.Close()

	var nameHit, slugHit bool
	for rows.Next() {
		var (
			code, name string
			slug       sql.NullString
		)
		if err := rows.Scan(&code, &name, &slug); err != nil {
			return fmt.Errorf("scan unique values: %w", err)
		}
		if p.code != nil && strings.EqualFold(code, p.code.String()) {
			return core.Invalid(core.FieldCode, core.RuleUnique, fmt.Sprintf("code %q is already used by another category", p.code))
		}
		if p.name != nil && name == p.name.String() {
			nameHit = true
		}
		if p.slug != nil && slug.Valid && slug.String == p.slug.String() {
			slugHit = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate unique values: %w", err)
	}

	switch {
	case nameHit:
		return core.Invalid(core.FieldName, core.RuleUnique, fmt.Sprintf("name %q is already used by another category", p.name))
	case slugHit:
		return core.Invalid(core.FieldSlug, core.RuleUnique, fmt.Sprintf("slug %q is already used by another category", p.slug))
	}
	return nil
}

// Find performs a point lookup.
func (r *CategoryRepository) Find(ctx context.Context, l core.Lookup) (core.Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	c, err := r.find(ctx, r.db, l)
	return c, classify("read category", err)
}

// ReadByID fetches a category by id.
func (r *CategoryRepository) ReadByID(ctx context.Context, id core.RowID) (core.Category, error) {
	return r.Find(ctx, core.ByID(id))
}

// ReadByCode fetches a category by code, ignoring case.
func (r *CategoryRepository) ReadByCode(ctx context.Context, code core.Code) (core.Category, error) {
	return r.Find(ctx, core.ByCode(code))
}

// ReadBySlug fetches a category by url slug.
func (r *CategoryRepository) ReadBySlug(ctx context.Context, slug core.Slug) (core.Category, error) {
	return r.Find(ctx, core.BySlug(slug))
}

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *CategoryRepository) find(ctx context.Context, q querier, l core.Lookup) (core.Category, error) {
	var where string
	switch l.Key {
	case core.LookupID:
		where = "id = ?"
	case core.LookupCode:
		where = "lower(code) = lower(?)"
	case core.LookupSlug:
		where = "url_slug = ?"
	default:
		return core.Category{}, fmt.Errorf("unsupported lookup key %q", l.Key)
	}
	args := []any{l.Value}
	if l.OnlyActive {
		where += " AND is_active = ?"
		args = append(args, true)
	}

	row := q.QueryRowContext(ctx, r.q("SELECT "+categoryColumns+" FROM categories WHERE "+where), args...)
	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, l.NotFound()
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("read category by %s: %w", l.Key, err)
	}
	return c, nil
}

// List returns one page ordered by created_on descending, ties broken by id
// descending. The cursor is the sort key of the previous page's last row, so
// rows inserted meanwhile never shift later pages.
func (r *CategoryRepository) List(ctx context.Context, f core.Filter, page core.Page) (ListResult, error) {
	const op = "list categories"
	if err := page.Validate(); err != nil {
		return ListResult{}, err
	}
	size := page.Size
	if size == 0 {
		size = r.pageSize
	}

	var (
		conds []string
		args  []any
	)
	if f.Type != nil {
		conds = append(conds, "category_type = ?")
		args = append(args, f.Type.String())
	}
	if f.Active != nil {
		conds = append(conds, "is_active = ?")
		args = append(args, *f.Active)
	}
	if page.Cursor != "" {
		cur, err := decodeCursor(page.Cursor)
		if err != nil {
			return ListResult{}, err
		}
		at := r.engine.timeArg(cur.CreatedOn)
		conds = append(conds, "(created_on < ? OR (created_on = ? AND id < ?))")
		args = append(args, at, at, cur.ID)
	}

	query := "SELECT " + categoryColumns + " FROM categories"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_on DESC, id DESC LIMIT ?"
	args = append(args, size+1)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return ListResult{}, classify(op, fmt.Errorf("query categories: %w", err))
	}
	defer rows.Close()

	items := make([]core.Category, 0, size)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return ListResult{}, classify(op, err)
		}
		items = append(items, c)
	}
	if err := rows.Err(); err != nil {
		return ListResult{}, classify(op, fmt.Errorf("iterate categories: %w", err))
	}

	result := ListResult{Items: items}
	if len(items) > size {
		result.Items = items[:size]
		result.NextCursor = encodeCursor(result.Items[size-1])
	}
	return result, nil
}

// All walks every matching category page by page, fetching the next page
// only when the consumer gets there.
func (r *CategoryRepository) All(ctx context.Context, f core.Filter, pageSize int) iter.Seq2[core.Category, error] {
	return func(yield func(core.Category, error) bool) {
		page := core.Page{Size: pageSize}
		for {
			res, err := r.List(ctx, f, page)
			if err != nil {
				yield(core.Category{}, err)
				return
			}
			for _, c := range res.Items {
				if !yield(c, nil) {
					return
				}
			}
			if res.NextCursor == "" {
				return
			}
			page.Cursor = res.NextCursor
		}
	}
}

// Update applies p to the row. A patch that leaves every column as it was
// writes nothing and keeps updated_on. Otherwise the columns and updated_on
// change in one statement guarded by the updated_on that was read.
func (r *CategoryRepository) Update(ctx context.Context, id core.RowID, p core.Patch) (core.Category, error) {
	const op = "update category"
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var updated core.Category
	err := retryUnique(func() error {
		return r.inTx(ctx, func(tx *sql.Tx) error {
			cur, err := r.find(ctx, tx, core.ByID(id))
			if err != nil {
				return err
			}
			if p.IfUpdatedOn != nil && !p.IfUpdatedOn.Equal(cur.UpdatedOn) {
				return core.Conflict(id.String(), fmt.Sprintf("row was updated at %s", cur.UpdatedOn.Format(time.RFC3339Nano)))
			}
			next, err := cur.Apply(p)
			if err != nil {
				return err
			}
			if cur.SameContent(next) {
				updated = cur
				return nil
			}

			probe := uniqueProbe{exclude: &id}
			if next.Name != cur.Name {
				probe.name = &next.Name
			}
			if next.Slug != nil && (cur.Slug == nil || *cur.Slug != *next.Slug) {
				probe.slug = next.Slug
			}
			if err := r.checkUnique(ctx, tx, probe); err != nil {
				return err
			}

			next.UpdatedOn = r.nextUpdatedOn(cur.UpdatedOn)
			res, err := tx.ExecContext(ctx, r.q(`UPDATE categories
				SET name = ?, description = ?, url_slug = ?, category_type = ?, color = ?, icon = ?, is_active = ?, updated_on = ?
				WHERE id = ? AND updated_on = ?`),
				next.Name.String(),
				nullableString(next.Description),
				slugArg(next.Slug),
				next.Type.String(),
				colorArg(next.Color),
				nullableString(next.Icon),
				next.IsActive,
				r.engine.timeArg(next.UpdatedOn),
				id.String(),
				r.engine.timeArg(cur.UpdatedOn),
			)
			if err != nil {
				return markUnique(fmt.Errorf("update category: %w", err))
			}
			if err := expectOneRow(res, id); err != nil {
				return err
			}
			updated = next
			return nil
		})
	})
	if err != nil {
		return core.Category{}, classify(op, err)
	}
	return updated, nil
}

// nextUpdatedOn is now, or one tick past prev when the clock has not moved
// past it, so a real change always advances updated_on.
func (r *CategoryRepository) nextUpdatedOn(prev time.Time) time.Time {
	now := r.now()
	if !now.After(prev) {
		now = prev.Add(time.Microsecond)
	}
	return now
}

func expectOneRow(res sql.Result, id core.RowID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n != 1 {
		return core.Conflict(id.String(), "row changed concurrently")
	}
	return nil
}

// Deactivate soft deletes the row. Deactivating an inactive row changes
// nothing.
func (r *CategoryRepository) Deactivate(ctx context.Context, id core.RowID) (core.Category, error) {
	return r.setActive(ctx, "deactivate category", id, false)
}

// Activate reverses Deactivate. Activating an active row changes nothing.
func (r *CategoryRepository) Activate(ctx context.Context, id core.RowID) (core.Category, error) {
	return r.setActive(ctx, "activate category", id, true)
}

func (r *CategoryRepository) setActive(ctx context.Context, op string, id core.RowID, active bool) (core.Category, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out core.Category
	err := r.inTx(ctx, func(tx *sql.Tx) error {
		cur, err := r.find(ctx, tx, core.ByID(id))
		if err != nil {
			return err
		}
		if cur.IsActive == active {
			out = cur
			return nil
		}

		next := cur
		next.IsActive = active
		next.UpdatedOn = r.nextUpdatedOn(cur.UpdatedOn)
		res, err := tx.ExecContext(ctx, r.q(`UPDATE categories SET is_active = ?, updated_on = ?
			WHERE id = ? AND updated_on = ?`),
			active,
			r.engine.timeArg(next.UpdatedOn),
			id.String(),
			r.engine.timeArg(cur.UpdatedOn),
		)
		if err != nil {
			return fmt.Errorf("set is_active: %w", err)
		}
		if err := expectOneRow(res, id); err != nil {
			return err
		}
		out = next
		return nil
	})
	if err != nil {
		return core.Category{}, classify(op, err)
	}
	return out, nil
}

// Delete physically removes one row. It is an operator action and not part
// of the RPC surface.
func (r *CategoryRepository) Delete(ctx context.Context, id core.RowID) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.q("DELETE FROM categories WHERE id = ?"), id.String())
	if err != nil {
		return classify("delete category", fmt.Errorf("delete category: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return classify("delete category", fmt.Errorf("rows affected: %w", err))
	}
	if n == 0 {
		return core.ByID(id).NotFound()
	}
	slog.InfoContext(ctx, "Category deleted", "id", id.String())
	return nil
}

// PurgeInactive physically removes every inactive row and reports how many
// went.
func (r *CategoryRepository) PurgeInactive(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res, err := r.db.ExecContext(ctx, r.q("DELETE FROM categories WHERE is_active = ?"), false)
	if err != nil {
		return 0, classify("purge categories", fmt.Errorf("purge inactive: %w", err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, classify("purge categories", fmt.Errorf("rows affected: %w", err))
	}
	slog.InfoContext(ctx, "Inactive categories purged", "count", n)
	return n, nil
}
