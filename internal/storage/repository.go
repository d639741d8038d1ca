package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"utgifter/internal/core"
)

// ListCategories returns every category ordered by name.
func (r *Repository) ListCategories(ctx context.Context) ([]core.Category, error) {
	categories := []core.Category{}
	if err := r.db.SelectContext(ctx, &categories, `SELECT id, name FROM categories ORDER BY name_key, id`); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

func (r *Repository) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	var c core.Category
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT id, name FROM categories WHERE id = ?`), id)
	if err != nil {
		return core.Category{}, notFound(err, "category", id)
	}
	return c, nil
}

// GetCategoryByName looks a category up case-insensitively.
func (r *Repository) GetCategoryByName(ctx context.Context, name string) (core.Category, error) {
	var c core.Category
	err := r.db.GetContext(ctx, &c, r.db.Rebind(`SELECT id, name FROM categories WHERE name_key = ?`), core.CategoryKey(name))
	if err != nil {
		return core.Category{}, notFound(err, "category", name)
	}
	return c, nil
}

func (r *Repository) CategoryExists(ctx context.Context, id int64) (bool, error) {
	var n int
	err := r.db.GetContext(ctx, &n, r.db.Rebind(`SELECT COUNT(1) FROM categories WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("check category %d: %w", id, err)
	}
	return n > 0, nil
}

// CreateCategory inserts a category; a name that differs from an existing
// one only by case yields core.ErrConflict.
func (r *Repository) CreateCategory(ctx context.Context, name string) (core.Category, error) {
	name = strings.TrimSpace(name)
	var id int64
	err := r.db.QueryRowxContext(ctx,
		r.db.Rebind(`INSERT INTO categories (name, name_key) VALUES (?, ?) RETURNING id`),
		name, core.CategoryKey(name)).Scan(&id)
	if err != nil {
		if isUniqueViolation(err) {
			return core.Category{}, fmt.Errorf("category %q: %w", name, core.ErrConflict)
		}
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}

	slog.InfoContext(ctx, "Category saved", "id", id, "name", name)
	return core.Category{ID: id, Name: name}, nil
}

// DeleteCategoryByName removes a category. Categories still referenced by
// an expense or budget are not removed and yield core.ErrConflict.
func (r *Repository) DeleteCategoryByName(ctx context.Context, name string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM categories WHERE name_key = ?`), core.CategoryKey(name))
	if err != nil {
		if isForeignKeyViolation(err) {
			return fmt.Errorf("category %q is in use: %w", name, core.ErrConflict)
		}
		return fmt.Errorf("delete category: %w", err)
	}
	return expectAffected(res, "category", name)
}

// EnsureCategories creates any of names that does not exist yet. Safe to
// call repeatedly and concurrently.
func (r *Repository) EnsureCategories(ctx context.Context, names []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	q := tx.Rebind(`INSERT INTO categories (name, name_key) VALUES (?, ?) ON CONFLICT (name_key) DO NOTHING`)
	created := 0
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		res, err := tx.ExecContext(ctx, q, name, core.CategoryKey(name))
		if err != nil {
			return fmt.Errorf("ensure category %q: %w", name, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			created += int(n)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	if created > 0 {
		slog.InfoContext(ctx, "Categories seeded", "created", created, "requested", len(names))
	}
	return nil
}

// categoryFromJoin builds the hydrated category of a joined row.
func categoryFromJoin(id sql.NullInt64, name sql.NullString) *core.Category {
	if !id.Valid || !name.Valid {
		return nil
	}
	return &core.Category{ID: id.Int64, Name: name.String}
}
