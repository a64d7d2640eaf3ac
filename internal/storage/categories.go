package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"tally/internal/core"
)

// GetCategoryForUser resolves a category reference the way mutations see it:
// the category must be active and either global or owned by the caller.
func (q *Queries) GetCategoryForUser(ctx context.Context, id, userID int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, `
SELECT id, user_id, name, type, is_active
FROM categories
WHERE id = ? AND is_active = 1 AND (user_id IS NULL OR user_id = ?)`, id, userID)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrCategoryNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// GetCategory loads a category by id alone, active or not. Mutations resolve
// categories through GetCategoryForUser; this lookup serves event enrichment,
// where a category that has since been deactivated still names the row.
func (q *Queries) GetCategory(ctx context.Context, id int64) (core.Category, error) {
	row := q.db.QueryRowContext(ctx, `
SELECT id, user_id, name, type, is_active
FROM categories
WHERE id = ?`, id)

	c, err := scanCategory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return c, nil
}

// ListCategoriesForUser returns the active categories visible to a user:
// global ones plus their own.
func (q *Queries) ListCategoriesForUser(ctx context.Context, userID int64) ([]core.Category, error) {
	rows, err := q.db.QueryContext(ctx, `
SELECT id, user_id, name, type, is_active
FROM categories
WHERE is_active = 1 AND (user_id IS NULL OR user_id = ?)
ORDER BY type, name`, userID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []core.Category
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category row: %w", err)
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}
	return categories, nil
}

type CreateCategoryParams struct {
	OwnerID *int64
	Name    string
	Type    core.TransactionType
}

// CreateCategory inserts a category row. The HTTP surface never calls this;
// categories are seeded by migration or managed out of band.
func (q *Queries) CreateCategory(ctx context.Context, arg CreateCategoryParams) (core.Category, error) {
	c := core.Category{
		OwnerID:  arg.OwnerID,
		Name:     arg.Name,
		Type:     arg.Type,
		IsActive: true,
	}

	var owner any
	if arg.OwnerID != nil {
		owner = *arg.OwnerID
	}
	err := q.db.QueryRowContext(ctx,
		"INSERT INTO categories (user_id, name, type) VALUES (?, ?, ?) RETURNING id",
		owner, arg.Name, string(arg.Type),
	).Scan(&c.ID)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

// SetCategoryActive flips a category's visibility without deleting history
// that points at it.
func (q *Queries) SetCategoryActive(ctx context.Context, id int64, active bool) error {
	res, err := q.db.ExecContext(ctx, "UPDATE categories SET is_active = ? WHERE id = ?", active, id)
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set category active rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("category %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func scanCategory(row scanner) (core.Category, error) {
	var (
		c     core.Category
		owner sql.NullInt64
	)
	if err := row.Scan(&c.ID, &owner, &c.Name, &c.Type, &c.IsActive); err != nil {
		return core.Category{}, err
	}
	if owner.Valid {
		c.OwnerID = &owner.Int64
	}
	return c, nil
}
