package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assettrack/internal/model"
)

// CreateCategory creates a category. The slug is derived from the name, and
// neither may collide with an existing category.
func CreateCategory(ctx context.Context, db *sql.DB, name string) (*model.Category, error) {
	slug := model.Slugify(name)
	if slug == "" {
		return nil, model.ValidationFailed(map[string]string{"name": "slug"})
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkCategoryName(ctx, tx, 0, name, slug); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO categories (name, slug) VALUES (?, ?)`, name, slug,
	)
	if isUniqueViolation(err, "categories.") {
		return nil, model.ErrDuplicateCategoryName
	}
	if err != nil {
		return nil, fmt.Errorf("creating category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting category id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing category: %w", err)
	}

	return GetCategory(ctx, db, id)
}

func checkCategoryName(ctx context.Context, tx *sql.Tx, selfID int64, name, slug string) error {
	var taken int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE (name = ? OR slug = ?) AND id <> ?`,
		name, slug, selfID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("checking category name: %w", err)
	}
	if taken > 0 {
		return model.ErrDuplicateCategoryName
	}
	return nil
}

// GetCategory returns a category by ID with its count of active assets.
func GetCategory(ctx context.Context, db *sql.DB, id int64) (*model.Category, error) {
	c := &model.Category{}
	err := db.QueryRowContext(ctx,
		`SELECT c.id, c.name, c.slug, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM assets a WHERE a.category_id = c.id AND a.deleted_at IS NULL)
		 FROM categories c WHERE c.id = ?`, id,
	).Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt, &c.AssetCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting category: %w", err)
	}
	return c, nil
}

// ListCategories returns all categories by name with their active asset counts.
func ListCategories(ctx context.Context, db *sql.DB) ([]model.Category, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.name, c.slug, c.created_at, c.updated_at,
		        (SELECT COUNT(*) FROM assets a WHERE a.category_id = c.id AND a.deleted_at IS NULL)
		 FROM categories c ORDER BY c.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing categories: %w", err)
	}
	defer rows.Close()

	var categories []model.Category
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.CreatedAt, &c.UpdatedAt, &c.AssetCount); err != nil {
			return nil, fmt.Errorf("scanning category: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// UpdateCategory renames a category and re-derives its slug.
func UpdateCategory(ctx context.Context, db *sql.DB, id int64, name string) (*model.Category, error) {
	slug := model.Slugify(name)
	if slug == "" {
		return nil, model.ValidationFailed(map[string]string{"name": "slug"})
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkCategoryName(ctx, tx, id, name, slug); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE categories SET name = ?, slug = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		name, slug, id,
	)
	if isUniqueViolation(err, "categories.") {
		return nil, model.ErrDuplicateCategoryName
	}
	if err != nil {
		return nil, fmt.Errorf("updating category: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, model.ErrCategoryMissing
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing category update: %w", err)
	}

	return GetCategory(ctx, db, id)
}

// DeleteCategory removes a category that no active asset belongs to.
// Soft-deleted assets keep their row but lose the category reference.
func DeleteCategory(ctx context.Context, db *sql.DB, id int64) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists, assets int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*),
		        (SELECT COUNT(*) FROM assets WHERE category_id = ? AND deleted_at IS NULL)
		 FROM categories WHERE id = ?`, id, id,
	).Scan(&exists, &assets)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if exists == 0 {
		return model.ErrCategoryMissing
	}
	if assets > 0 {
		return model.ErrCategoryHasAssets
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM categories WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting category: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing category deletion: %w", err)
	}
	return nil
}
