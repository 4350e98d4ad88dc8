package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/assettrack/internal/model"
)

// AssetFields are the admin-editable attributes of an asset.
type AssetFields struct {
	Name         string
	SerialNumber string
	CategoryID   int64
	Status       string
	// ImagePath replaces the stored image when non-empty.
	ImagePath string
}

const assetColumns = `a.id, a.name, a.serial_number, a.category_id, a.status, a.image_path,
	a.created_at, a.updated_at, a.deleted_at, COALESCE(c.name, '')`

func scanAsset(row rowScanner) (*model.Asset, error) {
	a := &model.Asset{}
	var categoryID sql.NullInt64
	var imagePath sql.NullString
	if err := row.Scan(&a.ID, &a.Name, &a.SerialNumber, &categoryID, &a.Status, &imagePath,
		&a.CreatedAt, &a.UpdatedAt, &a.DeletedAt, &a.CategoryName); err != nil {
		return nil, err
	}
	a.CategoryID = categoryID.Int64
	a.ImagePath = imagePath.String
	return a, nil
}

// CreateAsset creates a new asset. The category must exist and the serial
// number must be unused. An empty status defaults to available; an asset can
// never be created as assigned since no assignment would back it.
func CreateAsset(ctx context.Context, db *sql.DB, f AssetFields) (*model.Asset, error) {
	if f.Status == "" {
		f.Status = model.AssetStatusAvailable
	}
	if !model.ValidAssetStatus(f.Status) {
		return nil, model.ErrInvalidStatus
	}
	if f.Status == model.AssetStatusAssigned {
		return nil, model.ErrInvalidStatusTransition
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := checkAssetRefs(ctx, tx, 0, f); err != nil {
		return nil, err
	}

	result, err := tx.ExecContext(ctx,
		`INSERT INTO assets (category_id, name, serial_number, status, image_path)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''))`,
		f.CategoryID, f.Name, f.SerialNumber, f.Status, f.ImagePath,
	)
	if isUniqueViolation(err, "assets.serial_number") {
		return nil, model.ErrDuplicateSerialNumber
	}
	if err != nil {
		return nil, fmt.Errorf("creating asset: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting asset id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing asset: %w", err)
	}

	return GetAsset(ctx, db, id)
}

// checkAssetRefs validates serial-number uniqueness (ignoring the asset's own
// row) and category existence inside the caller's transaction.
func checkAssetRefs(ctx context.Context, tx *sql.Tx, selfID int64, f AssetFields) error {
	var taken int
	err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM assets WHERE serial_number = ? AND id <> ?`,
		f.SerialNumber, selfID,
	).Scan(&taken)
	if err != nil {
		return fmt.Errorf("checking serial number: %w", err)
	}
	if taken > 0 {
		return model.ErrDuplicateSerialNumber
	}

	var found int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM categories WHERE id = ?`, f.CategoryID,
	).Scan(&found)
	if err != nil {
		return fmt.Errorf("checking category: %w", err)
	}
	if found == 0 {
		return model.ErrCategoryNotFound
	}
	return nil
}

// GetAsset returns an asset by ID, including soft-deleted ones.
func GetAsset(ctx context.Context, db *sql.DB, id int64) (*model.Asset, error) {
	a, err := scanAsset(db.QueryRowContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets a LEFT JOIN categories c ON c.id = a.category_id
		 WHERE a.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting asset: %w", err)
	}
	return a, nil
}

// ListAssets returns all non-deleted assets matching the filter, newest first.
func ListAssets(ctx context.Context, db *sql.DB, filter model.AssetFilter) ([]model.Asset, error) {
	query := `SELECT ` + assetColumns + `
	          FROM assets a LEFT JOIN categories c ON c.id = a.category_id
	          WHERE a.deleted_at IS NULL`
	var args []any

	if filter.Status != "" {
		query += ` AND a.status = ?`
		args = append(args, filter.Status)
	}
	if filter.CategoryID > 0 {
		query += ` AND a.category_id = ?`
		args = append(args, filter.CategoryID)
	}
	if filter.Search != "" {
		query += ` AND (a.name LIKE ? OR a.serial_number LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}

	query += ` ORDER BY a.created_at DESC, a.id DESC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// ListAvailableAssets returns assets that can be assigned right now, by name.
func ListAvailableAssets(ctx context.Context, db *sql.DB) ([]model.Asset, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+assetColumns+`
		 FROM assets a LEFT JOIN categories c ON c.id = a.category_id
		 WHERE a.deleted_at IS NULL AND a.status = ?
		 ORDER BY a.name`, model.AssetStatusAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("listing available assets: %w", err)
	}
	defer rows.Close()

	var assets []model.Asset
	for rows.Next() {
		a, err := scanAsset(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning asset: %w", err)
		}
		assets = append(assets, *a)
	}
	return assets, rows.Err()
}

// UpdateAsset updates an asset's metadata and returns the updated asset along
// with the image path it replaced, if any. An empty status keeps the current
// one. The update may move an asset between available, maintenance and broken
// but never into or out of assigned; that is the ledger's job.
func UpdateAsset(ctx context.Context, db *sql.DB, id int64, f AssetFields) (*model.Asset, string, error) {
	if f.Status != "" && !model.ValidAssetStatus(f.Status) {
		return nil, "", model.ErrInvalidStatus
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var current string
	var oldImage sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT status, image_path FROM assets WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&current, &oldImage)
	if err == sql.ErrNoRows {
		return nil, "", model.ErrAssetNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("checking asset: %w", err)
	}

	if f.Status == "" {
		f.Status = current
	}
	switch {
	case current == model.AssetStatusAssigned && f.Status != model.AssetStatusAssigned:
		return nil, "", model.ErrAssetCurrentlyAssigned
	case current != model.AssetStatusAssigned && f.Status == model.AssetStatusAssigned:
		return nil, "", model.ErrInvalidStatusTransition
	}

	if err := checkAssetRefs(ctx, tx, id, f); err != nil {
		return nil, "", err
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE assets SET name = ?, serial_number = ?, category_id = ?, status = ?,
		        image_path = COALESCE(NULLIF(?, ''), image_path), updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND deleted_at IS NULL`,
		f.Name, f.SerialNumber, f.CategoryID, f.Status, f.ImagePath, id,
	)
	if isUniqueViolation(err, "assets.serial_number") {
		return nil, "", model.ErrDuplicateSerialNumber
	}
	if err != nil {
		return nil, "", fmt.Errorf("updating asset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("committing asset update: %w", err)
	}

	replaced := ""
	if f.ImagePath != "" && oldImage.String != f.ImagePath {
		replaced = oldImage.String
	}

	a, err := GetAsset(ctx, db, id)
	if err != nil {
		return nil, "", err
	}
	return a, replaced, nil
}

// DeleteAsset soft-deletes an asset. An assigned asset is refused with
// ErrAssetCurrentlyAssigned and left untouched.
func DeleteAsset(ctx context.Context, db *sql.DB, id int64, now time.Time) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM assets WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return model.ErrAssetNotFound
	}
	if err != nil {
		return fmt.Errorf("checking asset: %w", err)
	}
	if status == model.AssetStatusAssigned {
		return model.ErrAssetCurrentlyAssigned
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE assets SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL AND status <> ?`,
		now, id, model.AssetStatusAssigned,
	)
	if err != nil {
		return fmt.Errorf("deleting asset: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing asset deletion: %w", err)
	}
	return nil
}

// SetAssetImage points an active asset at a new image and returns the image
// path it replaced, if any.
func SetAssetImage(ctx context.Context, db *sql.DB, id int64, imagePath string) (string, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var old sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT image_path FROM assets WHERE id = ? AND deleted_at IS NULL`, id,
	).Scan(&old)
	if err == sql.ErrNoRows {
		return "", model.ErrAssetNotFound
	}
	if err != nil {
		return "", fmt.Errorf("checking asset: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE assets SET image_path = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		imagePath, id,
	); err != nil {
		return "", fmt.Errorf("setting asset image: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("committing asset image: %w", err)
	}
	return old.String, nil
}
