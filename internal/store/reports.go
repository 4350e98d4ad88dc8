package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/erazemk/assettrack/internal/model"
)

// DashboardStats returns aggregate counts over active assets, users,
// categories and open assignments.
func DashboardStats(ctx context.Context, db *sql.DB) (*model.DashboardStats, error) {
	s := &model.DashboardStats{}
	err := db.QueryRowContext(ctx,
		`SELECT
		    (SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL),
		    (SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL AND status = 'available'),
		    (SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL AND status = 'assigned'),
		    (SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL AND status = 'maintenance'),
		    (SELECT COUNT(*) FROM assets WHERE deleted_at IS NULL AND status = 'broken'),
		    (SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND is_active = 1 AND role = 'employee'),
		    (SELECT COUNT(*) FROM users WHERE deleted_at IS NULL AND is_active = 1 AND role = 'admin'),
		    (SELECT COUNT(*) FROM categories),
		    (SELECT COUNT(*) FROM assignments WHERE returned_at IS NULL)`,
	).Scan(&s.TotalAssets, &s.AvailableAssets, &s.AssignedAssets, &s.MaintenanceAssets, &s.BrokenAssets,
		&s.TotalEmployees, &s.TotalAdmins, &s.TotalCategories, &s.ActiveAssignments)
	if err != nil {
		return nil, fmt.Errorf("computing dashboard stats: %w", err)
	}
	return s, nil
}

// AssetsByCategory returns the number of active assets per category, largest first.
func AssetsByCategory(ctx context.Context, db *sql.DB) ([]model.CategoryCount, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT c.id, c.name, COUNT(a.id) AS n
		 FROM categories c
		 LEFT JOIN assets a ON a.category_id = c.id AND a.deleted_at IS NULL
		 GROUP BY c.id, c.name
		 ORDER BY n DESC, c.name`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting assets by category: %w", err)
	}
	defer rows.Close()

	var counts []model.CategoryCount
	for rows.Next() {
		var c model.CategoryCount
		if err := rows.Scan(&c.ID, &c.Name, &c.Count); err != nil {
			return nil, fmt.Errorf("scanning category count: %w", err)
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}

// AssetsByStatus returns the number of active assets in each status. Every
// status is present in the result, even when its count is zero.
func AssetsByStatus(ctx context.Context, db *sql.DB) (map[string]int, error) {
	counts := make(map[string]int, len(model.AssetStatuses))
	for _, s := range model.AssetStatuses {
		counts[s] = 0
	}

	rows, err := db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM assets WHERE deleted_at IS NULL GROUP BY status`,
	)
	if err != nil {
		return nil, fmt.Errorf("counting assets by status: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scanning status count: %w", err)
		}
		counts[status] = n
	}
	return counts, rows.Err()
}

// UserHoldings returns the assets a user currently holds, each with the open
// assignment that put it there, most recently assigned first.
func UserHoldings(ctx context.Context, db *sql.DB, userID int64) ([]model.Holding, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT `+assetColumns+`, s.id, s.assigned_at, b.name, COALESCE(s.notes, '')
		 FROM assignments s
		 JOIN assets a ON a.id = s.asset_id
		 LEFT JOIN categories c ON c.id = a.category_id
		 JOIN users b ON b.id = s.assigned_by
		 WHERE s.user_id = ? AND s.returned_at IS NULL AND a.deleted_at IS NULL
		 ORDER BY s.assigned_at DESC, s.id DESC`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing holdings: %w", err)
	}
	defer rows.Close()

	var holdings []model.Holding
	for rows.Next() {
		var h model.Holding
		var categoryID sql.NullInt64
		var imagePath sql.NullString
		if err := rows.Scan(&h.ID, &h.Name, &h.SerialNumber, &categoryID, &h.Status, &imagePath,
			&h.CreatedAt, &h.UpdatedAt, &h.DeletedAt, &h.CategoryName,
			&h.AssignmentID, &h.AssignedAt, &h.AssignedByName, &h.Notes); err != nil {
			return nil, fmt.Errorf("scanning holding: %w", err)
		}
		h.CategoryID = categoryID.Int64
		h.ImagePath = imagePath.String
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}
