package db

import (
	"database/sql"
	"fmt"
)

// migrations is a list of SQL statements applied in order after schema creation.
// Each migration must be idempotent. Append new migrations at the end.
var migrations = []string{
	// Migration 1: lookup indexes for the per-user holdings and per-category
	// listings, which filter on these columns on every dashboard load.
	`CREATE INDEX IF NOT EXISTS idx_assignments_user_open
	     ON assignments(user_id) WHERE returned_at IS NULL`,
	`CREATE INDEX IF NOT EXISTS idx_assets_category
	     ON assets(category_id) WHERE deleted_at IS NULL`,

	// Migration 2: history reads order by assigned_at within one asset.
	`CREATE INDEX IF NOT EXISTS idx_assignments_asset_assigned_at
	     ON assignments(asset_id, assigned_at DESC)`,
}

// migrate runs the database schema migrations.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("running migration %d: %w", i+1, err)
		}
	}
	return nil
}
