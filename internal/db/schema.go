package db

import (
	"database/sql"
	"fmt"
)

// schema is the full database schema.
const schema = `
CREATE TABLE IF NOT EXISTS users (
    id            INTEGER PRIMARY KEY,
    name          TEXT NOT NULL,
    email         TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    role          TEXT NOT NULL DEFAULT 'employee' CHECK (role IN ('admin', 'employee')),
    is_active     INTEGER NOT NULL DEFAULT 1,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_users_email_active
    ON users(email) WHERE deleted_at IS NULL;

CREATE TABLE IF NOT EXISTS categories (
    id         INTEGER PRIMARY KEY,
    name       TEXT NOT NULL UNIQUE,
    slug       TEXT NOT NULL UNIQUE,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS assets (
    id            INTEGER PRIMARY KEY,
    category_id   INTEGER REFERENCES categories(id) ON DELETE SET NULL,
    name          TEXT NOT NULL,
    serial_number TEXT NOT NULL UNIQUE CHECK (serial_number <> ''),
    status        TEXT NOT NULL DEFAULT 'available' CHECK (status IN ('available', 'assigned', 'maintenance', 'broken')),
    image_path    TEXT,
    created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    deleted_at    DATETIME
);

CREATE TABLE IF NOT EXISTS assignments (
    id           INTEGER PRIMARY KEY,
    asset_id     INTEGER NOT NULL REFERENCES assets(id),
    user_id      INTEGER NOT NULL REFERENCES users(id),
    assigned_by  INTEGER NOT NULL REFERENCES users(id),
    assigned_at  DATETIME NOT NULL,
    returned_at  DATETIME,
    notes        TEXT,
    return_notes TEXT
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_assignments_open_asset
    ON assignments(asset_id) WHERE returned_at IS NULL;

CREATE TRIGGER IF NOT EXISTS assignments_no_delete
BEFORE DELETE ON assignments
BEGIN
    SELECT RAISE(ABORT, 'assignments are permanent');
END;

CREATE TRIGGER IF NOT EXISTS assignments_close_once
BEFORE UPDATE ON assignments
WHEN OLD.returned_at IS NOT NULL
  OR NEW.returned_at IS NULL
  OR NEW.asset_id IS NOT OLD.asset_id
  OR NEW.user_id IS NOT OLD.user_id
  OR NEW.assigned_by IS NOT OLD.assigned_by
  OR NEW.assigned_at IS NOT OLD.assigned_at
  OR NEW.notes IS NOT OLD.notes
BEGIN
    SELECT RAISE(ABORT, 'assignments can only be closed once');
END;

CREATE TABLE IF NOT EXISTS settings (
    key   TEXT PRIMARY KEY,
    value TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS revoked_tokens (
    jti        TEXT PRIMARY KEY,
    expires_at DATETIME NOT NULL
);
`

// EnsureSchema creates all tables, indexes and triggers if they don't already
// exist, then applies pending migrations.
func EnsureSchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("creating schema: %w", err)
	}
	return migrate(db)
}
