package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/erazemk/assettrack/internal/model"
)

// RecentLimit is how many assignments the recent-activity listings return.
const RecentLimit = 5

const assignmentColumns = `s.id, s.asset_id, s.user_id, s.assigned_by, s.assigned_at, s.returned_at,
	COALESCE(s.notes, ''), COALESCE(s.return_notes, ''),
	a.name, a.serial_number, u.name, b.name`

const assignmentJoins = `FROM assignments s
	JOIN assets a ON a.id = s.asset_id
	JOIN users u ON u.id = s.user_id
	JOIN users b ON b.id = s.assigned_by`

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	s := &model.Assignment{}
	if err := row.Scan(&s.ID, &s.AssetID, &s.UserID, &s.AssignedBy, &s.AssignedAt, &s.ReturnedAt,
		&s.Notes, &s.ReturnNotes, &s.AssetName, &s.SerialNumber, &s.UserName, &s.AssignedByName); err != nil {
		return nil, err
	}
	return s, nil
}

// AssignAsset checks an available asset out to a holder. The status check,
// the status change and the ledger insert all happen in one write transaction,
// so of two concurrent calls for the same asset exactly one succeeds and the
// other gets ErrAssetNotAvailable.
func AssignAsset(ctx context.Context, db *sql.DB, assetID, userID, adminID int64, notes string, now time.Time) (*model.Assignment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var status string
	err = tx.QueryRowContext(ctx,
		`SELECT status FROM assets WHERE id = ? AND deleted_at IS NULL`, assetID,
	).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, model.ErrAssetNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("checking asset status: %w", err)
	}
	if status != model.AssetStatusAvailable {
		return nil, model.AssetNotAvailable(status)
	}

	var holders int
	err = tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE id = ? AND deleted_at IS NULL AND is_active = 1`, userID,
	).Scan(&holders)
	if err != nil {
		return nil, fmt.Errorf("checking holder: %w", err)
	}
	if holders == 0 {
		return nil, model.ErrUserNotFound
	}

	// The WHERE clause re-checks availability under the write lock.
	result, err := tx.ExecContext(ctx,
		`UPDATE assets SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ? AND deleted_at IS NULL`,
		model.AssetStatusAssigned, assetID, model.AssetStatusAvailable,
	)
	if err != nil {
		return nil, fmt.Errorf("marking asset assigned: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return nil, fmt.Errorf("marking asset assigned: %w", err)
	} else if n != 1 {
		return nil, model.AssetNotAvailable(model.AssetStatusAssigned)
	}

	result, err = tx.ExecContext(ctx,
		`INSERT INTO assignments (asset_id, user_id, assigned_by, assigned_at, notes)
		 VALUES (?, ?, ?, ?, NULLIF(?, ''))`,
		assetID, userID, adminID, now.UTC(), notes,
	)
	if isUniqueViolation(err, "assignments.asset_id") {
		return nil, model.AssetNotAvailable(model.AssetStatusAssigned)
	}
	if err != nil {
		return nil, fmt.Errorf("recording assignment: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting assignment id: %w", err)
	}

	assignment, err := getAssignment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing assignment: %w", err)
	}
	return assignment, nil
}

// ReturnAsset closes the open assignment for an asset and makes the asset
// available again. Without an open assignment it fails with
// ErrNoActiveAssignment.
func ReturnAsset(ctx context.Context, db *sql.DB, assetID int64, notes string, now time.Time) (*model.Assignment, error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM assignments WHERE asset_id = ? AND returned_at IS NULL`, assetID,
	).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, model.ErrNoActiveAssignment
	}
	if err != nil {
		return nil, fmt.Errorf("finding open assignment: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE assignments SET returned_at = ?, return_notes = NULLIF(?, '')
		 WHERE id = ? AND returned_at IS NULL`,
		now.UTC(), notes, id,
	)
	if err != nil {
		return nil, fmt.Errorf("closing assignment: %w", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		return nil, model.ErrNoActiveAssignment
	}

	result, err = tx.ExecContext(ctx,
		`UPDATE assets SET status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? AND status = ?`,
		model.AssetStatusAvailable, assetID, model.AssetStatusAssigned,
	)
	if err != nil {
		return nil, fmt.Errorf("marking asset available: %w", err)
	}
	if n, _ := result.RowsAffected(); n != 1 {
		return nil, fmt.Errorf("asset %d has an open assignment but is not assigned", assetID)
	}

	assignment, err := getAssignment(ctx, tx, id)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing return: %w", err)
	}
	return assignment, nil
}

// GetAssignment returns an assignment by ID with asset and user names attached.
func GetAssignment(ctx context.Context, db *sql.DB, id int64) (*model.Assignment, error) {
	s, err := getAssignment(ctx, db, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// queryRower is satisfied by both *sql.DB and *sql.Tx.
type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// getAssignment reads the joined assignment row through q. A missing row is
// returned as sql.ErrNoRows so callers inside a transaction treat it as a
// failure.
func getAssignment(ctx context.Context, q queryRower, id int64) (*model.Assignment, error) {
	s, err := scanAssignment(q.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` `+assignmentJoins+` WHERE s.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("getting assignment: %w", err)
	}
	return s, nil
}

// ListAssignments returns assignments matching the filter, newest first.
// Closed assignments of soft-deleted assets are still included.
func ListAssignments(ctx context.Context, db *sql.DB, filter model.AssignmentFilter) ([]model.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` ` + assignmentJoins + ` WHERE 1=1`
	var args []any

	if filter.AssetID > 0 {
		query += ` AND s.asset_id = ?`
		args = append(args, filter.AssetID)
	}
	if filter.UserID > 0 {
		query += ` AND s.user_id = ?`
		args = append(args, filter.UserID)
	}
	if filter.OpenOnly {
		query += ` AND s.returned_at IS NULL`
	}

	query += ` ORDER BY s.assigned_at DESC, s.id DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing assignments: %w", err)
	}
	defer rows.Close()

	var assignments []model.Assignment
	for rows.Next() {
		s, err := scanAssignment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assignment: %w", err)
		}
		assignments = append(assignments, *s)
	}
	return assignments, rows.Err()
}

// AssetHistory returns every assignment of an asset, newest first.
func AssetHistory(ctx context.Context, db *sql.DB, assetID int64) ([]model.Assignment, error) {
	return ListAssignments(ctx, db, model.AssignmentFilter{AssetID: assetID})
}

// RecentAssignments returns the latest RecentLimit assignments.
func RecentAssignments(ctx context.Context, db *sql.DB) ([]model.Assignment, error) {
	return ListAssignments(ctx, db, model.AssignmentFilter{Limit: RecentLimit})
}
