package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/erazemk/assettrack/internal/model"
)

// UserFields are the admin-editable attributes of a user.
type UserFields struct {
	Name     string
	Email    string
	Role     string
	IsActive bool
}

const userColumns = `u.id, u.name, u.email, u.password_hash, u.role, u.is_active, u.created_at, u.deleted_at,
	(SELECT COUNT(*) FROM assignments s WHERE s.user_id = u.id AND s.returned_at IS NULL)`

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.Role, &u.IsActive,
		&u.CreatedAt, &u.DeletedAt, &u.ActiveAssignments); err != nil {
		return nil, err
	}
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateUser creates a new user. Emails are unique among non-deleted users
// and compared case-insensitively.
func CreateUser(ctx context.Context, db *sql.DB, f UserFields, passwordHash string) (*model.User, error) {
	if !model.ValidRole(f.Role) {
		return nil, model.ValidationFailed(map[string]string{"role": "oneof"})
	}

	result, err := db.ExecContext(ctx,
		`INSERT INTO users (name, email, password_hash, role, is_active) VALUES (?, ?, ?, ?, ?)`,
		f.Name, normalizeEmail(f.Email), passwordHash, f.Role, f.IsActive,
	)
	if isUniqueViolation(err, "users.email") {
		return nil, model.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, db, id)
}

// GetUser returns a user by ID, including soft-deleted ones.
func GetUser(ctx context.Context, db *sql.DB, id int64) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetUserByEmail returns the non-deleted user with the given email.
func GetUserByEmail(ctx context.Context, db *sql.DB, email string) (*model.User, error) {
	u, err := scanUser(db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users u WHERE u.email = ? AND u.deleted_at IS NULL`,
		normalizeEmail(email),
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by email: %w", err)
	}
	return u, nil
}

// ListUsers returns non-deleted users matching the filter with their open
// assignment counts, ordered by name. Search matches name or email.
func ListUsers(ctx context.Context, db *sql.DB, filter model.UserFilter) ([]model.User, error) {
	query := `SELECT ` + userColumns + ` FROM users u WHERE u.deleted_at IS NULL`
	var args []any

	if filter.Role != "" {
		query += ` AND u.role = ?`
		args = append(args, filter.Role)
	}
	if filter.Active != nil {
		query += ` AND u.is_active = ?`
		args = append(args, *filter.Active)
	}
	if filter.Search != "" {
		query += ` AND (u.name LIKE ? OR u.email LIKE ?)`
		like := "%" + filter.Search + "%"
		args = append(args, like, like)
	}

	query += ` ORDER BY u.name, u.id`

	if filter.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, filter.Offset)
	}

	return listUsers(ctx, db, query, args...)
}

// ListActiveEmployees returns the users an asset can be assigned to by default:
// active, non-deleted employees ordered by name.
func ListActiveEmployees(ctx context.Context, db *sql.DB) ([]model.User, error) {
	return listUsers(ctx, db,
		`SELECT `+userColumns+` FROM users u
		 WHERE u.deleted_at IS NULL AND u.is_active = 1 AND u.role = ?
		 ORDER BY u.name, u.id`, model.RoleEmployee,
	)
}

func listUsers(ctx context.Context, db *sql.DB, query string, args ...any) ([]model.User, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// CountUsers returns the number of non-deleted users.
func CountUsers(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE deleted_at IS NULL`,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting users: %w", err)
	}
	return n, nil
}

// UpdateUser updates a user's profile, role and active flag. A non-empty
// passwordHash replaces the stored hash in the same statement, so a reset
// never lands without the profile change or the other way round.
func UpdateUser(ctx context.Context, db *sql.DB, id int64, f UserFields, passwordHash string) (*model.User, error) {
	if !model.ValidRole(f.Role) {
		return nil, model.ValidationFailed(map[string]string{"role": "oneof"})
	}

	result, err := db.ExecContext(ctx,
		`UPDATE users SET name = ?, email = ?, role = ?, is_active = ?,
		 password_hash = COALESCE(NULLIF(?, ''), password_hash)
		 WHERE id = ? AND deleted_at IS NULL`,
		f.Name, normalizeEmail(f.Email), f.Role, f.IsActive, passwordHash, id,
	)
	if isUniqueViolation(err, "users.email") {
		return nil, model.ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("updating user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, model.ErrUserMissing
	}

	return GetUser(ctx, db, id)
}

// UpdateUserPassword updates a user's password hash.
func UpdateUserPassword(ctx context.Context, db *sql.DB, id int64, passwordHash string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`,
		passwordHash, id,
	)
	if err != nil {
		return fmt.Errorf("updating user password: %w", err)
	}
	return nil
}

// DeleteUser soft-deletes a user. Users cannot delete themselves, and a user
// still holding assets cannot be deleted.
func DeleteUser(ctx context.Context, db *sql.DB, id, actorID int64, now time.Time) error {
	if id == actorID {
		return model.ErrCannotDeleteSelf
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var open int
	err = tx.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM assignments WHERE user_id = u.id AND returned_at IS NULL)
		 FROM users u WHERE u.id = ? AND u.deleted_at IS NULL`, id,
	).Scan(&open)
	if err == sql.ErrNoRows {
		return model.ErrUserMissing
	}
	if err != nil {
		return fmt.Errorf("checking user: %w", err)
	}
	if open > 0 {
		return model.ErrUserHasAssignments
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`, now.UTC(), id,
	); err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user deletion: %w", err)
	}
	return nil
}
