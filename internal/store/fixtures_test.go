package store

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/erazemk/assettrack/internal/model"
)

var testNow = time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

func mustUser(t *testing.T, database *sql.DB, name, role string) *model.User {
	t.Helper()
	u, err := CreateUser(context.Background(), database, UserFields{
		Name:     name,
		Email:    name + "@example.com",
		Role:     role,
		IsActive: true,
	}, "hash")
	if err != nil {
		t.Fatalf("CreateUser(%s): %v", name, err)
	}
	return u
}

func mustCategory(t *testing.T, database *sql.DB, name string) *model.Category {
	t.Helper()
	c, err := CreateCategory(context.Background(), database, name)
	if err != nil {
		t.Fatalf("CreateCategory(%s): %v", name, err)
	}
	return c
}

var serialSeq int

func mustAsset(t *testing.T, database *sql.DB, categoryID int64, name string) *model.Asset {
	t.Helper()
	serialSeq++
	a, err := CreateAsset(context.Background(), database, AssetFields{
		Name:         name,
		SerialNumber: fmt.Sprintf("SN-%04d", serialSeq),
		CategoryID:   categoryID,
	})
	if err != nil {
		t.Fatalf("CreateAsset(%s): %v", name, err)
	}
	return a
}

// checkLedgerConsistent verifies that every active asset is assigned exactly
// when it has one open assignment.
func checkLedgerConsistent(t *testing.T, database *sql.DB) {
	t.Helper()
	rows, err := database.Query(
		`SELECT a.id, a.status,
		        (SELECT COUNT(*) FROM assignments s WHERE s.asset_id = a.id AND s.returned_at IS NULL)
		 FROM assets a`,
	)
	if err != nil {
		t.Fatalf("querying ledger consistency: %v", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var status string
		var open int
		if err := rows.Scan(&id, &status, &open); err != nil {
			t.Fatalf("scanning ledger consistency: %v", err)
		}
		if (status == model.AssetStatusAssigned) != (open == 1) || open > 1 {
			t.Errorf("asset %d: status %q with %d open assignments", id, status, open)
		}
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterating ledger consistency: %v", err)
	}
}
