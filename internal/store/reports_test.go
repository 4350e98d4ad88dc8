package store

import (
	"context"
	"testing"
	"time"

	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/model"
)

func TestDashboardStats(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	admin := mustUser(t, database, "admin", model.RoleAdmin)
	emp := mustUser(t, database, "emp", model.RoleEmployee)
	mustUser(t, database, "emp2", model.RoleEmployee)
	laptops := mustCategory(t, database, "Laptops")
	monitors := mustCategory(t, database, "Monitors")

	a1 := mustAsset(t, database, laptops.ID, "ThinkPad")
	mustAsset(t, database, laptops.ID, "MacBook")
	m := mustAsset(t, database, monitors.ID, "Dell")
	gone := mustAsset(t, database, monitors.ID, "Old Dell")
	UpdateAsset(ctx, database, m.ID, AssetFields{Name: m.Name, SerialNumber: m.SerialNumber, CategoryID: monitors.ID, Status: model.AssetStatusBroken})
	DeleteAsset(ctx, database, gone.ID, testNow)
	AssignAsset(ctx, database, a1.ID, emp.ID, admin.ID, "", testNow)

	stats, err := DashboardStats(ctx, database)
	if err != nil {
		t.Fatalf("DashboardStats: %v", err)
	}
	want := model.DashboardStats{
		TotalAssets:       3,
		AvailableAssets:   1,
		AssignedAssets:    1,
		MaintenanceAssets: 0,
		BrokenAssets:      1,
		TotalEmployees:    2,
		TotalAdmins:       1,
		TotalCategories:   2,
		ActiveAssignments: 1,
	}
	if *stats != want {
		t.Errorf("expected %+v, got %+v", want, *stats)
	}

	byStatus, err := AssetsByStatus(ctx, database)
	if err != nil {
		t.Fatalf("AssetsByStatus: %v", err)
	}
	if byStatus[model.AssetStatusAvailable] != 1 || byStatus[model.AssetStatusMaintenance] != 0 || len(byStatus) != 4 {
		t.Errorf("unexpected status counts: %v", byStatus)
	}

	byCategory, err := AssetsByCategory(ctx, database)
	if err != nil {
		t.Fatalf("AssetsByCategory: %v", err)
	}
	if len(byCategory) != 2 || byCategory[0].Name != "Laptops" || byCategory[0].Count != 2 || byCategory[1].Count != 1 {
		t.Errorf("unexpected category counts: %v", byCategory)
	}
}

func TestUserHoldings(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	admin := mustUser(t, database, "admin", model.RoleAdmin)
	emp := mustUser(t, database, "emp", model.RoleEmployee)
	other := mustUser(t, database, "other", model.RoleEmployee)
	cat := mustCategory(t, database, "Laptops")

	first := mustAsset(t, database, cat.ID, "ThinkPad")
	second := mustAsset(t, database, cat.ID, "Monitor")
	returned := mustAsset(t, database, cat.ID, "Dock")
	theirs := mustAsset(t, database, cat.ID, "Phone")

	AssignAsset(ctx, database, first.ID, emp.ID, admin.ID, "desk 4", testNow)
	AssignAsset(ctx, database, second.ID, emp.ID, admin.ID, "", testNow.Add(time.Hour))
	AssignAsset(ctx, database, returned.ID, emp.ID, admin.ID, "", testNow)
	ReturnAsset(ctx, database, returned.ID, "", testNow.Add(2*time.Hour))
	AssignAsset(ctx, database, theirs.ID, other.ID, admin.ID, "", testNow)

	holdings, err := UserHoldings(ctx, database, emp.ID)
	if err != nil {
		t.Fatalf("UserHoldings: %v", err)
	}
	if len(holdings) != 2 {
		t.Fatalf("expected 2 holdings, got %d", len(holdings))
	}
	if holdings[0].ID != second.ID || !holdings[0].AssignedAt.Equal(testNow.Add(time.Hour)) {
		t.Errorf("expected most recent holding first, got %+v", holdings[0])
	}
	if holdings[1].Notes != "desk 4" || holdings[1].AssignedByName != "admin" || holdings[1].CategoryName != "Laptops" {
		t.Errorf("unexpected holding details: %+v", holdings[1])
	}

	none, err := UserHoldings(ctx, database, admin.ID)
	if err != nil {
		t.Fatalf("UserHoldings: %v", err)
	}
	if len(none) != 0 {
		t.Errorf("expected no holdings for admin, got %d", len(none))
	}
}
