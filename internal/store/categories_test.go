package store

import (
	"context"
	"errors"
	"testing"

	"github.com/erazemk/assettrack/internal/db"
	"github.com/erazemk/assettrack/internal/model"
)

func TestCreateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c, err := CreateCategory(ctx, database, "Monitors & Displays")
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	if c.Slug != "monitors-displays" {
		t.Errorf("expected slug 'monitors-displays', got %q", c.Slug)
	}

	_, err = CreateCategory(ctx, database, "Monitors & Displays")
	if !errors.Is(err, model.ErrDuplicateCategoryName) {
		t.Errorf("expected ErrDuplicateCategoryName, got %v", err)
	}

	// Different name, same slug.
	_, err = CreateCategory(ctx, database, "Monitors / Displays")
	if !errors.Is(err, model.ErrDuplicateCategoryName) {
		t.Errorf("expected ErrDuplicateCategoryName for slug clash, got %v", err)
	}

	_, err = CreateCategory(ctx, database, "!!!")
	if model.KindOf(err) != model.KindValidation {
		t.Errorf("expected validation error for empty slug, got %v", err)
	}
}

func TestUpdateCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := mustCategory(t, database, "Laptop")
	mustCategory(t, database, "Phones")

	updated, err := UpdateCategory(ctx, database, c.ID, "Laptops")
	if err != nil {
		t.Fatalf("UpdateCategory: %v", err)
	}
	if updated.Slug != "laptops" {
		t.Errorf("expected slug 'laptops', got %q", updated.Slug)
	}

	// Renaming to its own name is not a duplicate.
	if _, err := UpdateCategory(ctx, database, c.ID, "Laptops"); err != nil {
		t.Errorf("UpdateCategory with same name: %v", err)
	}

	if _, err := UpdateCategory(ctx, database, c.ID, "Phones"); !errors.Is(err, model.ErrDuplicateCategoryName) {
		t.Errorf("expected ErrDuplicateCategoryName, got %v", err)
	}

	if _, err := UpdateCategory(ctx, database, 9999, "Tablets"); !errors.Is(err, model.ErrCategoryMissing) {
		t.Errorf("expected ErrCategoryMissing, got %v", err)
	}
}

func TestListCategoriesCountsActiveAssets(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	laptops := mustCategory(t, database, "Laptops")
	mustCategory(t, database, "Cables")
	mustAsset(t, database, laptops.ID, "ThinkPad")
	gone := mustAsset(t, database, laptops.ID, "Old ThinkPad")
	DeleteAsset(ctx, database, gone.ID, testNow)

	categories, err := ListCategories(ctx, database)
	if err != nil {
		t.Fatalf("ListCategories: %v", err)
	}
	if len(categories) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(categories))
	}
	if categories[0].Name != "Cables" || categories[0].AssetCount != 0 {
		t.Errorf("unexpected first category: %+v", categories[0])
	}
	if categories[1].Name != "Laptops" || categories[1].AssetCount != 1 {
		t.Errorf("unexpected second category: %+v", categories[1])
	}
}

func TestDeleteCategory(t *testing.T) {
	database := db.NewTestDB(t)
	ctx := context.Background()

	c := mustCategory(t, database, "Laptops")
	a := mustAsset(t, database, c.ID, "ThinkPad")

	if err := DeleteCategory(ctx, database, c.ID); !errors.Is(err, model.ErrCategoryHasAssets) {
		t.Fatalf("expected ErrCategoryHasAssets, got %v", err)
	}
	if got, _ := GetCategory(ctx, database, c.ID); got == nil {
		t.Fatal("expected category to remain after refused delete")
	}

	// Soft-deleted assets do not block deletion.
	DeleteAsset(ctx, database, a.ID, testNow)
	if err := DeleteCategory(ctx, database, c.ID); err != nil {
		t.Fatalf("DeleteCategory: %v", err)
	}
	if got, _ := GetCategory(ctx, database, c.ID); got != nil {
		t.Error("expected category to be gone")
	}

	// History of the deleted asset survives.
	tombstone, _ := GetAsset(ctx, database, a.ID)
	if tombstone == nil || tombstone.CategoryID != 0 {
		t.Errorf("expected deleted asset to remain without category, got %+v", tombstone)
	}

	if err := DeleteCategory(ctx, database, c.ID); !errors.Is(err, model.ErrCategoryMissing) {
		t.Errorf("expected ErrCategoryMissing, got %v", err)
	}
}
