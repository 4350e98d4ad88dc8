package service

import (
	"context"

	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// CategoryInput is the admin-supplied data for a category.
type CategoryInput struct {
	Name string `json:"name" validate:"required,max=255"`
}

// CategoryDetail is a category with its active assets.
type CategoryDetail struct {
	model.Category
	Assets []model.Asset `json:"assets"`
}

// CreateCategory adds a category. Names are unique.
func (s *Service) CreateCategory(ctx context.Context, p model.Principal, in CategoryInput) (*model.Category, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("create category", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("create category", p, err)
	}

	c, err := store.CreateCategory(ctx, s.DB, in.Name)
	if err != nil {
		return nil, s.outcome("create category", p, err)
	}

	s.Logger.Info("category created", "actor", p.UserID, "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

// UpdateCategory renames a category.
func (s *Service) UpdateCategory(ctx context.Context, p model.Principal, id int64, in CategoryInput) (*model.Category, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("update category", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("update category", p, err)
	}

	c, err := store.UpdateCategory(ctx, s.DB, id, in.Name)
	if err != nil {
		return nil, s.outcome("update category", p, err)
	}

	s.Logger.Info("category updated", "actor", p.UserID, "category_id", c.ID, "slug", c.Slug)
	return c, nil
}

// DeleteCategory removes a category no active asset belongs to.
func (s *Service) DeleteCategory(ctx context.Context, p model.Principal, id int64) error {
	if err := requireAdmin(p); err != nil {
		return s.outcome("delete category", p, err)
	}
	if err := store.DeleteCategory(ctx, s.DB, id); err != nil {
		return s.outcome("delete category", p, err)
	}

	s.Logger.Info("category deleted", "actor", p.UserID, "category_id", id)
	return nil
}

// GetCategory returns a category with the active assets filed under it.
func (s *Service) GetCategory(ctx context.Context, p model.Principal, id int64) (*CategoryDetail, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	c, err := store.GetCategory(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, model.ErrCategoryMissing
	}

	assets, err := store.ListAssets(ctx, s.DB, model.AssetFilter{CategoryID: id})
	if err != nil {
		return nil, err
	}
	return &CategoryDetail{Category: *c, Assets: assets}, nil
}

// ListCategories is readable by any signed-in user so clients can label assets.
func (s *Service) ListCategories(ctx context.Context, p model.Principal) ([]model.Category, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	return store.ListCategories(ctx, s.DB)
}
