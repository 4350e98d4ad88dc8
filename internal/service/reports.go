package service

import (
	"context"

	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// ListUserHoldings returns what a user currently holds. Employees may only
// ask about themselves.
func (s *Service) ListUserHoldings(ctx context.Context, p model.Principal, userID int64) ([]model.Holding, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if !p.IsAdmin() && p.UserID != userID {
		return nil, model.ErrForbidden
	}
	return store.UserHoldings(ctx, s.DB, userID)
}

// DashboardStats returns the headline counts shown to admins.
func (s *Service) DashboardStats(ctx context.Context, p model.Principal) (*model.DashboardStats, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return store.DashboardStats(ctx, s.DB)
}

// Dashboard gathers the admin overview in one call.
func (s *Service) Dashboard(ctx context.Context, p model.Principal) (*model.Dashboard, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	stats, err := store.DashboardStats(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	recent, err := store.RecentAssignments(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	byCategory, err := store.AssetsByCategory(ctx, s.DB)
	if err != nil {
		return nil, err
	}
	byStatus, err := store.AssetsByStatus(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	return &model.Dashboard{
		Stats:             *stats,
		RecentAssignments: recent,
		AssetsByCategory:  byCategory,
		AssetsByStatus:    byStatus,
	}, nil
}
