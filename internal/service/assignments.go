package service

import (
	"context"

	"github.com/erazemk/assettrack/internal/events"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// AssignInput names who receives an asset.
type AssignInput struct {
	UserID int64  `json:"user_id" validate:"required"`
	Notes  string `json:"notes" validate:"max=1000"`
}

// ReturnInput carries optional remarks recorded when an asset comes back.
type ReturnInput struct {
	Notes string `json:"notes" validate:"max=1000"`
}

// AssignAsset checks an available asset out to an active user on behalf of
// the acting admin. An AssetAssigned event follows the commit.
func (s *Service) AssignAsset(ctx context.Context, p model.Principal, assetID int64, in AssignInput) (*model.Assignment, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("assign asset", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("assign asset", p, err)
	}

	now := s.now()
	a, err := store.AssignAsset(ctx, s.DB, assetID, in.UserID, p.UserID, in.Notes, now)
	if err != nil {
		return nil, s.outcome("assign asset", p, err)
	}

	s.Logger.Info("asset assigned", "actor", p.UserID, "asset_id", a.AssetID, "holder", a.UserID, "assignment_id", a.ID)
	s.publish(ctx, events.FromAssignment(events.AssetAssigned, a, p.UserID, now))
	return a, nil
}

// ReturnAsset closes an asset's open assignment. An AssetReturned event
// follows the commit.
func (s *Service) ReturnAsset(ctx context.Context, p model.Principal, assetID int64, in ReturnInput) (*model.Assignment, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("return asset", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("return asset", p, err)
	}

	now := s.now()
	a, err := store.ReturnAsset(ctx, s.DB, assetID, in.Notes, now)
	if err != nil {
		return nil, s.outcome("return asset", p, err)
	}

	s.Logger.Info("asset returned", "actor", p.UserID, "asset_id", a.AssetID, "holder", a.UserID, "assignment_id", a.ID)
	s.publish(ctx, events.FromAssignment(events.AssetReturned, a, p.UserID, now))
	return a, nil
}

// GetAssignment returns one ledger entry. Employees may only see their own.
func (s *Service) GetAssignment(ctx context.Context, p model.Principal, id int64) (*model.Assignment, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	a, err := store.GetAssignment(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, model.ErrAssignmentNotFound
	}
	if !p.IsAdmin() && a.UserID != p.UserID {
		return nil, model.ErrForbidden
	}
	return a, nil
}

// ListAssignments returns ledger entries matching the filter, newest first.
func (s *Service) ListAssignments(ctx context.Context, p model.Principal, filter model.AssignmentFilter) ([]model.Assignment, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return store.ListAssignments(ctx, s.DB, filter)
}

// RecentAssignments returns the latest few ledger entries.
func (s *Service) RecentAssignments(ctx context.Context, p model.Principal) ([]model.Assignment, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return store.RecentAssignments(ctx, s.DB)
}
