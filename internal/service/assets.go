package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/erazemk/assettrack/internal/imaging"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// AssetInput is the admin-supplied data for creating or editing an asset.
// Status is checked by the registry so an unknown value reports InvalidStatus.
type AssetInput struct {
	Name         string `json:"name" validate:"required,max=255"`
	SerialNumber string `json:"serial_number" validate:"required,max=255"`
	CategoryID   int64  `json:"category_id" validate:"required"`
	Status       string `json:"status"`
}

func (in AssetInput) fields(imagePath string) store.AssetFields {
	return store.AssetFields{
		Name:         in.Name,
		SerialNumber: in.SerialNumber,
		CategoryID:   in.CategoryID,
		Status:       in.Status,
		ImagePath:    imagePath,
	}
}

// storeImage normalises and saves an upload, returning its blob key.
// A nil reader stores nothing.
func (s *Service) storeImage(image io.Reader) (string, error) {
	if image == nil {
		return "", nil
	}
	if s.Blobs == nil {
		return "", fmt.Errorf("image storage not configured")
	}

	data, err := imaging.Process(image)
	switch {
	case errors.Is(err, imaging.ErrTooLarge):
		return "", model.ValidationFailed(map[string]string{"image": "max"})
	case errors.Is(err, imaging.ErrUnsupported):
		return "", model.ValidationFailed(map[string]string{"image": "mimes"})
	case err != nil:
		return "", err
	}

	return s.Blobs.Put(bytes.NewReader(data), imaging.OutputExt)
}

// CreateAsset registers a new asset, optionally with a photo.
func (s *Service) CreateAsset(ctx context.Context, p model.Principal, in AssetInput, image io.Reader) (*model.Asset, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("create asset", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("create asset", p, err)
	}

	key, err := s.storeImage(image)
	if err != nil {
		return nil, s.outcome("create asset", p, err)
	}

	a, err := store.CreateAsset(ctx, s.DB, in.fields(key))
	if err != nil {
		s.discardBlob(key)
		return nil, s.outcome("create asset", p, err)
	}

	s.Logger.Info("asset created", "actor", p.UserID, "asset_id", a.ID, "serial", a.SerialNumber)
	return a, nil
}

// UpdateAsset edits an asset. A new photo replaces the old one, which is
// deleted once the update has committed.
func (s *Service) UpdateAsset(ctx context.Context, p model.Principal, id int64, in AssetInput, image io.Reader) (*model.Asset, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("update asset", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("update asset", p, err)
	}

	key, err := s.storeImage(image)
	if err != nil {
		return nil, s.outcome("update asset", p, err)
	}

	a, replaced, err := store.UpdateAsset(ctx, s.DB, id, in.fields(key))
	if err != nil {
		s.discardBlob(key)
		return nil, s.outcome("update asset", p, err)
	}
	s.discardBlob(replaced)

	s.Logger.Info("asset updated", "actor", p.UserID, "asset_id", a.ID, "status", a.Status)
	return a, nil
}

// ReplaceAssetImage swaps an asset's photo without touching anything else.
func (s *Service) ReplaceAssetImage(ctx context.Context, p model.Principal, id int64, image io.Reader) (*model.Asset, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("replace asset image", p, err)
	}
	if image == nil {
		return nil, s.outcome("replace asset image", p, model.ValidationFailed(map[string]string{"image": "required"}))
	}

	key, err := s.storeImage(image)
	if err != nil {
		return nil, s.outcome("replace asset image", p, err)
	}

	replaced, err := store.SetAssetImage(ctx, s.DB, id, key)
	if err != nil {
		s.discardBlob(key)
		return nil, s.outcome("replace asset image", p, err)
	}
	s.discardBlob(replaced)

	s.Logger.Info("asset image replaced", "actor", p.UserID, "asset_id", id)
	return store.GetAsset(ctx, s.DB, id)
}

// OpenAssetImage returns the stored photo of an active asset.
func (s *Service) OpenAssetImage(ctx context.Context, p model.Principal, id int64) (io.ReadCloser, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	a, err := s.activeAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.ImagePath == "" || s.Blobs == nil {
		return nil, model.ErrImageNotFound
	}

	rc, err := s.Blobs.Open(a.ImagePath)
	if err != nil {
		s.Logger.Warn("asset image missing from storage", "asset_id", id, "key", a.ImagePath, "error", err)
		return nil, model.ErrImageNotFound
	}
	return rc, nil
}

// DeleteAsset soft-deletes an asset that is not checked out. Its photo is
// kept with the tombstone.
func (s *Service) DeleteAsset(ctx context.Context, p model.Principal, id int64) error {
	if err := requireAdmin(p); err != nil {
		return s.outcome("delete asset", p, err)
	}
	if err := store.DeleteAsset(ctx, s.DB, id, s.now()); err != nil {
		return s.outcome("delete asset", p, err)
	}

	s.Logger.Info("asset deleted", "actor", p.UserID, "asset_id", id)
	return nil
}

func (s *Service) activeAsset(ctx context.Context, id int64) (*model.Asset, error) {
	a, err := store.GetAsset(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if a == nil || a.DeletedAt != nil {
		return nil, model.ErrAssetNotFound
	}
	return a, nil
}

// GetAsset returns an active asset. Admins see every asset; employees only
// those they currently hold.
func (s *Service) GetAsset(ctx context.Context, p model.Principal, id int64) (*model.Asset, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}

	a, err := s.activeAsset(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsAdmin() {
		return a, nil
	}

	open, err := store.ListAssignments(ctx, s.DB, model.AssignmentFilter{AssetID: id, UserID: p.UserID, OpenOnly: true})
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, model.ErrForbidden
	}
	return a, nil
}

// ListAssets returns active assets matching the filter.
func (s *Service) ListAssets(ctx context.Context, p model.Principal, filter model.AssetFilter) ([]model.Asset, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if filter.Status != "" && !model.ValidAssetStatus(filter.Status) {
		return nil, model.ErrInvalidStatus
	}
	return store.ListAssets(ctx, s.DB, filter)
}

// ListAvailableAssets returns assets that can be assigned right now.
func (s *Service) ListAvailableAssets(ctx context.Context, p model.Principal) ([]model.Asset, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return store.ListAvailableAssets(ctx, s.DB)
}

// AssetHistory returns an asset's full assignment history, newest first.
// Deleted assets keep their history.
func (s *Service) AssetHistory(ctx context.Context, p model.Principal, id int64) ([]model.Assignment, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	a, err := store.GetAsset(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, model.ErrAssetNotFound
	}
	return store.AssetHistory(ctx, s.DB, id)
}
