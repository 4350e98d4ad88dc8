package service

import (
	"context"

	"github.com/erazemk/assettrack/internal/auth"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// UserInput is the admin-supplied data for a new user. IsActive defaults
// to true.
type UserInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin employee"`
	IsActive *bool  `json:"is_active"`
}

// UserUpdateInput edits a user. A non-empty Password resets it; a nil
// IsActive keeps the current flag.
type UserUpdateInput struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"omitempty,min=8,max=72"`
	Role     string `json:"role" validate:"required,oneof=admin employee"`
	IsActive *bool  `json:"is_active"`
}

// CreateUser adds a user with a freshly hashed password. Emails are unique
// among non-deleted users.
func (s *Service) CreateUser(ctx context.Context, p model.Principal, in UserInput) (*model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("create user", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("create user", p, err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, s.outcome("create user", p, err)
	}

	active := in.IsActive == nil || *in.IsActive
	u, err := store.CreateUser(ctx, s.DB, store.UserFields{
		Name: in.Name, Email: in.Email, Role: in.Role, IsActive: active,
	}, hash)
	if err != nil {
		return nil, s.outcome("create user", p, err)
	}

	s.Logger.Info("user created", "actor", p.UserID, "user_id", u.ID, "role", u.Role)
	return u, nil
}

// UpdateUser edits a user's profile, role and active flag, and resets the
// password when one is given. Nothing is written unless every part succeeds.
func (s *Service) UpdateUser(ctx context.Context, p model.Principal, id int64, in UserUpdateInput) (*model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, s.outcome("update user", p, err)
	}
	if err := s.check(in); err != nil {
		return nil, s.outcome("update user", p, err)
	}

	current, err := store.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, s.outcome("update user", p, err)
	}
	if current == nil || current.DeletedAt != nil {
		return nil, s.outcome("update user", p, model.ErrUserMissing)
	}

	active := current.IsActive
	if in.IsActive != nil {
		active = *in.IsActive
	}

	var hash string
	if in.Password != "" {
		if hash, err = auth.HashPassword(in.Password); err != nil {
			return nil, s.outcome("update user", p, err)
		}
	}

	u, err := store.UpdateUser(ctx, s.DB, id, store.UserFields{
		Name: in.Name, Email: in.Email, Role: in.Role, IsActive: active,
	}, hash)
	if err != nil {
		return nil, s.outcome("update user", p, err)
	}
	if hash != "" {
		s.Logger.Info("user password reset", "actor", p.UserID, "user_id", id)
	}

	s.Logger.Info("user updated", "actor", p.UserID, "user_id", u.ID, "role", u.Role, "active", u.IsActive)
	return u, nil
}

// DeleteUser soft-deletes a user who holds no assets. Admins cannot delete
// themselves.
func (s *Service) DeleteUser(ctx context.Context, p model.Principal, id int64) error {
	if err := requireAdmin(p); err != nil {
		return s.outcome("delete user", p, err)
	}
	if err := store.DeleteUser(ctx, s.DB, id, p.UserID, s.now()); err != nil {
		return s.outcome("delete user", p, err)
	}

	s.Logger.Info("user deleted", "actor", p.UserID, "user_id", id)
	return nil
}

// GetUser returns a user. Employees may only look themselves up.
func (s *Service) GetUser(ctx context.Context, p model.Principal, id int64) (*model.User, error) {
	if err := requireUser(p); err != nil {
		return nil, err
	}
	if !p.IsAdmin() && p.UserID != id {
		return nil, model.ErrForbidden
	}

	u, err := store.GetUser(ctx, s.DB, id)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil {
		return nil, model.ErrUserMissing
	}
	return u, nil
}

// ListUsers returns the non-deleted users matching filter, by name.
func (s *Service) ListUsers(ctx context.Context, p model.Principal, filter model.UserFilter) ([]model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	if filter.Role != "" && !model.ValidRole(filter.Role) {
		return nil, model.ValidationFailed(map[string]string{"role": "oneof"})
	}
	return store.ListUsers(ctx, s.DB, filter)
}

// ListActiveEmployees returns the users offered as assignment holders.
func (s *Service) ListActiveEmployees(ctx context.Context, p model.Principal) ([]model.User, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	return store.ListActiveEmployees(ctx, s.DB)
}
