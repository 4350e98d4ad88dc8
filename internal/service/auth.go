package service

import (
	"context"
	"time"

	"github.com/erazemk/assettrack/internal/auth"
	"github.com/erazemk/assettrack/internal/model"
	"github.com/erazemk/assettrack/internal/store"
)

// LoginInput is a sign-in attempt.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordInput changes the caller's own password.
type PasswordInput struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8,max=72,nefield=CurrentPassword"`
}

// Authenticate checks credentials and returns the signed-in user. Unknown
// emails, wrong passwords and inactive accounts all fail the same way.
func (s *Service) Authenticate(ctx context.Context, in LoginInput) (*model.User, error) {
	if err := s.check(in); err != nil {
		return nil, err
	}

	u, err := store.GetUserByEmail(ctx, s.DB, in.Email)
	if err != nil {
		return nil, err
	}
	if u == nil || !u.IsActive || !auth.CheckPassword(u.PasswordHash, in.Password) {
		s.Logger.Warn("login failed", "email", in.Email)
		return nil, model.ErrInvalidCredentials
	}

	s.Logger.Info("user logged in", "user_id", u.ID, "role", u.Role)
	return u, nil
}

// Identify resolves a token subject to a user who may still act. Deleted or
// deactivated users are rejected even while their token is unexpired.
func (s *Service) Identify(ctx context.Context, userID int64) (*model.User, error) {
	u, err := store.GetUser(ctx, s.DB, userID)
	if err != nil {
		return nil, err
	}
	if u == nil || u.DeletedAt != nil || !u.IsActive {
		return nil, model.ErrInvalidCredentials
	}
	return u, nil
}

// ChangePassword replaces the caller's password after checking the current one.
func (s *Service) ChangePassword(ctx context.Context, p model.Principal, in PasswordInput) error {
	if err := requireUser(p); err != nil {
		return err
	}
	if err := s.check(in); err != nil {
		return err
	}

	u, err := s.Identify(ctx, p.UserID)
	if err != nil {
		return err
	}
	if !auth.CheckPassword(u.PasswordHash, in.CurrentPassword) {
		return s.outcome("change password", p, model.ErrIncorrectPassword)
	}

	hash, err := auth.HashPassword(in.NewPassword)
	if err != nil {
		return s.outcome("change password", p, err)
	}
	if err := store.UpdateUserPassword(ctx, s.DB, p.UserID, hash); err != nil {
		return s.outcome("change password", p, err)
	}

	s.Logger.Info("user changed own password", "user_id", p.UserID)
	return nil
}

// RevokeToken blocks a token ID until it would have expired anyway.
func (s *Service) RevokeToken(ctx context.Context, jti string, expiresAt time.Time) error {
	return store.RevokeToken(ctx, s.DB, jti, expiresAt, s.now())
}

// TokenRevoked reports whether a token ID has been revoked.
func (s *Service) TokenRevoked(ctx context.Context, jti string) (bool, error) {
	return store.IsTokenRevoked(ctx, s.DB, jti)
}
