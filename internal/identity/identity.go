// Package identity manages users and driver profiles: registration,
// blocking, driver applications, availability and suspension.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

type Store interface {
	storage.UserStore
	storage.DriverStore
}

type Service struct {
	Store Store
	Log   *slog.Logger
}

type RegisterInput struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Picture string `json:"picture"`
}

func (in RegisterInput) Validate() error {
	if n := len(strings.TrimSpace(in.Name)); n < 2 || n > 50 {
		return apperr.BadRequest("name must be between 2 and 50 characters")
	}
	if _, err := mail.ParseAddress(in.Email); err != nil {
		return apperr.BadRequest("invalid email address")
	}
	return nil
}

// Register creates a rider account. Drivers start as riders and are
// promoted when their application is approved.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u := &models.User{
		Name:    strings.TrimSpace(in.Name),
		Email:   strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:   in.Phone,
		Picture: in.Picture,
		Role:    models.RoleRider,
	}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.BadRequest("User already exists")
		}
		return nil, apperr.Internal("create user", err)
	}
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.Store.GetUser(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	return u, nil
}

func (s *Service) ListUsers(ctx context.Context) ([]models.User, error) {
	users, err := s.Store.ListUsers(ctx)
	if err != nil {
		return nil, apperr.Internal("list users", err)
	}
	return users, nil
}

func (s *Service) ToggleBlock(ctx context.Context, id string) (*models.User, error) {
	u, err := s.GetUser(ctx, id)
	if err != nil {
		return nil, err
	}
	updated, err := s.Store.SetUserBlocked(ctx, id, !u.IsBlocked)
	if err != nil {
		return nil, apperr.Internal("toggle block", err)
	}
	return updated, nil
}

// SeedAdmin makes sure an admin account exists for email. Safe to run on
// every start.
func (s *Service) SeedAdmin(ctx context.Context, email, name string) (*models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	existing, err := s.Store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		if existing.Role != models.RoleAdmin {
			if err := s.Store.SetUserRole(ctx, existing.ID, models.RoleAdmin); err != nil {
				return nil, err
			}
			existing.Role = models.RoleAdmin
		}
		return existing, nil
	case !errors.Is(err, storage.ErrNotFound):
		return nil, err
	}
	u := &models.User{Name: name, Email: email, Role: models.RoleAdmin}
	if err := s.Store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	if s.Log != nil {
		s.Log.Info("admin seeded", "user_id", u.ID, "email", email)
	}
	return u, nil
}
