package settings

import (
	"context"
	"errors"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	storage.SettingsStore
}

type Service struct {
	Store Store
}

type NotificationsPatch struct {
	Email           *bool `json:"email"`
	SMS             *bool `json:"sms"`
	Push            *bool `json:"push"`
	RideUpdates     *bool `json:"rideUpdates"`
	Promotions      *bool `json:"promotions"`
	EmergencyAlerts *bool `json:"emergencyAlerts"`
}

type PrivacyPatch struct {
	ShareLocation    *bool `json:"shareLocation"`
	SharePhoneNumber *bool `json:"sharePhoneNumber"`
	ShareRideHistory *bool `json:"shareRideHistory"`
}

// Patch is a partial update; nil fields keep their stored value.
type Patch struct {
	Notifications *NotificationsPatch `json:"notifications"`
	Privacy       *PrivacyPatch       `json:"privacy"`
	Language      *string             `json:"language"`
	Currency      *string             `json:"currency"`
	Timezone      *string             `json:"timezone"`
}

func (p Patch) Validate() error {
	if p.Language != nil && *p.Language != "en" && *p.Language != "bn" {
		return apperr.BadRequest("language must be en or bn")
	}
	if p.Currency != nil && *p.Currency != "BDT" && *p.Currency != "USD" {
		return apperr.BadRequest("currency must be BDT or USD")
	}
	if p.Timezone != nil && *p.Timezone == "" {
		return apperr.BadRequest("timezone must not be empty")
	}
	return nil
}

func set(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}

func (p Patch) apply(s *models.UserSettings) {
	if n := p.Notifications; n != nil {
		set(&s.Notifications.Email, n.Email)
		set(&s.Notifications.SMS, n.SMS)
		set(&s.Notifications.Push, n.Push)
		set(&s.Notifications.RideUpdates, n.RideUpdates)
		set(&s.Notifications.Promotions, n.Promotions)
		set(&s.Notifications.EmergencyAlerts, n.EmergencyAlerts)
	}
	if pr := p.Privacy; pr != nil {
		set(&s.Privacy.ShareLocation, pr.ShareLocation)
		set(&s.Privacy.SharePhoneNumber, pr.SharePhoneNumber)
		set(&s.Privacy.ShareRideHistory, pr.ShareRideHistory)
	}
	if p.Language != nil {
		s.Language = *p.Language
	}
	if p.Currency != nil {
		s.Currency = *p.Currency
	}
	if p.Timezone != nil {
		s.Timezone = *p.Timezone
	}
}

// Get returns the user's settings, creating the defaults on first access.
func (s *Service) Get(ctx context.Context, userID string) (*models.UserSettings, error) {
	st, err := s.Store.GetSettings(ctx, userID)
	if err == nil {
		return st, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.Internal("load settings", err)
	}
	def := models.DefaultSettings(userID)
	if err := s.Store.SaveSettings(ctx, &def); err != nil {
		return nil, apperr.Internal("create settings", err)
	}
	return &def, nil
}

func (s *Service) activeUser(ctx context.Context, userID string) error {
	u, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return apperr.NotFound("User not found")
	}
	if err != nil {
		return apperr.Internal("load user", err)
	}
	if u.IsBlocked {
		return apperr.Forbidden("User is blocked")
	}
	return nil
}

func (s *Service) Update(ctx context.Context, userID string, p Patch) (*models.UserSettings, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}
	st, err := s.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	p.apply(st)
	if err := s.Store.SaveSettings(ctx, st); err != nil {
		return nil, apperr.Internal("save settings", err)
	}
	return st, nil
}

func (s *Service) Reset(ctx context.Context, userID string) (*models.UserSettings, error) {
	if err := s.activeUser(ctx, userID); err != nil {
		return nil, err
	}
	if err := s.Store.DeleteSettings(ctx, userID); err != nil {
		return nil, apperr.Internal("reset settings", err)
	}
	return s.Get(ctx, userID)
}
