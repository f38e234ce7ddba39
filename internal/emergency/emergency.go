// Package emergency keeps up to five emergency contacts per user, one of
// them primary.
package emergency

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

const MaxContacts = 5

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	storage.EmergencyStore
}

type Service struct {
	Store Store
}

type CreateInput struct {
	Name         string              `json:"name"`
	Phone        string              `json:"phone"`
	Relationship models.Relationship `json:"relationship"`
	IsPrimary    bool                `json:"isPrimary"`
}

func validName(name string) error {
	if n := len(strings.TrimSpace(name)); n < 2 || n > 50 {
		return apperr.BadRequest("name must be between 2 and 50 characters")
	}
	return nil
}

func validPhone(phone string) error {
	if !models.IsBDMobile(phone) {
		return apperr.BadRequest("phone must be a valid Bangladeshi number (e.g. +88017XXXXXXXX)")
	}
	return nil
}

func (in CreateInput) Validate() error {
	if err := validName(in.Name); err != nil {
		return err
	}
	if err := validPhone(in.Phone); err != nil {
		return err
	}
	if !in.Relationship.Valid() {
		return apperr.BadRequest("invalid relationship")
	}
	return nil
}

type UpdateInput struct {
	Name         *string              `json:"name"`
	Phone        *string              `json:"phone"`
	Relationship *models.Relationship `json:"relationship"`
	IsPrimary    *bool                `json:"isPrimary"`
}

func (in UpdateInput) Validate() error {
	if in.Name != nil {
		if err := validName(*in.Name); err != nil {
			return err
		}
	}
	if in.Phone != nil {
		if err := validPhone(*in.Phone); err != nil {
			return err
		}
	}
	if in.Relationship != nil && !in.Relationship.Valid() {
		return apperr.BadRequest("invalid relationship")
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string) ([]models.EmergencyContact, error) {
	out, err := s.Store.ListContacts(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list contacts", err)
	}
	return out, nil
}

// Create adds a contact. The first contact is always primary; a new primary
// demotes the previous one.
func (s *Service) Create(ctx context.Context, userID string, in CreateInput) (*models.EmergencyContact, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := s.Store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u.IsBlocked {
		return nil, apperr.Forbidden("User is blocked")
	}

	c := &models.EmergencyContact{
		UserID:       userID,
		Name:         strings.TrimSpace(in.Name),
		Phone:        in.Phone,
		Relationship: in.Relationship,
		IsPrimary:    in.IsPrimary,
		IsActive:     true,
	}
	err = s.Store.CreateContact(ctx, c, MaxContacts)
	if errors.Is(err, storage.ErrLimit) {
		return nil, apperr.BadRequest("Maximum 5 emergency contacts allowed")
	}
	if err != nil {
		return nil, apperr.Internal("create contact", err)
	}
	if c.IsPrimary {
		if err := s.Store.ClearPrimaryContacts(ctx, userID, c.ID); err != nil {
			return nil, apperr.Internal("clear primary contacts", err)
		}
	}
	return c, nil
}

func (s *Service) owned(ctx context.Context, userID, id, verb string) (*models.EmergencyContact, error) {
	c, err := s.Store.GetContact(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !c.IsActive) {
		return nil, apperr.NotFound("Emergency contact not found")
	}
	if err != nil {
		return nil, apperr.Internal("load contact", err)
	}
	if c.UserID != userID {
		return nil, apperr.Forbidden("You can only " + verb + " your own emergency contacts")
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.EmergencyContact, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	c, err := s.owned(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}
	if in.Name != nil {
		c.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		c.Phone = *in.Phone
	}
	if in.Relationship != nil {
		c.Relationship = *in.Relationship
	}
	if in.IsPrimary != nil {
		c.IsPrimary = *in.IsPrimary
	}
	if err := s.Store.UpdateContact(ctx, c); err != nil {
		return nil, apperr.Internal("update contact", err)
	}
	if c.IsPrimary {
		if err := s.Store.ClearPrimaryContacts(ctx, userID, c.ID); err != nil {
			return nil, apperr.Internal("clear primary contacts", err)
		}
	}
	return c, nil
}

// Delete deactivates the contact and hands primary to a remaining one.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	c, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	wasPrimary := c.IsPrimary
	c.IsActive, c.IsPrimary = false, false
	if err := s.Store.UpdateContact(ctx, c); err != nil {
		return apperr.Internal("delete contact", err)
	}
	if !wasPrimary {
		return nil
	}
	rest, err := s.Store.ListContacts(ctx, userID)
	if err != nil {
		return apperr.Internal("list contacts", err)
	}
	if len(rest) == 0 {
		return nil
	}
	next := rest[len(rest)-1]
	next.IsPrimary = true
	if err := s.Store.UpdateContact(ctx, &next); err != nil {
		return apperr.Internal("promote primary contact", err)
	}
	return nil
}
