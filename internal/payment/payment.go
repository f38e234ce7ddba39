// Package payment manages stored payment methods and holds ride fares
// through a card gateway.
package payment

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

// Store is the persistence the payment service needs.
type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetSettings(ctx context.Context, userID string) (*models.UserSettings, error)
	storage.PaymentMethodStore
}

type Service struct {
	store   Store
	gateway Gateway
	log     *slog.Logger
	now     func() time.Time
}

// NewService wires the service; gateway may be nil to disable fare holds.
func NewService(store Store, gateway Gateway, log *slog.Logger) *Service {
	return &Service{store: store, gateway: gateway, log: log, now: time.Now}
}

type CreateMethodInput struct {
	Type           models.PaymentMethodType `json:"type"`
	CardNumber     string                   `json:"cardNumber"`
	CardHolderName string                   `json:"cardHolderName"`
	ExpiryMonth    int                      `json:"expiryMonth"`
	ExpiryYear     int                      `json:"expiryYear"`
	MobileNumber   string                   `json:"mobileNumber"`
	BankName       string                   `json:"bankName"`
	IsDefault      bool                     `json:"isDefault"`
	// GatewayToken is the card's payment method ID from the gateway's
	// client-side tokenisation. Required for cards when a gateway is set.
	GatewayToken string `json:"gatewayToken"`
}

func (in CreateMethodInput) validate(now time.Time) error {
	if !in.Type.Valid() {
		return apperr.BadRequest("invalid payment method type")
	}
	if err := validateExpiry(in.ExpiryMonth, in.ExpiryYear, now); err != nil {
		return err
	}
	if in.MobileNumber != "" && !models.IsBDMobile(in.MobileNumber) {
		return apperr.BadRequest("invalid mobile number")
	}
	switch {
	case in.Type.IsCard():
		if len(digits(in.CardNumber)) < 4 || in.CardHolderName == "" || in.ExpiryMonth == 0 || in.ExpiryYear == 0 {
			return apperr.BadRequest("required fields missing for payment method type")
		}
	case in.Type == models.PaymentMobileBanking:
		if in.MobileNumber == "" {
			return apperr.BadRequest("required fields missing for payment method type")
		}
	}
	return nil
}

type UpdateMethodInput struct {
	CardHolderName *string `json:"cardHolderName"`
	ExpiryMonth    *int    `json:"expiryMonth"`
	ExpiryYear     *int    `json:"expiryYear"`
	MobileNumber   *string `json:"mobileNumber"`
	BankName       *string `json:"bankName"`
	IsDefault      *bool   `json:"isDefault"`
}

func (in UpdateMethodInput) validate(now time.Time) error {
	var month, year int
	if in.ExpiryMonth != nil {
		month = *in.ExpiryMonth
		if month == 0 {
			return apperr.BadRequest("expiry month must be between 1 and 12")
		}
	}
	if in.ExpiryYear != nil {
		year = *in.ExpiryYear
		if year == 0 {
			return apperr.BadRequest("expiry year is in the past")
		}
	}
	if err := validateExpiry(month, year, now); err != nil {
		return err
	}
	if in.MobileNumber != nil && !models.IsBDMobile(*in.MobileNumber) {
		return apperr.BadRequest("invalid mobile number")
	}
	return nil
}

func validateExpiry(month, year int, now time.Time) error {
	if month != 0 && (month < 1 || month > 12) {
		return apperr.BadRequest("expiry month must be between 1 and 12")
	}
	if year != 0 && year < now.Year() {
		return apperr.BadRequest("expiry year is in the past")
	}
	return nil
}

func digits(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MaskCardNumber keeps only the last four digits.
func MaskCardNumber(number string) string {
	d := digits(number)
	if len(d) > 4 {
		d = d[len(d)-4:]
	}
	return "**** **** **** " + d
}

func (s *Service) List(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	out, err := s.store.ListPaymentMethods(ctx, userID)
	if err != nil {
		return nil, apperr.Internal("list payment methods", err)
	}
	return out, nil
}

func (s *Service) Create(ctx context.Context, userID string, in CreateMethodInput) (*models.PaymentMethod, error) {
	if err := in.validate(s.now()); err != nil {
		return nil, err
	}
	u, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("load user", err)
	}
	if u.IsBlocked {
		return nil, apperr.Forbidden("User is blocked")
	}

	pm := &models.PaymentMethod{
		UserID:         userID,
		Type:           in.Type,
		CardHolderName: in.CardHolderName,
		ExpiryMonth:    in.ExpiryMonth,
		ExpiryYear:     in.ExpiryYear,
		MobileNumber:   in.MobileNumber,
		BankName:       in.BankName,
		IsDefault:      in.IsDefault,
		IsActive:       true,
	}
	if in.CardNumber != "" {
		pm.CardNumber = MaskCardNumber(in.CardNumber)
	}
	if in.Type.IsCard() && s.gateway != nil {
		if in.GatewayToken == "" {
			return nil, apperr.BadRequest("gatewayToken is required for cards")
		}
		customerID, err := s.gateway.AttachCard(ctx, in.GatewayToken, u.Email, u.Name)
		if err != nil {
			s.log.Warn("attach card failed", "user_id", userID, "error", err)
			return nil, apperr.BadRequest("card could not be saved with the payment gateway")
		}
		pm.GatewayCustomerID = customerID
		pm.GatewayMethodID = in.GatewayToken
	}
	if err := s.store.CreatePaymentMethod(ctx, pm); err != nil {
		return nil, apperr.Internal("create payment method", err)
	}
	if pm.IsDefault {
		if err := s.store.ClearDefaultPaymentMethods(ctx, userID, pm.ID); err != nil {
			return nil, apperr.Internal("clear default payment methods", err)
		}
	}
	return pm, nil
}

func (s *Service) owned(ctx context.Context, userID, id, verb string) (*models.PaymentMethod, error) {
	pm, err := s.store.GetPaymentMethod(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !pm.IsActive) {
		return nil, apperr.NotFound("Payment method not found")
	}
	if err != nil {
		return nil, apperr.Internal("load payment method", err)
	}
	if pm.UserID != userID {
		return nil, apperr.Forbidden("You can only " + verb + " your own payment methods")
	}
	return pm, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateMethodInput) (*models.PaymentMethod, error) {
	if err := in.validate(s.now()); err != nil {
		return nil, err
	}
	pm, err := s.owned(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}
	if in.CardHolderName != nil {
		pm.CardHolderName = *in.CardHolderName
	}
	if in.ExpiryMonth != nil {
		pm.ExpiryMonth = *in.ExpiryMonth
	}
	if in.ExpiryYear != nil {
		pm.ExpiryYear = *in.ExpiryYear
	}
	if in.MobileNumber != nil {
		pm.MobileNumber = *in.MobileNumber
	}
	if in.BankName != nil {
		pm.BankName = *in.BankName
	}
	if in.IsDefault != nil {
		pm.IsDefault = *in.IsDefault
	}
	if err := s.store.UpdatePaymentMethod(ctx, pm); err != nil {
		return nil, apperr.Internal("update payment method", err)
	}
	if pm.IsDefault {
		if err := s.store.ClearDefaultPaymentMethods(ctx, userID, pm.ID); err != nil {
			return nil, apperr.Internal("clear default payment methods", err)
		}
	}
	return pm, nil
}

// Delete deactivates the method. A removed default hands the flag to the
// next remaining method.
func (s *Service) Delete(ctx context.Context, userID, id string) error {
	pm, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	wasDefault := pm.IsDefault
	pm.IsActive = false
	pm.IsDefault = false
	if err := s.store.UpdatePaymentMethod(ctx, pm); err != nil {
		return apperr.Internal("delete payment method", err)
	}
	if !wasDefault {
		return nil
	}
	rest, err := s.store.ListPaymentMethods(ctx, userID)
	if err != nil {
		return apperr.Internal("list payment methods", err)
	}
	if len(rest) == 0 {
		return nil
	}
	next := rest[len(rest)-1]
	next.IsDefault = true
	if err := s.store.UpdatePaymentMethod(ctx, &next); err != nil {
		return apperr.Internal("promote default payment method", err)
	}
	return nil
}
