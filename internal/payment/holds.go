package payment

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

const defaultCurrency = "BDT"

// HoldRideFare authorises the fare on the rider's default card. It returns
// an empty reference when there is nothing to hold: no gateway, a rider who
// pays by cash or mobile banking, or a card never saved with the gateway.
func (s *Service) HoldRideFare(ctx context.Context, ride *models.Ride) (string, error) {
	if s.gateway == nil {
		return "", nil
	}
	methods, err := s.store.ListPaymentMethods(ctx, ride.RiderID)
	if err != nil {
		return "", err
	}
	if len(methods) == 0 {
		return "", nil
	}
	pm := methods[0]
	if !pm.IsDefault || !pm.Type.IsCard() || pm.GatewayMethodID == "" {
		return "", nil
	}
	currency := defaultCurrency
	st, err := s.store.GetSettings(ctx, ride.RiderID)
	switch {
	case err == nil && st.Currency != "":
		currency = st.Currency
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		return "", err
	}
	amount := int64(math.Round(ride.Price * 100))
	return s.gateway.Hold(ctx, HoldRequest{
		Amount:     amount,
		Currency:   strings.ToLower(currency),
		RideID:     ride.ID,
		CustomerID: pm.GatewayCustomerID,
		MethodID:   pm.GatewayMethodID,
	})
}

func (s *Service) CaptureRideFare(ctx context.Context, ride *models.Ride) error {
	if s.gateway == nil || ride.PaymentRef == "" {
		return nil
	}
	return s.gateway.Capture(ctx, ride.PaymentRef)
}

func (s *Service) ReleaseRideFare(ctx context.Context, ride *models.Ride) error {
	if s.gateway == nil || ride.PaymentRef == "" {
		return nil
	}
	return s.gateway.Cancel(ctx, ride.PaymentRef)
}
