package payment

import (
	"context"

	stripe "github.com/stripe/stripe-go/v74"
	"github.com/stripe/stripe-go/v74/client"
)

// Gateway holds and settles card funds. Amounts are in minor units.
type Gateway interface {
	// AttachCard saves a tokenised card against a new gateway customer and
	// returns the customer ID.
	AttachCard(ctx context.Context, methodID, email, name string) (string, error)
	Hold(ctx context.Context, req HoldRequest) (string, error)
	Capture(ctx context.Context, holdID string) error
	Cancel(ctx context.Context, holdID string) error
}

// HoldRequest authorises Amount on a saved card without capturing it.
type HoldRequest struct {
	Amount     int64
	Currency   string
	RideID     string
	CustomerID string
	MethodID   string
}

// StripeGateway uses PaymentIntents with manual capture: the fare is
// authorised when a driver accepts and captured when the ride completes.
type StripeGateway struct {
	api *client.API
}

func NewStripeGateway(apiKey string) *StripeGateway {
	api := &client.API{}
	api.Init(apiKey, nil)
	return &StripeGateway{api: api}
}

func (s *StripeGateway) AttachCard(ctx context.Context, methodID, email, name string) (string, error) {
	cp := &stripe.CustomerParams{
		Email: stripe.String(email),
		Name:  stripe.String(name),
	}
	cp.Context = ctx
	cust, err := s.api.Customers.New(cp)
	if err != nil {
		return "", err
	}
	ap := &stripe.PaymentMethodAttachParams{Customer: stripe.String(cust.ID)}
	ap.Context = ctx
	if _, err := s.api.PaymentMethods.Attach(methodID, ap); err != nil {
		return "", err
	}
	return cust.ID, nil
}

// Hold confirms an off-session PaymentIntent with capture_method=manual on
// the saved card, leaving it in requires_capture, and returns its ID.
func (s *StripeGateway) Hold(ctx context.Context, req HoldRequest) (string, error) {
	params := &stripe.PaymentIntentParams{
		Amount:        stripe.Int64(req.Amount),
		Currency:      stripe.String(req.Currency),
		Customer:      stripe.String(req.CustomerID),
		PaymentMethod: stripe.String(req.MethodID),
		CaptureMethod: stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		Confirm:       stripe.Bool(true),
		OffSession:    stripe.Bool(true),
	}
	params.Context = ctx
	params.AddMetadata("ride_id", req.RideID)
	params.SetIdempotencyKey("ride-hold-" + req.RideID)
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return "", err
	}
	return pi.ID, nil
}

func (s *StripeGateway) Capture(ctx context.Context, holdID string) error {
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	_, err := s.api.PaymentIntents.Capture(holdID, params)
	return err
}

func (s *StripeGateway) Cancel(ctx context.Context, holdID string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := s.api.PaymentIntents.Cancel(holdID, params)
	return err
}
