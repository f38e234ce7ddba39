// Package ride owns the ride lifecycle:
//
//	REQUESTED --accept--> ACCEPTED --pickup--> PICKED_UP --transit--> IN_TRANSIT --complete--> COMPLETED
//	REQUESTED --cancel(rider)--> CANCELLED
//
// Every transition is a single conditional store update, so concurrent
// callers racing on one ride produce exactly one winner. Events and payment
// calls run after the store has committed and never change ride state.
package ride

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/observability"
	"github.com/example/ride-booking/internal/storage"
)

type Store interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetDriver(ctx context.Context, id string) (*models.DriverProfile, error)
	GetDriverByUser(ctx context.Context, userID string) (*models.DriverProfile, error)
	storage.RideStore
}

// FareHolder authorises and settles ride fares with the rider's card.
type FareHolder interface {
	HoldRideFare(ctx context.Context, r *models.Ride) (string, error)
	CaptureRideFare(ctx context.Context, r *models.Ride) error
	ReleaseRideFare(ctx context.Context, r *models.Ride) error
}

type FareQuoter interface {
	Estimate(ctx context.Context, pickup, destination string) models.FareEstimate
}

// Engine is the ride lifecycle service. Events, Payments and Fares are optional.
type Engine struct {
	Store    Store
	Events   events.Sink
	Payments FareHolder
	Fares    FareQuoter
	Log      *slog.Logger
	Now      func() time.Time
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now().UTC()
	}
	return time.Now().UTC()
}

func (e *Engine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

type RequestInput struct {
	PickupAddress      string  `json:"pickupAddress"`
	DestinationAddress string  `json:"destinationAddress"`
	Price              float64 `json:"price"`
}

func (in RequestInput) Validate() error {
	switch {
	case in.PickupAddress == "":
		return apperr.BadRequest("pickupAddress is required")
	case in.DestinationAddress == "":
		return apperr.BadRequest("destinationAddress is required")
	case in.Price <= 0:
		return apperr.BadRequest("price must be positive")
	}
	return nil
}

func (e *Engine) RequestRide(ctx context.Context, riderID string, in RequestInput) (*models.Ride, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	u, err := e.Store.GetUser(ctx, riderID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("User not found")
	}
	if err != nil {
		return nil, apperr.Internal("load rider", err)
	}
	if u.IsBlocked {
		return nil, apperr.Forbidden("User is blocked")
	}

	now := e.now()
	r := &models.Ride{
		RiderID:            riderID,
		PickupAddress:      in.PickupAddress,
		DestinationAddress: in.DestinationAddress,
		Price:              in.Price,
		Status:             models.RideRequested,
		Timestamps:         models.RideTimestamps{RequestedAt: now},
		Rejections:         []models.Rejection{},
	}
	if err := e.Store.CreateRide(ctx, r); err != nil {
		return nil, apperr.Internal("create ride", err)
	}
	observability.RidesRequested.Inc()
	e.publish(ctx, events.FromRide(events.RideRequested, r, "", now))
	return r, nil
}

// driverFor loads the caller's driver profile.
func (e *Engine) driverFor(ctx context.Context, userID string) (*models.DriverProfile, error) {
	d, err := e.Store.GetDriverByUser(ctx, userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Driver not found")
	}
	if err != nil {
		return nil, apperr.Internal("load driver", err)
	}
	return d, nil
}

func (e *Engine) loadRide(ctx context.Context, id string) (*models.Ride, error) {
	r, err := e.Store.GetRide(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Ride not found")
	}
	if err != nil {
		return nil, apperr.Internal("load ride", err)
	}
	return r, nil
}

func (e *Engine) ListIncoming(ctx context.Context, driverUserID string) ([]models.Ride, error) {
	d, err := e.driverFor(ctx, driverUserID)
	if err != nil {
		return nil, err
	}
	if err := CanSeeRequests(d); err != nil {
		return nil, err
	}
	rides, err := e.Store.ListRides(ctx, storage.RideFilter{Status: models.RideRequested, NotRejectedBy: d.ID})
	if err != nil {
		return nil, apperr.Internal("list incoming rides", err)
	}
	return rides, nil
}

func (e *Engine) AcceptRide(ctx context.Context, rideID, driverUserID string) (*models.Ride, error) {
	d, err := e.driverFor(ctx, driverUserID)
	if err != nil {
		return nil, err
	}
	if err := CanAccept(d); err != nil {
		return nil, err
	}
	now := e.now()
	r, err := e.Store.AcceptRide(ctx, rideID, d.ID, now)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("Ride not found")
	case errors.Is(err, storage.ErrConflict):
		observability.AcceptConflicts.Inc()
		return nil, apperr.BadRequest("Ride is no longer available")
	case err != nil:
		return nil, apperr.Internal("accept ride", err)
	}
	observability.RideTransitions.WithLabelValues(string(models.RideAccepted)).Inc()

	e.holdFare(ctx, r)
	e.publish(ctx, events.FromRide(events.RideAccepted, r, driverUserID, now))
	return r, nil
}

type RejectInput struct {
	Reason string `json:"reason"`
}

func (e *Engine) RejectRide(ctx context.Context, rideID, driverUserID string, in RejectInput) (*models.Ride, error) {
	d, err := e.driverFor(ctx, driverUserID)
	if err != nil {
		return nil, err
	}
	now := e.now()
	r, err := e.Store.RejectRide(ctx, rideID, models.Rejection{DriverID: d.ID, Reason: in.Reason, Timestamp: now})
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("Ride not found")
	case errors.Is(err, storage.ErrConflict):
		return nil, apperr.BadRequest("Ride can no longer be rejected")
	case err != nil:
		return nil, apperr.Internal("reject ride", err)
	}
	observability.RideRejections.Inc()

	ev := events.FromRide(events.RideRejected, r, "", now)
	ev.DriverID = d.ID
	ev.Reason = in.Reason
	e.publish(ctx, ev)
	return r, nil
}

type StatusInput struct {
	Status models.RideStatus `json:"status"`
}

func (in StatusInput) Validate() error {
	if !in.Status.Valid() {
		return apperr.BadRequest("invalid ride status")
	}
	return nil
}

// UpdateStatus moves the ride one step forward. Only the assigned driver may
// do so and only to the single next status.
func (e *Engine) UpdateStatus(ctx context.Context, rideID, driverUserID string, in StatusInput) (*models.Ride, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r, err := e.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.Status.IsTerminal() {
		return nil, apperr.BadRequest("Ride is already " + string(r.Status))
	}
	if r.Status == models.RideRequested {
		return nil, apperr.BadRequest("Ride has not been accepted yet")
	}
	d, err := e.driverFor(ctx, driverUserID)
	if err != nil {
		return nil, err
	}
	if r.DriverID != d.ID {
		return nil, apperr.Forbidden("You are not assigned to this ride")
	}
	next, _ := r.Status.Next()
	if in.Status != next {
		return nil, apperr.BadRequest("Cannot move ride from " + string(r.Status) + " to " + string(in.Status))
	}

	now := e.now()
	updated, err := e.Store.AdvanceRide(ctx, rideID, d.ID, r.Status, next, now)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("Ride not found")
	case errors.Is(err, storage.ErrConflict):
		return nil, apperr.BadRequest("Ride status changed, retry with the current status")
	case err != nil:
		return nil, apperr.Internal("update ride status", err)
	}
	observability.RideTransitions.WithLabelValues(string(next)).Inc()
	if next == models.RideCompleted {
		observability.EarningsSettled.Add(updated.Price)
		e.captureFare(ctx, updated)
	}
	e.publish(ctx, events.FromRide(events.TypeFor(next), updated, driverUserID, now))
	return updated, nil
}

type CancelInput struct {
	CancelReason string `json:"cancelReason"`
}

func (e *Engine) CancelByRider(ctx context.Context, rideID, riderID string, in CancelInput) (*models.Ride, error) {
	r, err := e.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}
	if r.RiderID != riderID {
		return nil, apperr.Forbidden("You can only cancel your own rides")
	}
	if r.Status != models.RideRequested {
		return nil, apperr.BadRequest("Ride cannot be cancelled once " + string(r.Status))
	}
	now := e.now()
	updated, err := e.Store.CancelRide(ctx, rideID, riderID, in.CancelReason, now)
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return nil, apperr.NotFound("Ride not found")
	case errors.Is(err, storage.ErrConflict):
		return nil, apperr.BadRequest("Ride was accepted before it could be cancelled")
	case err != nil:
		return nil, apperr.Internal("cancel ride", err)
	}
	observability.RideTransitions.WithLabelValues(string(models.RideCancelled)).Inc()
	ev := events.FromRide(events.RideCancelled, updated, "", now)
	ev.Reason = in.CancelReason
	e.publish(ctx, ev)
	return updated, nil
}

type EstimateInput struct {
	PickupAddress      string `json:"pickupAddress"`
	DestinationAddress string `json:"destinationAddress"`
}

func (in EstimateInput) Validate() error {
	if in.PickupAddress == "" || in.DestinationAddress == "" {
		return apperr.BadRequest("pickupAddress and destinationAddress are required")
	}
	return nil
}

func (e *Engine) EstimateFare(ctx context.Context, in EstimateInput) (models.FareEstimate, error) {
	if err := in.Validate(); err != nil {
		return models.FareEstimate{}, err
	}
	if e.Fares == nil {
		return models.FareEstimate{}, apperr.Internal("estimate fare", errors.New("no fare estimator configured"))
	}
	return e.Fares.Estimate(ctx, in.PickupAddress, in.DestinationAddress), nil
}

func (e *Engine) ListMyRides(ctx context.Context, riderID string) ([]models.Ride, error) {
	rides, err := e.Store.ListRides(ctx, storage.RideFilter{RiderID: riderID})
	if err != nil {
		return nil, apperr.Internal("list rides", err)
	}
	return rides, nil
}

func (e *Engine) ListAll(ctx context.Context) ([]models.Ride, error) {
	rides, err := e.Store.ListRides(ctx, storage.RideFilter{})
	if err != nil {
		return nil, apperr.Internal("list rides", err)
	}
	return rides, nil
}

// ListDriverRides is the driver's own history; suspended drivers lose access.
func (e *Engine) ListDriverRides(ctx context.Context, driverUserID string) ([]models.Ride, error) {
	d, err := e.driverFor(ctx, driverUserID)
	if err != nil {
		return nil, err
	}
	if d.IsSuspended {
		return nil, apperr.Forbidden("Driver is suspended")
	}
	rides, err := e.Store.ListRides(ctx, storage.RideFilter{DriverID: d.ID})
	if err != nil {
		return nil, apperr.Internal("list rides", err)
	}
	return rides, nil
}

func (e *Engine) publish(ctx context.Context, ev events.RideEvent) {
	if e.Events == nil {
		return
	}
	if err := e.Events.Publish(ctx, ev); err != nil {
		observability.SideEffectErrs.WithLabelValues("event").Inc()
		e.logger().Warn("publish ride event", "ride_id", ev.RideID, "type", ev.Type, "err", err)
	}
}

func (e *Engine) holdFare(ctx context.Context, r *models.Ride) {
	if e.Payments == nil {
		return
	}
	ref, err := e.Payments.HoldRideFare(ctx, r)
	if err != nil {
		observability.SideEffectErrs.WithLabelValues("payment_hold").Inc()
		e.logger().Warn("hold ride fare", "ride_id", r.ID, "err", err)
		return
	}
	if ref == "" {
		return
	}
	if err := e.Store.SetPaymentRef(ctx, r.ID, ref); err != nil {
		observability.SideEffectErrs.WithLabelValues("payment_hold").Inc()
		e.logger().Warn("store payment ref", "ride_id", r.ID, "err", err)
		// an unrecorded hold could never be captured
		orphan := *r
		orphan.PaymentRef = ref
		if err := e.Payments.ReleaseRideFare(ctx, &orphan); err != nil {
			e.logger().Error("release orphaned hold", "ride_id", r.ID, "hold", ref, "err", err)
		}
		return
	}
	r.PaymentRef = ref
}

func (e *Engine) captureFare(ctx context.Context, r *models.Ride) {
	if e.Payments == nil {
		return
	}
	if err := e.Payments.CaptureRideFare(ctx, r); err != nil {
		observability.SideEffectErrs.WithLabelValues("payment_capture").Inc()
		e.logger().Warn("capture ride fare", "ride_id", r.ID, "err", err)
	}
}
