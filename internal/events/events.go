// Package events carries ride lifecycle notifications out of the core.
// Publishing is a post-commit side effect: a failed publish never changes
// ride state.
package events

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/example/ride-booking/internal/models"
)

type Type string

const (
	RideRequested Type = "ride.requested"
	RideAccepted  Type = "ride.accepted"
	RideRejected  Type = "ride.rejected"
	RidePickedUp  Type = "ride.picked_up"
	RideInTransit Type = "ride.in_transit"
	RideCompleted Type = "ride.completed"
	RideCancelled Type = "ride.cancelled"
)

// TypeFor maps the status a ride just entered to its event type.
func TypeFor(s models.RideStatus) Type {
	return Type("ride." + strings.ToLower(string(s)))
}

type RideEvent struct {
	Type         Type              `json:"type"`
	RideID       string            `json:"rideId"`
	RiderID      string            `json:"riderId"`
	DriverID     string            `json:"driverId,omitempty"`
	DriverUserID string            `json:"driverUserId,omitempty"`
	Status       models.RideStatus `json:"status"`
	Price        float64           `json:"price"`
	Reason       string            `json:"reason,omitempty"`
	At           time.Time         `json:"at"`
}

// FromRide builds an event describing r's current state.
func FromRide(t Type, r *models.Ride, driverUserID string, at time.Time) RideEvent {
	return RideEvent{
		Type:         t,
		RideID:       r.ID,
		RiderID:      r.RiderID,
		DriverID:     r.DriverID,
		DriverUserID: driverUserID,
		Status:       r.Status,
		Price:        r.Price,
		At:           at,
	}
}

// Day is the UTC calendar day the event belongs to, used for daily counters.
func (e RideEvent) Day() string { return e.At.UTC().Format(time.DateOnly) }

// Key identifies one occurrence of an event. Redeliveries of the same
// message share a key.
func (e RideEvent) Key() string {
	return e.RideID + ":" + string(e.Type) + ":" + e.DriverID + ":" + strconv.FormatInt(e.At.UnixNano(), 10)
}

type Sink interface {
	Publish(ctx context.Context, ev RideEvent) error
}

// Nop drops every event.
type Nop struct{}

func (Nop) Publish(context.Context, RideEvent) error { return nil }

// Multi delivers to every sink and joins the failures.
type Multi []Sink

func (m Multi) Publish(ctx context.Context, ev RideEvent) error {
	var errs []error
	for _, s := range m {
		if err := s.Publish(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
