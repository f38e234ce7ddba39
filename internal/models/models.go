package models

import "time"

type RideStatus string

const (
	RideRequested RideStatus = "REQUESTED"
	RideAccepted  RideStatus = "ACCEPTED"
	RidePickedUp  RideStatus = "PICKED_UP"
	RideInTransit RideStatus = "IN_TRANSIT"
	RideCompleted RideStatus = "COMPLETED"
	RideCancelled RideStatus = "CANCELLED"
)

// driver-driven forward steps; REQUESTED->ACCEPTED and REQUESTED->CANCELLED
// have dedicated operations and are not reachable through Next.
var nextStatus = map[RideStatus]RideStatus{
	RideAccepted:  RidePickedUp,
	RidePickedUp:  RideInTransit,
	RideInTransit: RideCompleted,
}

func (s RideStatus) Valid() bool {
	switch s {
	case RideRequested, RideAccepted, RidePickedUp, RideInTransit, RideCompleted, RideCancelled:
		return true
	}
	return false
}

func (s RideStatus) IsTerminal() bool { return s == RideCompleted || s == RideCancelled }

// IsActive is true for rides that still occupy a rider or driver.
func (s RideStatus) IsActive() bool { return s.Valid() && !s.IsTerminal() }

// Next returns the single status a driver may move the ride to.
func (s RideStatus) Next() (RideStatus, bool) {
	n, ok := nextStatus[s]
	return n, ok
}

// HasDriver reports whether a ride in status s must carry a driver.
func (s RideStatus) HasDriver() bool {
	return s != RideRequested && s != RideCancelled
}

type RideTimestamps struct {
	RequestedAt time.Time  `json:"requestedAt"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	PickedUpAt  *time.Time `json:"pickedUpAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
	CancelledAt *time.Time `json:"cancelledAt,omitempty"`
}

type Rejection struct {
	DriverID  string    `json:"driverId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

type Ride struct {
	ID                 string         `json:"id"`
	RiderID            string         `json:"rider"`
	DriverID           string         `json:"driver,omitempty"`
	PickupAddress      string         `json:"pickupAddress"`
	DestinationAddress string         `json:"destinationAddress"`
	Price              float64        `json:"price"`
	Status             RideStatus     `json:"status"`
	Timestamps         RideTimestamps `json:"timestamps"`
	CancelReason       string         `json:"cancelReason,omitempty"`
	Rejections         []Rejection    `json:"rejectionDriverList"`
	PaymentRef         string         `json:"-"`
	CreatedAt          time.Time      `json:"createdAt"`
	UpdatedAt          time.Time      `json:"updatedAt"`
}

// RejectedBy reports whether driverID has declined this ride.
func (r *Ride) RejectedBy(driverID string) bool {
	for _, rej := range r.Rejections {
		if rej.DriverID == driverID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores never hand out shared state.
func (r *Ride) Clone() *Ride {
	c := *r
	c.Timestamps.AcceptedAt = cloneTime(r.Timestamps.AcceptedAt)
	c.Timestamps.PickedUpAt = cloneTime(r.Timestamps.PickedUpAt)
	c.Timestamps.CompletedAt = cloneTime(r.Timestamps.CompletedAt)
	c.Timestamps.CancelledAt = cloneTime(r.Timestamps.CancelledAt)
	c.Rejections = append([]Rejection(nil), r.Rejections...)
	if c.Rejections == nil {
		c.Rejections = []Rejection{}
	}
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

// FareEstimate is the result of a fare quote between two addresses.
type FareEstimate struct {
	Fare            float64       `json:"fare"`
	DistanceKm      float64       `json:"distance"`
	DurationMinutes float64       `json:"duration"`
	Currency        string        `json:"currency"`
	Breakdown       FareBreakdown `json:"breakdown"`
}

type FareBreakdown struct {
	BaseFare     float64 `json:"baseFare"`
	DistanceFare float64 `json:"distanceFare"`
	TimeFare     float64 `json:"timeFare"`
	MinimumFare  float64 `json:"minimumFare"`
}
