// Package rating lets the two participants of a completed ride rate each
// other, once per direction.
package rating

import (
	"context"
	"errors"
	"strings"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/storage"
)

const maxCommentLen = 500

type Store interface {
	GetRide(ctx context.Context, id string) (*models.Ride, error)
	GetDriver(ctx context.Context, id string) (*models.DriverProfile, error)
	storage.RatingStore
}

type Service struct {
	Store Store
}

type Input struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

func (in Input) Validate() error {
	if in.Rating < 1 || in.Rating > 5 {
		return apperr.BadRequest("rating must be between 1 and 5")
	}
	if len(in.Comment) > maxCommentLen {
		return apperr.BadRequest("comment must be at most 500 characters")
	}
	return nil
}

type UpdateInput struct {
	Rating  *int    `json:"rating"`
	Comment *string `json:"comment"`
}

func (in UpdateInput) Validate() error {
	if in.Rating != nil && (*in.Rating < 1 || *in.Rating > 5) {
		return apperr.BadRequest("rating must be between 1 and 5")
	}
	if in.Comment != nil && len(*in.Comment) > maxCommentLen {
		return apperr.BadRequest("comment must be at most 500 characters")
	}
	return nil
}

// Create records userID's rating of the other participant. The direction
// follows from which side of the ride the caller was on.
func (s *Service) Create(ctx context.Context, userID, rideID string, in Input) (*models.Rating, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	ride, err := s.Store.GetRide(ctx, rideID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, apperr.NotFound("Ride not found")
	}
	if err != nil {
		return nil, apperr.Internal("load ride", err)
	}
	if ride.Status != models.RideCompleted {
		return nil, apperr.BadRequest("Can only rate completed rides")
	}
	driver, err := s.Store.GetDriver(ctx, ride.DriverID)
	if err != nil {
		return nil, apperr.Internal("load driver", err)
	}

	r := &models.Rating{RideID: rideID, RaterID: userID, Score: in.Rating, Comment: strings.TrimSpace(in.Comment), IsActive: true}
	switch userID {
	case ride.RiderID:
		r.Type, r.RateeID = models.RiderToDriver, driver.UserID
	case driver.UserID:
		r.Type, r.RateeID = models.DriverToRider, ride.RiderID
	default:
		return nil, apperr.Forbidden("You can only rate rides you participated in")
	}
	if err := s.Store.CreateRating(ctx, r); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, apperr.BadRequest("Rating already exists for this ride")
		}
		return nil, apperr.Internal("create rating", err)
	}
	return r, nil
}

// List returns ratings the user received, or gave when given is true.
func (s *Service) List(ctx context.Context, userID string, given bool) ([]models.Rating, error) {
	f := storage.RatingFilter{RateeID: userID}
	if given {
		f = storage.RatingFilter{RaterID: userID}
	}
	out, err := s.Store.ListRatings(ctx, f)
	if err != nil {
		return nil, apperr.Internal("list ratings", err)
	}
	return out, nil
}

func (s *Service) owned(ctx context.Context, userID, id, verb string) (*models.Rating, error) {
	r, err := s.Store.GetRating(ctx, id)
	if errors.Is(err, storage.ErrNotFound) || (err == nil && !r.IsActive) {
		return nil, apperr.NotFound("Rating not found")
	}
	if err != nil {
		return nil, apperr.Internal("load rating", err)
	}
	if r.RaterID != userID {
		return nil, apperr.Forbidden("You can only " + verb + " your own ratings")
	}
	return r, nil
}

func (s *Service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.Rating, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	r, err := s.owned(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}
	if in.Rating != nil {
		r.Score = *in.Rating
	}
	if in.Comment != nil {
		r.Comment = strings.TrimSpace(*in.Comment)
	}
	if err := s.Store.UpdateRating(ctx, r); err != nil {
		return nil, apperr.Internal("update rating", err)
	}
	return r, nil
}

func (s *Service) Delete(ctx context.Context, userID, id string) error {
	r, err := s.owned(ctx, userID, id, "delete")
	if err != nil {
		return err
	}
	r.IsActive = false
	if err := s.Store.UpdateRating(ctx, r); err != nil {
		return apperr.Internal("delete rating", err)
	}
	return nil
}

func (s *Service) Average(ctx context.Context, userID string) (models.RatingSummary, error) {
	sum, err := s.Store.RatingSummary(ctx, userID)
	if err != nil {
		return models.RatingSummary{}, apperr.Internal("rating summary", err)
	}
	return sum, nil
}
