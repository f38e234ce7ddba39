package httpapi

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/identity"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/ride"
)

// rides

func (s *Server) handleRequestRide(w http.ResponseWriter, r *http.Request) {
	var in ride.RequestInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Rides.RequestRide(r.Context(), caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, "Ride requested successfully", out)
}

func (s *Server) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var in ride.EstimateInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Rides.EstimateFare(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Fare estimated successfully", out)
}

func (s *Server) handleIncoming(w http.ResponseWriter, r *http.Request) {
	out, err := s.Rides.ListIncoming(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Incoming ride requests retrieved successfully", out)
}

func (s *Server) handleMyRides(w http.ResponseWriter, r *http.Request) {
	out, err := s.Rides.ListMyRides(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Rides retrieved successfully", out)
}

func (s *Server) handleAllRides(w http.ResponseWriter, r *http.Request) {
	out, err := s.Rides.ListAll(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "All rides retrieved successfully", out)
}

func (s *Server) handleAccept(w http.ResponseWriter, r *http.Request) {
	out, err := s.Rides.AcceptRide(r.Context(), mux.Vars(r)["rideId"], caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ride accepted successfully", out)
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	var in ride.RejectInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Rides.RejectRide(r.Context(), mux.Vars(r)["rideId"], caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ride rejected successfully", out)
}

func (s *Server) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	var in ride.StatusInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Rides.UpdateStatus(r.Context(), mux.Vars(r)["rideId"], caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ride status updated successfully", out)
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	var in ride.CancelInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Rides.CancelByRider(r.Context(), mux.Vars(r)["rideId"], caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ride cancelled successfully", out)
}

func (s *Server) handleRideDetail(w http.ResponseWriter, r *http.Request) {
	u := caller(r)
	out, err := s.Rides.Detail(r.Context(), mux.Vars(r)["rideId"], u.ID, u.Role)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ride retrieved successfully", out)
}

// users

type registered struct {
	User        *models.User `json:"user"`
	AccessToken string       `json:"accessToken"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in identity.RegisterInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	u, err := s.Identity.Register(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	token, err := s.Tokens.Issue(u.ID, u.Role)
	if err != nil {
		s.fail(w, r, apperr.Internal("issue token", err))
		return
	}
	s.respond(w, http.StatusCreated, "User created successfully", registered{User: u, AccessToken: token})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.respond(w, http.StatusOK, "Your profile retrieved successfully", caller(r))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	out, err := s.Identity.ListUsers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "All users retrieved successfully", out)
}

func (s *Server) handleToggleBlock(w http.ResponseWriter, r *http.Request) {
	out, err := s.Identity.ToggleBlock(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msg := "User unblocked successfully"
	if out.IsBlocked {
		msg = "User blocked successfully"
	}
	s.respond(w, http.StatusOK, msg, out)
}

// drivers

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	var in identity.ApplyInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Identity.Apply(r.Context(), caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, "Driver application submitted successfully", out)
}

func (s *Server) handleListDrivers(w http.ResponseWriter, r *http.Request) {
	out, err := s.Identity.ListDrivers(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "All drivers retrieved successfully", out)
}

func (s *Server) handleMyDriverProfile(w http.ResponseWriter, r *http.Request) {
	out, err := s.Identity.Driver(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Driver profile retrieved successfully", out)
}

func (s *Server) handleEarnings(w http.ResponseWriter, r *http.Request) {
	out, err := s.Identity.Earnings(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Earnings retrieved successfully", out)
}

func (s *Server) handleDriverRides(w http.ResponseWriter, r *http.Request) {
	out, err := s.Rides.ListDriverRides(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ride history retrieved successfully", out)
}

func (s *Server) handleAvailability(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Online *bool `json:"online"`
	}
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.Online == nil {
		s.fail(w, r, apperr.BadRequest("online is required"))
		return
	}
	out, err := s.Identity.SetOnline(r.Context(), caller(r).ID, *in.Online)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Availability updated successfully", out)
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	out, err := s.Identity.Approve(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Driver approved successfully", out)
}

func (s *Server) handleRejectDriver(w http.ResponseWriter, r *http.Request) {
	var in identity.RejectInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Identity.Reject(r.Context(), mux.Vars(r)["id"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Driver application rejected", out)
}

func (s *Server) handleSuspend(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Suspended *bool `json:"suspended"`
	}
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if in.Suspended == nil {
		s.fail(w, r, apperr.BadRequest("suspended is required"))
		return
	}
	out, err := s.Identity.SetSuspended(r.Context(), mux.Vars(r)["id"], *in.Suspended)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	msg := "Driver reinstated successfully"
	if out.IsSuspended {
		msg = "Driver suspended successfully"
	}
	s.respond(w, http.StatusOK, msg, out)
}
