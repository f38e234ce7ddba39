package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/example/ride-booking/internal/emergency"
	"github.com/example/ride-booking/internal/payment"
	"github.com/example/ride-booking/internal/rating"
	"github.com/example/ride-booking/internal/settings"
)

// ratings

// handleListRatings lists ratings received by the caller, or given with ?type=given.
func (s *Server) handleListRatings(w http.ResponseWriter, r *http.Request) {
	given := r.URL.Query().Get("type") == "given"
	out, err := s.Ratings.List(r.Context(), caller(r).ID, given)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Ratings retrieved successfully", out)
}

func (s *Server) handleCreateRating(w http.ResponseWriter, r *http.Request) {
	var in struct {
		RideID string `json:"rideId"`
		rating.Input
	}
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	if id := mux.Vars(r)["rideId"]; id != "" {
		in.RideID = id
	}
	out, err := s.Ratings.Create(r.Context(), caller(r).ID, in.RideID, in.Input)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, "Rating created successfully", out)
}

func (s *Server) handleAverageRating(w http.ResponseWriter, r *http.Request) {
	out, err := s.Ratings.Average(r.Context(), mux.Vars(r)["userId"])
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Average rating retrieved successfully", out)
}

func (s *Server) handleUpdateRating(w http.ResponseWriter, r *http.Request) {
	var in rating.UpdateInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Ratings.Update(r.Context(), caller(r).ID, mux.Vars(r)["ratingId"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Rating updated successfully", out)
}

func (s *Server) handleDeleteRating(w http.ResponseWriter, r *http.Request) {
	if err := s.Ratings.Delete(r.Context(), caller(r).ID, mux.Vars(r)["ratingId"]); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Rating deleted successfully", nil)
}

// payment methods

func (s *Server) handleListPaymentMethods(w http.ResponseWriter, r *http.Request) {
	out, err := s.Payments.List(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Payment methods retrieved successfully", out)
}

func (s *Server) handleCreatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var in payment.CreateMethodInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Payments.Create(r.Context(), caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, "Payment method added successfully", out)
}

func (s *Server) handleUpdatePaymentMethod(w http.ResponseWriter, r *http.Request) {
	var in payment.UpdateMethodInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Payments.Update(r.Context(), caller(r).ID, mux.Vars(r)["paymentMethodId"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Payment method updated successfully", out)
}

func (s *Server) handleDeletePaymentMethod(w http.ResponseWriter, r *http.Request) {
	if err := s.Payments.Delete(r.Context(), caller(r).ID, mux.Vars(r)["paymentMethodId"]); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Payment method deleted successfully", nil)
}

// emergency contacts

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	out, err := s.Emergency.List(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Emergency contacts retrieved successfully", out)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in emergency.CreateInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Emergency.Create(r.Context(), caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusCreated, "Emergency contact added successfully", out)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	var in emergency.UpdateInput
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Emergency.Update(r.Context(), caller(r).ID, mux.Vars(r)["contactId"], in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Emergency contact updated successfully", out)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	if err := s.Emergency.Delete(r.Context(), caller(r).ID, mux.Vars(r)["contactId"]); err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Emergency contact deleted successfully", nil)
}

// settings

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	out, err := s.Settings.Get(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Settings retrieved successfully", out)
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var in settings.Patch
	if err := decode(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Settings.Update(r.Context(), caller(r).ID, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Settings updated successfully", out)
}

func (s *Server) handleResetSettings(w http.ResponseWriter, r *http.Request) {
	out, err := s.Settings.Reset(r.Context(), caller(r).ID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Settings reset to defaults", out)
}

// reports

type overviewResponse struct {
	Report any    `json:"report"`
	From   string `json:"from"`
	To     string `json:"to"`
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, to, err := s.Reports.Window(q.Get("from"), q.Get("to"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.Reports.Overview(r.Context(), from, to)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Reports fetched successfully", overviewResponse{
		Report: out,
		From:   from.Format(timeLayout),
		To:     to.Format(timeLayout),
	})
}

func (s *Server) handleToday(w http.ResponseWriter, r *http.Request) {
	out, err := s.Reports.Today(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Today's ride stats fetched successfully", out)
}

func (s *Server) handleDaily(w http.ResponseWriter, r *http.Request) {
	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			n = 0
		}
		days = n
	}
	out, err := s.Reports.Daily(r.Context(), days)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.respond(w, http.StatusOK, "Daily analytics fetched successfully", out)
}
