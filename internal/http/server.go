// Package httpapi exposes the ride-booking services over JSON/HTTP and a
// WebSocket feed of ride events.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/example/ride-booking/internal/auth"
	"github.com/example/ride-booking/internal/dispatch"
	"github.com/example/ride-booking/internal/emergency"
	"github.com/example/ride-booking/internal/identity"
	"github.com/example/ride-booking/internal/models"
	"github.com/example/ride-booking/internal/payment"
	"github.com/example/ride-booking/internal/rating"
	"github.com/example/ride-booking/internal/report"
	"github.com/example/ride-booking/internal/ride"
	"github.com/example/ride-booking/internal/settings"
)

// Deps are the services behind the API. WSReg and Ready are optional.
type Deps struct {
	Rides     *ride.Engine
	Identity  *identity.Service
	Ratings   *rating.Service
	Payments  *payment.Service
	Emergency *emergency.Service
	Settings  *settings.Service
	Reports   *report.Service
	Tokens    *auth.Tokens
	WSReg     *dispatch.Registry
	Ready     func(ctx context.Context) error
}

type Server struct {
	Deps
	logger *slog.Logger
	mux    *mux.Router
}

func NewServer(deps Deps, logger *slog.Logger) *Server {
	s := &Server{Deps: deps, logger: logger, mux: mux.NewRouter()}
	s.registerMiddleware()
	s.routes()
	return s
}

var (
	admin  = []models.Role{models.RoleAdmin}
	rider  = []models.Role{models.RoleRider}
	driver = []models.Role{models.RoleDriver}
	anyone []models.Role
)

func (s *Server) public(method, path string, h http.HandlerFunc) {
	s.mux.HandleFunc(path, h).Methods(method)
}

func (s *Server) private(method, path string, roles []models.Role, h http.HandlerFunc) {
	s.mux.Handle(path, s.requireAuth(roles, h)).Methods(method)
}

// routes registers literal paths before their {id} siblings; mux matches
// in registration order.
func (s *Server) routes() {
	s.public(http.MethodGet, "/healthz", func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusOK, "ok", nil)
	})
	s.public(http.MethodGet, "/ready", s.handleReady)
	s.mux.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	s.public(http.MethodGet, "/ws", s.handleWS)

	// rides
	s.private(http.MethodPost, "/rides/request", rider, s.handleRequestRide)
	s.private(http.MethodPost, "/rides/estimate", anyone, s.handleEstimate)
	s.private(http.MethodGet, "/rides/incoming", driver, s.handleIncoming)
	s.private(http.MethodGet, "/rides/me", rider, s.handleMyRides)
	s.private(http.MethodGet, "/rides", admin, s.handleAllRides)
	s.private(http.MethodPatch, "/rides/accept/{rideId}", driver, s.handleAccept)
	s.private(http.MethodPatch, "/rides/reject/{rideId}", driver, s.handleReject)
	s.private(http.MethodPatch, "/rides/update-status/{rideId}", driver, s.handleUpdateStatus)
	s.private(http.MethodPatch, "/rides/cancel/{rideId}", rider, s.handleCancel)
	s.private(http.MethodGet, "/rides/{rideId}", anyone, s.handleRideDetail)

	// users
	s.public(http.MethodPost, "/users/register", s.handleRegister)
	s.private(http.MethodGet, "/users/me", anyone, s.handleMe)
	s.private(http.MethodGet, "/users", admin, s.handleListUsers)
	s.private(http.MethodPatch, "/users/toggle-block/{userId}", admin, s.handleToggleBlock)

	// drivers
	s.private(http.MethodPost, "/drivers/apply", rider, s.handleApply)
	s.private(http.MethodGet, "/drivers", admin, s.handleListDrivers)
	s.private(http.MethodGet, "/drivers/me", driver, s.handleMyDriverProfile)
	s.private(http.MethodGet, "/drivers/earnings", driver, s.handleEarnings)
	s.private(http.MethodGet, "/drivers/rides", driver, s.handleDriverRides)
	s.private(http.MethodPatch, "/drivers/availability", driver, s.handleAvailability)
	s.private(http.MethodPatch, "/drivers/approve-driver/{id}", admin, s.handleApprove)
	s.private(http.MethodPatch, "/drivers/reject-driver/{id}", admin, s.handleRejectDriver)
	s.private(http.MethodPatch, "/drivers/suspend/{id}", admin, s.handleSuspend)

	// ratings
	s.private(http.MethodGet, "/ratings", anyone, s.handleListRatings)
	s.private(http.MethodPost, "/ratings", anyone, s.handleCreateRating)
	s.private(http.MethodPost, "/ratings/ride/{rideId}", anyone, s.handleCreateRating)
	s.private(http.MethodGet, "/ratings/average/{userId}", anyone, s.handleAverageRating)
	s.private(http.MethodPatch, "/ratings/{ratingId}", anyone, s.handleUpdateRating)
	s.private(http.MethodDelete, "/ratings/{ratingId}", anyone, s.handleDeleteRating)

	// payment methods
	s.private(http.MethodGet, "/payments", rider, s.handleListPaymentMethods)
	s.private(http.MethodPost, "/payments", rider, s.handleCreatePaymentMethod)
	s.private(http.MethodPatch, "/payments/{paymentMethodId}", rider, s.handleUpdatePaymentMethod)
	s.private(http.MethodDelete, "/payments/{paymentMethodId}", rider, s.handleDeletePaymentMethod)

	// emergency contacts
	s.private(http.MethodGet, "/emergency", anyone, s.handleListContacts)
	s.private(http.MethodPost, "/emergency", anyone, s.handleCreateContact)
	s.private(http.MethodPatch, "/emergency/{contactId}", anyone, s.handleUpdateContact)
	s.private(http.MethodDelete, "/emergency/{contactId}", anyone, s.handleDeleteContact)

	// settings
	s.private(http.MethodGet, "/settings", anyone, s.handleGetSettings)
	s.private(http.MethodPatch, "/settings", anyone, s.handleUpdateSettings)
	s.private(http.MethodPost, "/settings/reset", anyone, s.handleResetSettings)

	// reports
	s.private(http.MethodGet, "/reports", admin, s.handleOverview)
	s.private(http.MethodGet, "/reports/today", admin, s.handleToday)
	s.private(http.MethodGet, "/reports/daily", admin, s.handleDaily)

	s.mux.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusNotFound, "Route not found", nil)
	})
	s.mux.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.respond(w, http.StatusMethodNotAllowed, "Method not allowed", nil)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { s.mux.ServeHTTP(w, r) }

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.Ready != nil {
		if err := s.Ready(r.Context()); err != nil {
			s.logger.Warn("readiness check failed", "err", err)
			s.respond(w, http.StatusServiceUnavailable, "not ready", nil)
			return
		}
	}
	s.respond(w, http.StatusOK, "ready", nil)
}
