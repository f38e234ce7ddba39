package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/example/ride-booking/internal/apperr"
)

const maxBodyBytes = 1 << 20

type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (s *Server) respond(w http.ResponseWriter, status int, msg string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(envelope{Success: status < 400, Message: msg, Data: data}); err != nil {
		s.logger.Warn("encode response", "err", err)
	}
}

// fail maps err onto the envelope. Internal details are logged, never returned.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindInternal {
		s.logger.Error("request failed",
			"err", err,
			"method", r.Method,
			"route", routeTemplate(r),
			"request_id", requestIDFromContext(r.Context()),
		)
	}
	s.respond(w, kind.HTTPStatus(), apperr.PublicMessage(err), nil)
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil && !errors.Is(err, io.EOF) {
		return apperr.BadRequest("invalid JSON body")
	}
	return nil
}
