// Package dispatch pushes ride events to connected WebSocket clients.
package dispatch

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/observability"
)

var ErrNoSession = errors.New("dispatch: no ws session")

type jsonConn interface {
	WriteJSON(v any) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// Session is one connected client. Writes are serialised per connection.
type Session struct {
	conn jsonConn
	mu   sync.Mutex
}

func (s *Session) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(v)
}

const writeWait = 5 * time.Second

// Registry holds sessions per user. A user may be connected from several
// devices; each gets every event.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]map[*Session]struct{}
	log      *slog.Logger
}

func NewRegistry(log *slog.Logger) *Registry {
	return &Registry{sessions: make(map[string]map[*Session]struct{}), log: log}
}

func (r *Registry) Add(userID string, conn *websocket.Conn) *Session {
	return r.add(userID, conn)
}

func (r *Registry) add(userID string, conn jsonConn) *Session {
	s := &Session{conn: conn}
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[userID]
	if !ok {
		set = make(map[*Session]struct{})
		r.sessions[userID] = set
	}
	set[s] = struct{}{}
	observability.WSSessions.Inc()
	return s
}

func (r *Registry) Remove(userID string, s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	set, ok := r.sessions[userID]
	if !ok {
		return
	}
	if _, ok := set[s]; !ok {
		return
	}
	delete(set, s)
	if len(set) == 0 {
		delete(r.sessions, userID)
	}
	_ = s.conn.Close()
	observability.WSSessions.Dec()
}

// Send delivers v to every session of userID. Sessions whose write fails
// are dropped.
func (r *Registry) Send(userID string, v any) error {
	r.mu.RLock()
	targets := make([]*Session, 0, len(r.sessions[userID]))
	for s := range r.sessions[userID] {
		targets = append(targets, s)
	}
	r.mu.RUnlock()
	if len(targets) == 0 {
		return ErrNoSession
	}
	var errs []error
	for _, s := range targets {
		if err := s.Send(v); err != nil {
			r.log.Warn("ws send failed", "user_id", userID, "err", err)
			r.Remove(userID, s)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Publish pushes ev to the ride's rider and driver. Offline users are not
// an error.
func (r *Registry) Publish(_ context.Context, ev events.RideEvent) error {
	var errs []error
	for _, uid := range []string{ev.RiderID, ev.DriverUserID} {
		if uid == "" {
			continue
		}
		if err := r.Send(uid, ev); err != nil && !errors.Is(err, ErrNoSession) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (r *Registry) Connected(userID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions[userID])
}
