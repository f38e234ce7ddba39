package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/example/ride-booking/internal/apperr"
	"github.com/example/ride-booking/internal/dispatch"
)

const timeLayout = time.RFC3339

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleWS subscribes the caller to events of their rides. Browsers cannot
// set headers on a websocket handshake, so the token may come as ?token=.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	if s.WSReg == nil {
		s.fail(w, r, apperr.NotFound("Live updates are disabled"))
		return
	}
	raw := r.URL.Query().Get("token")
	if raw == "" {
		raw = bearerToken(r)
	}
	u, err := s.authenticate(r, raw)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("ws upgrade failed", "user_id", u.ID, "err", err)
		return
	}
	sess := s.WSReg.Add(u.ID, conn)
	go s.drain(u.ID, sess, conn)
}

// drain discards client frames until the connection closes, then releases
// the session.
func (s *Server) drain(userID string, sess *dispatch.Session, conn *websocket.Conn) {
	defer s.WSReg.Remove(userID, sess)
	conn.SetReadLimit(512)
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}
