package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/ride-booking/internal/events"
	"github.com/example/ride-booking/internal/logging"
)

type fakeConn struct {
	sent   []any
	err    error
	closed bool
}

func (f *fakeConn) WriteJSON(v any) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, v)
	return nil
}
func (f *fakeConn) SetWriteDeadline(time.Time) error { return nil }
func (f *fakeConn) Close() error                     { f.closed = true; return nil }

func TestPublishReachesRiderAndDriver(t *testing.T) {
	r := NewRegistry(logging.Discard())
	rider, phone, driver := &fakeConn{}, &fakeConn{}, &fakeConn{}
	r.add("rider-1", rider)
	r.add("rider-1", phone)
	r.add("driver-user-1", driver)

	ev := events.RideEvent{Type: events.RideAccepted, RideID: "ride-1", RiderID: "rider-1", DriverUserID: "driver-user-1"}
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatal(err)
	}
	for name, c := range map[string]*fakeConn{"rider": rider, "phone": phone, "driver": driver} {
		if len(c.sent) != 1 {
			t.Fatalf("%s got %d events", name, len(c.sent))
		}
	}
}

func TestPublishIgnoresOfflineUsers(t *testing.T) {
	r := NewRegistry(logging.Discard())
	ev := events.RideEvent{Type: events.RideRequested, RideID: "ride-1", RiderID: "nobody"}
	if err := r.Publish(context.Background(), ev); err != nil {
		t.Fatalf("offline rider should not fail publish: %v", err)
	}
	if err := r.Send("nobody", ev); !errors.Is(err, ErrNoSession) {
		t.Fatalf("Send err = %v", err)
	}
}

func TestFailedSessionIsDropped(t *testing.T) {
	r := NewRegistry(logging.Discard())
	bad := &fakeConn{err: errors.New("broken pipe")}
	r.add("u", bad)
	if err := r.Send("u", "hello"); err == nil {
		t.Fatal("expected write error")
	}
	if r.Connected("u") != 0 || !bad.closed {
		t.Fatal("broken session should be removed and closed")
	}
}
