package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/example/ride-booking/internal/models"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestTypeFor(t *testing.T) {
	if TypeFor(models.RideInTransit) != RideInTransit || TypeFor(models.RideAccepted) != RideAccepted {
		t.Fatal("status to event type mapping broken")
	}
}

func TestKafkaPublisherKeysByRide(t *testing.T) {
	w := &fakeWriter{}
	p := &KafkaPublisher{writer: w, timeout: time.Second}
	at := time.Date(2024, 5, 1, 23, 30, 0, 0, time.UTC)
	r := &models.Ride{ID: "ride-1", RiderID: "rider-1", DriverID: "drv-1", Status: models.RideAccepted, Price: 300}
	if err := p.Publish(context.Background(), FromRide(RideAccepted, r, "user-d", at)); err != nil {
		t.Fatal(err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "ride-1" {
		t.Fatalf("messages = %+v", w.msgs)
	}
	var got RideEvent
	if err := json.Unmarshal(w.msgs[0].Value, &got); err != nil {
		t.Fatal(err)
	}
	if got.Type != RideAccepted || got.DriverUserID != "user-d" || got.Day() != "2024-05-01" {
		t.Fatalf("decoded = %+v", got)
	}
}

type recordSink struct {
	got []RideEvent
	err error
}

func (r *recordSink) Publish(_ context.Context, ev RideEvent) error {
	r.got = append(r.got, ev)
	return r.err
}

func TestMultiDeliversToAllAndJoinsErrors(t *testing.T) {
	boom := errors.New("boom")
	a, b := &recordSink{err: boom}, &recordSink{}
	err := Multi{a, b, Nop{}}.Publish(context.Background(), RideEvent{RideID: "r"})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(a.got) != 1 || len(b.got) != 1 {
		t.Fatal("a failing sink must not stop delivery to the rest")
	}
}

func TestKeySurvivesWireRoundTrip(t *testing.T) {
	ev := RideEvent{Type: RideRejected, RideID: "r1", Status: models.RideRequested, At: time.Date(2025, 3, 10, 8, 0, 0, 123456789, time.UTC)}
	b, err := json.Marshal(ev)
	if err != nil {
		t.Fatal(err)
	}
	var back RideEvent
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back.Key() != ev.Key() {
		t.Fatalf("key %q != %q", back.Key(), ev.Key())
	}
	later := ev
	later.At = ev.At.Add(time.Second)
	if later.Key() == ev.Key() {
		t.Fatal("distinct occurrences must not share a key")
	}
}
