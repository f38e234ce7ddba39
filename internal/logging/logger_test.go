package logging

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestNewLoggerAddsServiceAndRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf, "warn", "ride-api")

	l.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info should be filtered at warn level, got %s", buf.String())
	}

	l.Warn("kept", "ride_id", "r1")
	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("expected json record: %v", err)
	}
	if rec["service"] != "ride-api" || rec["ride_id"] != "r1" {
		t.Fatalf("unexpected record %v", rec)
	}
}
