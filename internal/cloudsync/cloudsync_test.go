package cloudsync

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
)

func telemetry(v float64) pubsub.TelemetryMessage {
	return pubsub.TelemetryMessage{
		Type:      "iot:sensor:temperature",
		DataValue: v,
		Metadata:  pubsub.Metadata{RoomID: "room_A1", ObjectID: "rack_cooling_unit", ResourceID: "rack_cooling_unit_temp"},
	}
}

func TestSyncOnceDrainsOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewBatcher(BatcherConfig{RoomID: "room_A1", CloudURL: srv.URL})
	b.Add(telemetry(1))
	b.Add(telemetry(2))
	b.Add(telemetry(3))

	if err := b.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce: %v", err)
	}
	if got := b.Len(); got != 0 {
		t.Fatalf("batch len after success = %d, want 0", got)
	}
}

func TestSyncOnceKeepsBatchOnFailure(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	b := NewBatcher(BatcherConfig{RoomID: "room_A1", CloudURL: srv.URL})
	b.Add(telemetry(1))
	b.Add(telemetry(2))
	b.Add(telemetry(3))

	if err := b.SyncOnce(context.Background()); err == nil {
		t.Fatal("expected error on 500 response")
	}
	if got := b.Len(); got != 3 {
		t.Fatalf("batch len after failure = %d, want 3 (unchanged)", got)
	}

	b.Add(telemetry(4))
	if got := b.Len(); got != 4 {
		t.Fatalf("batch len after one more arrival = %d, want 4", got)
	}
}

func TestSyncOnceNoOpWhenEmpty(t *testing.T) {
	called := false
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	b := NewBatcher(BatcherConfig{RoomID: "room_A1", CloudURL: srv.URL})
	if err := b.SyncOnce(context.Background()); err != nil {
		t.Fatalf("SyncOnce on empty batch: %v", err)
	}
	if called {
		t.Fatal("no HTTP call should be made when the batch is empty")
	}
}
