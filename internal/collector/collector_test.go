package collector

import (
	"context"
	"sync"
	"testing"

	"github.com/MarinCervinschi/HVAC-System/internal/cloudsync"
	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
)

type recordingPolicy struct {
	mu  sync.Mutex
	got []pubsub.TelemetryMessage
}

func (r *recordingPolicy) Evaluate(msg pubsub.TelemetryMessage) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, msg)
}

func (r *recordingPolicy) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.got)
}

func TestCollectorDispatchesTelemetryToPolicyAndBatch(t *testing.T) {
	adapter := pubsub.NewFakeAdapter()
	policy := &recordingPolicy{}
	batcher := cloudsync.NewBatcher(cloudsync.BatcherConfig{RoomID: "room_A1", CloudURL: "http://example.invalid"})

	c := New(Config{RoomID: "room_A1", Adapter: adapter, Policy: policy, Batcher: batcher})
	if err := c.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg := pubsub.TelemetryMessage{
		Type:      "iot:sensor:temperature",
		DataValue: 39.5,
		Metadata:  pubsub.Metadata{RoomID: "room_A1", RackID: "rack_A1", ObjectID: "rack_cooling_unit", ResourceID: "rack_cooling_unit_temp"},
	}
	payload, _ := pubsub.EncodeTelemetry(msg)
	topic := pubsub.TelemetryTopic("room_A1", "rack_A1", "rack_cooling_unit", "rack_cooling_unit_temp")

	if err := adapter.Publish(topic, payload, 0, false); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := policy.count(); got != 1 {
		t.Fatalf("policy evaluations = %d, want 1", got)
	}
	if got := batcher.Len(); got != 1 {
		t.Fatalf("batch len = %d, want 1", got)
	}
}

func TestCollectorIgnoresControlMessagesForBatch(t *testing.T) {
	adapter := pubsub.NewFakeAdapter()
	policy := &recordingPolicy{}
	batcher := cloudsync.NewBatcher(cloudsync.BatcherConfig{RoomID: "room_A1", CloudURL: "http://example.invalid"})

	c := New(Config{RoomID: "room_A1", Adapter: adapter, Policy: policy, Batcher: batcher})
	if err := c.Subscribe(context.Background()); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	msg := pubsub.ControlMessage{
		Type: "iot:actuator:fan", EventType: "MANUAL",
		Metadata: pubsub.Metadata{RoomID: "room_A1", RackID: "rack_A1", ObjectID: "rack_cooling_unit", ResourceID: "rack_cooling_unit_fan"},
	}
	payload, _ := pubsub.EncodeControl(msg)
	topic := pubsub.ControlTopic("room_A1", "rack_A1", "rack_cooling_unit", "rack_cooling_unit_fan")

	if err := adapter.Publish(topic, payload, 0, false); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := policy.count(); got != 0 {
		t.Fatalf("policy evaluations = %d, want 0 (control messages skip policy/batch)", got)
	}
	if got := batcher.Len(); got != 0 {
		t.Fatalf("batch len = %d, want 0", got)
	}
}
