// Package runtime implements the Device Runtime (C5): it does not run
// sensor tasks itself (each Sensor owns its own ticker) but supplies
// the shared listener factory that turns a resource notification into
// an encoded telemetry or control message and publishes it.
package runtime

import (
	"log/slog"
	"time"

	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
	"github.com/MarinCervinschi/HVAC-System/internal/resource"
)

const defaultTaskDelayS = 5

// DeviceRuntime binds resource listeners to the pub/sub adapter.
type DeviceRuntime struct {
	adapter pubsub.Adapter
	log     *slog.Logger
}

func New(adapter pubsub.Adapter, log *slog.Logger) *DeviceRuntime {
	if log == nil {
		log = slog.Default()
	}
	return &DeviceRuntime{adapter: adapter, log: log}
}

// TaskDelayS returns the default sensor periodic-task delay (spec §4.4
// default of 5s). The orchestrator does not call it; it passes
// AppConfig.TaskDelayS to each sensor instead.
func (dr *DeviceRuntime) TaskDelayS() int { return defaultTaskDelayS }

// ListenerFor builds the listener the smart object attaches to r during
// Start(), before its sensors start: a telemetry publisher for sensors, a control
// publisher for actuators.
func (dr *DeviceRuntime) ListenerFor(roomID, rackID, objectID string) func(r resource.Resource) resource.Listener {
	return func(r resource.Resource) resource.Listener {
		switch r.Kind() {
		case resource.KindSensor:
			return dr.sensorListener(roomID, rackID, objectID)
		case resource.KindActuator:
			return dr.actuatorListener(roomID, rackID, objectID)
		default:
			return nil
		}
	}
}

func (dr *DeviceRuntime) sensorListener(roomID, rackID, objectID string) resource.Listener {
	return func(r resource.Resource, value any) {
		v, ok := value.(float64)
		if !ok {
			dr.log.Warn("sensor listener received non-float64 value", "resource_id", r.ID())
			return
		}
		topic := pubsub.TelemetryTopic(roomID, rackID, objectID, r.ID())
		msg := pubsub.TelemetryMessage{
			Type:        r.TypeTag(),
			DataValue:   v,
			TimestampMs: time.Now().UnixMilli(),
			Metadata: pubsub.Metadata{
				RoomID: roomID, RackID: rackID, ObjectID: objectID, ResourceID: r.ID(),
			},
		}
		payload, err := pubsub.EncodeTelemetry(msg)
		if err != nil {
			dr.log.Error("failed to encode telemetry message", "resource_id", r.ID(), "error", err)
			return
		}
		if err := dr.adapter.Publish(topic, payload, 0, false); err != nil {
			dr.log.Warn("failed to publish telemetry", "topic", topic, "error", err)
		}
	}
}

func (dr *DeviceRuntime) actuatorListener(roomID, rackID, objectID string) resource.Listener {
	return func(r resource.Resource, value any) {
		ce, ok := value.(resource.CommandEvent)
		if !ok {
			dr.log.Warn("actuator listener received unexpected value", "resource_id", r.ID())
			return
		}
		eventType := ce.EventType
		if eventType == "" {
			eventType = "MANUAL"
		}
		topic := pubsub.ControlTopic(roomID, rackID, objectID, r.ID())
		msg := pubsub.ControlMessage{
			Type:        r.TypeTag(),
			EventType:   eventType,
			EventData:   eventDataOrState(ce),
			TimestampMs: time.Now().UnixMilli(),
			Metadata: pubsub.Metadata{
				RoomID: roomID, RackID: rackID, ObjectID: objectID, ResourceID: r.ID(),
			},
		}
		payload, err := pubsub.EncodeControl(msg)
		if err != nil {
			dr.log.Error("failed to encode control message", "resource_id", r.ID(), "error", err)
			return
		}
		if err := dr.adapter.Publish(topic, payload, 0, false); err != nil {
			dr.log.Warn("failed to publish control message", "topic", topic, "error", err)
		}
	}
}

// eventDataOrState falls back to the post-apply state snapshot when
// the caller did not supply explicit event_data, so a control message
// is never published with a bare nil payload.
func eventDataOrState(ce resource.CommandEvent) any {
	if ce.EventData != nil {
		return ce.EventData
	}
	return ce.State
}
