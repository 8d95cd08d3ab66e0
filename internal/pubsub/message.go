package pubsub

import "encoding/json"

// Metadata identifies the room/rack/object/resource a message is
// about (spec §3). RackID is omitted from JSON when empty so the
// wire shape matches a room-scoped telemetry sample exactly.
type Metadata struct {
	RoomID     string `json:"room_id"`
	RackID     string `json:"rack_id,omitempty"`
	ObjectID   string `json:"object_id"`
	ResourceID string `json:"resource_id"`
}

// TelemetryMessage is the wire shape published on a telemetry topic.
type TelemetryMessage struct {
	Type        string   `json:"type"`
	DataValue   any      `json:"data_value"`
	TimestampMs int64    `json:"timestamp_ms"`
	Metadata    Metadata `json:"metadata"`
}

// ControlMessage is the wire shape published on a control topic.
type ControlMessage struct {
	Type        string   `json:"type"`
	EventType   string   `json:"event_type"`
	EventData   any      `json:"event_data"`
	TimestampMs int64    `json:"timestamp_ms"`
	Metadata    Metadata `json:"metadata"`
}

func EncodeTelemetry(m TelemetryMessage) ([]byte, error) { return json.Marshal(m) }
func DecodeTelemetry(b []byte) (TelemetryMessage, error) {
	var m TelemetryMessage
	err := json.Unmarshal(b, &m)
	return m, err
}

func EncodeControl(m ControlMessage) ([]byte, error) { return json.Marshal(m) }
func DecodeControl(b []byte) (ControlMessage, error) {
	var m ControlMessage
	err := json.Unmarshal(b, &m)
	return m, err
}
