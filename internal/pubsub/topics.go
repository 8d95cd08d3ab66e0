package pubsub

import "fmt"

// Base paths per spec §6.
const (
	baseTopic  = "hvac/room"
	telemetry  = "telemetry"
	control    = "control"
	wildcard1  = "+"
	wildcardN  = "#"
	rackSeg    = "rack"
	deviceSeg  = "device"
)

// TelemetryTopic builds the canonical telemetry topic for a resource,
// rack-scoped when rackID is non-empty (spec §4.2).
func TelemetryTopic(roomID, rackID, objectID, resourceID string) string {
	return messageTopic(roomID, rackID, objectID, resourceID, telemetry)
}

// ControlTopic builds the canonical control topic for a resource.
func ControlTopic(roomID, rackID, objectID, resourceID string) string {
	return messageTopic(roomID, rackID, objectID, resourceID, control)
}

func messageTopic(roomID, rackID, objectID, resourceID, kind string) string {
	if rackID != "" {
		return fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s/%s", baseTopic, roomID, rackSeg, rackID, deviceSeg, objectID, kind, resourceID)
	}
	return fmt.Sprintf("%s/%s/%s/%s/%s/%s", baseTopic, roomID, deviceSeg, objectID, kind, resourceID)
}

// RoomSubscriptionPatterns returns the four wildcard patterns a
// per-room consumer subscribes to (spec §6): room- and rack-scoped,
// telemetry and control, each wildcarding object and resource id.
func RoomSubscriptionPatterns(roomID string) []string {
	return []string{
		fmt.Sprintf("%s/%s/%s/%s/%s/%s", baseTopic, roomID, deviceSeg, wildcard1, telemetry, wildcard1),
		fmt.Sprintf("%s/%s/%s/%s/%s/%s", baseTopic, roomID, deviceSeg, wildcard1, control, wildcard1),
		fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s/%s", baseTopic, roomID, rackSeg, wildcard1, deviceSeg, wildcard1, telemetry, wildcard1),
		fmt.Sprintf("%s/%s/%s/%s/%s/%s/%s/%s", baseTopic, roomID, rackSeg, wildcard1, deviceSeg, wildcard1, control, wildcard1),
	}
}
