package pubsub

import "testing"

func TestTelemetryTopicRackScoped(t *testing.T) {
	got := TelemetryTopic("room_A1", "rack_A1", "rack_cooling_unit", "rack_cooling_unit_temp")
	want := "hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/telemetry/rack_cooling_unit_temp"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTelemetryTopicRoomScoped(t *testing.T) {
	got := TelemetryTopic("room_A1", "", "environment_monitor", "environment_monitor_humidity")
	want := "hvac/room/room_A1/device/environment_monitor/telemetry/environment_monitor_humidity"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestTopicMatchesWildcards(t *testing.T) {
	cases := []struct {
		pattern, topic string
		want           bool
	}{
		{"hvac/room/room_A1/device/+/telemetry/+", "hvac/room/room_A1/device/rack_cooling_unit/telemetry/temp", true},
		{"hvac/room/room_A1/device/+/telemetry/+", "hvac/room/room_A1/rack/rack_A1/device/x/telemetry/temp", false},
		{"hvac/room/room_A1/rack/+/device/+/telemetry/+", "hvac/room/room_A1/rack/rack_A1/device/x/telemetry/temp", true},
		{"hvac/room/room_A1/#", "hvac/room/room_A1/rack/rack_A1/device/x/control/temp", true},
	}
	for _, c := range cases {
		if got := topicMatches(c.pattern, c.topic); got != c.want {
			t.Errorf("topicMatches(%q,%q) = %v, want %v", c.pattern, c.topic, got, c.want)
		}
	}
}
