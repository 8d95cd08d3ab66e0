package topology

import (
	"testing"

	"github.com/MarinCervinschi/HVAC-System/internal/smartobject"
)

func TestRoomFindRackScoped(t *testing.T) {
	room := NewRoom("room_A1", "floor-1")
	rack := NewRack("rack_A1", smartobject.RackAirCooled)
	so, _ := smartobject.Build(smartobject.RackCoolingUnit, "rack_cooling_unit", "room_A1", "rack_A1", nil)
	rack.AddSmartObject(so)
	room.AddRack(rack)

	found, ok := room.Find("rack_cooling_unit", "rack_A1")
	if !ok || found != so {
		t.Fatalf("expected to find rack-scoped smart object")
	}
	if _, ok := room.Find("rack_cooling_unit", ""); ok {
		t.Fatal("should not find rack-scoped object via room-scoped lookup")
	}
}

func TestRackStatusGate(t *testing.T) {
	rack := NewRack("rack_A1", smartobject.RackWaterCooled)
	if rack.Status() != "ON" {
		t.Fatalf("rack should default ON, got %s", rack.Status())
	}
	rack.SetStatus("OFF")
	if rack.Status() != "OFF" {
		t.Fatal("SetStatus did not persist")
	}
}

func TestRoomAllSmartObjectsIncludesRackObjects(t *testing.T) {
	room := NewRoom("room_A1", "floor-1")
	roomScoped, _ := smartobject.Build(smartobject.EnvironmentMonitor, "", "room_A1", "", nil)
	room.AddSmartObject(roomScoped)

	rack := NewRack("rack_A1", smartobject.RackAirCooled)
	rackScoped, _ := smartobject.Build(smartobject.RackCoolingUnit, "", "room_A1", "rack_A1", nil)
	rack.AddSmartObject(rackScoped)
	room.AddRack(rack)

	all := room.AllSmartObjects()
	if len(all) != 2 {
		t.Fatalf("expected 2 objects total, got %d", len(all))
	}
}
