package smartobject

import "testing"

func TestBuildRackCoolingUnitHasTempAndFan(t *testing.T) {
	so, err := Build(RackCoolingUnit, "", "room_A1", "rack_A1", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(so.Sensors()) != 1 || len(so.Actuators()) != 1 {
		t.Fatalf("expected 1 sensor + 1 actuator, got %d/%d", len(so.Sensors()), len(so.Actuators()))
	}
	if !so.IsGatewayControllable() {
		t.Fatal("rack cooling unit should be gateway-controllable")
	}
}

func TestBuildEnergyMeteringUnitHasNoActuator(t *testing.T) {
	so, err := Build(EnergyMeteringUnit, "", "room_A1", "", nil)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if len(so.Actuators()) != 0 {
		t.Fatalf("energy metering unit should have no actuator, got %d", len(so.Actuators()))
	}
	if so.IsGatewayControllable() {
		t.Fatal("sensor-only device should not be gateway-controllable")
	}
}

func TestRackTypeDefaultDevice(t *testing.T) {
	if RackAirCooled.DefaultDeviceType() != RackCoolingUnit {
		t.Fatal("air_cooled should default to RackCoolingUnit")
	}
	if RackWaterCooled.DefaultDeviceType() != WaterLoopController {
		t.Fatal("water_cooled should default to WaterLoopController")
	}
}

func TestBuildUnknownTypeErrors(t *testing.T) {
	if _, err := Build("bogus", "", "room_A1", "", nil); err == nil {
		t.Fatal("expected error for unknown device type")
	}
}
