package smartobject

import (
	"fmt"
	"log/slog"

	"github.com/MarinCervinschi/HVAC-System/internal/resource"
)

// DeviceType enumerates rooms_config.json's `devices[].type` /
// `racks[].devices[].type` vocabulary (spec §6, supplemented by §3.1).
type DeviceType string

const (
	RackCoolingUnit     DeviceType = "RackCoolingUnit"
	WaterLoopController DeviceType = "WaterLoopController"
	EnvironmentMonitor  DeviceType = "EnvironmentMonitor"
	AirflowManager      DeviceType = "AirflowManager"
	EnergyMeteringUnit  DeviceType = "EnergyMeteringUnit"
	CoolingSystemHub    DeviceType = "CoolingSystemHub"
)

// RackType selects a rack's default companion device (§3.1).
type RackType string

const (
	RackAirCooled   RackType = "air_cooled"
	RackWaterCooled RackType = "water_cooled"
)

func (rt RackType) DefaultDeviceType() DeviceType {
	if rt == RackWaterCooled {
		return WaterLoopController
	}
	return RackCoolingUnit
}

// Build constructs a SmartObject of the given DeviceType. objectID
// should be unique within the owning room/rack; when empty a
// deterministic default derived from the type is used.
func Build(dt DeviceType, objectID, roomID, rackID string, log *slog.Logger) (*SmartObject, error) {
	if objectID == "" {
		objectID = defaultObjectID(dt)
	}
	so := New(objectID, roomID, rackID)

	switch dt {
	case RackCoolingUnit:
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_temp", TypeTag: "iot:sensor:temperature",
			Unit: "celsius", Min: 10, Max: 45, PeriodS: 60, PrecisionDigits: 1, Logger: log,
		}))
		so.AddResource(resource.NewActuator(resource.ActuatorConfig{
			ID: objectID + "_fan", TypeTag: "iot:actuator:fan", Kind: resource.ActuatorFan, Logger: log,
		}))
	case WaterLoopController:
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_pressure", TypeTag: "iot:sensor:pressure",
			Unit: "bar", Min: 0, Max: 10, PeriodS: 60, PrecisionDigits: 2, Logger: log,
		}))
		so.AddResource(resource.NewActuator(resource.ActuatorConfig{
			ID: objectID + "_pump", TypeTag: "iot:actuator:pump", Kind: resource.ActuatorPump, Logger: log,
		}))
	case EnvironmentMonitor:
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_humidity", TypeTag: "iot:sensor:humidity",
			Unit: "percent", Min: 0, Max: 100, PeriodS: 60, PrecisionDigits: 1, Logger: log,
		}))
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_airspeed", TypeTag: "iot:sensor:airspeed",
			Unit: "m/s", Min: 0, Max: 20, PeriodS: 60, PrecisionDigits: 2, Logger: log,
		}))
		so.AddResource(resource.NewActuator(resource.ActuatorConfig{
			ID: objectID + "_cooling_level", TypeTag: "iot:actuator:cooling_level", Kind: resource.ActuatorCoolingLevel, Logger: log,
		}))
	case AirflowManager:
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_airspeed", TypeTag: "iot:sensor:airspeed",
			Unit: "m/s", Min: 0, Max: 20, PeriodS: 60, PrecisionDigits: 2, Logger: log,
		}))
		so.AddResource(resource.NewActuator(resource.ActuatorConfig{
			ID: objectID + "_damper", TypeTag: "iot:actuator:switch", Kind: resource.ActuatorSwitch, Logger: log,
		}))
	case EnergyMeteringUnit:
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_power", TypeTag: "iot:sensor:power",
			Unit: "watt", Min: 0, Max: 20000, PeriodS: 60, PrecisionDigits: 0, Logger: log,
		}))
	case CoolingSystemHub:
		so.AddResource(resource.NewSensor(resource.SensorConfig{
			ID: objectID + "_temp", TypeTag: "iot:sensor:temperature",
			Unit: "celsius", Min: 10, Max: 45, PeriodS: 60, PrecisionDigits: 1, Logger: log,
		}))
		so.AddResource(resource.NewActuator(resource.ActuatorConfig{
			ID: objectID + "_cooling_level", TypeTag: "iot:actuator:cooling_level", Kind: resource.ActuatorCoolingLevel, Logger: log,
		}))
	default:
		return nil, fmt.Errorf("smartobject: unknown device type %q", dt)
	}
	return so, nil
}

func defaultObjectID(dt DeviceType) string {
	switch dt {
	case RackCoolingUnit:
		return "rack_cooling_unit"
	case WaterLoopController:
		return "water_loop_controller"
	case EnvironmentMonitor:
		return "environment_monitor"
	case AirflowManager:
		return "airflow_manager"
	case EnergyMeteringUnit:
		return "energy_metering_unit"
	case CoolingSystemHub:
		return "cooling_system_hub"
	default:
		return "device"
	}
}
