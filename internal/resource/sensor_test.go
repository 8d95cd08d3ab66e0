package resource

import (
	"sync"
	"testing"
	"time"
)

func TestSensorMeasureWithinRange(t *testing.T) {
	s := NewSensor(SensorConfig{ID: "t1", TypeTag: "iot:sensor:temperature", Min: 18, Max: 28, PrecisionDigits: 1})
	for i := 0; i < 100; i++ {
		v := s.LoadUpdatedValue()
		if v < 18 || v > 28 {
			t.Fatalf("reading %v outside [18,28]", v)
		}
	}
}

func TestSensorPeriodicNotifiesListeners(t *testing.T) {
	s := NewSensor(SensorConfig{ID: "t2", TypeTag: "iot:sensor:temperature", Min: 0, Max: 1, PeriodS: 1, PrecisionDigits: 2})
	var mu sync.Mutex
	count := 0
	done := make(chan struct{}, 1)
	s.AddListener(func(r Resource, v any) {
		mu.Lock()
		count++
		c := count
		mu.Unlock()
		if c == 1 {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	s.StartPeriodic(0)
	defer s.StopPeriodic()

	select {
	case <-done:
	case <-time.After(3 * time.Second):
		t.Fatal("listener was never invoked")
	}
}

func TestSensorStopPeriodicIdempotent(t *testing.T) {
	s := NewSensor(SensorConfig{ID: "t3", TypeTag: "iot:sensor:temperature", Min: 0, Max: 1, PeriodS: 60})
	s.StartPeriodic(0)
	s.StopPeriodic()
	s.StopPeriodic() // must not panic or block
}
