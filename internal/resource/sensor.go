package resource

import (
	"log/slog"
	"math"
	"math/rand"
	"sync"
	"time"
)

// Sensor is a periodically-sampled reading within [Min,Max], rounded
// to PrecisionDigits. Start/StopPeriodic are idempotent: a second Stop
// after Stop is a no-op (spec §8 round-trip law).
type Sensor struct {
	baseResource

	mu        sync.RWMutex
	value     float64
	unit      string
	tsMs      int64
	min, max  float64
	periodS   int
	precision int

	log *slog.Logger

	stopOnce sync.Once
	stopCh   chan struct{}
	running  bool
	runMu    sync.Mutex
}

// SensorConfig parameterizes a new Sensor.
type SensorConfig struct {
	ID              string
	TypeTag         string
	Unit            string
	Min, Max        float64
	PeriodS         int // default 60 if zero
	PrecisionDigits int
	Logger          *slog.Logger
}

// NewSensor builds a Sensor seeded at the midpoint of its range.
func NewSensor(cfg SensorConfig) *Sensor {
	period := cfg.PeriodS
	if period <= 0 {
		period = 60
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Sensor{
		baseResource: newBase(cfg.ID, cfg.TypeTag, KindSensor),
		unit:         cfg.Unit,
		min:          cfg.Min,
		max:          cfg.Max,
		periodS:      period,
		precision:    cfg.PrecisionDigits,
		log:          log,
		value:        round((cfg.Min+cfg.Max)/2, cfg.PrecisionDigits),
	}
	return s
}

func round(v float64, digits int) float64 {
	mul := math.Pow(10, float64(digits))
	return math.Round(v*mul) / mul
}

// measure draws a new reading within [min,max], rounds it, stamps the
// timestamp, and returns the new value. Holds the value lock for the
// duration of the update so concurrent readers never see a torn value.
func (s *Sensor) measure() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	span := s.max - s.min
	v := s.min + rand.Float64()*span
	v = round(v, s.precision)
	if v < s.min {
		v = s.min
	}
	if v > s.max {
		v = s.max
	}
	s.value = v
	s.tsMs = time.Now().UnixMilli()
	return s.value
}

// LoadUpdatedValue is measure() followed by returning the new value;
// it is the synchronous, on-demand counterpart to the periodic task.
func (s *Sensor) LoadUpdatedValue() float64 { return s.measure() }

// Value returns the current reading and its timestamp without forcing
// a new measurement.
func (s *Sensor) Value() (value float64, timestampMs int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value, s.tsMs
}

func (s *Sensor) Unit() string   { return s.unit }
func (s *Sensor) Min() float64   { return s.min }
func (s *Sensor) Max() float64   { return s.max }
func (s *Sensor) PeriodS() int   { return s.periodS }
func (s *Sensor) Precision() int { return s.precision }

// StartPeriodic schedules, after an initial task_delay_s, a repeating
// job at PeriodS that draws a new reading and invokes every listener.
// A failed measurement is logged and does not stop the ticker.
func (s *Sensor) StartPeriodic(taskDelayS int) {
	s.runMu.Lock()
	if s.running {
		s.runMu.Unlock()
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.stopOnce = sync.Once{}
	stopCh := s.stopCh
	s.runMu.Unlock()

	go func() {
		delay := time.Duration(taskDelayS) * time.Second
		select {
		case <-time.After(delay):
		case <-stopCh:
			return
		}

		ticker := time.NewTicker(time.Duration(s.periodS) * time.Second)
		defer ticker.Stop()

		s.tick()
		for {
			select {
			case <-stopCh:
				return
			case <-ticker.C:
				s.tick()
			}
		}
	}()
}

func (s *Sensor) tick() {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error("sensor periodic tick panicked, rescheduling", "resource_id", s.ID(), "panic", r)
		}
	}()
	v := s.measure()
	s.notifyAll(s, v)
}

// StopPeriodic cancels the periodic job. Idempotent.
func (s *Sensor) StopPeriodic() {
	s.runMu.Lock()
	if !s.running {
		s.runMu.Unlock()
		return
	}
	s.running = false
	ch := s.stopCh
	s.runMu.Unlock()
	s.stopOnce.Do(func() { close(ch) })
}
