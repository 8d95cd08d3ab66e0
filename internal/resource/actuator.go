package resource

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// ActuatorKind distinguishes the small set of actuator shapes the
// device catalog exposes (§3.1 of SPEC_FULL.md).
type ActuatorKind string

const (
	ActuatorFan          ActuatorKind = "fan"
	ActuatorPump         ActuatorKind = "pump"
	ActuatorCoolingLevel ActuatorKind = "cooling_level"
	ActuatorSwitch       ActuatorKind = "switch"
)

// magnitudeKey and magnitudeMax describe the one numeric command field
// each kind accepts, beyond the universal "status" field.
func (k ActuatorKind) magnitudeKey() string {
	switch k {
	case ActuatorFan, ActuatorPump:
		return "speed"
	case ActuatorCoolingLevel:
		return "level"
	default:
		return ""
	}
}

func (k ActuatorKind) magnitudeMax() float64 {
	switch k {
	case ActuatorFan, ActuatorPump:
		return 100
	case ActuatorCoolingLevel:
		return 5
	default:
		return 0
	}
}

// CommandEvent is delivered to listeners after a successful
// ApplyCommand; it carries the caller-supplied event metadata plus a
// snapshot of the post-apply state, so the device runtime's listener
// (C5) can build and publish a control message without re-reading the
// actuator under a second lock.
type CommandEvent struct {
	EventType string
	EventData any
	State     map[string]any
}

// ActuatorConfig parameterizes a new Actuator.
type ActuatorConfig struct {
	ID      string
	TypeTag string
	Kind    ActuatorKind
	Logger  *slog.Logger
}

// Actuator models a controllable device resource: status ON/OFF plus,
// for fan/pump/cooling-level kinds, a single magnitude field.
type Actuator struct {
	baseResource

	mu            sync.Mutex
	operational   bool
	status        string
	magnitude     float64
	lastUpdatedMs int64

	kind ActuatorKind
	log  *slog.Logger
}

// NewActuator builds an Actuator starting OFF, zeroed, non-operational
// (smart object Start() flips it operational; see internal/smartobject).
func NewActuator(cfg ActuatorConfig) *Actuator {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Actuator{
		baseResource: newBase(cfg.ID, cfg.TypeTag, KindActuator),
		status:       "OFF",
		kind:         cfg.Kind,
		log:          log,
	}
}

func (a *Actuator) ActuatorKind() ActuatorKind { return a.kind }

// SetOperational is called by the owning smart object's Start/Stop.
func (a *Actuator) SetOperational(v bool) {
	a.mu.Lock()
	a.operational = v
	a.mu.Unlock()
}

func (a *Actuator) IsOperational() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.operational
}

// State returns a snapshot of the actuator's externally visible state
// map, always including status and last_updated_ms.
func (a *Actuator) State() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.snapshotLocked()
}

func (a *Actuator) snapshotLocked() map[string]any {
	m := map[string]any{
		"status":          a.status,
		"last_updated_ms": a.lastUpdatedMs,
	}
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		m["speed"] = a.magnitude
		m["target_speed"] = a.magnitude
	case ActuatorCoolingLevel:
		m["level"] = a.magnitude
	case ActuatorSwitch:
		// no magnitude field
	}
	return m
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// ApplyCommand validates and applies cmd atomically with respect to
// concurrent readers of State(), per spec §4.1. eventType defaults to
// "MANUAL" when empty.
func (a *Actuator) ApplyCommand(cmd map[string]any, eventType string, eventData any) error {
	if eventType == "" {
		eventType = "MANUAL"
	}

	a.mu.Lock()
	if !a.operational {
		a.mu.Unlock()
		return ErrNotOperational
	}

	magKey := a.kind.magnitudeKey()
	allowed := map[string]bool{"status": true}
	if magKey != "" {
		allowed[magKey] = true
	}
	for k := range cmd {
		if !allowed[k] {
			a.mu.Unlock()
			return fmt.Errorf("%w: unknown key %q for %s actuator", ErrInvalidCommand, k, a.kind)
		}
	}

	oldStatus := a.status
	newStatus := oldStatus
	statusProvided := false
	if raw, ok := cmd["status"]; ok {
		statusProvided = true
		s, ok := raw.(string)
		if !ok {
			a.mu.Unlock()
			return ErrInvalidStatus
		}
		su := strings.ToUpper(s)
		if su != "ON" && su != "OFF" {
			a.mu.Unlock()
			return ErrInvalidStatus
		}
		newStatus = su
	}

	var magVal float64
	magProvided := false
	if magKey != "" {
		if raw, ok := cmd[magKey]; ok {
			magProvided = true
			f, ok := toFloat(raw)
			if !ok {
				a.mu.Unlock()
				return fmt.Errorf("%w: %s must be numeric", ErrInvalidRange, magKey)
			}
			if f < 0 || f > a.kind.magnitudeMax() {
				a.mu.Unlock()
				return fmt.Errorf("%w: %s=%v out of range [0,%v]", ErrInvalidRange, magKey, f, a.kind.magnitudeMax())
			}
			magVal = f
		}
	}

	// Reject a positive magnitude change while the actuator is OFF and
	// the command does not also turn it on (spec §4.1 step 4, §9 Open
	// Question resolved toward rejection rather than silent promotion).
	if magProvided && !statusProvided && oldStatus == "OFF" {
		a.mu.Unlock()
		return fmt.Errorf("%w: cannot set %s while OFF without a status change", ErrInvalidCommand, magKey)
	}

	if statusProvided {
		a.status = newStatus
		if newStatus == "OFF" {
			// status:OFF wins the tie-break against any co-present
			// positive magnitude; magnitude fields are forced to zero.
			a.magnitude = 0
		} else if magProvided {
			a.magnitude = magVal
		}
	} else if magProvided {
		a.magnitude = magVal
	}

	a.lastUpdatedMs = time.Now().UnixMilli()
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	if statusProvided && newStatus != oldStatus {
		a.onStatusChange(oldStatus, newStatus)
	}

	a.notifyAll(a, CommandEvent{EventType: eventType, EventData: eventData, State: snapshot})
	return nil
}

// onStatusChange is the kind-specific hook from spec §9's design note:
// the original's per-subclass override collapses to a switch here.
func (a *Actuator) onStatusChange(old, next string) {
	switch a.kind {
	case ActuatorFan, ActuatorPump:
		a.log.Info("actuator status changed", "resource_id", a.ID(), "kind", string(a.kind), "from", old, "to", next)
	case ActuatorCoolingLevel:
		a.log.Info("cooling level actuator status changed", "resource_id", a.ID(), "from", old, "to", next)
	default:
		a.log.Info("switch actuator status changed", "resource_id", a.ID(), "from", old, "to", next)
	}
}

// Reset forces (OFF, zeroed) and fires the status-change hook only if
// a transition actually occurred; idempotent on repeated calls.
func (a *Actuator) Reset() {
	a.mu.Lock()
	old := a.status
	a.status = "OFF"
	a.magnitude = 0
	a.lastUpdatedMs = time.Now().UnixMilli()
	snapshot := a.snapshotLocked()
	a.mu.Unlock()

	if old != "OFF" {
		a.onStatusChange(old, "OFF")
		a.notifyAll(a, CommandEvent{EventType: "RESET", EventData: nil, State: snapshot})
	}
}
