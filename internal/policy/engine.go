package policy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
)

const dispatchTimeout = 10 * time.Second

// ForwardRequest is the payload a matched policy hands to the gateway
// (spec §4.6 dispatch payloads).
type ForwardRequest struct {
	ObjectID string         `json:"object_id"`
	RoomID   string         `json:"room_id"`
	RackID   string         `json:"rack_id,omitempty"`
	Command  map[string]any `json:"command"`
}

// Forwarder is the narrow view of the gateway's forward path the
// engine depends on, so engine tests don't need a real gateway server.
type Forwarder interface {
	Forward(ctx context.Context, req ForwardRequest) error
}

// Engine evaluates one room's policies against inbound telemetry and
// mutates that room's slice of the shared Store.
type Engine struct {
	roomID    string
	store     *Store
	forwarder Forwarder
	metrics   *metrics.Metrics
	log       *slog.Logger
}

func NewEngine(roomID string, store *Store, forwarder Forwarder, m *metrics.Metrics, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{roomID: roomID, store: store, forwarder: forwarder, metrics: m, log: log}
}

// Evaluate matches msg against every policy in this room and
// asynchronously dispatches each match. A policy with a malformed
// operator (AddPolicy and UpdatePolicy reject one, but a hand-edited
// policy.json loaded into the Store is not validated) is logged and skipped without
// affecting its neighbours (spec §7).
func (e *Engine) Evaluate(msg pubsub.TelemetryMessage) {
	for _, p := range e.store.RoomPolicies(e.roomID) {
		if !selectorMatches(p, msg) {
			continue
		}
		val, ok := toFloat(msg.DataValue)
		if !ok {
			e.log.Warn("telemetry data_value is not numeric, skipping policy match", "policy_id", p.ID, "room_id", e.roomID)
			continue
		}
		match, err := compare(p.Condition.Operator, val, p.Condition.Value)
		if err != nil {
			e.log.Warn("policy has invalid condition, skipping", "policy_id", p.ID, "room_id", e.roomID, "error", err)
			continue
		}
		if !match {
			continue
		}
		e.metrics.IncPolicyMatches()
		req := buildForwardRequest(p)
		go e.dispatch(p.ID, req)
	}
}

// dispatch runs on its own goroutine: policy evaluation never blocks
// on the network (spec §4.6).
func (e *Engine) dispatch(policyID string, req ForwardRequest) {
	if e.forwarder == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()
	if err := e.forwarder.Forward(ctx, req); err != nil {
		e.log.Warn("policy dispatch failed", "policy_id", policyID, "room_id", e.roomID, "object_id", req.ObjectID, "error", err)
	}
}

// AddPolicy validates p, auto-assigns RoomID/ID when absent, and
// persists it. ID defaults to "{type}_{room}_{len}" (spec §4.6).
func (e *Engine) AddPolicy(p Policy) (Policy, error) {
	if p.RoomID == "" {
		p.RoomID = e.roomID
	}
	if p.RoomID != e.roomID {
		return Policy{}, fmt.Errorf("%w: policy room_id %q does not match room %q", ErrPolicyValidation, p.RoomID, e.roomID)
	}
	if err := validate(p); err != nil {
		return Policy{}, err
	}
	policies := e.store.RoomPolicies(e.roomID)
	if p.ID == "" {
		p.ID = fmt.Sprintf("%s_%s_%d", p.Type, e.roomID, len(policies))
	}
	policies = append(policies, p)
	if err := e.store.ReplaceRoom(e.roomID, policies); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// UpdatePolicy replaces the policy identified by id with p, keeping
// id and this engine's room_id fixed regardless of what p carries.
func (e *Engine) UpdatePolicy(id string, p Policy) (Policy, error) {
	p.ID = id
	p.RoomID = e.roomID
	if err := validate(p); err != nil {
		return Policy{}, err
	}
	policies := e.store.RoomPolicies(e.roomID)
	found := false
	for i := range policies {
		if policies[i].ID == id {
			policies[i] = p
			found = true
			break
		}
	}
	if !found {
		return Policy{}, fmt.Errorf("%w: policy %q in room %q", ErrPolicyNotFound, id, e.roomID)
	}
	if err := e.store.ReplaceRoom(e.roomID, policies); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// DeletePolicy removes the policy identified by id from this room.
func (e *Engine) DeletePolicy(id string) error {
	policies := e.store.RoomPolicies(e.roomID)
	out := make([]Policy, 0, len(policies))
	removed := false
	for _, existing := range policies {
		if existing.ID == id {
			removed = true
			continue
		}
		out = append(out, existing)
	}
	if !removed {
		return fmt.Errorf("%w: policy %q in room %q", ErrPolicyNotFound, id, e.roomID)
	}
	return e.store.ReplaceRoom(e.roomID, out)
}

// Policies returns a copy of this room's current policy set (for the
// admin API's GET routes).
func (e *Engine) Policies() []Policy {
	return e.store.RoomPolicies(e.roomID)
}

// selectorMatches implements spec §4.6's selector semantics.
func selectorMatches(p Policy, msg pubsub.TelemetryMessage) bool {
	if p.RoomID != msg.Metadata.RoomID {
		return false
	}
	switch p.Type {
	case TypeRoom:
		return msg.Metadata.RackID == "" &&
			p.ObjectID == msg.Metadata.ObjectID &&
			p.ResourceID == msg.Metadata.ResourceID &&
			p.SensorType == msg.Type
	case TypeSmartObject:
		return p.RackID == msg.Metadata.RackID &&
			p.ObjectID == msg.Metadata.ObjectID &&
			p.ResourceID == msg.Metadata.ResourceID &&
			p.SensorType == msg.Type
	default:
		return false
	}
}

// buildForwardRequest implements spec §4.6's dispatch payload shapes.
func buildForwardRequest(p Policy) ForwardRequest {
	if p.Type == TypeRoom {
		return ForwardRequest{ObjectID: p.Action.ObjectID, RoomID: p.RoomID, Command: p.Action.Command}
	}
	return ForwardRequest{ObjectID: p.ObjectID, RoomID: p.RoomID, RackID: p.RackID, Command: p.Action.Command}
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

func compare(op string, a, b float64) (bool, error) {
	switch op {
	case ">":
		return a > b, nil
	case "<":
		return a < b, nil
	case "==":
		return a == b, nil
	case ">=":
		return a >= b, nil
	case "<=":
		return a <= b, nil
	case "!=":
		return a != b, nil
	default:
		return false, fmt.Errorf("%w: unknown operator %q", ErrPolicyValidation, op)
	}
}
