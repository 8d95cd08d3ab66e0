// Package smartobject implements the Smart Object (C2): a named device
// that owns a small set of resources and binds them to pub/sub topics
// and the gateway's control protocol.
package smartobject

import (
	"fmt"
	"sort"

	"github.com/MarinCervinschi/HVAC-System/internal/resource"
)

// SmartObject owns resources and is addressed by (ObjectID, RoomID,
// RackID?). RackID is empty for room-scoped objects.
type SmartObject struct {
	ObjectID string
	RoomID   string
	RackID   string // "" when room-scoped

	resources map[string]resource.Resource
	order     []string // insertion order, for deterministic iteration
}

// New builds an empty SmartObject; resources are attached with
// AddResource by the factory functions below.
func New(objectID, roomID, rackID string) *SmartObject {
	return &SmartObject{
		ObjectID:  objectID,
		RoomID:    roomID,
		RackID:    rackID,
		resources: make(map[string]resource.Resource),
	}
}

// HasRack reports whether this smart object is rack-scoped.
func (so *SmartObject) HasRack() bool { return so.RackID != "" }

func (so *SmartObject) AddResource(r resource.Resource) {
	if _, exists := so.resources[r.ID()]; !exists {
		so.order = append(so.order, r.ID())
	}
	so.resources[r.ID()] = r
}

func (so *SmartObject) Resource(id string) (resource.Resource, bool) {
	r, ok := so.resources[id]
	return r, ok
}

// Resources returns resources in deterministic (insertion) order.
func (so *SmartObject) Resources() []resource.Resource {
	out := make([]resource.Resource, 0, len(so.order))
	for _, id := range so.order {
		out = append(out, so.resources[id])
	}
	return out
}

func (so *SmartObject) Sensors() []*resource.Sensor {
	var out []*resource.Sensor
	for _, r := range so.Resources() {
		if s, ok := r.(*resource.Sensor); ok {
			out = append(out, s)
		}
	}
	return out
}

func (so *SmartObject) Actuators() []*resource.Actuator {
	var out []*resource.Actuator
	for _, r := range so.Resources() {
		if a, ok := r.(*resource.Actuator); ok {
			out = append(out, a)
		}
	}
	return out
}

// GatewayPath is the canonical resource-tree path a gateway-controllable
// smart object exposes for discovery (spec §4.2 "coap-controllable").
func (so *SmartObject) GatewayPath() string {
	if so.HasRack() {
		return fmt.Sprintf("hvac/room/%s/rack/%s/device/%s", so.RoomID, so.RackID, so.ObjectID)
	}
	return fmt.Sprintf("hvac/room/%s/device/%s", so.RoomID, so.ObjectID)
}

// IsGatewayControllable reports whether this object owns at least one
// actuator, and therefore has a control surface worth publishing to
// the gateway's well-known resource catalog.
func (so *SmartObject) IsGatewayControllable() bool {
	return len(so.Actuators()) > 0
}

// Start marks every actuator operational and starts every sensor's
// periodic task. listenerFor is supplied by the device runtime (C5)
// and attached to every resource before it starts producing events, so
// no reading or state change is ever missed.
func (so *SmartObject) Start(taskDelayS int, listenerFor func(r resource.Resource) resource.Listener) {
	for _, r := range so.Resources() {
		if l := listenerFor(r); l != nil {
			r.AddListener(l)
		}
	}
	for _, a := range so.Actuators() {
		a.SetOperational(true)
	}
	for _, s := range so.Sensors() {
		s.StartPeriodic(taskDelayS)
	}
}

// Stop reverses Start: sensors stop ticking, actuators stop accepting
// commands.
func (so *SmartObject) Stop() {
	for _, s := range so.Sensors() {
		s.StopPeriodic()
	}
	for _, a := range so.Actuators() {
		a.SetOperational(false)
	}
}

// ResourceIDsSorted is a small convenience for deterministic JSON/API
// output (admin API device listings).
func (so *SmartObject) ResourceIDsSorted() []string {
	ids := make([]string, 0, len(so.resources))
	for id := range so.resources {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
