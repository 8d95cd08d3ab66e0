// Package topology implements the hierarchical containers (C3) that
// address smart objects: Room owns Racks and (room-scoped) smart
// objects; Rack owns smart objects and carries a coarse ON/OFF status.
// The orchestrator's ForwardCommand refuses commands for objects in a
// rack whose status is OFF; policy-engine dispatches do not pass
// through that check.
package topology

import (
	"sort"
	"sync"

	"github.com/MarinCervinschi/HVAC-System/internal/smartobject"
)

// Rack owns a keyed map of smart objects and a coarse status gate.
type Rack struct {
	RackID string
	Type   smartobject.RackType

	mu      sync.RWMutex
	status  string // ON | OFF
	objects map[string]*smartobject.SmartObject
}

func NewRack(rackID string, rackType smartobject.RackType) *Rack {
	return &Rack{
		RackID:  rackID,
		Type:    rackType,
		status:  "ON",
		objects: make(map[string]*smartobject.SmartObject),
	}
}

func (r *Rack) AddSmartObject(so *smartobject.SmartObject) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.objects[so.ObjectID] = so
}

func (r *Rack) SmartObject(objectID string) (*smartobject.SmartObject, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	so, ok := r.objects[objectID]
	return so, ok
}

// SmartObjects returns objects ordered by ID for deterministic output.
func (r *Rack) SmartObjects() []*smartobject.SmartObject {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]string, 0, len(r.objects))
	for id := range r.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*smartobject.SmartObject, 0, len(ids))
	for _, id := range ids {
		out = append(out, r.objects[id])
	}
	return out
}

// Status returns the rack's coarse ON/OFF gate.
func (r *Rack) Status() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.status
}

// SetStatus sets the coarse gate; OFF should stop command propagation
// to contained smart objects at the orchestrator/forward layer.
func (r *Rack) SetStatus(status string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.status = status
}

// Room owns a keyed map of smart objects and a keyed map of Racks.
type Room struct {
	RoomID   string
	Location string

	mu      sync.RWMutex
	objects map[string]*smartobject.SmartObject
	racks   map[string]*Rack
}

func NewRoom(roomID, location string) *Room {
	return &Room{
		RoomID:   roomID,
		Location: location,
		objects:  make(map[string]*smartobject.SmartObject),
		racks:    make(map[string]*Rack),
	}
}

func (rm *Room) AddSmartObject(so *smartobject.SmartObject) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.objects[so.ObjectID] = so
}

func (rm *Room) AddRack(r *Rack) {
	rm.mu.Lock()
	defer rm.mu.Unlock()
	rm.racks[r.RackID] = r
}

func (rm *Room) SmartObject(objectID string) (*smartobject.SmartObject, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	so, ok := rm.objects[objectID]
	return so, ok
}

func (rm *Room) Rack(rackID string) (*Rack, bool) {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	r, ok := rm.racks[rackID]
	return r, ok
}

func (rm *Room) SmartObjects() []*smartobject.SmartObject {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	ids := make([]string, 0, len(rm.objects))
	for id := range rm.objects {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*smartobject.SmartObject, 0, len(ids))
	for _, id := range ids {
		out = append(out, rm.objects[id])
	}
	return out
}

func (rm *Room) Racks() []*Rack {
	rm.mu.RLock()
	defer rm.mu.RUnlock()
	ids := make([]string, 0, len(rm.racks))
	for id := range rm.racks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]*Rack, 0, len(ids))
	for _, id := range ids {
		out = append(out, rm.racks[id])
	}
	return out
}

// AllSmartObjects returns every smart object owned by the room,
// directly or through a rack, in deterministic order (room objects
// first, then each rack's objects).
func (rm *Room) AllSmartObjects() []*smartobject.SmartObject {
	out := rm.SmartObjects()
	for _, r := range rm.Racks() {
		out = append(out, r.SmartObjects()...)
	}
	return out
}

// Find locates a smart object anywhere under the room by
// (objectID, rackID); rackID == "" searches the room-scoped set.
func (rm *Room) Find(objectID, rackID string) (*smartobject.SmartObject, bool) {
	if rackID == "" {
		return rm.SmartObject(objectID)
	}
	r, ok := rm.Rack(rackID)
	if !ok {
		return nil, false
	}
	return r.SmartObject(objectID)
}
