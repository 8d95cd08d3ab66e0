// Package orchestrator implements the Orchestrator (C11): it wires
// every other component together from an AppConfig and the
// rooms_config.json topology document, owns their lifecycle, and
// exposes the administrative query/mutation surface internal/httpapi
// sits on top of.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/MarinCervinschi/HVAC-System/internal/cloudsync"
	"github.com/MarinCervinschi/HVAC-System/internal/collector"
	"github.com/MarinCervinschi/HVAC-System/internal/config"
	"github.com/MarinCervinschi/HVAC-System/internal/discovery"
	"github.com/MarinCervinschi/HVAC-System/internal/gateway"
	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/policy"
	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
	"github.com/MarinCervinschi/HVAC-System/internal/registry"
	"github.com/MarinCervinschi/HVAC-System/internal/runtime"
	"github.com/MarinCervinschi/HVAC-System/internal/smartobject"
	"github.com/MarinCervinschi/HVAC-System/internal/topology"
)

// ErrUnknownRoom is returned by any per-room query/mutation addressed
// at a room_id the topology doesn't contain.
var ErrUnknownRoom = errors.New("orchestrator: unknown room")

// ErrUnknownRack is returned by any per-rack query addressed at a
// rack_id the named room doesn't contain.
var ErrUnknownRack = errors.New("orchestrator: unknown rack")

// ErrInvalidRackStatus is returned by SetRackStatus for any value other
// than the two the coarse gate recognizes.
var ErrInvalidRackStatus = errors.New("orchestrator: rack status must be ON or OFF")

// roomRuntime bundles the per-room collaborators the orchestrator owns
// one of per room (spec §4.5/§4.6/§9's per-room isolation).
type roomRuntime struct {
	engine    *policy.Engine
	batcher   *cloudsync.Batcher
	collector *collector.Collector
}

// Orchestrator owns every long-lived collaborator and the topology
// built from rooms_config.json.
type Orchestrator struct {
	cfg *config.AppConfig
	log *slog.Logger

	metrics    *metrics.Metrics
	adapter    pubsub.Adapter
	runtime    *runtime.DeviceRuntime
	reg        *registry.Registry
	discoverer *discovery.Discoverer
	gw         *gateway.Gateway
	store      *policy.Store

	mu    sync.RWMutex
	rooms map[string]*topology.Room
	byRm  map[string]*roomRuntime

	watcher *fsnotify.Watcher
}

// New builds every collaborator and the topology, but starts nothing
// (see Start). A failure here means the process should not start at
// all: a missing/malformed rooms_config.json, an unreadable
// policy.json, or an unwritable registry path.
func New(cfg *config.AppConfig, log *slog.Logger) (*Orchestrator, error) {
	adapter := pubsub.NewMQTTAdapter(pubsub.MQTTConfig{
		BrokerAddr: cfg.MQTTBrokerAddr,
		ClientID:   cfg.MQTTClientID,
		Logger:     log,
	})
	return newWithAdapter(cfg, log, adapter)
}

// newWithAdapter builds an Orchestrator against a caller-supplied
// pubsub.Adapter, so tests can swap in pubsub.NewFakeAdapter() instead
// of dialing a real MQTT broker.
func newWithAdapter(cfg *config.AppConfig, log *slog.Logger, adapter pubsub.Adapter) (*Orchestrator, error) {
	if log == nil {
		log = slog.Default()
	}

	m := metrics.New()

	reg, err := registry.New(cfg.RegistryStatePath, m, log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: registry: %w", err)
	}

	store, err := policy.NewStore(cfg.PolicyConfigPath, log)
	if err != nil {
		return nil, fmt.Errorf("orchestrator: policy store: %w", err)
	}

	rt := runtime.New(adapter, log)

	gw := gateway.New(gateway.Config{
		Addr:     cfg.GatewayBind,
		Registry: reg,
		Metrics:  m,
		Logger:   log,
	})

	disc := discovery.New(&http.Client{Timeout: 10 * time.Second}, reg, log)

	o := &Orchestrator{
		cfg:        cfg,
		log:        log,
		metrics:    m,
		adapter:    adapter,
		runtime:    rt,
		reg:        reg,
		discoverer: disc,
		gw:         gw,
		store:      store,
		rooms:      map[string]*topology.Room{},
		byRm:       map[string]*roomRuntime{},
	}

	if err := o.buildTopology(); err != nil {
		return nil, err
	}
	return o, nil
}

// buildTopology loads rooms_config.json and constructs the Room/Rack/
// SmartObject tree plus one Engine/Batcher/Collector set per room
// (spec §3.1, §6).
func (o *Orchestrator) buildTopology() error {
	doc, err := config.LoadRoomsConfig(o.cfg.RoomsConfigPath)
	if err != nil {
		return err
	}

	for _, rc := range doc.Rooms {
		room := topology.NewRoom(rc.RoomID, rc.Location)

		for _, dc := range rc.Devices {
			so, err := smartobject.Build(smartobject.DeviceType(dc.Type), "", rc.RoomID, "", o.log)
			if err != nil {
				return fmt.Errorf("orchestrator: room %s: %w", rc.RoomID, err)
			}
			room.AddSmartObject(so)
			o.gw.RegisterSmartObject(so)
		}

		for _, rk := range rc.Racks {
			rack := topology.NewRack(rk.RackID, smartobject.RackType(rk.Type))
			devices := rk.Devices
			if len(devices) == 0 {
				devices = []config.DeviceConfig{{Type: string(smartobject.RackType(rk.Type).DefaultDeviceType())}}
			}
			for _, dc := range devices {
				so, err := smartobject.Build(smartobject.DeviceType(dc.Type), "", rc.RoomID, rk.RackID, o.log)
				if err != nil {
					return fmt.Errorf("orchestrator: room %s rack %s: %w", rc.RoomID, rk.RackID, err)
				}
				rack.AddSmartObject(so)
				o.gw.RegisterSmartObject(so)
			}
			room.AddRack(rack)
		}

		o.rooms[rc.RoomID] = room
		o.byRm[rc.RoomID] = o.newRoomRuntime(rc.RoomID)
	}
	return nil
}

func (o *Orchestrator) newRoomRuntime(roomID string) *roomRuntime {
	engine := policy.NewEngine(roomID, o.store, o.gw, o.metrics, o.log)
	batcher := cloudsync.NewBatcher(cloudsync.BatcherConfig{
		RoomID:       roomID,
		CloudURL:     o.cfg.CloudURL,
		SyncInterval: o.cfg.SyncInterval,
		Metrics:      o.metrics,
		Logger:       o.log,
	})
	coll := collector.New(collector.Config{
		RoomID:  roomID,
		Adapter: o.adapter,
		Policy:  engine,
		Batcher: batcher,
		Metrics: o.metrics,
		Logger:  o.log,
	})
	return &roomRuntime{engine: engine, batcher: batcher, collector: coll}
}

// Start connects the pub/sub adapter, starts the gateway's HTTP
// server, starts every resource's periodic/operational state, and
// subscribes every room's collector. It also probes the fixed
// discovery-seed list (spec's original connectivity-check-then-
// discover startup sequence) in the background, and begins watching
// policy.json for hand edits.
func (o *Orchestrator) Start(ctx context.Context) error {
	if err := o.adapter.Start(ctx); err != nil {
		return fmt.Errorf("orchestrator: pubsub start: %w", err)
	}

	go func() {
		if err := o.gw.Start(ctx); err != nil {
			o.log.Error("gateway server exited", "error", err)
		}
	}()

	o.mu.RLock()
	rooms := make([]*topology.Room, 0, len(o.rooms))
	for _, r := range o.rooms {
		rooms = append(rooms, r)
	}
	o.mu.RUnlock()

	for _, room := range rooms {
		for _, so := range room.SmartObjects() {
			so.Start(o.cfg.TaskDelayS, o.runtime.ListenerFor(so.RoomID, so.RackID, so.ObjectID))
		}
		for _, rack := range room.Racks() {
			for _, so := range rack.SmartObjects() {
				so.Start(o.cfg.TaskDelayS, o.runtime.ListenerFor(so.RoomID, so.RackID, so.ObjectID))
			}
		}
	}

	o.mu.RLock()
	runtimes := make([]*roomRuntime, 0, len(o.byRm))
	for _, rr := range o.byRm {
		runtimes = append(runtimes, rr)
	}
	o.mu.RUnlock()
	for _, rr := range runtimes {
		if err := rr.collector.Subscribe(ctx); err != nil {
			return fmt.Errorf("orchestrator: collector subscribe: %w", err)
		}
	}

	go o.probeDiscoverySeeds(ctx)

	if err := o.watchPolicyFile(); err != nil {
		o.log.Warn("policy file watcher not started", "error", err)
	}

	o.log.Info("orchestrator started", "rooms", len(rooms))
	return nil
}

// probeDiscoverySeeds mirrors original_source/gateway/main.py: check
// connectivity, then discover, for each fixed seed. Best-effort, never
// fatal — an unreachable seed is just skipped.
func (o *Orchestrator) probeDiscoverySeeds(ctx context.Context) {
	for _, seed := range o.cfg.DiscoverySeeds {
		host, port, err := splitHostPort(seed)
		if err != nil {
			o.log.Warn("invalid discovery seed", "seed", seed, "error", err)
			continue
		}
		if !o.discoverer.CheckConnectivity(ctx, host, port) {
			o.log.Warn("discovery seed unreachable, skipping", "seed", seed)
			continue
		}
		if err := o.discoverer.Discover(ctx, host, port); err != nil {
			o.log.Warn("discovery failed", "seed", seed, "error", err)
		}
	}
}

func (o *Orchestrator) watchPolicyFile() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	if err := w.Add(o.cfg.PolicyConfigPath); err != nil {
		// the file may not exist yet on first start; that's fine, the
		// explicit /admin/config/reload endpoint still works.
		w.Close()
		return err
	}
	o.watcher = w
	go func() {
		for {
			select {
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
					if err := o.store.Reload(); err != nil {
						o.log.Warn("policy hot-reload failed", "error", err)
					} else {
						o.log.Info("policy.json reloaded", "event", ev.Op.String())
					}
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				o.log.Warn("policy watcher error", "error", err)
			}
		}
	}()
	return nil
}

// Stop reverses Start: every smart object stops, every batcher stops,
// the watcher closes, and the pub/sub adapter disconnects.
func (o *Orchestrator) Stop() error {
	o.mu.RLock()
	rooms := make([]*topology.Room, 0, len(o.rooms))
	for _, r := range o.rooms {
		rooms = append(rooms, r)
	}
	runtimes := make([]*roomRuntime, 0, len(o.byRm))
	for _, rr := range o.byRm {
		runtimes = append(runtimes, rr)
	}
	o.mu.RUnlock()

	for _, room := range rooms {
		for _, so := range room.SmartObjects() {
			so.Stop()
		}
		for _, rack := range room.Racks() {
			for _, so := range rack.SmartObjects() {
				so.Stop()
			}
		}
	}
	for _, rr := range runtimes {
		rr.batcher.Stop()
	}
	if o.watcher != nil {
		o.watcher.Close()
	}
	return o.adapter.Stop()
}

// Metrics exposes the shared metrics registry for the admin HTTP
// surface's /metrics route.
func (o *Orchestrator) Metrics() *metrics.Metrics { return o.metrics }

// GatewayHandler exposes the gateway's own mux, for the admin API's
// proxy-forward route to delegate to directly when desired.
func (o *Orchestrator) GatewayHandler() http.Handler { return o.gw.Handler() }

// ForwardCommand drives a command through the gateway's forward path
// and logs the attempt under a fresh correlation id; the id appears only
// in the orchestrator's own log lines and is not passed to the gateway.
// A rack whose coarse status is OFF gates propagation here (spec §3):
// the command never reaches the gateway/outbound POST at all.
// Policy-engine dispatches do not pass through this method (each room's
// engine forwards to the gateway directly), so they carry no correlation
// id and are not stopped by the rack gate.
func (o *Orchestrator) ForwardCommand(ctx context.Context, objectID, roomID, rackID string, command map[string]any) gateway.ForwardResult {
	requestID := uuid.NewString()
	o.log.Info("forwarding command", "request_id", requestID, "object_id", objectID, "room_id", roomID, "rack_id", rackID)

	if rackID != "" {
		if room, err := o.room(roomID); err == nil {
			if rack, ok := room.Rack(rackID); ok && rack.Status() == "OFF" {
				o.log.Warn("forward command blocked: rack is OFF", "request_id", requestID, "room_id", roomID, "rack_id", rackID)
				return gateway.ForwardResult{
					Code: http.StatusLocked,
					Body: []byte(fmt.Sprintf("rack %s in room %s is OFF; command not propagated", rackID, roomID)),
				}
			}
		}
	}

	result := o.gw.ForwardCommand(ctx, objectID, roomID, rackID, command)
	if result.Code < 200 || result.Code >= 300 {
		o.log.Warn("forward command failed", "request_id", requestID, "code", result.Code)
	}
	return result
}

func (o *Orchestrator) room(roomID string) (*topology.Room, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	r, ok := o.rooms[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}
	return r, nil
}

func (o *Orchestrator) roomRuntime(roomID string) (*roomRuntime, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	rr, ok := o.byRm[roomID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownRoom, roomID)
	}
	return rr, nil
}

// RoomPolicies returns roomID's current policy set.
func (o *Orchestrator) RoomPolicies(roomID string) ([]policy.Policy, error) {
	rr, err := o.roomRuntime(roomID)
	if err != nil {
		return nil, err
	}
	return rr.engine.Policies(), nil
}

// DevicePolicies filters roomID's smart_object-type policies down to
// the ones scoped at (rackID, objectID) — the admin API's
// rack/device-scoped policy routes.
func (o *Orchestrator) DevicePolicies(roomID, rackID, objectID string) ([]policy.Policy, error) {
	all, err := o.RoomPolicies(roomID)
	if err != nil {
		return nil, err
	}
	out := make([]policy.Policy, 0, len(all))
	for _, p := range all {
		if p.Type == policy.TypeSmartObject && p.RackID == rackID && p.ObjectID == objectID {
			out = append(out, p)
		}
	}
	return out, nil
}

// AddPolicy, UpdatePolicy, DeletePolicy delegate to the room's engine.
func (o *Orchestrator) AddPolicy(roomID string, p policy.Policy) (policy.Policy, error) {
	rr, err := o.roomRuntime(roomID)
	if err != nil {
		return policy.Policy{}, err
	}
	return rr.engine.AddPolicy(p)
}

func (o *Orchestrator) UpdatePolicy(roomID, id string, p policy.Policy) (policy.Policy, error) {
	rr, err := o.roomRuntime(roomID)
	if err != nil {
		return policy.Policy{}, err
	}
	return rr.engine.UpdatePolicy(id, p)
}

func (o *Orchestrator) DeletePolicy(roomID, id string) error {
	rr, err := o.roomRuntime(roomID)
	if err != nil {
		return err
	}
	return rr.engine.DeletePolicy(id)
}

// ReloadConfigs re-reads policy.json and registry.json without a
// process restart (spec §6, POST /admin/config/reload).
func (o *Orchestrator) ReloadConfigs() error {
	if err := o.store.Reload(); err != nil {
		return fmt.Errorf("orchestrator: reload policy store: %w", err)
	}
	if err := o.reg.Reload(); err != nil {
		return fmt.Errorf("orchestrator: reload registry: %w", err)
	}
	return nil
}

// RoomSummary/RackSummary/DeviceSummary are the admin API's read
// models (spec §6 "shape only" routes given a concrete JSON shape
// here).
type DeviceSummary struct {
	ObjectID  string   `json:"object_id"`
	RackID    string   `json:"rack_id,omitempty"`
	Resources []string `json:"resources"`
}

type RackSummary struct {
	RackID  string          `json:"rack_id"`
	Type    string          `json:"type"`
	Status  string          `json:"status"`
	Devices []DeviceSummary `json:"devices"`
}

type RoomSummary struct {
	RoomID   string          `json:"room_id"`
	Location string          `json:"location"`
	Devices  []DeviceSummary `json:"devices"`
	Racks    []RackSummary   `json:"racks"`
}

// Rooms returns a summary of every room in the topology. The order of
// the rooms is not defined; devices and racks within each summary follow
// the Room/Rack accessors' sorted-by-ID order.
func (o *Orchestrator) Rooms() []RoomSummary {
	o.mu.RLock()
	rooms := make([]*topology.Room, 0, len(o.rooms))
	for _, r := range o.rooms {
		rooms = append(rooms, r)
	}
	o.mu.RUnlock()

	out := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, summarizeRoom(r))
	}
	return out
}

// Room returns one room's summary.
func (o *Orchestrator) Room(roomID string) (RoomSummary, error) {
	r, err := o.room(roomID)
	if err != nil {
		return RoomSummary{}, err
	}
	return summarizeRoom(r), nil
}

// Rack returns one room's one rack's summary.
func (o *Orchestrator) Rack(roomID, rackID string) (RackSummary, error) {
	r, err := o.room(roomID)
	if err != nil {
		return RackSummary{}, err
	}
	rack, ok := r.Rack(rackID)
	if !ok {
		return RackSummary{}, fmt.Errorf("%w: %s", ErrUnknownRack, rackID)
	}
	return summarizeRack(rack), nil
}

// SetRackStatus flips roomID's rackID's coarse ON/OFF gate (spec §3).
// Setting OFF takes effect immediately: any ForwardCommand addressed at
// that rack is rejected until it is set back ON.
func (o *Orchestrator) SetRackStatus(roomID, rackID, status string) error {
	if status != "ON" && status != "OFF" {
		return fmt.Errorf("%w: got %q", ErrInvalidRackStatus, status)
	}
	r, err := o.room(roomID)
	if err != nil {
		return err
	}
	rack, ok := r.Rack(rackID)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownRack, rackID)
	}
	rack.SetStatus(status)
	o.log.Info("rack status changed", "room_id", roomID, "rack_id", rackID, "status", status)
	return nil
}

func summarizeRoom(r *topology.Room) RoomSummary {
	rs := RoomSummary{RoomID: r.RoomID, Location: r.Location}
	for _, so := range r.SmartObjects() {
		rs.Devices = append(rs.Devices, summarizeDevice(so))
	}
	for _, rack := range r.Racks() {
		rs.Racks = append(rs.Racks, summarizeRack(rack))
	}
	return rs
}

func summarizeRack(rack *topology.Rack) RackSummary {
	sum := RackSummary{RackID: rack.RackID, Type: string(rack.Type), Status: rack.Status()}
	for _, so := range rack.SmartObjects() {
		sum.Devices = append(sum.Devices, summarizeDevice(so))
	}
	return sum
}

func summarizeDevice(so *smartobject.SmartObject) DeviceSummary {
	return DeviceSummary{ObjectID: so.ObjectID, RackID: so.RackID, Resources: so.ResourceIDsSorted()}
}

func splitHostPort(hostport string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(hostport)
	if err != nil {
		return "", 0, err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid port %q: %w", portStr, err)
	}
	return host, port, nil
}
