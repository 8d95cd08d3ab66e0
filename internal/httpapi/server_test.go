package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MarinCervinschi/HVAC-System/internal/gateway"
	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/orchestrator"
	"github.com/MarinCervinschi/HVAC-System/internal/policy"
)

// fakeOrchestrator is a minimal, in-memory stand-in for
// *orchestrator.Orchestrator so handler tests don't need a topology,
// adapter, or gateway server.
type fakeOrchestrator struct {
	rooms       map[string]orchestrator.RoomSummary
	racks       map[string]orchestrator.RackSummary
	policies    map[string][]policy.Policy
	forwardCode int
	metrics     *metrics.Metrics
	reloaded    bool
}

func newFakeOrchestrator() *fakeOrchestrator {
	return &fakeOrchestrator{
		rooms:    map[string]orchestrator.RoomSummary{},
		racks:    map[string]orchestrator.RackSummary{},
		policies: map[string][]policy.Policy{},
		metrics:  metrics.New(),
	}
}

func (f *fakeOrchestrator) Rooms() []orchestrator.RoomSummary {
	out := make([]orchestrator.RoomSummary, 0, len(f.rooms))
	for _, r := range f.rooms {
		out = append(out, r)
	}
	return out
}

func (f *fakeOrchestrator) Room(roomID string) (orchestrator.RoomSummary, error) {
	r, ok := f.rooms[roomID]
	if !ok {
		return orchestrator.RoomSummary{}, orchestrator.ErrUnknownRoom
	}
	return r, nil
}

func (f *fakeOrchestrator) Rack(roomID, rackID string) (orchestrator.RackSummary, error) {
	r, ok := f.racks[roomID+"/"+rackID]
	if !ok {
		return orchestrator.RackSummary{}, orchestrator.ErrUnknownRack
	}
	return r, nil
}

func (f *fakeOrchestrator) SetRackStatus(roomID, rackID, status string) error {
	if status != "ON" && status != "OFF" {
		return orchestrator.ErrInvalidRackStatus
	}
	key := roomID + "/" + rackID
	r, ok := f.racks[key]
	if !ok {
		return orchestrator.ErrUnknownRack
	}
	r.Status = status
	f.racks[key] = r
	return nil
}

func (f *fakeOrchestrator) ForwardCommand(ctx context.Context, objectID, roomID, rackID string, command map[string]any) gateway.ForwardResult {
	return gateway.ForwardResult{Code: f.forwardCode, Body: []byte(`{"status":"ON"}`)}
}

func (f *fakeOrchestrator) RoomPolicies(roomID string) ([]policy.Policy, error) {
	return f.policies[roomID], nil
}

func (f *fakeOrchestrator) DevicePolicies(roomID, rackID, objectID string) ([]policy.Policy, error) {
	var out []policy.Policy
	for _, p := range f.policies[roomID] {
		if p.RackID == rackID && p.ObjectID == objectID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeOrchestrator) AddPolicy(roomID string, p policy.Policy) (policy.Policy, error) {
	p.ID = "generated-id"
	f.policies[roomID] = append(f.policies[roomID], p)
	return p, nil
}

func (f *fakeOrchestrator) UpdatePolicy(roomID, id string, p policy.Policy) (policy.Policy, error) {
	for i, existing := range f.policies[roomID] {
		if existing.ID == id {
			p.ID = id
			f.policies[roomID][i] = p
			return p, nil
		}
	}
	return policy.Policy{}, policy.ErrPolicyNotFound
}

func (f *fakeOrchestrator) DeletePolicy(roomID, id string) error {
	policies := f.policies[roomID]
	for i, existing := range policies {
		if existing.ID == id {
			f.policies[roomID] = append(policies[:i], policies[i+1:]...)
			return nil
		}
	}
	return policy.ErrPolicyNotFound
}

func (f *fakeOrchestrator) ReloadConfigs() error {
	f.reloaded = true
	return nil
}

func (f *fakeOrchestrator) Metrics() *metrics.Metrics { return f.metrics }

func TestListRoomsReturnsEmptyArray(t *testing.T) {
	fo := newFakeOrchestrator()
	s := New(fo, nil)

	req := httptest.NewRequest(http.MethodGet, "/hvac/api/rooms", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestGetRoomNotFoundMapsTo404(t *testing.T) {
	fo := newFakeOrchestrator()
	s := New(fo, nil)

	req := httptest.NewRequest(http.MethodGet, "/hvac/api/room/ghost", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestSetRackStatusThenGetReflectsIt(t *testing.T) {
	fo := newFakeOrchestrator()
	fo.racks["room_A1/rack_A1"] = orchestrator.RackSummary{RackID: "rack_A1", Status: "ON"}
	s := New(fo, nil)

	body, _ := json.Marshal(map[string]string{"status": "OFF"})
	req := httptest.NewRequest(http.MethodPut, "/hvac/api/room/room_A1/rack/rack_A1/status", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("PUT status = %d, want 200, body=%s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/hvac/api/room/room_A1/rack/rack_A1", nil)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	var got orchestrator.RackSummary
	if err := json.Unmarshal(rec2.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.Status != "OFF" {
		t.Fatalf("rack status = %q, want OFF", got.Status)
	}
}

func TestSetRackStatusRejectsInvalidValue(t *testing.T) {
	fo := newFakeOrchestrator()
	fo.racks["room_A1/rack_A1"] = orchestrator.RackSummary{RackID: "rack_A1", Status: "ON"}
	s := New(fo, nil)

	body, _ := json.Marshal(map[string]string{"status": "PAUSED"})
	req := httptest.NewRequest(http.MethodPut, "/hvac/api/room/room_A1/rack/rack_A1/status", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestProxyForwardPropagatesGatewayCode(t *testing.T) {
	fo := newFakeOrchestrator()
	fo.forwardCode = http.StatusOK
	s := New(fo, nil)

	body, _ := json.Marshal(map[string]any{"object_id": "rack_cooling_unit", "room_id": "room_A1", "command": map[string]any{"status": "ON"}})
	req := httptest.NewRequest(http.MethodPost, "/hvac/api/proxy/forward", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestRoomPoliciesPostThenGet(t *testing.T) {
	fo := newFakeOrchestrator()
	fo.rooms["room_A1"] = orchestrator.RoomSummary{RoomID: "room_A1"}
	s := New(fo, nil)

	body, _ := json.Marshal(policy.Policy{
		Type: policy.TypeRoom, ResourceID: "environment_monitor_humidity", SensorType: "iot:sensor:humidity",
		Condition: policy.Condition{Operator: ">", Value: 70},
		Action:    policy.Action{ObjectID: "environment_monitor", Command: map[string]any{"level": 3}},
	})
	req := httptest.NewRequest(http.MethodPost, "/hvac/api/room/room_A1/policies", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201, body=%s", rec.Code, rec.Body.String())
	}

	req2 := httptest.NewRequest(http.MethodGet, "/hvac/api/room/room_A1/policies", nil)
	rec2 := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec2, req2)
	if rec2.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rec2.Code)
	}
	var got []policy.Policy
	if err := json.Unmarshal(rec2.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("len(policies) = %d, want 1", len(got))
	}
}

func TestDevicePoliciesDeleteReturnsNoContent(t *testing.T) {
	fo := newFakeOrchestrator()
	fo.policies["room_A1"] = []policy.Policy{{
		ID: "p1", Type: policy.TypeSmartObject, RoomID: "room_A1", RackID: "rack_A1", ObjectID: "rack_cooling_unit",
	}}
	s := New(fo, nil)

	req := httptest.NewRequest(http.MethodDelete, "/hvac/api/room/room_A1/rack/rack_A1/device/rack_cooling_unit/policies?id=p1", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if len(fo.policies["room_A1"]) != 0 {
		t.Fatalf("expected policy to be removed, got %+v", fo.policies["room_A1"])
	}
}

func TestAdminConfigReload(t *testing.T) {
	fo := newFakeOrchestrator()
	s := New(fo, nil)

	req := httptest.NewRequest(http.MethodPost, "/admin/config/reload", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK || !fo.reloaded {
		t.Fatalf("status = %d, reloaded = %v", rec.Code, fo.reloaded)
	}
}

func TestMetricsEndpointServesPrometheusFormat(t *testing.T) {
	fo := newFakeOrchestrator()
	s := New(fo, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
