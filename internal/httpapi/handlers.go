package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/MarinCervinschi/HVAC-System/internal/orchestrator"
	"github.com/MarinCervinschi/HVAC-System/internal/policy"
)

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.orch.Rooms())
}

func (s *Server) handleGetRoom(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	summary, err := s.orch.Room(room)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleGetRack(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	summary, err := s.orch.Rack(vars["room"], vars["rack"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// rackStatusBody is the body PUT to a rack's /status route.
type rackStatusBody struct {
	Status string `json:"status"`
}

// handleSetRackStatus flips a rack's coarse ON/OFF gate (spec §3);
// setting OFF blocks any subsequent ForwardCommand addressed at that
// rack until it is turned back ON.
func (s *Server) handleSetRackStatus(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	var body rackStatusBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	if err := s.orch.SetRackStatus(vars["room"], vars["rack"], body.Status); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": body.Status})
}

// forwardBody is the body POSTed to /hvac/api/proxy/forward (spec §6).
type forwardBody struct {
	ObjectID string         `json:"object_id"`
	RoomID   string         `json:"room_id"`
	RackID   string         `json:"rack_id,omitempty"`
	Command  map[string]any `json:"command"`
}

func (s *Server) handleProxyForward(w http.ResponseWriter, r *http.Request) {
	var body forwardBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	result := s.orch.ForwardCommand(r.Context(), body.ObjectID, body.RoomID, body.RackID, body.Command)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(result.Code)
	w.Write(result.Body)
}

// handleRoomPolicies implements the room-scoped policy CRUD route.
// PUT/DELETE identify the target policy via the ?id= query parameter,
// since spec §6 does not carry an {id} path segment on this route.
func (s *Server) handleRoomPolicies(w http.ResponseWriter, r *http.Request) {
	room := mux.Vars(r)["room"]
	switch r.Method {
	case http.MethodGet:
		policies, err := s.orch.RoomPolicies(room)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, policies)
	case http.MethodPost:
		var p policy.Policy
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
			return
		}
		p.RoomID = room
		created, err := s.orch.AddPolicy(room, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodPut:
		id := r.URL.Query().Get("id")
		var p policy.Policy
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
			return
		}
		updated, err := s.orch.UpdatePolicy(room, id, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if err := s.orch.DeletePolicy(room, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleDevicePolicies implements the rack/device-scoped policy CRUD
// route: GET filters to the (rack, object) pair, POST stamps the path
// segments onto the decoded policy as a smart_object-type rule.
func (s *Server) handleDevicePolicies(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	room, rack, object := vars["room"], vars["rack"], vars["object"]

	switch r.Method {
	case http.MethodGet:
		policies, err := s.orch.DevicePolicies(room, rack, object)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, policies)
	case http.MethodPost:
		var p policy.Policy
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
			return
		}
		p.Type = policy.TypeSmartObject
		p.RoomID, p.RackID, p.ObjectID = room, rack, object
		created, err := s.orch.AddPolicy(room, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, created)
	case http.MethodPut:
		id := r.URL.Query().Get("id")
		var p policy.Policy
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
			return
		}
		p.Type = policy.TypeSmartObject
		p.RackID, p.ObjectID = rack, object
		updated, err := s.orch.UpdatePolicy(room, id, p)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, updated)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		if err := s.orch.DeletePolicy(room, id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// handleCreatePolicy is the generic /hvac/api/policies route: the
// policy's own room_id field (rather than a path segment) selects the
// target room's engine.
func (s *Server) handleCreatePolicy(w http.ResponseWriter, r *http.Request) {
	var p policy.Policy
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "malformed JSON body"})
		return
	}
	if p.RoomID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "room_id is required"})
		return
	}
	created, err := s.orch.AddPolicy(p.RoomID, p)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.ReloadConfigs(); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "reloaded"})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps a domain error to its HTTP status per spec §7.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orchestrator.ErrUnknownRoom), errors.Is(err, orchestrator.ErrUnknownRack), errors.Is(err, policy.ErrPolicyNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, policy.ErrPolicyValidation), errors.Is(err, orchestrator.ErrInvalidRackStatus):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}
}
