// Package httpapi implements the Admin HTTP API (C12): a thin
// gorilla/mux router over the Orchestrator for the routes spec §6
// names. Handlers decode request parameters, call one orchestrator
// method, and encode the result as JSON — no business logic lives
// here, matching GVCUTV-NRG-CHAMP/aggregator's router/handlers split.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"os"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"

	"github.com/MarinCervinschi/HVAC-System/internal/gateway"
	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/orchestrator"
	"github.com/MarinCervinschi/HVAC-System/internal/policy"
)

// Orchestrator is the narrow view of *orchestrator.Orchestrator this
// package depends on, kept separate so handler tests can supply a
// fake instead of building the full topology/adapter/gateway stack.
type Orchestrator interface {
	Rooms() []orchestrator.RoomSummary
	Room(roomID string) (orchestrator.RoomSummary, error)
	Rack(roomID, rackID string) (orchestrator.RackSummary, error)
	SetRackStatus(roomID, rackID, status string) error
	ForwardCommand(ctx context.Context, objectID, roomID, rackID string, command map[string]any) gateway.ForwardResult
	RoomPolicies(roomID string) ([]policy.Policy, error)
	DevicePolicies(roomID, rackID, objectID string) ([]policy.Policy, error)
	AddPolicy(roomID string, p policy.Policy) (policy.Policy, error)
	UpdatePolicy(roomID, id string, p policy.Policy) (policy.Policy, error)
	DeletePolicy(roomID, id string) error
	ReloadConfigs() error
	Metrics() *metrics.Metrics
}

// Server wraps an Orchestrator with the admin HTTP surface.
type Server struct {
	orch Orchestrator
	log  *slog.Logger
	mux  *mux.Router
}

// New builds the router; call Handler() to get the final
// access-logged http.Handler to bind a net/http.Server to.
func New(orch Orchestrator, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{orch: orch, log: log}
	s.mux = s.newRouter()
	return s
}

func (s *Server) newRouter() *mux.Router {
	r := mux.NewRouter()

	api := r.PathPrefix("/hvac/api").Subrouter()
	api.HandleFunc("/rooms", s.handleListRooms).Methods(http.MethodGet)
	api.HandleFunc("/room/{room}", s.handleGetRoom).Methods(http.MethodGet)
	api.HandleFunc("/room/{room}/rack/{rack}", s.handleGetRack).Methods(http.MethodGet)
	api.HandleFunc("/room/{room}/rack/{rack}/status", s.handleSetRackStatus).Methods(http.MethodPut)
	api.HandleFunc("/proxy/forward", s.handleProxyForward).Methods(http.MethodPost)
	api.HandleFunc("/room/{room}/policies", s.handleRoomPolicies).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	api.HandleFunc("/room/{room}/rack/{rack}/device/{object}/policies", s.handleDevicePolicies).
		Methods(http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete)
	api.HandleFunc("/policies", s.handleCreatePolicy).Methods(http.MethodPost)

	r.Handle("/metrics", s.orch.Metrics().Handler())
	r.HandleFunc("/admin/config/reload", s.handleReload).Methods(http.MethodPost)

	return r
}

// Handler returns the access-logged handler (gorilla/handlers,
// grounded on aggregator/main.go's handlers.LoggingHandler wrapping).
func (s *Server) Handler() http.Handler {
	return handlers.LoggingHandler(os.Stdout, s.mux)
}
