// Package gateway implements the Forward Resource and constrained-
// protocol server (C10): resource discovery via /.well-known/core, a
// control endpoint per actuator, and a /proxy/forward endpoint that
// translates a logical (object, room, rack, command) tuple into a
// physical request against the device registry's URI.
//
// No CoAP (or any constrained-device protocol) library exists
// anywhere in the retrieved reference corpus, so this whole surface
// is built on stdlib net/http: coap:// stays the registry's logical
// URI scheme (it is never dialed directly) and is rewritten to
// http:// at the point of the outbound request.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/policy"
	"github.com/MarinCervinschi/HVAC-System/internal/registry"
	"github.com/MarinCervinschi/HVAC-System/internal/resource"
	"github.com/MarinCervinschi/HVAC-System/internal/smartobject"
)

const proxyForwardPath = "/proxy/forward"

// controlResource binds a registered HTTP path to the actuator it
// controls, so the control handler can ApplyCommand directly.
type controlResource struct {
	roomID, rackID, objectID string
	actuator                 *resource.Actuator
	attrs                    linkAttributes
}

// Gateway is both the constrained-protocol server (inbound: discovery
// + per-actuator control + proxy/forward) and the forward client
// (outbound: POST to whatever URI the registry resolves to). A single
// instance does both because, per spec §9, the source runs one
// cooperative protocol stack for the whole gateway surface.
type Gateway struct {
	reg     *registry.Registry
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	metrics *metrics.Metrics
	log     *slog.Logger

	mu        sync.RWMutex
	resources map[string]*controlResource // path -> resource, path has no leading slash

	mux        *http.ServeMux
	httpServer *http.Server
}

// Config parameterizes a Gateway.
type Config struct {
	Addr     string
	Registry *registry.Registry
	Client   *http.Client
	Metrics  *metrics.Metrics
	Logger   *slog.Logger
}

func New(cfg Config) *Gateway {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	breakerSettings := gobreaker.Settings{
		Name:    "forward",
		Timeout: 20 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	g := &Gateway{
		reg:       cfg.Registry,
		client:    client,
		breaker:   gobreaker.NewCircuitBreaker(breakerSettings),
		metrics:   cfg.Metrics,
		log:       log,
		resources: map[string]*controlResource{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/core", g.handleWellKnownCore)
	mux.HandleFunc(proxyForwardPath, g.handleProxyForward)
	g.mux = mux

	if cfg.Addr != "" {
		g.httpServer = &http.Server{Addr: cfg.Addr, Handler: mux}
	}
	return g
}

// RegisterSmartObject exposes every actuator owned by obj as a
// controllable resource, rooted at obj.GatewayPath() (spec §4.2, §6).
func (g *Gateway) RegisterSmartObject(obj *smartobject.SmartObject) {
	if !obj.IsGatewayControllable() {
		return
	}
	for _, a := range obj.Actuators() {
		path := fmt.Sprintf("%s/%s/control", obj.GatewayPath(), a.ID())
		cr := &controlResource{
			roomID: obj.RoomID, rackID: obj.RackID, objectID: obj.ObjectID,
			actuator: a,
			attrs: linkAttributes{
				ResourceType: "iot.actuator." + string(a.ActuatorKind()),
				Interface:    "core.a",
				Title:        a.ID(),
				ObjectID:     obj.ObjectID,
				RoomID:       obj.RoomID,
				RackID:       obj.RackID,
			},
		}
		g.mu.Lock()
		g.resources[path] = cr
		g.mu.Unlock()
		g.mux.HandleFunc("/"+path, g.handleControl(cr))
	}
}

func (g *Gateway) Start(ctx context.Context) error {
	if g.httpServer == nil {
		return nil
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = g.httpServer.Shutdown(shutdownCtx)
	}()
	g.log.Info("gateway server starting", "addr", g.httpServer.Addr)
	if err := g.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("gateway: listen: %w", err)
	}
	return nil
}

// Handler exposes the gateway's mux directly, for tests and for
// Orchestrator.GatewayHandler. The admin HTTP surface's proxy route does
// not mount it; it calls Orchestrator.ForwardCommand instead.
func (g *Gateway) Handler() http.Handler { return g.mux }

// --- Forward (outbound), doubling as policy.Forwarder ---

var _ policy.Forwarder = (*Gateway)(nil)

// ForwardResult is the constrained-protocol-style response: a status
// code in the 2.xx/4.xx/5.xx families spec §4.8 describes, rendered
// here as its nearest HTTP equivalent.
type ForwardResult struct {
	Code int
	Body []byte
}

// ForwardCommand implements spec §4.8 end to end: field validation,
// registry lookup, outbound POST, verbatim propagation of the
// upstream response.
func (g *Gateway) ForwardCommand(ctx context.Context, objectID, roomID, rackID string, command map[string]any) ForwardResult {
	if objectID == "" || roomID == "" || len(command) == 0 {
		return ForwardResult{Code: http.StatusBadRequest, Body: []byte("object_id, room_id and command are required")}
	}

	uri, ok := g.reg.FindURI(objectID, roomID, rackID)
	if !ok {
		return ForwardResult{Code: http.StatusNotFound, Body: []byte(fmt.Sprintf("no registered resource for object_id=%s room_id=%s rack_id=%s", objectID, roomID, rackID))}
	}

	body, err := json.Marshal(command)
	if err != nil {
		return ForwardResult{Code: http.StatusInternalServerError, Body: []byte(err.Error())}
	}

	type upstream struct {
		status int
		body   []byte
	}

	result, err := g.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, coapToHTTP(uri), bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := g.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		return upstream{status: resp.StatusCode, body: respBody}, nil
	})
	if err != nil {
		return ForwardResult{Code: http.StatusInternalServerError, Body: []byte(err.Error())}
	}

	up := result.(upstream)
	g.metrics.IncCommandsForwarded()
	return ForwardResult{Code: up.status, Body: up.body}
}

// Forward adapts ForwardCommand to the narrow interface
// internal/policy depends on.
func (g *Gateway) Forward(ctx context.Context, req policy.ForwardRequest) error {
	result := g.ForwardCommand(ctx, req.ObjectID, req.RoomID, req.RackID, req.Command)
	if result.Code < 200 || result.Code >= 300 {
		return fmt.Errorf("gateway: forward returned %d: %s", result.Code, result.Body)
	}
	return nil
}

// coapToHTTP rewrites the registry's logical coap:// identity to the
// http:// address actually dialed (spec §6.1).
func coapToHTTP(uri string) string {
	return "http://" + strings.TrimPrefix(uri, "coap://")
}
