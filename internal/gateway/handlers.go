package gateway

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/MarinCervinschi/HVAC-System/internal/resource"
)

// linkAttributes mirrors spec §6's control-resource link description:
// {rt, if, ct, title, object_id, room_id, rack_id}.
type linkAttributes struct {
	ResourceType string
	Interface    string
	ContentFormat string
	Title        string
	ObjectID     string
	RoomID       string
	RackID       string
}

// handleWellKnownCore renders every registered control resource as a
// CoRE Link Format (RFC 6690) entry, the same shape
// internal/discovery's parser consumes.
func (g *Gateway) handleWellKnownCore(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	g.mu.RLock()
	paths := make([]string, 0, len(g.resources))
	for p := range g.resources {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var b strings.Builder
	for i, p := range paths {
		if i > 0 {
			b.WriteByte(',')
		}
		cr := g.resources[p]
		b.WriteString(renderLink(p, cr.attrs))
	}
	g.mu.RUnlock()

	w.Header().Set("Content-Type", "application/link-format")
	w.Write([]byte(b.String()))
}

func renderLink(path string, a linkAttributes) string {
	var b strings.Builder
	fmt.Fprintf(&b, "</%s>", path)
	if a.ResourceType != "" {
		fmt.Fprintf(&b, `;rt="%s"`, a.ResourceType)
	}
	if a.Interface != "" {
		fmt.Fprintf(&b, `;if="%s"`, a.Interface)
	}
	if a.ContentFormat != "" {
		fmt.Fprintf(&b, `;ct=%s`, a.ContentFormat)
	}
	if a.Title != "" {
		fmt.Fprintf(&b, `;title="%s"`, a.Title)
	}
	if a.ObjectID != "" {
		fmt.Fprintf(&b, `;object_id=%s`, a.ObjectID)
	}
	if a.RoomID != "" {
		fmt.Fprintf(&b, `;room_id=%s`, a.RoomID)
	}
	if a.RackID != "" {
		fmt.Fprintf(&b, `;rack_id=%s`, a.RackID)
	}
	return b.String()
}

// forwardBody is the request body for /proxy/forward (spec §4.8).
type forwardBody struct {
	ObjectID string         `json:"object_id"`
	RoomID   string         `json:"room_id"`
	RackID   string         `json:"rack_id,omitempty"`
	Command  map[string]any `json:"command"`
}

func (g *Gateway) handleProxyForward(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var body forwardBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("malformed JSON body"))
		return
	}

	result := g.ForwardCommand(r.Context(), body.ObjectID, body.RoomID, body.RackID, body.Command)
	w.WriteHeader(result.Code)
	w.Write(result.Body)
}

// handleControl builds the handler for one actuator's control
// resource: POST a command map, get back the post-apply state or a
// validation-error status (spec §4.8's 4.xx mapping, applied here to
// a locally-owned actuator instead of a remote forward).
func (g *Gateway) handleControl(cr *controlResource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		var cmd map[string]any
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &cmd); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte("malformed JSON command"))
				return
			}
		}

		if err := cr.actuator.ApplyCommand(cmd, "", nil); err != nil {
			w.WriteHeader(statusForActuatorError(err))
			w.Write([]byte(err.Error()))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cr.actuator.State())
	}
}

// statusForActuatorError maps spec §7's actuator error kinds to their
// 4.xx-class response, per spec §4.8.
func statusForActuatorError(err error) int {
	switch {
	case errors.Is(err, resource.ErrNotOperational),
		errors.Is(err, resource.ErrInvalidCommand),
		errors.Is(err, resource.ErrInvalidStatus),
		errors.Is(err, resource.ErrInvalidRange):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
