// Package registry implements the Device Registry (C8): an in-memory
// map keyed by host, each holding the resources discovered on that
// host, persisted to JSON after every mutation.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
)

// Attributes is the link-format attribute set a discovered resource
// carries (spec §3, §6): enough to find it again by logical identity.
type Attributes struct {
	ObjectID      string `json:"object_id,omitempty"`
	RoomID        string `json:"room_id,omitempty"`
	RackID        string `json:"rack_id,omitempty"`
	ResourceType  string `json:"rt,omitempty"`
	Interface     string `json:"if,omitempty"`
	ContentFormat string `json:"ct,omitempty"`
	Title         string `json:"title,omitempty"`
}

// Entry is one discovered resource on a host.
type Entry struct {
	Port       int        `json:"port"`
	Path       string     `json:"path"`
	Attributes Attributes `json:"attributes"`
}

// Registry is the shared, JSON-persisted host→resources map. Mutated
// by the Discoverer and read by the gateway's forward path (spec §5):
// reads always see a complete Entry, never a torn write, because Add
// and Reload mutate the map only under the write lock and every reader
// takes the read lock.
type Registry struct {
	mu      sync.RWMutex
	path    string
	byHost  map[string][]Entry
	metrics *metrics.Metrics
	log     *slog.Logger
}

func New(path string, m *metrics.Metrics, log *slog.Logger) (*Registry, error) {
	if log == nil {
		log = slog.Default()
	}
	r := &Registry{path: path, byHost: map[string][]Entry{}, metrics: m, log: log}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads the registry snapshot from disk; a missing file
// (first start, per spec §6) leaves an empty registry.
func (r *Registry) Reload() error {
	data, err := os.ReadFile(r.path)
	if err != nil {
		if os.IsNotExist(err) {
			r.mu.Lock()
			r.byHost = map[string][]Entry{}
			r.mu.Unlock()
			return nil
		}
		return fmt.Errorf("registry: read %s: %w", r.path, err)
	}
	var byHost map[string][]Entry
	if err := json.Unmarshal(data, &byHost); err != nil {
		return fmt.Errorf("registry: parse %s: %w", r.path, err)
	}
	if byHost == nil {
		byHost = map[string][]Entry{}
	}
	r.mu.Lock()
	r.byHost = byHost
	r.mu.Unlock()
	r.setEntryGauge()
	return nil
}

// Add records one discovered resource under host and persists the
// full snapshot. Discovery is idempotent in the sense that repeated
// discovery runs simply append again (spec §4.7); readers consume the
// latest Entries()/FindURI result, not a deduplicated history.
func (r *Registry) Add(host string, entry Entry) error {
	r.mu.Lock()
	r.byHost[host] = append(r.byHost[host], entry)
	data, err := json.MarshalIndent(r.byHost, "", "  ")
	count := r.countLocked()
	r.mu.Unlock()
	if err != nil {
		return fmt.Errorf("registry: encode snapshot: %w", err)
	}
	if r.metrics != nil {
		r.metrics.SetRegistryEntries(count)
	}
	return atomicWrite(r.path, data)
}

// FindURI implements spec §4.7's lookup: the first entry whose
// attributes match (object_id, room_id, rack_id) exactly, where an
// absent rack_id on both sides counts as a match (both are "").
func (r *Registry) FindURI(objectID, roomID, rackID string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for host, entries := range r.byHost {
		for _, e := range entries {
			if e.Attributes.ObjectID == objectID && e.Attributes.RoomID == roomID && e.Attributes.RackID == rackID {
				return fmt.Sprintf("coap://%s:%d/%s", host, e.Port, e.Path), true
			}
		}
	}
	return "", false
}

// Entries returns a defensive copy of the full snapshot, for the admin
// API and tests.
func (r *Registry) Entries() map[string][]Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string][]Entry, len(r.byHost))
	for host, entries := range r.byHost {
		cp := make([]Entry, len(entries))
		copy(cp, entries)
		out[host] = cp
	}
	return out
}

func (r *Registry) countLocked() int {
	n := 0
	for _, entries := range r.byHost {
		n += len(entries)
	}
	return n
}

func (r *Registry) setEntryGauge() {
	if r.metrics == nil {
		return
	}
	r.mu.RLock()
	n := r.countLocked()
	r.mu.RUnlock()
	r.metrics.SetRegistryEntries(n)
}

func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("registry: create %s: %w", dir, err)
		}
	}
	tmp, err := os.CreateTemp(dir, ".registry-*.tmp")
	if err != nil {
		return fmt.Errorf("registry: create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("registry: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("registry: close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("registry: rename into place: %w", err)
	}
	return nil
}
