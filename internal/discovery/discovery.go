// Package discovery implements the Discoverer (C9): a well-known-core
// client that populates the device registry from a constrained-device
// endpoint's link-format resource catalog.
package discovery

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MarinCervinschi/HVAC-System/internal/registry"
)

const wellKnownCorePath = "/.well-known/core"

// Discoverer queries a device endpoint's resource catalog and records
// every link it finds into the registry.
type Discoverer struct {
	client   *http.Client
	registry *registry.Registry
	log      *slog.Logger
}

func New(client *http.Client, reg *registry.Registry, log *slog.Logger) *Discoverer {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	if log == nil {
		log = slog.Default()
	}
	return &Discoverer{client: client, registry: reg, log: log}
}

// Discover issues a well-known-core GET against (host, port),
// translating the constrained-device protocol's logical endpoint to
// plain HTTP (spec §6.1 justification), and records one registry
// entry per returned link (spec §4.7).
func (d *Discoverer) Discover(ctx context.Context, host string, port int) error {
	body, err := d.wellKnownCore(ctx, host, port)
	if err != nil {
		return fmt.Errorf("discovery: %s:%d: %w", host, port, err)
	}

	links := parseLinkFormat(body)
	for _, l := range links {
		entry := l.toEntry(port)
		if err := d.registry.Add(host, entry); err != nil {
			return fmt.Errorf("discovery: record resource %s on %s: %w", entry.Path, host, err)
		}
	}
	d.log.Info("discovered resources", "host", host, "port", port, "count", len(links))
	return nil
}

// CheckConnectivity returns true iff a well-known-core GET succeeds
// (spec §4.7).
func (d *Discoverer) CheckConnectivity(ctx context.Context, host string, port int) bool {
	_, err := d.wellKnownCore(ctx, host, port)
	if err != nil {
		d.log.Warn("connectivity check failed", "host", host, "port", port, "error", err)
		return false
	}
	return true
}

func (d *Discoverer) wellKnownCore(ctx context.Context, host string, port int) (string, error) {
	url := fmt.Sprintf("http://%s:%d%s", host, port, wellKnownCorePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// link is one parsed CoRE Link Format (RFC 6690) entry:
// </path>;rt="...";if="...";ct=40;title="...";object_id=...;room_id=...;rack_id=...
type link struct {
	path  string
	attrs map[string]string
}

func parseLinkFormat(body string) []link {
	var out []link
	for _, raw := range strings.Split(body, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		segs := strings.Split(raw, ";")
		path := strings.Trim(strings.TrimSpace(segs[0]), "<>")
		path = strings.TrimPrefix(path, "/")

		attrs := map[string]string{}
		for _, seg := range segs[1:] {
			k, v, ok := strings.Cut(strings.TrimSpace(seg), "=")
			if !ok {
				continue
			}
			attrs[strings.TrimSpace(k)] = strings.Trim(strings.TrimSpace(v), `"`)
		}
		out = append(out, link{path: path, attrs: attrs})
	}
	return out
}

func (l link) toEntry(port int) registry.Entry {
	return registry.Entry{
		Port: port,
		Path: l.path,
		Attributes: registry.Attributes{
			ObjectID:      l.attrs["object_id"],
			RoomID:        l.attrs["room_id"],
			RackID:        l.attrs["rack_id"],
			ResourceType:  l.attrs["rt"],
			Interface:     l.attrs["if"],
			ContentFormat: l.attrs["ct"],
			Title:         l.attrs["title"],
		},
	}
}
