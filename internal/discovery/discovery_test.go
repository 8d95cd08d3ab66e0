package discovery

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/MarinCervinschi/HVAC-System/internal/registry"
)

func TestDiscoverPopulatesRegistry(t *testing.T) {
	const linkFormat = `</hvac/room/room_A1/rack/rack_A1/device/rack_cooling_unit/fan/control>;rt="iot.actuator.fan";if="core.a";ct=50;title="Fan";object_id=rack_cooling_unit;room_id=room_A1;rack_id=rack_A1,</.well-known/core>;rt="core.rd"`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/.well-known/core" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(linkFormat))
	}))
	defer srv.Close()

	reg, err := registry.New(filepath.Join(t.TempDir(), "registry.json"), nil, nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}

	host, port := splitHostPort(t, srv.URL)
	d := New(srv.Client(), reg, nil)
	if err := d.Discover(context.Background(), host, port); err != nil {
		t.Fatalf("Discover: %v", err)
	}

	uri, ok := reg.FindURI("rack_cooling_unit", "room_A1", "rack_A1")
	if !ok {
		t.Fatal("expected discovered resource to be findable")
	}
	if uri == "" {
		t.Fatal("expected non-empty URI")
	}
}

func TestCheckConnectivity(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	reg, err := registry.New(filepath.Join(t.TempDir(), "registry.json"), nil, nil)
	if err != nil {
		t.Fatalf("registry.New: %v", err)
	}
	host, port := splitHostPort(t, srv.URL)
	d := New(srv.Client(), reg, nil)
	if !d.CheckConnectivity(context.Background(), host, port) {
		t.Fatal("expected connectivity check to succeed")
	}
	if d.CheckConnectivity(context.Background(), "127.0.0.1", 1) {
		t.Fatal("expected connectivity check to fail against a closed port")
	}
}

func TestParseLinkFormat(t *testing.T) {
	links := parseLinkFormat(`</a/b>;rt="x";object_id=o1;room_id=r1,</c>;rt="y"`)
	if len(links) != 2 {
		t.Fatalf("parsed %d links, want 2", len(links))
	}
	if links[0].path != "a/b" || links[0].attrs["object_id"] != "o1" {
		t.Fatalf("unexpected first link: %+v", links[0])
	}
}

func splitHostPort(t *testing.T, rawURL string) (string, int) {
	t.Helper()
	u, err := url.Parse(rawURL)
	if err != nil {
		t.Fatalf("parse URL %q: %v", rawURL, err)
	}
	host, portStr, err := net.SplitHostPort(u.Host)
	if err != nil {
		t.Fatalf("split host:port %q: %v", u.Host, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		t.Fatalf("parse port %q: %v", portStr, err)
	}
	return host, port
}
