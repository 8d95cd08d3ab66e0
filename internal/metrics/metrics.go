// Package metrics implements C14: the process-wide Prometheus counters
// and gauges exposed at /metrics on the admin HTTP surface.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles the counters named in SPEC_FULL.md §2 (C14). A nil
// *Metrics is safe to call methods on (every Inc/Set is a no-op), so
// packages that take an optional metrics sink don't need a separate
// nil check at every call site.
type Metrics struct {
	registry *prometheus.Registry

	TelemetryIngested prometheus.Counter
	CommandsForwarded prometheus.Counter
	PolicyMatches     prometheus.Counter
	RegistryEntries   prometheus.Gauge
	CloudSyncFailures prometheus.Counter
}

// New builds a Metrics bundle registered on its own registry, grounded
// on GVCUTV-NRG-CHAMP/services/assessment's use of client_golang with a
// dedicated (not global-default) registry so tests can construct fresh
// instances without colliding on metric names.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		TelemetryIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hvac_telemetry_ingested_total",
			Help: "Total telemetry messages ingested by per-room collectors.",
		}),
		CommandsForwarded: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hvac_commands_forwarded_total",
			Help: "Total commands forwarded through the gateway.",
		}),
		PolicyMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hvac_policy_matches_total",
			Help: "Total policy evaluations that matched and fired an action.",
		}),
		RegistryEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "hvac_registry_entries",
			Help: "Current number of entries in the device registry.",
		}),
		CloudSyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "hvac_cloud_sync_failures_total",
			Help: "Total cloud-sync POSTs that did not return a 2xx.",
		}),
	}
	reg.MustRegister(m.TelemetryIngested, m.CommandsForwarded, m.PolicyMatches, m.RegistryEntries, m.CloudSyncFailures)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) IncTelemetryIngested() {
	if m != nil {
		m.TelemetryIngested.Inc()
	}
}

func (m *Metrics) IncCommandsForwarded() {
	if m != nil {
		m.CommandsForwarded.Inc()
	}
}

func (m *Metrics) IncPolicyMatches() {
	if m != nil {
		m.PolicyMatches.Inc()
	}
}

func (m *Metrics) SetRegistryEntries(n int) {
	if m != nil {
		m.RegistryEntries.Set(float64(n))
	}
}

func (m *Metrics) IncCloudSyncFailures() {
	if m != nil {
		m.CloudSyncFailures.Inc()
	}
}
