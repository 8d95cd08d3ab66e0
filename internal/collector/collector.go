// Package collector implements the Telemetry Collector (C6): one
// instance per room, subscribed to that room's telemetry and control
// topics, handing each telemetry sample to the policy engine and to
// the cloud-sync batch.
package collector

import (
	"context"
	"log/slog"
	"strings"

	"github.com/MarinCervinschi/HVAC-System/internal/cloudsync"
	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
)

// PolicyEvaluator is the subset of the Policy Engine the collector
// depends on (kept narrow so collector tests don't need the real
// policy package). A deep copy of the message is handed in, per
// spec §4.5.
type PolicyEvaluator interface {
	Evaluate(msg pubsub.TelemetryMessage)
}

// Collector is one room's telemetry/control consumer.
type Collector struct {
	roomID  string
	adapter pubsub.Adapter
	policy  PolicyEvaluator
	batcher *cloudsync.Batcher
	metrics *metrics.Metrics
	log     *slog.Logger
}

// Config parameterizes a Collector.
type Config struct {
	RoomID  string
	Adapter pubsub.Adapter
	Policy  PolicyEvaluator
	Batcher *cloudsync.Batcher
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func New(cfg Config) *Collector {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &Collector{
		roomID:  cfg.RoomID,
		adapter: cfg.Adapter,
		policy:  cfg.Policy,
		batcher: cfg.Batcher,
		metrics: cfg.Metrics,
		log:     log,
	}
}

// Subscribe registers the collector's handlers on the room's four
// wildcard topic patterns (spec §6) and starts the cloud-sync batcher
// running in the background.
func (c *Collector) Subscribe(ctx context.Context) error {
	for _, pattern := range pubsub.RoomSubscriptionPatterns(c.roomID) {
		if err := c.adapter.Subscribe(pattern, 0, c.dispatch); err != nil {
			return err
		}
	}
	go c.batcher.Run(ctx)
	return nil
}

// dispatch is the adapter's delivery callback: non-blocking, per
// spec §4.3 — telemetry decode/evaluate/batch is in-process and fast;
// nothing here does network I/O itself.
func (c *Collector) dispatch(topic string, payload []byte) {
	if isControlTopic(topic) {
		// Control messages are observed for logging only; they never
		// enter the telemetry batch (spec §4.5).
		c.log.Debug("control message observed", "room_id", c.roomID, "topic", topic)
		return
	}

	msg, err := pubsub.DecodeTelemetry(payload)
	if err != nil {
		c.log.Warn("failed to decode telemetry message", "room_id", c.roomID, "topic", topic, "error", err)
		return
	}

	c.metrics.IncTelemetryIngested()

	if c.policy != nil {
		c.policy.Evaluate(msg)
	}
	if c.batcher != nil {
		c.batcher.Add(msg)
	}
}

func isControlTopic(topic string) bool {
	return strings.Contains(topic, "/control/")
}
