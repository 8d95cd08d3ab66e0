// Package cloudsync implements C13: a per-room batch of telemetry
// messages, drained on a timer by POSTing to a cloud endpoint. It was
// pulled out of the Telemetry Collector into its own package so the
// circuit-broken HTTP path can be unit tested without a pub/sub
// adapter in the loop.
package cloudsync

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/MarinCervinschi/HVAC-System/internal/metrics"
	"github.com/MarinCervinschi/HVAC-System/internal/pubsub"
)

const defaultSyncIntervalS = 30

// Payload is the body POSTed to {cloud_url}/sync (spec §6).
type Payload struct {
	RoomID      string                   `json:"room_id"`
	Timestamp   int64                    `json:"timestamp"`
	Telemetries []pubsub.TelemetryMessage `json:"telemetries"`
}

// BatcherConfig parameterizes a Batcher.
type BatcherConfig struct {
	RoomID       string
	CloudURL     string // base URL; "/sync" is appended
	SyncInterval time.Duration
	HTTPClient   *http.Client
	Metrics      *metrics.Metrics
	Logger       *slog.Logger
}

// Batcher accumulates telemetry for one room and periodically flushes
// it to the cloud. A failed flush leaves the batch intact so the next
// tick retries the same accumulated data (spec §4.5, §7
// TransientNetworkError, S4).
type Batcher struct {
	roomID   string
	cloudURL string
	interval time.Duration
	client   *http.Client
	breaker  *gobreaker.CircuitBreaker
	metrics  *metrics.Metrics
	log      *slog.Logger

	mu    sync.Mutex
	items []pubsub.TelemetryMessage

	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewBatcher builds a Batcher. Its circuit breaker is named
// "cloud-sync-<room_id>" so /metrics and logs can tell rooms apart,
// grounded on jordigilh-kubernaut's per-collaborator named breakers.
func NewBatcher(cfg BatcherConfig) *Batcher {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	interval := cfg.SyncInterval
	if interval <= 0 {
		interval = defaultSyncIntervalS * time.Second
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}

	breakerSettings := gobreaker.Settings{
		Name:    fmt.Sprintf("cloud-sync-%s", cfg.RoomID),
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}

	return &Batcher{
		roomID:   cfg.RoomID,
		cloudURL: cfg.CloudURL,
		interval: interval,
		client:   client,
		breaker:  gobreaker.NewCircuitBreaker(breakerSettings),
		metrics:  cfg.Metrics,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

// Add appends a telemetry message to the pending batch.
func (b *Batcher) Add(msg pubsub.TelemetryMessage) {
	b.mu.Lock()
	b.items = append(b.items, msg)
	b.mu.Unlock()
}

// Len reports the number of telemetries currently pending, for tests.
func (b *Batcher) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

// Run blocks, flushing on every tick of the sync interval, until ctx
// is cancelled or Stop is called.
func (b *Batcher) Run(ctx context.Context) {
	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-b.stopCh:
			return
		case <-ticker.C:
			if err := b.SyncOnce(ctx); err != nil {
				b.log.Warn("cloud sync failed", "room_id", b.roomID, "error", err)
			}
		}
	}
}

func (b *Batcher) Stop() {
	b.stopOnce.Do(func() { close(b.stopCh) })
}

// SyncOnce snapshots the pending batch and, if non-empty, POSTs it
// behind the circuit breaker. The batch is cleared only on a 2xx
// response (spec §4.5, §8 S4); any other outcome, including the
// breaker being open, leaves it intact for the next tick.
func (b *Batcher) SyncOnce(ctx context.Context) error {
	b.mu.Lock()
	if len(b.items) == 0 {
		b.mu.Unlock()
		return nil
	}
	snapshot := make([]pubsub.TelemetryMessage, len(b.items))
	copy(snapshot, b.items)
	b.mu.Unlock()

	payload := Payload{RoomID: b.roomID, Timestamp: time.Now().UnixMilli(), Telemetries: snapshot}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("cloudsync: encode payload: %w", err)
	}

	_, err = b.breaker.Execute(func() (any, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.cloudURL+"/sync", bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := b.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("cloudsync: upstream status %d", resp.StatusCode)
		}
		return nil, nil
	})
	if err != nil {
		b.metrics.IncCloudSyncFailures()
		return err
	}

	b.mu.Lock()
	b.items = b.items[len(snapshot):]
	b.mu.Unlock()
	return nil
}
