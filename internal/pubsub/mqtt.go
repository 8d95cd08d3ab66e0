package pubsub

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTAdapter is the production Adapter, grounded on
// GVCUTV-NRG-CHAMP/device's paho.mqtt.golang usage: a single client
// connection, QoS-aware publish, and wildcard (+ / #) subscriptions
// fanned out to per-pattern handlers.
type MQTTAdapter struct {
	client     mqtt.Client
	log        *slog.Logger
	clientID   string
	brokerAddr string
}

// MQTTConfig parameterizes the underlying paho client.
type MQTTConfig struct {
	BrokerAddr    string // e.g. "tcp://localhost:1883"
	ClientID      string
	ConnectTimeout time.Duration
	Logger        *slog.Logger
}

func NewMQTTAdapter(cfg MQTTConfig) *MQTTAdapter {
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	return &MQTTAdapter{log: log, clientID: cfg.ClientID, brokerAddr: cfg.BrokerAddr}
}

// Start connects to the broker. Connection loss is handled by paho's
// own auto-reconnect; publish/subscribe failures thereafter are
// logged by the adapter, not fatal (spec §4.3).
func (a *MQTTAdapter) Start(ctx context.Context) error {
	opts := mqtt.NewClientOptions().
		AddBroker(a.brokerAddr).
		SetClientID(a.clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(2 * time.Second)

	opts.OnConnectionLost = func(_ mqtt.Client, err error) {
		a.log.Warn("mqtt connection lost", "error", err)
	}
	opts.OnReconnecting = func(_ mqtt.Client, _ *mqtt.ClientOptions) {
		a.log.Info("mqtt reconnecting", "broker", a.brokerAddr)
	}

	a.client = mqtt.NewClient(opts)
	token := a.client.Connect()
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("pubsub: connect to %s timed out", a.brokerAddr)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("pubsub: connect to %s: %w", a.brokerAddr, err)
	}
	a.log.Info("mqtt adapter connected", "broker", a.brokerAddr, "client_id", a.clientID)
	return nil
}

func (a *MQTTAdapter) Stop() error {
	if a.client != nil && a.client.IsConnected() {
		a.client.Disconnect(250)
	}
	return nil
}

// Publish logs and returns nil on failure: per spec §4.3, publish
// failures never propagate as fatal errors to the caller.
func (a *MQTTAdapter) Publish(topic string, payload []byte, qos byte, retain bool) error {
	if a.client == nil || !a.client.IsConnected() {
		a.log.Warn("mqtt publish skipped: not connected", "topic", topic)
		return nil
	}
	token := a.client.Publish(topic, qos, retain, payload)
	go func() {
		token.Wait()
		if err := token.Error(); err != nil {
			a.log.Warn("mqtt publish failed", "topic", topic, "error", err)
		}
	}()
	return nil
}

// Subscribe registers handler on pattern, which may use MQTT's
// single-level (+) and multi-level (#) wildcards.
func (a *MQTTAdapter) Subscribe(pattern string, qos byte, handler Handler) error {
	if a.client == nil {
		return fmt.Errorf("pubsub: adapter not started")
	}
	token := a.client.Subscribe(pattern, qos, func(_ mqtt.Client, msg mqtt.Message) {
		handler(msg.Topic(), msg.Payload())
	})
	if !token.WaitTimeout(10 * time.Second) {
		return fmt.Errorf("pubsub: subscribe to %s timed out", pattern)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("pubsub: subscribe to %s: %w", pattern, err)
	}
	a.log.Info("mqtt subscribed", "pattern", pattern, "qos", qos)
	return nil
}
