// Package config centralizes environment-driven runtime configuration
// and the rooms_config.json topology document (spec §6), following the
// getEnv/getEnvInt pattern services/mape/internal/config/config.go
// uses for its own AppConfig.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// AppConfig holds every environment-sourced setting this process
// needs. Nothing here is hot-reloaded; of the JSON documents it points
// at, policy.json and registry.json are, while rooms_config.json is read
// once at startup.
type AppConfig struct {
	Env string // FLASK_ENV, carried from the original source's naming

	AdminBind   string // admin HTTP API bind address
	GatewayBind string // constrained-protocol gateway bind address

	MQTTBrokerAddr string
	MQTTClientID   string

	CloudURL     string
	SyncInterval time.Duration

	RoomsConfigPath   string
	PolicyConfigPath  string
	RegistryStatePath string

	LogDir string

	TaskDelayS int // default sensor periodic-task delay, spec §4.4

	// DiscoverySeeds is a fixed "host:port" list probed at startup
	// (connectivity check, then discovery), mirroring
	// original_source/gateway/main.py's fixed device list.
	DiscoverySeeds []string
}

// FromEnv reads every AppConfig field from its environment variable,
// falling back to a development-friendly default for each.
func FromEnv() *AppConfig {
	return &AppConfig{
		Env: getEnv("FLASK_ENV", "development"),

		AdminBind:   getEnv("ADMIN_BIND", ":8090"),
		GatewayBind: getEnv("GATEWAY_BIND", ":8091"),

		MQTTBrokerAddr: getEnv("MQTT_BROKER_ADDR", "tcp://localhost:1883"),
		MQTTClientID:   getEnv("MQTT_CLIENT_ID", "hvac-edge-agent"),

		CloudURL:     getEnv("CLOUD_URL", "http://localhost:9000"),
		SyncInterval: time.Duration(getEnvInt("CLOUD_SYNC_INTERVAL_S", 30)) * time.Second,

		RoomsConfigPath:   getEnv("ROOMS_CONFIG_PATH", "./configs/rooms_config.json"),
		PolicyConfigPath:  getEnv("POLICY_CONFIG_PATH", "./configs/policy.json"),
		RegistryStatePath: getEnv("REGISTRY_STATE_PATH", "./configs/registry.json"),

		LogDir: getEnv("LOG_DIR", "./logs"),

		TaskDelayS: getEnvInt("TASK_DELAY_S", 5),

		DiscoverySeeds: splitAndTrim(getEnv("DISCOVERY_SEEDS", "")),
	}
}

// splitAndTrim mirrors services/mape/internal/config/config.go's helper
// of the same name: comma-separated list parsing with blank entries
// dropped, used here for the fixed discovery-seed list.
func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Redacted returns a copy safe to log; no secrets live in AppConfig
// today, but this mirrors services/mape/internal/config's Redacted
// convention so a future credential field has an obvious home.
func (c *AppConfig) Redacted() *AppConfig {
	cp := *c
	return &cp
}

// RoomsDocument is rooms_config.json's root shape (spec §6).
type RoomsDocument struct {
	Rooms []RoomConfig `json:"rooms"`
}

// RoomConfig describes one room: its room-scoped devices and racks.
type RoomConfig struct {
	RoomID   string         `json:"room_id"`
	Location string         `json:"location"`
	Devices  []DeviceConfig `json:"devices"`
	Racks    []RackConfig   `json:"racks"`
}

// RackConfig describes one rack within a room.
type RackConfig struct {
	RackID  string         `json:"rack_id"`
	Type    string         `json:"type"` // air_cooled | water_cooled
	Devices []DeviceConfig `json:"devices"`
}

// DeviceConfig names a device's catalog type (spec §3.1).
type DeviceConfig struct {
	Type string `json:"type"`
}

// LoadRoomsConfig reads and parses rooms_config.json. Unlike
// policy.json/registry.json this document is not expected to be
// absent: the orchestrator has nothing to wire without it.
func LoadRoomsConfig(path string) (*RoomsDocument, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read rooms config %s: %w", path, err)
	}
	var doc RoomsDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("config: parse rooms config %s: %w", path, err)
	}
	return &doc, nil
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil {
		return i
	}
	return def
}
