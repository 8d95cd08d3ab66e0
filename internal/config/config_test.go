package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFromEnvAppliesDefaultsWhenUnset(t *testing.T) {
	for _, key := range []string{"FLASK_ENV", "ADMIN_BIND", "CLOUD_SYNC_INTERVAL_S", "TASK_DELAY_S"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
	cfg := FromEnv()
	if cfg.Env != "development" {
		t.Fatalf("Env = %q, want development", cfg.Env)
	}
	if cfg.AdminBind != ":8090" {
		t.Fatalf("AdminBind = %q, want :8090", cfg.AdminBind)
	}
	if cfg.TaskDelayS != 5 {
		t.Fatalf("TaskDelayS = %d, want 5", cfg.TaskDelayS)
	}
}

func TestFromEnvHonorsOverrides(t *testing.T) {
	t.Setenv("FLASK_ENV", "production")
	t.Setenv("TASK_DELAY_S", "10")
	cfg := FromEnv()
	if cfg.Env != "production" {
		t.Fatalf("Env = %q, want production", cfg.Env)
	}
	if cfg.TaskDelayS != 10 {
		t.Fatalf("TaskDelayS = %d, want 10", cfg.TaskDelayS)
	}
}

func TestLoadRoomsConfigParsesCatalogShape(t *testing.T) {
	tmp := t.TempDir()
	path := filepath.Join(tmp, "rooms_config.json")
	body := `{
		"rooms": [
			{
				"room_id": "room_A1",
				"location": "floor-1",
				"devices": [{"type": "EnvironmentMonitor"}],
				"racks": [
					{"rack_id": "rack_A1", "type": "air_cooled", "devices": [{"type": "RackCoolingUnit"}]}
				]
			}
		]
	}`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write rooms config: %v", err)
	}

	doc, err := LoadRoomsConfig(path)
	if err != nil {
		t.Fatalf("LoadRoomsConfig: %v", err)
	}
	if len(doc.Rooms) != 1 {
		t.Fatalf("len(Rooms) = %d, want 1", len(doc.Rooms))
	}
	room := doc.Rooms[0]
	if room.RoomID != "room_A1" || len(room.Racks) != 1 {
		t.Fatalf("unexpected room: %+v", room)
	}
	if room.Racks[0].Type != "air_cooled" {
		t.Fatalf("rack type = %q, want air_cooled", room.Racks[0].Type)
	}
}

func TestLoadRoomsConfigMissingFileErrors(t *testing.T) {
	if _, err := LoadRoomsConfig(filepath.Join(t.TempDir(), "absent.json")); err == nil {
		t.Fatal("expected an error for a missing rooms config file")
	}
}
