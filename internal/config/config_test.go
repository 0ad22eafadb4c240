package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "xcal.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config file: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/xcal/data"
  sqlite_path: "/tmp/xcal/xcal.db"
server:
  host: "0.0.0.0"
  port: 8090
calendars:
  definitions_dir: "/etc/xcal/definitions"
  names: ["XNYS", "XSHG"]
  start: "2000-01-01"
  end: "2030-12-31"
  side: "left"
alpaca:
  api_key: "test-key"
  api_secret: "test-secret"
  base_url: "https://paper-api.alpaca.markets"
logging:
  level: "debug"
  format: "json"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}

	if cfg.Storage.DataDir != "/tmp/xcal/data" {
		t.Errorf("DataDir = %q", cfg.Storage.DataDir)
	}
	if cfg.Server.Port != 8090 {
		t.Errorf("Port = %d, want 8090", cfg.Server.Port)
	}
	if len(cfg.Calendars.Names) != 2 || cfg.Calendars.Names[0] != "XNYS" {
		t.Errorf("Names = %v", cfg.Calendars.Names)
	}
	if cfg.Calendars.Side != "left" {
		t.Errorf("Side = %q, want left", cfg.Calendars.Side)
	}
	if cfg.Alpaca.APIKey != "test-key" {
		t.Errorf("APIKey = %q", cfg.Alpaca.APIKey)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
storage:
  data_dir: "/tmp/xcal/data"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if cfg.Calendars.Side != "both" {
		t.Errorf("default Side = %q, want both", cfg.Calendars.Side)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("default Level = %q, want info", cfg.Logging.Level)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("default Port = %d, want 8080", cfg.Server.Port)
	}
}

func TestEnvOverrides(t *testing.T) {
	path := writeConfig(t, `
calendars:
  side: "both"
server:
  port: 8080
`)

	t.Setenv("XCAL_SIDE", "neither")
	t.Setenv("XCAL_PORT", "9999")
	t.Setenv("DATA_DIR", "/var/lib/xcal")
	t.Setenv("APCA_API_KEY_ID", "env-key")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned unexpected error: %v", err)
	}
	if cfg.Calendars.Side != "neither" {
		t.Errorf("Side = %q, want env override neither", cfg.Calendars.Side)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("Port = %d, want env override 9999", cfg.Server.Port)
	}
	if cfg.Storage.DataDir != "/var/lib/xcal" {
		t.Errorf("DataDir = %q, want env override", cfg.Storage.DataDir)
	}
	if cfg.Alpaca.APIKey != "env-key" {
		t.Errorf("APIKey = %q, want env override", cfg.Alpaca.APIKey)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("Load should fail for a missing file")
	}
}
