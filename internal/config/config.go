// Package config loads the YAML configuration for the calendar service and
// applies environment variable overrides.
package config

import (
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the xcal service.
type Config struct {
	Storage   Storage         `yaml:"storage"`
	Server    Server          `yaml:"server"`
	Calendars CalendarsConfig `yaml:"calendars"`
	Alpaca    Alpaca          `yaml:"alpaca"`
	Logging   Logging         `yaml:"logging"`
}

// Storage holds paths for schedule persistence and export.
type Storage struct {
	DataDir    string `yaml:"data_dir"`
	SQLitePath string `yaml:"sqlite_path"`
}

// Server holds network listener configuration.
type Server struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// CalendarsConfig controls which calendars are built and over what range.
type CalendarsConfig struct {
	// DefinitionsDir holds additional YAML calendar definitions loaded on
	// top of the builtins. Empty means builtins only.
	DefinitionsDir string `yaml:"definitions_dir"`

	// Names restricts which calendars the server prebuilds at startup.
	// Empty means every registered calendar is built on first use.
	Names []string `yaml:"names"`

	// Start/End bound the built range as YYYY-MM-DD dates.
	Start string `yaml:"start"`
	End   string `yaml:"end"`

	// Side is the boundary-inclusion policy: both, left, right, neither.
	Side string `yaml:"side"`
}

// Alpaca holds credentials for the trading-day source used to derive and
// cross-check holiday data.
type Alpaca struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	BaseURL   string `yaml:"base_url"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at the given path, parses it into a
// Config struct, and then applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	applyEnvOverrides(cfg)

	return cfg, nil
}

// applyDefaults fills unset fields that have a sensible service-wide default.
func applyDefaults(cfg *Config) {
	if cfg.Calendars.Side == "" {
		cfg.Calendars.Side = "both"
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}

	if v := os.Getenv("XCAL_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("XCAL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("XCAL_START"); v != "" {
		cfg.Calendars.Start = v
	}
	if v := os.Getenv("XCAL_END"); v != "" {
		cfg.Calendars.End = v
	}
	if v := os.Getenv("XCAL_SIDE"); v != "" {
		cfg.Calendars.Side = v
	}

	if v := os.Getenv("ALPACA_BASE_URL"); v != "" {
		cfg.Alpaca.BaseURL = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}
