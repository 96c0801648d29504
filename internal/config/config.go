package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/twinpulse/twinpulse/pkg/types"
)

// Default values applied when fields are absent from the config file.
const (
	DefaultTickInterval    = 2 * time.Second
	DefaultHistoryCapacity = 97
	DefaultSeedSpacing     = 15 * time.Minute
	DefaultAlertCap        = 20
	DefaultHTTPPort        = 8080
	DefaultGRPCPort        = 50051
	DefaultAuthHeader      = "x-api-key"
	DefaultMachineID       = "machine-01"
	DefaultUptimeHours     = 847.3
	DefaultLastMaintenance = "2026-02-10"
	DefaultNextMaintenance = "2026-03-10"
)

// Config is the top-level configuration. Fields map 1:1 to config.example.yaml.
type Config struct {
	Log        LogConfig        `yaml:"log"`
	Machine    MachineConfig    `yaml:"machine"`
	Telemetry  TelemetryConfig  `yaml:"telemetry"`
	Thresholds types.Thresholds `yaml:"thresholds"`
	Server     ServerConfig     `yaml:"server"`
	Alerts     AlertsConfig     `yaml:"alerts"`
}

// LogConfig controls the process logger.
type LogConfig struct {
	// Level is one of: debug | info | warn | error.
	Level string `yaml:"level"`

	// Format is json (default) or console for coloured human-readable output.
	Format string `yaml:"format"`
}

// SlogLevel maps Level to a slog.Level. Unknown values fall back to info;
// validate rejects them before this is reached.
func (l LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(l.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// MachineConfig describes the monitored machine.
type MachineConfig struct {
	// ID names the machine in logs and metric labels.
	ID string `yaml:"id"`

	// UptimeHours is reported as-is in the machine status.
	UptimeHours float64 `yaml:"uptime_hours"`

	// LastMaintenance and NextMaintenance are calendar dates (YYYY-MM-DD).
	LastMaintenance string `yaml:"last_maintenance"`
	NextMaintenance string `yaml:"next_maintenance"`
}

// TelemetryConfig sizes the engine and its clock.
type TelemetryConfig struct {
	// TickInterval is the period between generated readings.
	TickInterval time.Duration `yaml:"tick_interval"`

	// HistoryCapacity bounds the number of readings held.
	HistoryCapacity int `yaml:"history_capacity"`

	// SeedSpacing is the gap between backfilled readings at startup.
	SeedSpacing time.Duration `yaml:"seed_spacing"`

	// HistoryMaxAge additionally bounds history by time span. 0 disables it.
	HistoryMaxAge time.Duration `yaml:"history_max_age"`

	// AlertCap bounds the alert log.
	AlertCap int `yaml:"alert_cap"`

	// RandomSeed fixes the noise source for reproducible runs. 0 seeds from
	// the clock.
	RandomSeed int64 `yaml:"random_seed"`
}

// ServerConfig holds the network surfaces.
type ServerConfig struct {
	// HTTPPort serves the REST API, WebSocket stream and /metrics.
	HTTPPort int `yaml:"http_port"`

	// GRPCPort serves the gRPC health service. 0 disables it.
	GRPCPort int `yaml:"grpc_port"`

	// Auth configures REST and gRPC authentication.
	Auth AuthConfig `yaml:"auth"`

	// CORS configures cross-origin access for browser dashboards.
	CORS CORSConfig `yaml:"cors"`
}

// AuthConfig specifies the authentication mode for incoming requests.
type AuthConfig struct {
	// Mode is one of: apikey | none.
	Mode string `yaml:"mode"`

	// Header is the HTTP header / gRPC metadata key carrying the API key.
	Header string `yaml:"header"`

	// KeyEnv is the name of the environment variable holding the expected key.
	KeyEnv string `yaml:"key_env"`
}

// Key returns the API key resolved from the environment.
// Returns empty string if KeyEnv is unset or the variable is not found.
func (a AuthConfig) Key() string {
	if a.KeyEnv == "" {
		return ""
	}
	return os.Getenv(a.KeyEnv)
}

// EffectiveHeader returns Header lower-cased, or the default header.
func (a AuthConfig) EffectiveHeader() string {
	if a.Header == "" {
		return DefaultAuthHeader
	}
	return strings.ToLower(a.Header)
}

// CORSConfig lists origins allowed to call the API from a browser.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// AlertsConfig holds webhook delivery targets.
type AlertsConfig struct {
	Webhooks []WebhookConfig `yaml:"webhooks"`
}

// WebhookConfig defines one webhook delivery target.
type WebhookConfig struct {
	// Type is one of: slack | teams | http.
	Type string `yaml:"type"`

	// URLEnv is the name of the environment variable holding the webhook URL.
	URLEnv string `yaml:"url_env"`

	// MinType drops alerts below this severity: warning | critical.
	// Empty delivers everything.
	MinType string `yaml:"min_type"`
}

// URL returns the webhook URL resolved from the environment.
func (w WebhookConfig) URL() string {
	if w.URLEnv == "" {
		return ""
	}
	return os.Getenv(w.URLEnv)
}

// Load reads and parses the YAML config file at path.
// Missing optional fields are filled with defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read file: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// Default returns a Config pre-populated with default values. It is valid
// as returned.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "info", Format: "json"},
		Machine: MachineConfig{
			ID:              DefaultMachineID,
			UptimeHours:     DefaultUptimeHours,
			LastMaintenance: DefaultLastMaintenance,
			NextMaintenance: DefaultNextMaintenance,
		},
		Telemetry: TelemetryConfig{
			TickInterval:    DefaultTickInterval,
			HistoryCapacity: DefaultHistoryCapacity,
			SeedSpacing:     DefaultSeedSpacing,
			AlertCap:        DefaultAlertCap,
		},
		Thresholds: types.DefaultThresholds(),
		Server: ServerConfig{
			HTTPPort: DefaultHTTPPort,
			GRPCPort: DefaultGRPCPort,
			Auth:     AuthConfig{Mode: "none", Header: DefaultAuthHeader},
			CORS:     CORSConfig{AllowedOrigins: []string{"*"}},
		},
	}
}

// validate checks required fields and structural constraints.
func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("log.level: unknown level %q", cfg.Log.Level)
	}
	switch cfg.Log.Format {
	case "json", "console", "":
	default:
		return fmt.Errorf("log.format: unknown format %q", cfg.Log.Format)
	}

	if cfg.Machine.ID == "" {
		return fmt.Errorf("machine.id is required")
	}
	if cfg.Machine.UptimeHours < 0 {
		return fmt.Errorf("machine.uptime_hours must not be negative")
	}
	for name, d := range map[string]string{
		"machine.last_maintenance": cfg.Machine.LastMaintenance,
		"machine.next_maintenance": cfg.Machine.NextMaintenance,
	} {
		if _, err := time.Parse(time.DateOnly, d); err != nil {
			return fmt.Errorf("%s: want YYYY-MM-DD, got %q", name, d)
		}
	}

	t := cfg.Telemetry
	if t.TickInterval <= 0 {
		return fmt.Errorf("telemetry.tick_interval must be positive")
	}
	if t.HistoryCapacity <= 0 {
		return fmt.Errorf("telemetry.history_capacity must be positive")
	}
	if t.SeedSpacing <= 0 {
		return fmt.Errorf("telemetry.seed_spacing must be positive")
	}
	if t.HistoryMaxAge < 0 {
		return fmt.Errorf("telemetry.history_max_age must not be negative")
	}
	if t.AlertCap <= 0 {
		return fmt.Errorf("telemetry.alert_cap must be positive")
	}

	if err := cfg.Thresholds.Validate(); err != nil {
		return err
	}

	if p := cfg.Server.HTTPPort; p < 1 || p > 65535 {
		return fmt.Errorf("server.http_port %d out of range", p)
	}
	if p := cfg.Server.GRPCPort; p < 0 || p > 65535 {
		return fmt.Errorf("server.grpc_port %d out of range", p)
	}
	switch cfg.Server.Auth.Mode {
	case "apikey":
		if cfg.Server.Auth.KeyEnv == "" {
			return fmt.Errorf("server.auth.key_env is required for mode apikey")
		}
		if cfg.Server.Auth.Key() == "" {
			return fmt.Errorf("server.auth: environment variable %s is empty", cfg.Server.Auth.KeyEnv)
		}
	case "none", "":
	default:
		return fmt.Errorf("server.auth: unknown mode %q", cfg.Server.Auth.Mode)
	}

	for i, wh := range cfg.Alerts.Webhooks {
		switch wh.Type {
		case "slack", "teams", "http":
		default:
			return fmt.Errorf("alerts.webhooks[%d]: unknown type %q", i, wh.Type)
		}
		if wh.URLEnv == "" {
			return fmt.Errorf("alerts.webhooks[%d] %q: url_env is required", i, wh.Type)
		}
		switch wh.MinType {
		case "", types.AlertWarning, types.AlertCritical:
		default:
			return fmt.Errorf("alerts.webhooks[%d] %q: unknown min_type %q", i, wh.Type, wh.MinType)
		}
	}
	return nil
}
