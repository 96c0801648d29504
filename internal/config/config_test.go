package config

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Valid(t *testing.T) {
	t.Setenv("TWIN_KEY", "k3y")
	yaml := `
log:
  level: debug
  format: console
machine:
  id: press-7
  uptime_hours: 12.5
  last_maintenance: "2026-05-01"
  next_maintenance: "2026-06-01"
telemetry:
  tick_interval: 500ms
  history_capacity: 50
  seed_spacing: 1m
  history_max_age: 10m
  alert_cap: 5
  random_seed: 99
thresholds:
  temperature: {warning: 75, critical: 85}
server:
  http_port: 9090
  grpc_port: 0
  auth:
    mode: apikey
    header: X-Twin-Key
    key_env: TWIN_KEY
  cors:
    allowed_origins: ["https://dash.example.com"]
alerts:
  webhooks:
    - type: slack
      url_env: SLACK_URL
      min_type: critical
`
	cfg := loadFromString(t, yaml)

	if cfg.Log.SlogLevel() != slog.LevelDebug {
		t.Errorf("log level: got %v", cfg.Log.SlogLevel())
	}
	if cfg.Log.Format != "console" {
		t.Errorf("log format: got %q", cfg.Log.Format)
	}
	if cfg.Machine.ID != "press-7" {
		t.Errorf("machine id: got %q", cfg.Machine.ID)
	}
	if cfg.Machine.UptimeHours != 12.5 {
		t.Errorf("uptime_hours: got %v", cfg.Machine.UptimeHours)
	}
	if cfg.Telemetry.TickInterval != 500*time.Millisecond {
		t.Errorf("tick_interval: got %v", cfg.Telemetry.TickInterval)
	}
	if cfg.Telemetry.HistoryCapacity != 50 {
		t.Errorf("history_capacity: got %d", cfg.Telemetry.HistoryCapacity)
	}
	if cfg.Telemetry.HistoryMaxAge != 10*time.Minute {
		t.Errorf("history_max_age: got %v", cfg.Telemetry.HistoryMaxAge)
	}
	if cfg.Telemetry.AlertCap != 5 {
		t.Errorf("alert_cap: got %d", cfg.Telemetry.AlertCap)
	}
	if cfg.Telemetry.RandomSeed != 99 {
		t.Errorf("random_seed: got %d", cfg.Telemetry.RandomSeed)
	}
	if cfg.Thresholds.Temperature.Warning != 75 || cfg.Thresholds.Temperature.Critical != 85 {
		t.Errorf("temperature band: got %+v", cfg.Thresholds.Temperature)
	}
	// Untouched channels keep their defaults.
	if cfg.Thresholds.Vibration.Critical != 5.5 {
		t.Errorf("vibration critical: got %v, want default 5.5", cfg.Thresholds.Vibration.Critical)
	}
	if cfg.Server.HTTPPort != 9090 || cfg.Server.GRPCPort != 0 {
		t.Errorf("ports: got %d/%d", cfg.Server.HTTPPort, cfg.Server.GRPCPort)
	}
	if cfg.Server.Auth.EffectiveHeader() != "x-twin-key" {
		t.Errorf("auth header: got %q", cfg.Server.Auth.EffectiveHeader())
	}
	if len(cfg.Server.CORS.AllowedOrigins) != 1 || cfg.Server.CORS.AllowedOrigins[0] != "https://dash.example.com" {
		t.Errorf("cors origins: got %v", cfg.Server.CORS.AllowedOrigins)
	}
	if len(cfg.Alerts.Webhooks) != 1 || cfg.Alerts.Webhooks[0].MinType != "critical" {
		t.Errorf("webhooks: got %+v", cfg.Alerts.Webhooks)
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg := loadFromString(t, "machine:\n  id: m1\n")

	if cfg.Telemetry.TickInterval != DefaultTickInterval {
		t.Errorf("default tick_interval: got %v, want %v", cfg.Telemetry.TickInterval, DefaultTickInterval)
	}
	if cfg.Telemetry.HistoryCapacity != DefaultHistoryCapacity {
		t.Errorf("default history_capacity: got %d, want %d", cfg.Telemetry.HistoryCapacity, DefaultHistoryCapacity)
	}
	if cfg.Telemetry.SeedSpacing != DefaultSeedSpacing {
		t.Errorf("default seed_spacing: got %v, want %v", cfg.Telemetry.SeedSpacing, DefaultSeedSpacing)
	}
	if cfg.Telemetry.AlertCap != DefaultAlertCap {
		t.Errorf("default alert_cap: got %d, want %d", cfg.Telemetry.AlertCap, DefaultAlertCap)
	}
	if cfg.Machine.UptimeHours != DefaultUptimeHours {
		t.Errorf("default uptime: got %v", cfg.Machine.UptimeHours)
	}
	if cfg.Server.HTTPPort != DefaultHTTPPort {
		t.Errorf("default http_port: got %d, want %d", cfg.Server.HTTPPort, DefaultHTTPPort)
	}
	if cfg.Thresholds.Current.Warning != 18 || cfg.Thresholds.Current.Critical != 22 {
		t.Errorf("default current band: got %+v", cfg.Thresholds.Current)
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("Default() does not validate: %v", err)
	}
}

func TestLoad_Rejects(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown log level", "log:\n  level: loud\n"},
		{"unknown log format", "log:\n  format: xml\n"},
		{"empty machine id", "machine:\n  id: \"\"\n"},
		{"negative uptime", "machine:\n  uptime_hours: -1\n"},
		{"bad maintenance date", "machine:\n  last_maintenance: yesterday\n"},
		{"zero tick interval", "telemetry:\n  tick_interval: 0s\n"},
		{"zero capacity", "telemetry:\n  history_capacity: 0\n"},
		{"negative capacity", "telemetry:\n  history_capacity: -5\n"},
		{"zero seed spacing", "telemetry:\n  seed_spacing: 0s\n"},
		{"negative max age", "telemetry:\n  history_max_age: -1m\n"},
		{"zero alert cap", "telemetry:\n  alert_cap: 0\n"},
		{"inverted band", "thresholds:\n  vibration: {warning: 6, critical: 5}\n"},
		{"equal band", "thresholds:\n  current: {warning: 20, critical: 20}\n"},
		{"http port range", "server:\n  http_port: 70000\n"},
		{"grpc port range", "server:\n  grpc_port: -2\n"},
		{"unknown auth mode", "server:\n  auth:\n    mode: magictoken\n"},
		{"apikey without env", "server:\n  auth:\n    mode: apikey\n"},
		{"apikey env unset", "server:\n  auth:\n    mode: apikey\n    key_env: TWINPULSE_TEST_UNSET_KEY\n"},
		{"unknown webhook type", "alerts:\n  webhooks:\n    - type: pigeon\n      url_env: X\n"},
		{"webhook without env", "alerts:\n  webhooks:\n    - type: slack\n"},
		{"webhook bad min type", "alerts:\n  webhooks:\n    - type: http\n      url_env: X\n      min_type: info\n"},
		{"not yaml", "telemetry: [unclosed\n"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := loadStringErr(t, tc.yaml); err == nil {
				t.Fatal("expected error, got nil")
			}
		})
	}
}

func TestLoad_RejectsEmptyAPIKey(t *testing.T) {
	t.Setenv("TWINPULSE_TEST_EMPTY_KEY", "")
	_, err := loadStringErr(t, "server:\n  auth:\n    mode: apikey\n    key_env: TWINPULSE_TEST_EMPTY_KEY\n")
	if err == nil {
		t.Fatal("expected error for empty api key, got nil")
	}
	if !strings.Contains(err.Error(), "TWINPULSE_TEST_EMPTY_KEY") {
		t.Errorf("error should name the variable: %v", err)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

func TestAuthConfig_Key(t *testing.T) {
	t.Setenv("TEST_API_KEY", "supersecret")
	a := AuthConfig{Mode: "apikey", KeyEnv: "TEST_API_KEY"}
	if got := a.Key(); got != "supersecret" {
		t.Errorf("Key(): got %q, want %q", got, "supersecret")
	}
}

func TestAuthConfig_Key_Empty(t *testing.T) {
	a := AuthConfig{Mode: "apikey"}
	if got := a.Key(); got != "" {
		t.Errorf("Key() with no KeyEnv: got %q, want empty", got)
	}
}

func TestAuthConfig_EffectiveHeader_Default(t *testing.T) {
	if got := (AuthConfig{}).EffectiveHeader(); got != DefaultAuthHeader {
		t.Errorf("EffectiveHeader(): got %q, want %q", got, DefaultAuthHeader)
	}
}

func TestWebhookConfig_URL(t *testing.T) {
	t.Setenv("TEAMS_URL", "https://teams.example.com/webhook")
	w := WebhookConfig{Type: "teams", URLEnv: "TEAMS_URL"}
	if got := w.URL(); got != "https://teams.example.com/webhook" {
		t.Errorf("URL(): got %q", got)
	}
}

func TestSlogLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
		"":      slog.LevelInfo,
	}
	for in, want := range tests {
		if got := (LogConfig{Level: in}).SlogLevel(); got != want {
			t.Errorf("SlogLevel(%q): got %v, want %v", in, got, want)
		}
	}
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, "thresholds:\n  temperature: {warning: 82, critical: 90}\n")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	got := make(chan *Config, 16)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c })
	}()

	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	writeFile(t, path, "thresholds:\n  temperature: {warning: 70, critical: 80}\n")

	// A truncating write can surface an intermediate empty file first, so
	// wait for the final content.
	deadline := time.After(3 * time.Second)
	for reloaded := false; !reloaded; {
		select {
		case c := <-got:
			reloaded = c.Thresholds.Temperature.Warning == 70
		case <-deadline:
			t.Fatal("timed out waiting for reload")
		}
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Watch returned %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}

func TestWatch_MissingFile(t *testing.T) {
	err := Watch(context.Background(), filepath.Join(t.TempDir(), "absent.yaml"), func(*Config) {})
	if err == nil {
		t.Fatal("expected error watching a missing file, got nil")
	}
}

// loadFromString writes yaml to a temp file and calls Load, failing on error.
func loadFromString(t *testing.T, content string) *Config {
	t.Helper()
	cfg, err := loadStringErr(t, content)
	if err != nil {
		t.Fatalf("Load() unexpected error: %v", err)
	}
	return cfg
}

// loadStringErr writes yaml to a temp file and calls Load, returning any error.
func loadStringErr(t *testing.T, content string) (*Config, error) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeFile(t, path, content)
	return Load(path)
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write temp config: %v", err)
	}
}
