// Package config loads and watches the service configuration file (config.yaml).
//
// Top-level sections:
//   - log: level (debug|info|warn|error)
//   - machine: id, uptime_hours, last/next maintenance dates
//   - telemetry: tick_interval, history_capacity, seed_spacing,
//     history_max_age, alert_cap, random_seed
//   - thresholds: warning/critical band per channel
//   - server: http_port, grpc_port, auth (apikey|none), cors
//   - alerts: webhooks (slack|teams|http) with url_env
//
// Load(path) reads the YAML file on top of Default(), then validates it.
// Anything the engine could not run with is rejected here, so a bad file
// fails at startup instead of producing nonsense scores.
//
// Watch(ctx, path, onChange) uses fsnotify to detect file changes and calls
// onChange with the newly parsed Config.
package config
