// Package engine owns the telemetry state for one machine and drives it
// forward.
//
// Engine holds the history buffer and the alert log behind a single mutex.
// Tick generates a reading, appends it, records any breaches and returns the
// resulting snapshot. Clock calls Tick on a fixed period and fans each Update
// out to registered observers (the WebSocket hub, metrics, webhooks, the
// gRPC health probe).
package engine
