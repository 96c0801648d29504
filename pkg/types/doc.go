// Package types defines the data model shared by the telemetry engine and
// the surfaces that render it: readings, the derived machine status, alerts,
// alert thresholds and the published snapshot.
//
// Values in this package carry no behaviour beyond small helpers. The engine
// hands out copies, so callers may keep or modify them freely.
package types
