// Package history holds the rolling, capacity-bounded sequence of sensor
// readings, oldest first.
//
// Seed backfills the buffer with generated readings spaced evenly up to a
// reference time. Append adds one reading and evicts from the front so the
// length never exceeds the capacity. An optional maximum age additionally
// drops readings older than the newest reading minus that age.
package history
