// Package health derives the machine status from the latest reading.
//
// Score(reading) is the pure composite health score (0–100):
//
//	100 - 2*max(0, temperature-80) - 8*max(0, vibration-4) - 3*max(0, current-18)
//
// clamped to [0, 100]. Classify(reading, thresholds) maps a reading to
// normal, warning or critical; critical is checked first.
//
// Evaluator.Evaluate combines both with the operational placeholders (uptime,
// maintenance dates) and the synthetic rpm/efficiency figures. Nothing is
// cached: every call is a fresh projection.
package health
