// Package metrics serves the engine state as a Prometheus text exposition.
//
// Handler builds metric families from a fresh snapshot and the engine's
// cumulative counters on every scrape; nothing is cached between scrapes.
package metrics
