package api

import "github.com/twinpulse/twinpulse/pkg/types"

// HealthResponse is the payload for GET /api/v1/health.
type HealthResponse struct {
	Service     string  `json:"service"` // always "ok" when the handler answers
	MachineID   string  `json:"machine_id"`
	Status      string  `json:"status"`
	Health      float64 `json:"health"`
	AlertCount  int     `json:"alert_count"`
	HistoryLen  int     `json:"history_len"`
	LastReading string  `json:"last_reading"` // RFC3339
	GeneratedAt string  `json:"generated_at"` // RFC3339
}

// AlertsResponse is the payload for GET /api/v1/alerts.
type AlertsResponse struct {
	Alerts []types.Alert `json:"alerts"`
	Count  int           `json:"count"`
}

// HistoryResponse is the payload for GET /api/v1/history.
type HistoryResponse struct {
	Readings []types.SensorReading `json:"readings"`
	Count    int                   `json:"count"`
}

type errorResponse struct {
	Error string `json:"error"`
}
