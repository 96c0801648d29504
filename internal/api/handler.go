package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/twinpulse/twinpulse/pkg/types"
)

// Engine is the part of the telemetry engine the API reads and mutates.
type Engine interface {
	Snapshot() types.Snapshot
	Dismiss(id string) bool
}

// Handler is the HTTP handler for all /api/v1/* endpoints.
type Handler struct {
	engine    Engine
	machineID string
	mux       *http.ServeMux
}

// New creates a Handler wired to eng and registers all routes.
func New(eng Engine, machineID string) http.Handler {
	h := &Handler{engine: eng, machineID: machineID, mux: http.NewServeMux()}

	h.mux.HandleFunc("/api/v1/health", h.health)
	h.mux.HandleFunc("/api/v1/snapshot", h.snapshot)
	h.mux.HandleFunc("/api/v1/current", h.current)
	h.mux.HandleFunc("/api/v1/history", h.history)
	h.mux.HandleFunc("/api/v1/status", h.status)
	h.mux.HandleFunc("/api/v1/alerts", h.alerts)
	h.mux.HandleFunc("/api/v1/alerts/", h.alertByID) // subtree, extracts {id}

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mux.ServeHTTP(w, r)
}

// --- route handlers ---------------------------------------------------------

// health returns GET /api/v1/health.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	s := h.engine.Snapshot()
	jsonResp(w, http.StatusOK, HealthResponse{
		Service:     "ok",
		MachineID:   h.machineID,
		Status:      s.MachineStatus.Status,
		Health:      s.MachineStatus.Health,
		AlertCount:  len(s.Alerts),
		HistoryLen:  len(s.History),
		LastReading: s.Current.Timestamp.UTC().Format(time.RFC3339),
		GeneratedAt: s.GeneratedAt.UTC().Format(time.RFC3339),
	})
}

// snapshot returns GET /api/v1/snapshot.
func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, BuildSnapshot(h.engine))
}

// current returns GET /api/v1/current.
func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.engine.Snapshot().Current)
}

// history returns GET /api/v1/history.
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	readings := h.engine.Snapshot().History
	if readings == nil {
		readings = []types.SensorReading{}
	}
	jsonResp(w, http.StatusOK, HistoryResponse{Readings: readings, Count: len(readings)})
}

// status returns GET /api/v1/status.
func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	jsonResp(w, http.StatusOK, h.engine.Snapshot().MachineStatus)
}

// alerts returns GET /api/v1/alerts.
func (h *Handler) alerts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list := h.engine.Snapshot().Alerts
	if list == nil {
		list = []types.Alert{}
	}
	jsonResp(w, http.StatusOK, AlertsResponse{Alerts: list, Count: len(list)})
}

// alertByID handles DELETE /api/v1/alerts/{id}. Dismissing an absent id is
// not an error.
func (h *Handler) alertByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/api/v1/alerts/")
	if id == "" {
		h.alerts(w, r)
		return
	}
	if r.Method != http.MethodDelete {
		jsonErr(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if h.engine.Dismiss(id) {
		slog.Debug("api: alert dismissed", "id", id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// --- helpers ----------------------------------------------------------------

// BuildSnapshot returns the engine snapshot with nil slices replaced by empty
// ones so clients always see JSON arrays. Shared with the WebSocket hub.
func BuildSnapshot(eng Engine) types.Snapshot {
	return Normalize(eng.Snapshot())
}

// Normalize replaces nil slices in s with empty ones.
func Normalize(s types.Snapshot) types.Snapshot {
	if s.History == nil {
		s.History = []types.SensorReading{}
	}
	if s.Alerts == nil {
		s.Alerts = []types.Alert{}
	}
	return s
}

func jsonResp(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v) //nolint:errcheck
}

func jsonErr(w http.ResponseWriter, code int, msg string) {
	jsonResp(w, code, errorResponse{Error: msg})
}
