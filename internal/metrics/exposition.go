package metrics

import (
	"log/slog"
	"net/http"
	"sort"

	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/common/expfmt"
	"google.golang.org/protobuf/proto"

	"github.com/twinpulse/twinpulse/internal/engine"
	"github.com/twinpulse/twinpulse/internal/health"
	"github.com/twinpulse/twinpulse/pkg/types"
)

// Source is what the exposition reads from. *engine.Engine satisfies it.
type Source interface {
	Snapshot() types.Snapshot
	Stats() engine.Stats
}

// Handler returns an http.Handler serving GET /metrics for src. Every series
// carries a machine label.
func Handler(src Source, machineID string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}

		format := expfmt.NewFormat(expfmt.TypeTextPlain)
		w.Header().Set("Content-Type", string(format))
		enc := expfmt.NewEncoder(w, format)
		for _, mf := range Families(src.Snapshot(), src.Stats(), machineID) {
			if err := enc.Encode(mf); err != nil {
				slog.Error("metrics: encode family", "family", mf.GetName(), "err", err)
				return
			}
		}
	})
}

// Families converts a snapshot and counters into metric families, sorted by
// name.
func Families(s types.Snapshot, st engine.Stats, machineID string) []*dto.MetricFamily {
	machine := label("machine", machineID)
	ms := s.MachineStatus

	activeByType := map[string]float64{
		types.AlertWarning:  0,
		types.AlertCritical: 0,
		types.AlertInfo:     0,
	}
	for _, a := range s.Alerts {
		activeByType[a.Type]++
	}
	firedByType := withZeros(st.FiredByType, types.AlertWarning, types.AlertCritical)
	firedBySensor := withZeros(st.FiredBySensor,
		types.SensorTemperature, types.SensorVibration, types.SensorCurrent)

	fams := []*dto.MetricFamily{
		gauge("twinpulse_sensor_value", "Latest reading per sensor channel.",
			sample(s.Current.Temperature, machine, label("sensor", types.SensorTemperature)),
			sample(s.Current.Vibration, machine, label("sensor", types.SensorVibration)),
			sample(s.Current.Current, machine, label("sensor", types.SensorCurrent)),
		),
		gauge("twinpulse_health_score", "Composite health score, 0 to 100.",
			sample(ms.Health, machine)),
		gauge("twinpulse_status_severity", "Machine status as 0 normal, 1 warning, 2 critical.",
			sample(float64(health.Severity(ms.Status)), machine)),
		gauge("twinpulse_rpm", "Reported spindle speed.",
			sample(ms.RPM, machine)),
		gauge("twinpulse_efficiency_percent", "Reported efficiency.",
			sample(ms.Efficiency, machine)),
		gauge("twinpulse_uptime_hours", "Reported machine uptime.",
			sample(ms.Uptime, machine)),
		gauge("twinpulse_history_readings", "Readings held in history.",
			sample(float64(len(s.History)), machine)),
		gauge("twinpulse_active_alerts", "Alerts currently in the log by type.",
			byLabel(activeByType, "type", machine)...),
		counter("twinpulse_ticks_total", "Clock ticks processed.",
			sample(float64(st.Ticks), machine)),
		counter("twinpulse_alerts_fired_total", "Alerts raised by type.",
			byLabel(firedByType, "type", machine)...),
		counter("twinpulse_sensor_alerts_fired_total", "Alerts raised by sensor channel.",
			byLabel(firedBySensor, "sensor", machine)...),
		counter("twinpulse_alerts_dismissed_total", "Alerts removed by dismissal.",
			sample(float64(st.Dismissed), machine)),
		counter("twinpulse_alerts_dropped_total", "Alerts dropped by the log cap.",
			sample(float64(st.AlertsDropped), machine)),
		counter("twinpulse_history_evicted_total", "Readings evicted from history.",
			sample(float64(st.HistoryEvicted), machine)),
	}

	sort.Slice(fams, func(i, j int) bool { return fams[i].GetName() < fams[j].GetName() })
	return fams
}

// --- builders ---------------------------------------------------------------

type point struct {
	value  float64
	labels []*dto.LabelPair
}

func label(name, value string) *dto.LabelPair {
	return &dto.LabelPair{Name: proto.String(name), Value: proto.String(value)}
}

func sample(v float64, labels ...*dto.LabelPair) point {
	return point{value: v, labels: labels}
}

// byLabel emits one point per key of m, in key order, labelled name=key.
func byLabel(m map[string]float64, name string, base *dto.LabelPair) []point {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]point, 0, len(keys))
	for _, k := range keys {
		out = append(out, sample(m[k], base, label(name, k)))
	}
	return out
}

// withZeros converts m and adds a zero entry for every key in keys that m
// lacks, so counters are exposed before their first increment.
func withZeros(m map[string]uint64, keys ...string) map[string]float64 {
	out := make(map[string]float64, len(m)+len(keys))
	for _, k := range keys {
		out[k] = 0
	}
	for k, v := range m {
		out[k] = float64(v)
	}
	return out
}

func gauge(name, help string, pts ...point) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_GAUGE.Enum(),
	}
	for _, p := range pts {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label: p.labels,
			Gauge: &dto.Gauge{Value: proto.Float64(p.value)},
		})
	}
	return mf
}

func counter(name, help string, pts ...point) *dto.MetricFamily {
	mf := &dto.MetricFamily{
		Name: proto.String(name),
		Help: proto.String(help),
		Type: dto.MetricType_COUNTER.Enum(),
	}
	for _, p := range pts {
		mf.Metric = append(mf.Metric, &dto.Metric{
			Label:   p.labels,
			Counter: &dto.Counter{Value: proto.Float64(p.value)},
		})
	}
	return mf
}
