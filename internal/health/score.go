package health

import (
	"github.com/twinpulse/twinpulse/internal/sensor"
	"github.com/twinpulse/twinpulse/pkg/types"
)

// Penalty baselines and weights for the health score. The baselines sit
// below the alert warning boundaries so the score starts to fall before a
// warning fires.
const (
	tempBaseline   = 80.0
	tempWeight     = 2.0
	vibBaseline    = 4.0
	vibWeight      = 8.0
	currBaseline   = 18.0
	currWeight     = 3.0
	maxHealthScore = 100.0
)

// Synthetic operational figures.
const (
	rpmBase        = 1450.0
	rpmSpread      = 50.0
	efficiencyBase = 85.0
	effSpread      = 10.0
)

// Placeholder operational metadata used when none is configured.
const (
	DefaultUptimeHours     = 847.3
	DefaultLastMaintenance = "2026-02-10"
	DefaultNextMaintenance = "2026-03-10"
)

// Breakdown holds the per-channel penalties that make up a score.
type Breakdown struct {
	Score              float64
	TemperaturePenalty float64
	VibrationPenalty   float64
	CurrentPenalty     float64
}

// Compute returns the health score with its penalty breakdown.
func Compute(r types.SensorReading) Breakdown {
	b := Breakdown{
		TemperaturePenalty: excess(r.Temperature, tempBaseline) * tempWeight,
		VibrationPenalty:   excess(r.Vibration, vibBaseline) * vibWeight,
		CurrentPenalty:     excess(r.Current, currBaseline) * currWeight,
	}
	b.Score = clamp(maxHealthScore-b.TemperaturePenalty-b.VibrationPenalty-b.CurrentPenalty, 0, maxHealthScore)
	return b
}

// Score returns the composite health score in [0, 100].
func Score(r types.SensorReading) float64 {
	return Compute(r).Score
}

// Classify maps r to a status. Critical short-circuits warning.
func Classify(r types.SensorReading, th types.Thresholds) string {
	switch {
	case r.Temperature > th.Temperature.Critical ||
		r.Vibration > th.Vibration.Critical ||
		r.Current > th.Current.Critical:
		return types.StatusCritical
	case r.Temperature > th.Temperature.Warning ||
		r.Vibration > th.Vibration.Warning ||
		r.Current > th.Current.Warning:
		return types.StatusWarning
	default:
		return types.StatusNormal
	}
}

// Severity orders statuses: normal 0, warning 1, critical 2.
func Severity(status string) int {
	switch status {
	case types.StatusCritical:
		return 2
	case types.StatusWarning:
		return 1
	default:
		return 0
	}
}

// Machine carries the operational metadata reported alongside health.
type Machine struct {
	UptimeHours     float64
	LastMaintenance string
	NextMaintenance string
}

// DefaultMachine returns the placeholder metadata.
func DefaultMachine() Machine {
	return Machine{
		UptimeHours:     DefaultUptimeHours,
		LastMaintenance: DefaultLastMaintenance,
		NextMaintenance: DefaultNextMaintenance,
	}
}

// Evaluator builds MachineStatus projections. It is not safe for concurrent
// use because it draws from a shared random source.
type Evaluator struct {
	src     sensor.Source
	machine Machine
}

// NewEvaluator returns an Evaluator using src for rpm and efficiency.
func NewEvaluator(src sensor.Source, m Machine) *Evaluator {
	return &Evaluator{src: src, machine: m}
}

// Evaluate projects r into a MachineStatus using thresholds th.
func (e *Evaluator) Evaluate(r types.SensorReading, th types.Thresholds) types.MachineStatus {
	return types.MachineStatus{
		Health:          Score(r),
		Status:          Classify(r, th),
		Uptime:          e.machine.UptimeHours,
		LastMaintenance: e.machine.LastMaintenance,
		NextMaintenance: e.machine.NextMaintenance,
		RPM:             rpmBase + sensor.Uniform(e.src, 0, rpmSpread),
		Efficiency:      efficiencyBase + sensor.Uniform(e.src, 0, effSpread),
	}
}

// excess returns how far v exceeds baseline, or 0.
func excess(v, baseline float64) float64 {
	if v > baseline {
		return v - baseline
	}
	return 0
}

// clamp restricts v to [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
