package types

import (
	"fmt"
	"time"
)

// Sensor channel names, as shown to operators.
const (
	SensorTemperature = "Temperature"
	SensorVibration   = "Vibration"
	SensorCurrent     = "Current"
)

// Machine status values.
const (
	StatusNormal   = "normal"
	StatusWarning  = "warning"
	StatusCritical = "critical"
)

// Alert type values. AlertInfo is part of the model but never produced by
// threshold detection.
const (
	AlertWarning  = "warning"
	AlertCritical = "critical"
	AlertInfo     = "info"
)

// SensorReading is one timestamped sample of the three monitored channels.
type SensorReading struct {
	Timestamp   time.Time `json:"timestamp"`
	Temperature float64   `json:"temperature"` // °C
	Vibration   float64   `json:"vibration"`   // mm/s
	Current     float64   `json:"current"`     // A
}

// MachineStatus is the health projection of the latest reading.
// It is recomputed on every read and never stored.
type MachineStatus struct {
	Health          float64 `json:"health"` // 0–100
	Status          string  `json:"status"` // normal | warning | critical
	Uptime          float64 `json:"uptime"` // hours
	LastMaintenance string  `json:"last_maintenance"`
	NextMaintenance string  `json:"next_maintenance"`
	RPM             float64 `json:"rpm"`
	Efficiency      float64 `json:"efficiency"`
}

// Alert records one threshold breach. Alerts are never modified after
// creation; they leave the log by dismissal or by the log cap.
type Alert struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"` // warning | critical | info
	Message   string    `json:"message"`
	Sensor    string    `json:"sensor"`
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Timestamp time.Time `json:"timestamp"`
}

// Band is the warning/critical boundary pair for one channel.
// A value strictly greater than a boundary breaches it.
type Band struct {
	Warning  float64 `yaml:"warning" json:"warning"`
	Critical float64 `yaml:"critical" json:"critical"`
}

// Validate reports whether the band is usable: both boundaries non-negative
// and the warning boundary strictly below the critical one.
func (b Band) Validate() error {
	if b.Warning < 0 || b.Critical < 0 {
		return fmt.Errorf("boundaries must be non-negative (warning %.2f, critical %.2f)", b.Warning, b.Critical)
	}
	if b.Warning >= b.Critical {
		return fmt.Errorf("warning %.2f must be below critical %.2f", b.Warning, b.Critical)
	}
	return nil
}

// Thresholds holds the bands for all three channels. The same thresholds
// drive status classification and alert detection.
type Thresholds struct {
	Temperature Band `yaml:"temperature" json:"temperature"`
	Vibration   Band `yaml:"vibration" json:"vibration"`
	Current     Band `yaml:"current" json:"current"`
}

// DefaultThresholds returns the factory bands.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Temperature: Band{Warning: 82, Critical: 90},
		Vibration:   Band{Warning: 4.0, Critical: 5.5},
		Current:     Band{Warning: 18, Critical: 22},
	}
}

// Validate checks every band.
func (t Thresholds) Validate() error {
	for _, c := range []struct {
		name string
		band Band
	}{
		{"temperature", t.Temperature},
		{"vibration", t.Vibration},
		{"current", t.Current},
	} {
		if err := c.band.Validate(); err != nil {
			return fmt.Errorf("thresholds.%s: %w", c.name, err)
		}
	}
	return nil
}

// Snapshot is the read-only view published to the rendering layer.
// Seq counts the state changes behind it; a snapshot with a lower Seq than
// another from the same engine is older.
type Snapshot struct {
	Current       SensorReading   `json:"current"`
	History       []SensorReading `json:"history"`
	MachineStatus MachineStatus   `json:"machine_status"`
	Alerts        []Alert         `json:"alerts"`
	GeneratedAt   time.Time       `json:"generated_at"`
	Seq           uint64          `json:"seq"`
}
