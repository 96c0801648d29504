package alerts

import (
	"time"

	"github.com/google/uuid"

	"github.com/twinpulse/twinpulse/pkg/types"
)

// channel describes how one sensor channel is checked and worded.
type channel struct {
	sensor      string
	idPrefix    string
	critMessage string
	warnMessage string
	value       func(types.SensorReading) float64
	band        func(types.Thresholds) types.Band
}

// channels is the fixed evaluation order.
var channels = []channel{
	{
		sensor:      types.SensorTemperature,
		idPrefix:    "temp",
		critMessage: "Temperature critically high!",
		warnMessage: "Temperature above normal range",
		value:       func(r types.SensorReading) float64 { return r.Temperature },
		band:        func(t types.Thresholds) types.Band { return t.Temperature },
	},
	{
		sensor:      types.SensorVibration,
		idPrefix:    "vib",
		critMessage: "Excessive vibration detected!",
		warnMessage: "Vibration above threshold",
		value:       func(r types.SensorReading) float64 { return r.Vibration },
		band:        func(t types.Thresholds) types.Band { return t.Vibration },
	},
	{
		sensor:      types.SensorCurrent,
		idPrefix:    "cur",
		critMessage: "Current draw critical!",
		warnMessage: "Current above normal",
		value:       func(r types.SensorReading) float64 { return r.Current },
		band:        func(t types.Thresholds) types.Band { return t.Current },
	},
}

// Detect returns one alert per channel whose value exceeds its warning
// boundary, in temperature, vibration, current order. Values at or below the
// warning boundary produce nothing. now stamps the created alerts.
//
// Every alert gets a fresh id, so two breaches in the same call or the same
// instant never share one.
func Detect(r types.SensorReading, th types.Thresholds, now time.Time) []types.Alert {
	var out []types.Alert
	for _, ch := range channels {
		v := ch.value(r)
		band := ch.band(th)
		if v <= band.Warning {
			continue
		}

		a := types.Alert{
			ID:        ch.idPrefix + "-" + uuid.NewString(),
			Type:      types.AlertWarning,
			Message:   ch.warnMessage,
			Sensor:    ch.sensor,
			Value:     v,
			Threshold: band.Warning,
			Timestamp: now,
		}
		if v > band.Critical {
			a.Type = types.AlertCritical
			a.Message = ch.critMessage
			a.Threshold = band.Critical
		}
		out = append(out, a)
	}
	return out
}
