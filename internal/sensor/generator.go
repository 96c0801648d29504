package sensor

import (
	"math"
	"math/rand"
	"time"

	"github.com/twinpulse/twinpulse/pkg/types"
)

// Baselines and load gains per channel.
const (
	tempBase      = 65.0
	tempLoadGain  = 15.0
	tempNoise     = 4.0
	vibBase       = 2.5
	vibLoadGain   = 1.5
	vibNoise      = 0.6
	currBase      = 12.0
	currLoadGain  = 5.0
	currNoise     = 1.5
	loadMidpoint  = 0.8
	loadAmplitude = 0.4
)

// Source yields uniformly distributed values in [0, 1).
// *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

// NewSource returns a math/rand source. A zero seed derives one from the
// current time.
func NewSource(seed int64) Source {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return rand.New(rand.NewSource(seed)) //nolint:gosec // simulation noise
}

// Uniform draws a value in [lo, hi) from src.
func Uniform(src Source, lo, hi float64) float64 {
	return lo + (hi-lo)*src.Float64()
}

// Generator produces synthetic readings. It is not safe for concurrent use;
// the engine serialises access.
type Generator struct {
	src Source
}

// NewGenerator returns a Generator drawing noise from src.
func NewGenerator(src Source) *Generator {
	return &Generator{src: src}
}

// LoadFactor returns the diurnal load multiplier for the local hour of t,
// roughly 0.4 before dawn up to 1.2 in the afternoon.
func LoadFactor(t time.Time) float64 {
	hour := float64(t.Hour())
	return loadMidpoint + loadAmplitude*math.Sin((hour-6)*math.Pi/12)
}

// Generate returns one reading stamped with t.
func (g *Generator) Generate(t time.Time) types.SensorReading {
	load := LoadFactor(t)
	return types.SensorReading{
		Timestamp:   t,
		Temperature: tempBase + load*tempLoadGain + Uniform(g.src, -tempNoise, tempNoise),
		Vibration:   vibBase + load*vibLoadGain + Uniform(g.src, -vibNoise, vibNoise),
		Current:     currBase + load*currLoadGain + Uniform(g.src, -currNoise, currNoise),
	}
}
