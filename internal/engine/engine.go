package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/twinpulse/twinpulse/internal/alerts"
	"github.com/twinpulse/twinpulse/internal/config"
	"github.com/twinpulse/twinpulse/internal/health"
	"github.com/twinpulse/twinpulse/internal/history"
	"github.com/twinpulse/twinpulse/internal/sensor"
	"github.com/twinpulse/twinpulse/pkg/types"
)

// Options configures an Engine. Zero-valued sizing fields take the package
// defaults; Source and Now default to a clock-seeded source and time.Now.
// Source drives the sensor readings and StatusSource the rpm and efficiency
// noise of each status evaluation. They must be distinct sources so reads
// never shift the reading sequence.
type Options struct {
	Thresholds      types.Thresholds
	HistoryCapacity int
	SeedSpacing     time.Duration
	HistoryMaxAge   time.Duration
	AlertCap        int
	Machine         health.Machine
	Source          sensor.Source
	StatusSource    sensor.Source
	Now             func() time.Time
}

// OptionsFromConfig maps a loaded config onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Thresholds:      cfg.Thresholds,
		HistoryCapacity: cfg.Telemetry.HistoryCapacity,
		SeedSpacing:     cfg.Telemetry.SeedSpacing,
		HistoryMaxAge:   cfg.Telemetry.HistoryMaxAge,
		AlertCap:        cfg.Telemetry.AlertCap,
		Machine: health.Machine{
			UptimeHours:     cfg.Machine.UptimeHours,
			LastMaintenance: cfg.Machine.LastMaintenance,
			NextMaintenance: cfg.Machine.NextMaintenance,
		},
		Source:       sensor.NewSource(cfg.Telemetry.RandomSeed),
		StatusSource: statusSource(cfg.Telemetry.RandomSeed),
	}
}

// statusSource derives the evaluator's source from the telemetry seed. A zero
// seed stays clock-seeded.
func statusSource(seed int64) sensor.Source {
	if seed == 0 {
		return sensor.NewSource(0)
	}
	return sensor.NewSource(seed + 1)
}

// Update is what one tick produced: the state after the tick and the alerts
// it newly raised, in detection order.
type Update struct {
	Snapshot types.Snapshot
	Fired    []types.Alert
}

// Stats are cumulative counters since construction.
type Stats struct {
	Ticks          uint64
	FiredBySensor  map[string]uint64
	FiredByType    map[string]uint64
	Dismissed      uint64
	AlertsDropped  uint64
	HistoryEvicted uint64
}

// Engine is the telemetry state of one machine.
//
// Engine is safe for concurrent use. Every operation holds the same lock, so
// ticks and dismissals never interleave.
type Engine struct {
	mu         sync.Mutex
	buf        *history.Buffer
	log        *alerts.Log
	gen        *sensor.Generator
	eval       *health.Evaluator
	thresholds types.Thresholds
	now        func() time.Time
	seq        uint64
	stats      Stats
}

// New validates opts, builds an Engine and seeds its history with backfilled
// readings ending at the current time.
func New(opts Options) (*Engine, error) {
	if opts.HistoryCapacity == 0 {
		opts.HistoryCapacity = history.DefaultCapacity
	}
	if opts.SeedSpacing == 0 {
		opts.SeedSpacing = history.DefaultSeedSpacing
	}
	if opts.AlertCap == 0 {
		opts.AlertCap = alerts.DefaultLogCap
	}
	if opts.Machine == (health.Machine{}) {
		opts.Machine = health.DefaultMachine()
	}
	if opts.Source == nil {
		opts.Source = sensor.NewSource(0)
	}
	if opts.StatusSource == nil {
		opts.StatusSource = sensor.NewSource(time.Now().UnixNano() + 1)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	if err := opts.Thresholds.Validate(); err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	if opts.SeedSpacing < 0 {
		return nil, fmt.Errorf("engine: seed spacing must be positive, got %v", opts.SeedSpacing)
	}
	buf, err := history.New(opts.HistoryCapacity, opts.HistoryMaxAge)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}
	log, err := alerts.NewLog(opts.AlertCap)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	e := &Engine{
		buf:        buf,
		log:        log,
		gen:        sensor.NewGenerator(opts.Source),
		eval:       health.NewEvaluator(opts.StatusSource, opts.Machine),
		thresholds: opts.Thresholds,
		now:        opts.Now,
		stats: Stats{
			FiredBySensor: make(map[string]uint64),
			FiredByType:   make(map[string]uint64),
		},
	}
	buf.Seed(e.now(), opts.SeedSpacing, e.gen.Generate)
	return e, nil
}

// Tick generates a reading for now, appends it to history, records its
// breaches and returns the resulting state.
func (e *Engine) Tick(now time.Time) Update {
	e.mu.Lock()
	defer e.mu.Unlock()

	r := e.gen.Generate(now)
	e.stats.HistoryEvicted += uint64(e.buf.Append(r))

	fired := alerts.Detect(r, e.thresholds, now)
	e.stats.AlertsDropped += uint64(e.log.Record(fired))
	e.stats.Ticks++
	e.seq++
	for _, a := range fired {
		e.stats.FiredBySensor[a.Sensor]++
		e.stats.FiredByType[a.Type]++
	}

	return Update{Snapshot: e.snapshotLocked(now), Fired: fired}
}

// Dismiss removes the alert with the given id. An unknown id is a no-op.
func (e *Engine) Dismiss(id string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	ok := e.log.Dismiss(id)
	if ok {
		e.stats.Dismissed++
		e.seq++
	}
	return ok
}

// Snapshot returns the current state. MachineStatus is evaluated from the
// latest reading on every call.
func (e *Engine) Snapshot() types.Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked(e.now())
}

// Thresholds returns the bands in effect.
func (e *Engine) Thresholds() types.Thresholds {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.thresholds
}

// SetThresholds replaces the bands used for classification and detection
// from the next tick on. Invalid bands are rejected and the old ones kept.
func (e *Engine) SetThresholds(th types.Thresholds) error {
	if err := th.Validate(); err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	e.mu.Lock()
	e.thresholds = th
	e.seq++
	e.mu.Unlock()
	return nil
}

// Stats returns a copy of the cumulative counters.
func (e *Engine) Stats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.stats
	s.FiredBySensor = make(map[string]uint64, len(e.stats.FiredBySensor))
	for k, v := range e.stats.FiredBySensor {
		s.FiredBySensor[k] = v
	}
	s.FiredByType = make(map[string]uint64, len(e.stats.FiredByType))
	for k, v := range e.stats.FiredByType {
		s.FiredByType[k] = v
	}
	return s
}

func (e *Engine) snapshotLocked(at time.Time) types.Snapshot {
	cur, _ := e.buf.Latest()
	return types.Snapshot{
		Current:       cur,
		History:       e.buf.Readings(),
		MachineStatus: e.eval.Evaluate(cur, e.thresholds),
		Alerts:        e.log.Alerts(),
		GeneratedAt:   at,
		Seq:           e.seq,
	}
}
