package simulator

// Package simulator synthesizes sensor readings for an induction motor
// on a 230V/50Hz grid, with optional bearing-fault signature injection.
// It is a simulator: it never claims real sensors are attached, and
// every injected fault is tagged on the reading.
//
// Output is deterministic for a fixed seed.

import (
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

const sourceName = "simulator"

// Generator produces a deterministic stream of sensor readings for one
// asset. It is not safe for concurrent use.
type Generator struct {
	assetID  string
	rng      *rand.Rand
	mode     DegradationMode
	progress float64
	state    models.OperatingState
	now      time.Time
	interval time.Duration
	count    int
}

// Option configures a Generator.
type Option func(*Generator)

// WithMode starts the generator in a degradation mode at the given
// progress, clamped to [0, 1].
func WithMode(mode DegradationMode, progress float64) Option {
	return func(g *Generator) {
		g.mode = mode
		g.progress = clamp01(progress)
	}
}

// WithOperatingState overrides the initial RUNNING state.
func WithOperatingState(state models.OperatingState) Option {
	return func(g *Generator) { g.state = state }
}

// WithStart sets the timestamp of the first reading and the spacing
// between readings.
func WithStart(start time.Time, interval time.Duration) Option {
	return func(g *Generator) {
		g.now = start.UTC()
		g.interval = interval
	}
}

// New creates a seeded generator for assetID. An empty id falls back to
// DefaultAssetID.
func New(assetID string, seed int64, opts ...Option) *Generator {
	if assetID == "" {
		assetID = DefaultAssetID
	}
	g := &Generator{
		assetID:  assetID,
		rng:      rand.New(rand.NewSource(seed)),
		mode:     ModeHealthy,
		state:    models.StateRunning,
		now:      time.Now().UTC(),
		interval: time.Second,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetMode switches the degradation mode mid-stream.
func (g *Generator) SetMode(mode DegradationMode, progress float64) {
	g.mode = mode
	g.progress = clamp01(progress)
}

// SetOperatingState switches the operating state mid-stream.
func (g *Generator) SetOperatingState(state models.OperatingState) {
	g.state = state
}

// Mode returns the active degradation mode.
func (g *Generator) Mode() DegradationMode { return g.mode }

// Progress returns the current degradation progress in [0, 1].
func (g *Generator) Progress() float64 { return g.progress }

// Next produces one reading and advances the degradation progression.
func (g *Generator) Next() models.SensorReading {
	voltage := g.voltage()
	current := g.current()
	pf := g.powerFactor()
	vibration := g.vibration()

	reading := models.SensorReading{
		EventID:   uuid.NewString(),
		Timestamp: g.now,
		AssetID:   g.assetID,
		AssetType: models.AssetInductionMotor,
		Signals: models.Signals{
			VoltageV:    round(voltage, 2),
			CurrentA:    round(current, 2),
			PowerFactor: round(pf, 3),
			PowerKW:     round(voltage*current*pf/1000.0, 3),
			VibrationG:  round(vibration, 4),
		},
		OperatingState: g.state,
		Source:         sourceName,
		FaultInjected:  g.mode != ModeHealthy,
	}

	g.advance()
	g.now = g.now.Add(g.interval)
	g.count++
	return reading
}

// Generate produces n consecutive readings.
func (g *Generator) Generate(n int) []models.SensorReading {
	out := make([]models.SensorReading, n)
	for i := range out {
		out[i] = g.Next()
	}
	return out
}

func (g *Generator) voltage() float64 {
	profile := stateProfiles[g.state]
	fluctuation := g.uniform(VoltageFluctuationMin, VoltageFluctuationMax)
	noise := g.rng.NormFloat64() * 2.0 * profile.voltageNoiseFactor
	return math.Max(0, NominalVoltageV*fluctuation+noise)
}

func (g *Generator) current() float64 {
	profile := stateProfiles[g.state]
	if profile.currentMultiplier == 0 {
		return 0
	}
	base := NominalCurrentA * profile.currentMultiplier
	noise := g.rng.NormFloat64() * base * 0.05
	if g.state == models.StateRunning {
		// A stressed motor draws more.
		base *= 1.0 + g.progress*0.15
	}
	return math.Max(0, base+noise)
}

func (g *Generator) powerFactor() float64 {
	switch g.state {
	case models.StateOff:
		return 0
	case models.StateIdle:
		return g.uniform(0.70, 0.80)
	}
	if g.mode == ModeHealthy {
		return g.uniform(PFHealthyMin, PFHealthyMax)
	}
	healthy := g.uniform(PFHealthyMin, PFHealthyMax)
	degraded := g.uniform(PFDegradedMin, PFDegradedMax)
	return clamp01(healthy - (healthy-degraded)*g.progress)
}

func (g *Generator) vibration() float64 {
	profile := stateProfiles[g.state]
	if !profile.vibrationActive {
		return g.uniform(0.01, 0.03)
	}

	env := vibrationEnvelopes[g.mode]
	effectiveBase := env.BaseG * (1.0 + g.progress)
	vibration := effectiveBase + g.rng.NormFloat64()*env.NoiseStd

	// Impulse spikes, characteristic of bearing faults.
	if g.rng.Float64() < env.SpikeProb {
		spike := env.SpikeAmplitude * (1.0 + g.progress*0.5)
		vibration += g.uniform(0.5, 1.0) * spike * env.BaseG
	}
	return math.Max(0, vibration)
}

// advance moves the degradation progression forward. Degradation only
// progresses while the motor runs.
func (g *Generator) advance() {
	if g.state != models.StateRunning || g.mode == ModeHealthy {
		return
	}
	g.progress = math.Min(1.0, g.progress+vibrationEnvelopes[g.mode].ProgressionRate)
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

func clamp01(v float64) float64 {
	return math.Min(1, math.Max(0, v))
}

func round(v float64, decimals int) float64 {
	scale := math.Pow(10, float64(decimals))
	return math.Round(v*scale) / scale
}
