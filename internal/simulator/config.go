package simulator

import "github.com/assetpulse/assetpulse-core/internal/models"

// Grid and motor nameplate constants. The simulated asset is a ~5kW
// induction motor on a 230V/50Hz grid.
const (
	NominalVoltageV = 230.0
	GridFrequencyHz = 50.0
	NominalCurrentA = 22.0

	// Grid tolerance band applied as a uniform fluctuation factor.
	VoltageFluctuationMin = 0.90
	VoltageFluctuationMax = 1.10

	PFHealthyMin  = 0.80
	PFHealthyMax  = 0.92
	PFDegradedMin = 0.60
	PFDegradedMax = 0.75

	DefaultAssetID = "motor-001"
)

// DegradationMode selects which failure signature the generator
// synthesizes. Envelopes follow characteristic IMS bearing dataset
// patterns, scaled.
type DegradationMode string

const (
	ModeHealthy             DegradationMode = "healthy"
	ModeInnerRaceFault      DegradationMode = "inner_race_fault"
	ModeOuterRaceFault      DegradationMode = "outer_race_fault"
	ModeRollingElementFault DegradationMode = "rolling_element_fault"
	ModeNormalWear          DegradationMode = "normal_wear"
)

// VibrationEnvelope parameterizes the synthesized vibration signal for
// one degradation mode.
type VibrationEnvelope struct {
	BaseG           float64 // baseline RMS vibration
	NoiseStd        float64
	SpikeProb       float64 // impulse probability per sample
	SpikeAmplitude  float64 // amplitude multiplier for impulses
	ProgressionRate float64 // degradation advance per running sample
}

var vibrationEnvelopes = map[DegradationMode]VibrationEnvelope{
	ModeHealthy: {
		BaseG: 0.15, NoiseStd: 0.02, SpikeProb: 0.001, SpikeAmplitude: 1.2, ProgressionRate: 0,
	},
	ModeInnerRaceFault: {
		BaseG: 0.8, NoiseStd: 0.15, SpikeProb: 0.15, SpikeAmplitude: 2.5, ProgressionRate: 0.02,
	},
	ModeOuterRaceFault: {
		BaseG: 0.6, NoiseStd: 0.12, SpikeProb: 0.08, SpikeAmplitude: 2.0, ProgressionRate: 0.015,
	},
	ModeRollingElementFault: {
		BaseG: 0.5, NoiseStd: 0.18, SpikeProb: 0.05, SpikeAmplitude: 3.0, ProgressionRate: 0.01,
	},
	ModeNormalWear: {
		BaseG: 0.25, NoiseStd: 0.05, SpikeProb: 0.01, SpikeAmplitude: 1.5, ProgressionRate: 0.005,
	},
}

// stateProfile scales the signals for each operating state. Vibration
// signatures are only meaningful while the motor runs.
type stateProfile struct {
	currentMultiplier  float64
	voltageNoiseFactor float64
	vibrationActive    bool
}

var stateProfiles = map[models.OperatingState]stateProfile{
	models.StateRunning: {currentMultiplier: 1.0, voltageNoiseFactor: 1.0, vibrationActive: true},
	models.StateIdle:    {currentMultiplier: 0.15, voltageNoiseFactor: 0.5, vibrationActive: false},
	models.StateOff:     {currentMultiplier: 0.0, voltageNoiseFactor: 0.2, vibrationActive: false},
}
