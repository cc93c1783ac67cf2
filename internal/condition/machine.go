package condition

// Package condition tracks the debounced operating condition of an
// asset and emits narrated events on confirmed transitions.
//
// Responsibilities:
//   - Debounce: a condition must hold for a configured number of
//     consecutive assessment ticks before a transition fires, so a
//     single noisy sample never flips the state
//   - Transition-only events: the machine is silent between transitions
//   - Single source of truth: an asset "is anomalous" exactly when this
//     machine says so; an elevated risk level alone is not sufficient
//
// The transition core is a pure function over an explicit
// (state, consecutive-tick counters) pair, so it tests without timers.

import (
	"time"

	"github.com/google/uuid"

	"github.com/assetpulse/assetpulse-core/internal/models"
)

// DefaultDebounceTicks is how many consecutive opposing ticks confirm a
// transition.
const DefaultDebounceTicks = 2

// Config tunes one machine instance.
type Config struct {
	// DebounceTicks below 1 falls back to DefaultDebounceTicks.
	DebounceTicks int

	// EnableRecovering routes the anomalous-to-healthy transition
	// through an intermediate RECOVERING state for one extra debounce
	// span.
	EnableRecovering bool
}

// Tick is one assessment outcome fed to the machine.
type Tick struct {
	Timestamp time.Time
	Anomalous bool
	Risk      models.RiskLevel
	Message   string // narration attached to a confirmed anomaly event
}

// state is the pure transition core's value: the condition plus its
// debounce counters.
type state struct {
	condition models.ConditionState
	seeded    bool
	faulty    int
	healthy   int
}

// Machine owns the condition of a single asset.
type Machine struct {
	cfg     Config
	assetID string
	st      state
}

// NewMachine creates a machine in the unseeded initial state.
func NewMachine(assetID string, cfg Config) *Machine {
	if cfg.DebounceTicks < 1 {
		cfg.DebounceTicks = DefaultDebounceTicks
	}
	return &Machine{cfg: cfg, assetID: assetID, st: state{condition: models.ConditionHealthy}}
}

// State returns the current debounced condition.
func (m *Machine) State() models.ConditionState { return m.st.condition }

// Advance consumes one tick and returns a ConditionEvent when a
// transition is confirmed, nil otherwise. The very first tick seeds the
// state silently.
func (m *Machine) Advance(t Tick) *models.ConditionEvent {
	next, fired, kind := transition(m.st, t.Anomalous, m.cfg)
	m.st = next
	if !fired {
		return nil
	}

	switch kind {
	case models.EventAnomalyDetected:
		return m.event(t, models.EventAnomalyDetected, anomalySeverity(t.Risk), t.Message)
	case models.EventAnomalyCleared:
		return m.event(t, models.EventAnomalyCleared, models.SeverityInfo, clearedMessage())
	}
	return nil
}

// transition is the pure debounce core: given the current state, one
// tick, and the config, it returns the next state plus whether a
// transition event fired and of which kind.
func transition(s state, anomalous bool, cfg Config) (state, bool, models.EventType) {
	if !s.seeded {
		s.seeded = true
		if anomalous {
			s.condition = models.ConditionAnomalyDetected
		} else {
			s.condition = models.ConditionHealthy
		}
		return s, false, ""
	}

	switch s.condition {
	case models.ConditionHealthy:
		if !anomalous {
			s.faulty = 0
			return s, false, ""
		}
		s.faulty++
		if s.faulty >= cfg.DebounceTicks {
			s.condition = models.ConditionAnomalyDetected
			s.faulty = 0
			s.healthy = 0
			return s, true, models.EventAnomalyDetected
		}
		return s, false, ""

	case models.ConditionAnomalyDetected:
		if anomalous {
			s.healthy = 0
			return s, false, ""
		}
		s.healthy++
		if s.healthy >= cfg.DebounceTicks {
			s.healthy = 0
			s.faulty = 0
			if cfg.EnableRecovering {
				s.condition = models.ConditionRecovering
				return s, false, ""
			}
			s.condition = models.ConditionHealthy
			return s, true, models.EventAnomalyCleared
		}
		return s, false, ""

	case models.ConditionRecovering:
		if anomalous {
			// Relapse: fall straight back without a fresh event; the
			// anomaly was never announced as cleared.
			s.condition = models.ConditionAnomalyDetected
			s.healthy = 0
			s.faulty = 0
			return s, false, ""
		}
		s.healthy++
		if s.healthy >= cfg.DebounceTicks {
			s.condition = models.ConditionHealthy
			s.healthy = 0
			return s, true, models.EventAnomalyCleared
		}
		return s, false, ""
	}

	return s, false, ""
}

func (m *Machine) event(t Tick, kind models.EventType, sev models.Severity, msg string) *models.ConditionEvent {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &models.ConditionEvent{
		EventID:   uuid.NewString(),
		Timestamp: ts,
		AssetID:   m.assetID,
		Type:      kind,
		Severity:  sev,
		Message:   msg,
	}
}

func anomalySeverity(risk models.RiskLevel) models.Severity {
	if risk == models.RiskCritical {
		return models.SeverityCritical
	}
	return models.SeverityWarning
}

func clearedMessage() string {
	return "Asset returned to healthy operation; all signals back within baseline"
}
