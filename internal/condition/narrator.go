package condition

import (
	"fmt"
	"strings"

	"github.com/assetpulse/assetpulse-core/internal/features"
	"github.com/assetpulse/assetpulse-core/internal/models"
)

// Diagnostic thresholds for narration. Windowed statistics are checked
// before instantaneous signal values so that jitter-style faults, which
// look nominal sample by sample, still get a concrete message.
const (
	narrVibStdG       = 0.06
	narrVibPeakToPeak = 0.25
	narrVoltStdV      = 5.0
	narrVoltPeakToPeak = 15.0
	narrCurrStdA      = 3.0
	narrPFStd         = 0.04

	narrVoltLowV  = 220.0
	narrVoltHighV = 240.0
	narrCurrLowA  = 12.0
	narrCurrHighA = 18.0
	narrPFLow     = 0.88
	narrVibHighG  = 0.25
)

// maxNarrationClauses bounds the anomaly message length.
const maxNarrationClauses = 4

// Narrate builds a human-readable diagnosis for an anomaly from the
// latest batch feature vector and the triggering reading. The batch
// vector may be nil when the window has not filled yet.
func Narrate(reading models.SensorReading, batch features.Vector) string {
	var clauses []string

	if len(batch) == len(features.BatchFeatureNames) && batch.Defined() {
		stat := func(name string) float64 {
			for i, n := range features.BatchFeatureNames {
				if n == name {
					return batch[i]
				}
			}
			return 0
		}
		if v := stat("vibration_g_std"); v > narrVibStdG {
			clauses = append(clauses, fmt.Sprintf("High vibration variance (mechanical jitter): σ=%.3fg", v))
		}
		if v := stat("vibration_g_peak_to_peak"); v > narrVibPeakToPeak {
			clauses = append(clauses, fmt.Sprintf("Vibration transients: peak-to-peak=%.2fg", v))
		}
		if v := stat("voltage_v_std"); v > narrVoltStdV {
			clauses = append(clauses, fmt.Sprintf("High voltage variance: σ=%.1fV", v))
		}
		if v := stat("voltage_v_peak_to_peak"); v > narrVoltPeakToPeak {
			clauses = append(clauses, fmt.Sprintf("Voltage transients: peak-to-peak=%.1fV", v))
		}
		if v := stat("current_a_std"); v > narrCurrStdA {
			clauses = append(clauses, fmt.Sprintf("High current variance: σ=%.1fA", v))
		}
		if v := stat("power_factor_std"); v > narrPFStd {
			clauses = append(clauses, fmt.Sprintf("Power factor instability: σ=%.3f", v))
		}
	}

	sig := reading.Signals
	if sig.VoltageV < narrVoltLowV || sig.VoltageV > narrVoltHighV {
		clauses = append(clauses, fmt.Sprintf("Voltage out of band: %.1fV", sig.VoltageV))
	}
	if sig.CurrentA < narrCurrLowA || sig.CurrentA > narrCurrHighA {
		clauses = append(clauses, fmt.Sprintf("Current out of band: %.1fA", sig.CurrentA))
	}
	if sig.PowerFactor < narrPFLow {
		clauses = append(clauses, fmt.Sprintf("Low power factor: %.2f", sig.PowerFactor))
	}
	if sig.VibrationG > narrVibHighG {
		clauses = append(clauses, fmt.Sprintf("High vibration: %.2fg", sig.VibrationG))
	}

	if len(clauses) == 0 {
		return "Anomalous behavior detected across multiple signals"
	}
	if len(clauses) > maxNarrationClauses {
		clauses = clauses[:maxNarrationClauses]
	}
	return strings.Join(clauses, "; ")
}
