package drift

// Level grades how far the raw model confidence has drifted from its
// calibrated value.
type Level string

const (
	Safe     Level = "SAFE"
	Warning  Level = "WARNING"
	Critical Level = "CRITICAL"
)

// Thresholds are drift percentage cut-offs, both inclusive upper bounds.
type Thresholds struct {
	SafeMax    float64 `json:"safe_max"`
	WarningMax float64 `json:"warning_max"`
}

// DefaultThresholds returns the production cut-offs.
func DefaultThresholds() Thresholds {
	return Thresholds{SafeMax: 15.0, WarningMax: 25.0}
}

// Result is the outcome of a drift evaluation.
type Result struct {
	Raw        float64 `json:"raw"`
	Calibrated float64 `json:"calibrated"`
	DriftPct   float64 `json:"drift_pct"`
	Level      Level   `json:"level"`
}

// Evaluate measures the absolute gap between raw and calibrated
// confidence in percentage points and grades it.
func Evaluate(raw, calibrated float64, t Thresholds) Result {
	gap := raw - calibrated
	if gap < 0 {
		gap = -gap
	}
	pct := gap * 100

	level := Critical
	switch {
	case pct <= t.SafeMax:
		level = Safe
	case pct <= t.WarningMax:
		level = Warning
	}

	return Result{
		Raw:        raw,
		Calibrated: calibrated,
		DriftPct:   pct,
		Level:      level,
	}
}
