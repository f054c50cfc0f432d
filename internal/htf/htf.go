package htf

import (
	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/regime"
	"trade-decision-engine/internal/timeframe"
)

// Status is the alignment of a forecast with its parent timeframe.
type Status string

const (
	Aligned      Status = "ALIGNED"
	SoftConflict Status = "SOFT_CONFLICT"
	HardConflict Status = "HARD_CONFLICT"
)

// ParentView is the parent timeframe's forecast direction and regime as
// seen within the current cycle.
type ParentView struct {
	Timeframe timeframe.Timeframe `json:"timeframe"`
	Direction forecast.Direction  `json:"direction"`
	Regime    regime.Label        `json:"regime"`
}

// Result records the alignment check outcome for audit.
type Result struct {
	Status Status      `json:"status"`
	Parent *ParentView `json:"parent,omitempty"`
}

// Check compares a forecast direction against its parent timeframe.
// Only the immediate parent is consulted; deeper ancestors are covered
// because parents are evaluated before children within a cycle. A nil
// parent (coarsest timeframe, or parent unavailable this cycle) passes
// as aligned. The parent's raw direction is used regardless of whether
// the parent itself was admitted for trading.
func Check(dir forecast.Direction, parent *ParentView) Result {
	if parent == nil {
		return Result{Status: Aligned}
	}
	if dir == parent.Direction {
		return Result{Status: Aligned, Parent: parent}
	}
	if parent.Regime == regime.StrongTrend {
		return Result{Status: HardConflict, Parent: parent}
	}
	return Result{Status: SoftConflict, Parent: parent}
}
