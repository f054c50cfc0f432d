package regime

// Label classifies the market condition for one timeframe.
type Label string

const (
	StrongTrend    Label = "STRONG_TREND"
	WeakTrend      Label = "WEAK_TREND"
	Range          Label = "RANGE"
	HighVolatility Label = "HIGH_VOLATILITY"
	Chaotic        Label = "CHAOTIC"
	Unknown        Label = "UNKNOWN"
)

// Tradeable reports whether a label is in the default allow-list for
// opening new positions.
func (l Label) Tradeable() bool {
	return l == StrongTrend || l == WeakTrend
}

// Known reports whether the label is one of the defined values.
func (l Label) Known() bool {
	switch l {
	case StrongTrend, WeakTrend, Range, HighVolatility, Chaotic, Unknown:
		return true
	}
	return false
}
