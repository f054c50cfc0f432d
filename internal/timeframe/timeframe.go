package timeframe

// Timeframe identifies a forecast horizon.
type Timeframe string

const (
	TF15m Timeframe = "15m"
	TF30m Timeframe = "30m"
	TF1h  Timeframe = "1h"
	TF4h  Timeframe = "4h"
	TF1d  Timeframe = "1d"
)

// hierarchy is ordered coarsest first.
var hierarchy = []Timeframe{TF1d, TF4h, TF1h, TF30m, TF15m}

var parents = map[Timeframe]Timeframe{
	TF15m: TF30m,
	TF30m: TF1h,
	TF1h:  TF4h,
	TF4h:  TF1d,
}

// All returns the supported timeframes, coarsest first.
func All() []Timeframe {
	out := make([]Timeframe, len(hierarchy))
	copy(out, hierarchy)
	return out
}

// Parent returns the next coarser timeframe. The coarsest timeframe has
// no parent and returns ok=false.
func Parent(tf Timeframe) (Timeframe, bool) {
	p, ok := parents[tf]
	return p, ok
}

// Valid reports whether tf is a supported timeframe.
func Valid(tf Timeframe) bool {
	if tf == TF1d {
		return true
	}
	_, ok := parents[tf]
	return ok
}

// Rank returns the position in the hierarchy, 0 for the coarsest.
// Unknown timeframes rank last.
func Rank(tf Timeframe) int {
	for i, h := range hierarchy {
		if h == tf {
			return i
		}
	}
	return len(hierarchy)
}
