package risk

import (
	"errors"
	"math"

	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/regime"
)

var (
	ErrStopTooTight = errors.New("stop distance below minimum")
	ErrLotTooSmall  = errors.New("position size below minimum lot")
	ErrZeroRisk     = errors.New("no risk budget available")
	ErrBadSnapshot  = errors.New("market snapshot unusable")
)

// Config holds sizing parameters. Defaults are tuned for XAUUSD.
type Config struct {
	BaseRiskPct     float64 `json:"base_risk_pct"`
	MaxRiskPct      float64 `json:"max_risk_pct"`
	MinStopDistance float64 `json:"min_stop_distance"`
	ContractSize    float64 `json:"contract_size"`
	MinLot          float64 `json:"min_lot"`
	MaxLot          float64 `json:"max_lot"`
	LotStep         float64 `json:"lot_step"`
	RewardMultiple  float64 `json:"reward_multiple"`
	TrendRewardMult float64 `json:"trend_reward_multiple"`
	ATRStopBuffer   float64 `json:"atr_stop_buffer"`
	ATRStopFallback float64 `json:"atr_stop_fallback"`
	MaxStopPct      float64 `json:"max_stop_pct"`
}

// DefaultConfig returns the production sizing parameters.
func DefaultConfig() Config {
	return Config{
		BaseRiskPct:     1.0,
		MaxRiskPct:      2.0,
		MinStopDistance: 0.5,
		ContractSize:    100,
		MinLot:          0.01,
		MaxLot:          10.0,
		LotStep:         0.01,
		RewardMultiple:  2.0,
		TrendRewardMult: 3.0,
		ATRStopBuffer:   0.3,
		ATRStopFallback: 1.5,
		MaxStopPct:      0.05,
	}
}

// Setup is a fully sized trade proposal.
type Setup struct {
	Entry            float64 `json:"entry"`
	Stop             float64 `json:"stop"`
	Target           float64 `json:"target"`
	StopDistance     float64 `json:"stop_distance"`
	Lots             float64 `json:"lots"`
	RiskAmount       float64 `json:"risk_amount"`
	RiskPctEffective float64 `json:"risk_pct_effective"`
	RRRatio          float64 `json:"rr_ratio"`
}

// Engine derives stop/target levels from market structure and sizes
// the position against the account risk budget.
type Engine struct {
	cfg Config
}

// NewEngine creates a sizing engine.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// BuildSetup computes levels and size for one admitted forecast.
// multiplier is the compounded gate risk multiplier in [0, 1].
func (e *Engine) BuildSetup(
	dir forecast.Direction,
	snap forecast.MarketSnapshot,
	reg regime.Label,
	confidence float64,
	multiplier float64,
) (Setup, error) {
	if snap.Entry <= 0 || snap.ATR <= 0 {
		return Setup{}, ErrBadSnapshot
	}

	stop, target := e.levels(dir, snap, reg)
	stopDistance := math.Abs(snap.Entry - stop)

	if stopDistance <= 0 || stopDistance < e.cfg.MinStopDistance {
		return Setup{}, ErrStopTooTight
	}

	riskPct := e.baseRiskPct(reg, confidence) * multiplier
	if riskPct > e.cfg.MaxRiskPct {
		riskPct = e.cfg.MaxRiskPct
	}

	riskAmount := snap.Balance * riskPct / 100
	if riskAmount <= 0 {
		return Setup{}, ErrZeroRisk
	}

	contractSize := snap.ContractSize
	if contractSize <= 0 {
		contractSize = e.cfg.ContractSize
	}

	lots := riskAmount / (stopDistance * contractSize)
	lots = math.Floor(lots/e.cfg.LotStep) * e.cfg.LotStep
	if lots < e.cfg.MinLot {
		return Setup{}, ErrLotTooSmall
	}
	if lots > e.cfg.MaxLot {
		lots = e.cfg.MaxLot
	}

	return Setup{
		Entry:            snap.Entry,
		Stop:             stop,
		Target:           target,
		StopDistance:     stopDistance,
		Lots:             lots,
		RiskAmount:       lots * stopDistance * contractSize,
		RiskPctEffective: riskPct,
		RRRatio:          math.Abs(target-snap.Entry) / stopDistance,
	}, nil
}

// levels places the stop behind recent swing structure with an ATR
// buffer, falling back to a pure ATR stop when structure is missing or
// on the wrong side of entry, then caps the distance at a fraction of
// price. The target is a reward multiple of the stop distance, wider
// in a strong trend.
func (e *Engine) levels(dir forecast.Direction, snap forecast.MarketSnapshot, reg regime.Label) (stop, target float64) {
	buffer := e.cfg.ATRStopBuffer * snap.ATR
	fallback := e.cfg.ATRStopFallback * snap.ATR
	maxDistance := e.cfg.MaxStopPct * snap.Entry

	reward := e.cfg.RewardMultiple
	if reg == regime.StrongTrend {
		reward = e.cfg.TrendRewardMult
	}

	if dir == forecast.DirectionUp {
		stop = snap.SwingLow - buffer
		if snap.SwingLow <= 0 || stop >= snap.Entry {
			stop = snap.Entry - fallback
		}
		if snap.Entry-stop > maxDistance {
			stop = snap.Entry - maxDistance
		}
		target = snap.Entry + reward*(snap.Entry-stop)
		return stop, target
	}

	stop = snap.SwingHigh + buffer
	if snap.SwingHigh <= 0 || stop <= snap.Entry {
		stop = snap.Entry + fallback
	}
	if stop-snap.Entry > maxDistance {
		stop = snap.Entry + maxDistance
	}
	target = snap.Entry - reward*(stop-snap.Entry)
	return stop, target
}

// baseRiskPct scales the configured base risk by regime quality and
// model confidence.
func (e *Engine) baseRiskPct(reg regime.Label, confidence float64) float64 {
	pct := e.cfg.BaseRiskPct

	switch reg {
	case regime.StrongTrend:
		// full risk
	case regime.WeakTrend:
		pct *= 0.8
	case regime.Range:
		pct *= 0.5
	default:
		pct *= 0.5
	}

	if confidence > 0.75 {
		pct *= 1.1
	} else if confidence < 0.55 {
		pct *= 0.8
	}

	return pct
}
