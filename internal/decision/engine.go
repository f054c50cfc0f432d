package decision

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"trade-decision-engine/internal/drift"
	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/htf"
	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/regime"
	"trade-decision-engine/internal/risk"
	"trade-decision-engine/internal/timeframe"
)

// Config holds the admission thresholds.
type Config struct {
	// MinConfidence maps timeframe to the calibrated confidence floor.
	// A missing entry for an evaluated timeframe is a configuration
	// failure, not a pass.
	MinConfidence map[timeframe.Timeframe]float64 `json:"min_confidence"`

	// MinATR is an optional dead-market floor per timeframe.
	MinATR map[timeframe.Timeframe]float64 `json:"min_atr,omitempty"`

	MinRR             float64       `json:"min_rr"`
	MinRiskMultiplier float64       `json:"min_risk_multiplier"`
	EvalTimeout       time.Duration `json:"eval_timeout"`
}

// DefaultConfig returns the production admission thresholds.
func DefaultConfig() Config {
	return Config{
		MinConfidence: map[timeframe.Timeframe]float64{
			timeframe.TF15m: 0.68,
			timeframe.TF30m: 0.66,
			timeframe.TF1h:  0.64,
			timeframe.TF4h:  0.62,
			timeframe.TF1d:  0.60,
		},
		MinRR:             1.5,
		MinRiskMultiplier: 0.1,
		EvalTimeout:       5 * time.Second,
	}
}

// NewsGate answers whether trading is currently held by news state.
type NewsGate interface {
	Status(now time.Time, reg regime.Label, volRatio float64) (news.BlockState, []news.ActiveBlock)
}

// Request identifies one evaluation within a cycle. Parent carries the
// already-evaluated parent timeframe's view, nil for the coarsest
// timeframe or when the parent was unavailable this cycle.
type Request struct {
	Timeframe timeframe.Timeframe
	CycleID   string
	Parent    *htf.ParentView
}

// Engine runs the ordered admission pipeline. Evaluation is
// deterministic given its inputs and the injected clock, and always
// returns a complete verdict.
type Engine struct {
	cfg       Config
	driftCfg  drift.Thresholds
	forecasts forecast.ForecastProvider
	regimes   forecast.RegimeProvider
	market    forecast.MarketDataProvider
	newsGate  NewsGate
	sizer     *risk.Engine
	logger    zerolog.Logger
	now       func() time.Time
}

// NewEngine wires the admission pipeline.
func NewEngine(
	cfg Config,
	driftCfg drift.Thresholds,
	forecasts forecast.ForecastProvider,
	regimes forecast.RegimeProvider,
	market forecast.MarketDataProvider,
	newsGate NewsGate,
	sizer *risk.Engine,
	logger zerolog.Logger,
) *Engine {
	return &Engine{
		cfg:       cfg,
		driftCfg:  driftCfg,
		forecasts: forecasts,
		regimes:   regimes,
		market:    market,
		newsGate:  newsGate,
		sizer:     sizer,
		logger:    logger.With().Str("component", "decision_engine").Logger(),
		now:       time.Now,
	}
}

// SetClock replaces the engine clock. Used by tests and replay.
func (e *Engine) SetClock(now func() time.Time) {
	e.now = now
}

// Evaluate runs every gate in priority order for one timeframe and
// returns the verdict. It never panics outward and never returns a
// partial verdict: any internal failure becomes a NO_TRADE with a
// reason code.
func (e *Engine) Evaluate(ctx context.Context, req Request) (v Verdict) {
	now := e.now()
	v = Verdict{
		CycleID:        req.CycleID,
		Timeframe:      req.Timeframe,
		EvaluatedAt:    now,
		Decision:       NoTrade,
		Regime:         regime.Unknown,
		RiskMultiplier: 0,
	}

	defer func() {
		if r := recover(); r != nil {
			e.logger.Error().
				Interface("panic", r).
				Str("timeframe", string(req.Timeframe)).
				Str("cycle_id", req.CycleID).
				Msg("evaluation panicked")
			v.Decision = NoTrade
			v.ReasonCode = ReasonEngineError
			v.RiskMultiplier = 0
			v.Setup = TradeSetup{}
		}
	}()

	if !timeframe.Valid(req.Timeframe) {
		v.ReasonCode = ReasonConfigError
		return v
	}

	ctx, cancel := context.WithTimeout(ctx, e.cfg.EvalTimeout)
	defer cancel()

	// Gate 1: upstream availability.
	fc, err := e.fetchForecast(ctx, req)
	if err != nil {
		v.ReasonCode = ReasonModelUnavailable
		return v
	}
	v.Forecast = &fc

	reg, err := e.regimes.GetRegime(ctx, req.Timeframe, req.CycleID)
	if err != nil {
		v.ReasonCode = ReasonRegimeUnavailable
		return v
	}
	v.Regime = reg

	snap, err := e.market.GetSnapshot(ctx, req.Timeframe, req.CycleID)
	if err != nil {
		v.ReasonCode = ReasonMarketDataUnavailable
		return v
	}

	// Gate 2: news block.
	blockState, _ := e.newsGate.Status(now, reg, snap.ATRRatio)
	v.NewsBlock = &blockState
	if blockState.Blocked {
		v.ReasonCode = ReasonHighImpactNews
		return v
	}

	multiplier := 1.0

	// Gates 3 and 4: calibration drift.
	dr := drift.Evaluate(fc.RawConfidence, fc.CalibratedConfidence, e.driftCfg)
	v.Drift = &dr
	switch dr.Level {
	case drift.Critical:
		v.ReasonCode = ReasonCalibrationUnstable
		return v
	case drift.Warning:
		multiplier *= 0.5
		v.AuditTags = append(v.AuditTags, ReasonCalibrationWarning)
	}

	// Gates 5 and 6: higher-timeframe alignment.
	alignment := htf.Check(fc.Direction, req.Parent)
	v.HTF = &alignment
	switch alignment.Status {
	case htf.HardConflict:
		v.ReasonCode = ReasonHTFConflict
		return v
	case htf.SoftConflict:
		multiplier *= 0.5
	}

	// Gate 7: calibrated confidence.
	threshold, ok := e.cfg.MinConfidence[req.Timeframe]
	if !ok {
		v.ReasonCode = ReasonConfigError
		return v
	}
	v.ConfidenceThreshold = threshold
	if fc.CalibratedConfidence < threshold {
		v.ReasonCode = ReasonLowConfidence
		return v
	}

	// Gate 8: regime filter, with the dead-market ATR floor.
	if !reg.Tradeable() {
		v.ReasonCode = regimeReason(reg)
		return v
	}
	if minATR, ok := e.cfg.MinATR[req.Timeframe]; ok && snap.ATR < minATR {
		v.ReasonCode = ReasonLowVolatility
		return v
	}

	// Multiplier floor before sizing.
	if multiplier < e.cfg.MinRiskMultiplier {
		v.ReasonCode = ReasonRiskTooLow
		return v
	}
	v.RiskMultiplier = multiplier

	// Gate 9: sizing and reward-to-risk.
	setup, err := e.sizer.BuildSetup(fc.Direction, snap, reg, fc.CalibratedConfidence, multiplier)
	if err != nil {
		v.RiskMultiplier = 0
		v.ReasonCode = sizingReason(err)
		return v
	}
	if setup.RRRatio < e.cfg.MinRR {
		v.RiskMultiplier = 0
		v.ReasonCode = ReasonBadRR
		return v
	}

	v.Decision = Trade
	v.Setup = setup
	return v
}

// fetchForecast retries the model boundary once. Other collaborators
// get no retry.
func (e *Engine) fetchForecast(ctx context.Context, req Request) (forecast.Forecast, error) {
	fc, err := e.forecasts.GetForecast(ctx, req.Timeframe, req.CycleID)
	if err == nil {
		return fc, nil
	}
	if ctx.Err() != nil {
		return forecast.Forecast{}, err
	}
	e.logger.Warn().Err(err).
		Str("timeframe", string(req.Timeframe)).
		Msg("forecast fetch failed, retrying once")
	return e.forecasts.GetForecast(ctx, req.Timeframe, req.CycleID)
}

func regimeReason(reg regime.Label) ReasonCode {
	switch reg {
	case regime.Range:
		return ReasonRangeMarket
	case regime.HighVolatility, regime.Chaotic:
		return ReasonHighVolatility
	default:
		return ReasonRegimeFilter
	}
}

func sizingReason(err error) ReasonCode {
	switch {
	case errors.Is(err, risk.ErrStopTooTight):
		return ReasonStopTooTight
	case errors.Is(err, risk.ErrLotTooSmall):
		return ReasonLotCalcError
	case errors.Is(err, risk.ErrZeroRisk):
		return ReasonZeroRisk
	case errors.Is(err, risk.ErrBadSnapshot):
		return ReasonMarketDataUnavailable
	default:
		return ReasonLotCalcError
	}
}
