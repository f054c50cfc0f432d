package decision

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
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

var fixedNow = time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)

type stubForecasts struct {
	fc        forecast.Forecast
	err       error
	failFirst bool
	calls     int
	panics    bool
}

func (s *stubForecasts) GetForecast(ctx context.Context, tf timeframe.Timeframe, cycleID string) (forecast.Forecast, error) {
	s.calls++
	if s.panics {
		panic("model adapter blew up")
	}
	if s.err != nil {
		return forecast.Forecast{}, s.err
	}
	if s.failFirst && s.calls == 1 {
		return forecast.Forecast{}, errors.New("transient")
	}
	return s.fc, nil
}

type stubRegimes struct {
	label regime.Label
	err   error
}

func (s *stubRegimes) GetRegime(ctx context.Context, tf timeframe.Timeframe, cycleID string) (regime.Label, error) {
	return s.label, s.err
}

type stubMarket struct {
	snap forecast.MarketSnapshot
	err  error
}

func (s *stubMarket) GetSnapshot(ctx context.Context, tf timeframe.Timeframe, cycleID string) (forecast.MarketSnapshot, error) {
	return s.snap, s.err
}

type stubNewsGate struct {
	state news.BlockState
}

func (s *stubNewsGate) Status(now time.Time, reg regime.Label, volRatio float64) (news.BlockState, []news.ActiveBlock) {
	return s.state, nil
}

type fixture struct {
	forecasts *stubForecasts
	regimes   *stubRegimes
	market    *stubMarket
	newsGate  *stubNewsGate
	cfg       Config
}

func newFixture() *fixture {
	return &fixture{
		forecasts: &stubForecasts{fc: forecast.Forecast{
			Direction:            forecast.DirectionUp,
			RawConfidence:        0.70,
			CalibratedConfidence: 0.70,
			CandleTime:           fixedNow,
		}},
		regimes: &stubRegimes{label: regime.StrongTrend},
		market: &stubMarket{snap: forecast.MarketSnapshot{
			Entry:        2400.0,
			ATR:          10.0,
			ATRRatio:     1.0,
			SwingHigh:    2415.0,
			SwingLow:     2390.0,
			Balance:      10000.0,
			ContractSize: 100,
		}},
		newsGate: &stubNewsGate{},
		cfg:      DefaultConfig(),
	}
}

func (f *fixture) engine() *Engine {
	e := NewEngine(
		f.cfg,
		drift.DefaultThresholds(),
		f.forecasts,
		f.regimes,
		f.market,
		f.newsGate,
		risk.NewEngine(risk.DefaultConfig()),
		zerolog.Nop(),
	)
	e.SetClock(func() time.Time { return fixedNow })
	return e
}

func (f *fixture) evaluate(t *testing.T, parent *htf.ParentView) Verdict {
	t.Helper()
	return f.engine().Evaluate(context.Background(), Request{
		Timeframe: timeframe.TF1h,
		CycleID:   "cycle-1",
		Parent:    parent,
	})
}

func TestEvaluateAdmits(t *testing.T) {
	f := newFixture()
	v := f.evaluate(t, nil)

	if v.Decision != Trade {
		t.Fatalf("Decision = %v (%v), want TRADE", v.Decision, v.ReasonCode)
	}
	if v.ReasonCode != "" {
		t.Errorf("ReasonCode = %v, want empty", v.ReasonCode)
	}
	if v.RiskMultiplier != 1.0 {
		t.Errorf("RiskMultiplier = %v, want 1.0", v.RiskMultiplier)
	}
	if v.Setup.Lots <= 0 {
		t.Errorf("Setup.Lots = %v, want > 0", v.Setup.Lots)
	}
}

func TestGatePriorities(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*fixture)
		parent *htf.ParentView
		want   ReasonCode
	}{
		{
			name:   "model failure",
			mutate: func(f *fixture) { f.forecasts.err = errors.New("down") },
			want:   ReasonModelUnavailable,
		},
		{
			name:   "regime failure",
			mutate: func(f *fixture) { f.regimes.err = errors.New("down") },
			want:   ReasonRegimeUnavailable,
		},
		{
			name:   "market data failure",
			mutate: func(f *fixture) { f.market.err = errors.New("down") },
			want:   ReasonMarketDataUnavailable,
		},
		{
			name: "news block beats drift critical",
			mutate: func(f *fixture) {
				f.newsGate.state = news.BlockState{Blocked: true, Phase: news.PhaseCooldown}
				f.forecasts.fc.RawConfidence = 0.99
				f.forecasts.fc.CalibratedConfidence = 0.60
			},
			want: ReasonHighImpactNews,
		},
		{
			name: "drift critical",
			mutate: func(f *fixture) {
				f.forecasts.fc.RawConfidence = 0.99
				f.forecasts.fc.CalibratedConfidence = 0.60
			},
			want: ReasonCalibrationUnstable,
		},
		{
			name: "hard conflict overrides extreme confidence",
			mutate: func(f *fixture) {
				f.forecasts.fc.RawConfidence = 0.99
				f.forecasts.fc.CalibratedConfidence = 0.99
			},
			parent: &htf.ParentView{
				Timeframe: timeframe.TF4h,
				Direction: forecast.DirectionDown,
				Regime:    regime.StrongTrend,
			},
			want: ReasonHTFConflict,
		},
		{
			name: "confidence below threshold",
			mutate: func(f *fixture) {
				f.forecasts.fc.RawConfidence = 0.60
				f.forecasts.fc.CalibratedConfidence = 0.60
			},
			want: ReasonLowConfidence,
		},
		{
			name:   "missing threshold is a config failure",
			mutate: func(f *fixture) { delete(f.cfg.MinConfidence, timeframe.TF1h) },
			want:   ReasonConfigError,
		},
		{
			name:   "range market",
			mutate: func(f *fixture) { f.regimes.label = regime.Range },
			want:   ReasonRangeMarket,
		},
		{
			name:   "chaotic regime",
			mutate: func(f *fixture) { f.regimes.label = regime.Chaotic },
			want:   ReasonHighVolatility,
		},
		{
			name:   "unknown regime",
			mutate: func(f *fixture) { f.regimes.label = regime.Unknown },
			want:   ReasonRegimeFilter,
		},
		{
			name: "dead market",
			mutate: func(f *fixture) {
				f.cfg.MinATR = map[timeframe.Timeframe]float64{timeframe.TF1h: 20.0}
			},
			want: ReasonLowVolatility,
		},
		{
			name: "stop too tight",
			mutate: func(f *fixture) {
				f.market.snap.ATR = 0.2
				f.market.snap.SwingLow = f.market.snap.Entry - 0.3
			},
			want: ReasonStopTooTight,
		},
		{
			name:   "zero balance",
			mutate: func(f *fixture) { f.market.snap.Balance = 0 },
			want:   ReasonZeroRisk,
		},
		{
			name: "reward to risk below floor",
			mutate: func(f *fixture) {
				f.cfg.MinRR = 2.5
				f.regimes.label = regime.WeakTrend // reward multiple 2.0
			},
			want: ReasonBadRR,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.mutate(f)
			v := f.evaluate(t, tt.parent)
			if v.Decision != NoTrade {
				t.Fatalf("Decision = %v, want NO_TRADE", v.Decision)
			}
			if v.ReasonCode != tt.want {
				t.Errorf("ReasonCode = %v, want %v", v.ReasonCode, tt.want)
			}
		})
	}
}

func TestUnknownTimeframeIsConfigError(t *testing.T) {
	f := newFixture()
	v := f.engine().Evaluate(context.Background(), Request{
		Timeframe: "5m",
		CycleID:   "cycle-1",
	})

	if v.ReasonCode != ReasonConfigError {
		t.Fatalf("reason = %v, want CONFIG_ERROR", v.ReasonCode)
	}
	// The regime field must hold an enum value even when evaluation
	// stops before the regime provider is consulted.
	if v.Regime != regime.Unknown {
		t.Errorf("regime = %q, want %q", v.Regime, regime.Unknown)
	}
}

func TestMultipliersCompound(t *testing.T) {
	f := newFixture()
	// Warning-level drift halves risk, soft conflict halves again.
	f.forecasts.fc.RawConfidence = 0.90
	f.forecasts.fc.CalibratedConfidence = 0.70
	f.regimes.label = regime.WeakTrend

	v := f.evaluate(t, &htf.ParentView{
		Timeframe: timeframe.TF4h,
		Direction: forecast.DirectionDown,
		Regime:    regime.WeakTrend,
	})

	if v.Decision != Trade {
		t.Fatalf("Decision = %v (%v), want TRADE", v.Decision, v.ReasonCode)
	}
	if v.RiskMultiplier != 0.25 {
		t.Errorf("RiskMultiplier = %v, want 0.25", v.RiskMultiplier)
	}
	if len(v.AuditTags) != 1 || v.AuditTags[0] != ReasonCalibrationWarning {
		t.Errorf("AuditTags = %v, want [CALIBRATION_WARNING]", v.AuditTags)
	}
}

func TestMultiplierFloor(t *testing.T) {
	f := newFixture()
	f.cfg.MinRiskMultiplier = 0.3
	f.forecasts.fc.RawConfidence = 0.90
	f.forecasts.fc.CalibratedConfidence = 0.70

	v := f.evaluate(t, &htf.ParentView{
		Timeframe: timeframe.TF4h,
		Direction: forecast.DirectionDown,
		Regime:    regime.WeakTrend,
	})

	if v.ReasonCode != ReasonRiskTooLow {
		t.Errorf("ReasonCode = %v, want RISK_TOO_LOW", v.ReasonCode)
	}
}

func TestForecastRetriesOnce(t *testing.T) {
	f := newFixture()
	f.forecasts.failFirst = true

	v := f.evaluate(t, nil)
	if v.Decision != Trade {
		t.Fatalf("Decision = %v (%v), want TRADE after retry", v.Decision, v.ReasonCode)
	}
	if f.forecasts.calls != 2 {
		t.Errorf("forecast calls = %d, want 2", f.forecasts.calls)
	}
}

func TestPanicBecomesEngineError(t *testing.T) {
	f := newFixture()
	f.forecasts.panics = true

	v := f.evaluate(t, nil)
	if v.Decision != NoTrade || v.ReasonCode != ReasonEngineError {
		t.Fatalf("verdict = (%v, %v), want (NO_TRADE, ENGINE_ERROR)", v.Decision, v.ReasonCode)
	}
	if v.CycleID != "cycle-1" || v.Timeframe != timeframe.TF1h {
		t.Errorf("identity fields lost: %+v", v)
	}
}

func TestVerdictJSONIsStable(t *testing.T) {
	f := newFixture()

	first, err := json.Marshal(f.evaluate(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	second, err := json.Marshal(f.evaluate(t, nil))
	if err != nil {
		t.Fatal(err)
	}
	if string(first) != string(second) {
		t.Errorf("audit JSON differs across identical evaluations:\n%s\n%s", first, second)
	}
}
