package scheduler

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-decision-engine/internal/decision"
	"trade-decision-engine/internal/drift"
	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/regime"
	"trade-decision-engine/internal/risk"
	"trade-decision-engine/internal/timeframe"

	evt "trade-decision-engine/internal/events"
)

var fixedNow = time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)

type tfProviders struct {
	directions map[timeframe.Timeframe]forecast.Direction
	regimes    map[timeframe.Timeframe]regime.Label
}

func (p *tfProviders) GetForecast(ctx context.Context, tf timeframe.Timeframe, cycleID string) (forecast.Forecast, error) {
	return forecast.Forecast{
		Direction:            p.directions[tf],
		RawConfidence:        0.70,
		CalibratedConfidence: 0.70,
		CandleTime:           fixedNow,
	}, nil
}

func (p *tfProviders) GetRegime(ctx context.Context, tf timeframe.Timeframe, cycleID string) (regime.Label, error) {
	return p.regimes[tf], nil
}

func (p *tfProviders) GetSnapshot(ctx context.Context, tf timeframe.Timeframe, cycleID string) (forecast.MarketSnapshot, error) {
	return forecast.MarketSnapshot{
		Entry:        2400.0,
		ATR:          10.0,
		ATRRatio:     1.0,
		SwingHigh:    2415.0,
		SwingLow:     2390.0,
		Balance:      10000.0,
		ContractSize: 100,
	}, nil
}

type emptyFetcher struct{}

func (emptyFetcher) Fetch(ctx context.Context) ([]news.RawItem, error) { return nil, nil }

type memRecorder struct {
	mu       sync.Mutex
	verdicts []decision.Verdict
}

func (m *memRecorder) Record(ctx context.Context, v decision.Verdict) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verdicts = append(m.verdicts, v)
	return nil
}

func newTestScheduler(providers *tfProviders) (*Scheduler, *memRecorder) {
	store := news.NewStore()
	classifier := news.NewClassifier(news.DefaultClassifierConfig(), store)
	blocker := news.NewBlocker(news.DefaultBlockerConfig(), classifier, store, zerolog.Nop())

	engine := decision.NewEngine(
		decision.DefaultConfig(),
		drift.DefaultThresholds(),
		providers, providers, providers,
		blocker,
		risk.NewEngine(risk.DefaultConfig()),
		zerolog.Nop(),
	)
	engine.SetClock(func() time.Time { return fixedNow })

	recorder := &memRecorder{}
	cfg := DefaultConfig()
	s := New(cfg, engine, blocker, emptyFetcher{}, recorder, evt.NewEventBus(), nil, zerolog.Nop())
	s.SetClock(func() time.Time { return fixedNow })
	return s, recorder
}

func allUp() *tfProviders {
	p := &tfProviders{
		directions: make(map[timeframe.Timeframe]forecast.Direction),
		regimes:    make(map[timeframe.Timeframe]regime.Label),
	}
	for _, tf := range timeframe.All() {
		p.directions[tf] = forecast.DirectionUp
		p.regimes[tf] = regime.StrongTrend
	}
	return p
}

func TestRunCycleEvaluatesAllTimeframes(t *testing.T) {
	s, recorder := newTestScheduler(allUp())

	results := s.RunCycle(context.Background())
	if len(results) != len(timeframe.All()) {
		t.Fatalf("evaluated %d timeframes, want %d", len(results), len(timeframe.All()))
	}
	for tf, v := range results {
		if v.Decision != decision.Trade {
			t.Errorf("%s: decision = %v (%v), want TRADE", tf, v.Decision, v.ReasonCode)
		}
		if v.CycleID == "" {
			t.Errorf("%s: missing cycle id", tf)
		}
	}
	if len(recorder.verdicts) != len(timeframe.All()) {
		t.Errorf("recorded %d verdicts, want %d", len(recorder.verdicts), len(timeframe.All()))
	}
}

func TestParentEvaluatedBeforeChild(t *testing.T) {
	// The daily timeframe disagrees in a strong trend: every child of
	// the chain below it must see the conflict the same cycle.
	p := allUp()
	p.directions[timeframe.TF1d] = forecast.DirectionDown

	s, _ := newTestScheduler(p)
	results := s.RunCycle(context.Background())

	if results[timeframe.TF1d].Decision != decision.Trade {
		t.Fatalf("1d verdict = %+v, want TRADE", results[timeframe.TF1d])
	}
	if got := results[timeframe.TF4h].ReasonCode; got != decision.ReasonHTFConflict {
		t.Errorf("4h reason = %v, want HTF_CONFLICT", got)
	}
	// 1h agrees with 4h, whose raw direction is still UP.
	if results[timeframe.TF1h].Decision != decision.Trade {
		t.Errorf("1h verdict = %v (%v), want TRADE", results[timeframe.TF1h].Decision, results[timeframe.TF1h].ReasonCode)
	}
}

func TestLatestUpdatedAfterCycle(t *testing.T) {
	s, _ := newTestScheduler(allUp())
	s.RunCycle(context.Background())

	if got := len(s.Latest()); got != len(timeframe.All()) {
		t.Fatalf("Latest() has %d entries, want %d", got, len(timeframe.All()))
	}
	if _, ok := s.LatestFor(timeframe.TF1h); !ok {
		t.Error("LatestFor(1h) missing")
	}
}
