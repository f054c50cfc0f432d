package risk

import (
	"errors"
	"math"
	"testing"

	"trade-decision-engine/internal/forecast"
	"trade-decision-engine/internal/regime"
)

func goldSnapshot() forecast.MarketSnapshot {
	return forecast.MarketSnapshot{
		Entry:        2400.0,
		ATR:          10.0,
		ATRRatio:     1.0,
		SwingHigh:    2415.0,
		SwingLow:     2390.0,
		Balance:      10000.0,
		ContractSize: 100,
	}
}

func TestBuildSetupLong(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := goldSnapshot()

	setup, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 1.0)
	if err != nil {
		t.Fatalf("BuildSetup() error = %v", err)
	}

	// Stop behind swing low minus 0.3 ATR.
	if want := 2390.0 - 3.0; setup.Stop != want {
		t.Errorf("Stop = %v, want %v", setup.Stop, want)
	}
	if want := 13.0; setup.StopDistance != want {
		t.Errorf("StopDistance = %v, want %v", setup.StopDistance, want)
	}
	// Reward multiple 2.0 outside a strong trend.
	if want := 2400.0 + 2*13.0; setup.Target != want {
		t.Errorf("Target = %v, want %v", setup.Target, want)
	}
	if math.Abs(setup.RRRatio-2.0) > 1e-9 {
		t.Errorf("RRRatio = %v, want 2.0", setup.RRRatio)
	}

	// Weak trend risk: 1.0% * 0.8 = 0.8% of 10k = 80; lots = 80/1300
	// floored to 0.06.
	if setup.Lots != 0.06 {
		t.Errorf("Lots = %v, want 0.06", setup.Lots)
	}
}

func TestBuildSetupShortUsesSwingHigh(t *testing.T) {
	e := NewEngine(DefaultConfig())
	setup, err := e.BuildSetup(forecast.DirectionDown, goldSnapshot(), regime.StrongTrend, 0.80, 1.0)
	if err != nil {
		t.Fatalf("BuildSetup() error = %v", err)
	}
	if want := 2415.0 + 3.0; setup.Stop != want {
		t.Errorf("Stop = %v, want %v", setup.Stop, want)
	}
	// Strong trend widens the reward multiple to 3x.
	if want := 2400.0 - 3*18.0; setup.Target != want {
		t.Errorf("Target = %v, want %v", setup.Target, want)
	}
}

func TestBuildSetupFallbackStop(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := goldSnapshot()
	snap.SwingLow = 0 // structure unavailable

	setup, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 1.0)
	if err != nil {
		t.Fatalf("BuildSetup() error = %v", err)
	}
	if want := 2400.0 - 1.5*10.0; setup.Stop != want {
		t.Errorf("Stop = %v, want %v", setup.Stop, want)
	}
}

func TestBuildSetupStopCap(t *testing.T) {
	e := NewEngine(DefaultConfig())
	snap := goldSnapshot()
	snap.SwingLow = 2000.0 // absurdly distant structure
	snap.Balance = 100000.0

	setup, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 1.0)
	if err != nil {
		t.Fatalf("BuildSetup() error = %v", err)
	}
	if want := 0.05 * 2400.0; setup.StopDistance != want {
		t.Errorf("StopDistance = %v, want capped at %v", setup.StopDistance, want)
	}
}

func TestBuildSetupErrors(t *testing.T) {
	e := NewEngine(DefaultConfig())

	t.Run("stop collapses onto entry", func(t *testing.T) {
		snap := goldSnapshot()
		snap.ATR = 0.1
		snap.SwingLow = snap.Entry - 0.02 // stop lands on entry
		_, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 1.0)
		if !errors.Is(err, ErrStopTooTight) {
			t.Errorf("error = %v, want ErrStopTooTight", err)
		}
	})

	t.Run("stop under minimum distance", func(t *testing.T) {
		snap := goldSnapshot()
		snap.ATR = 0.2
		snap.SwingLow = snap.Entry - 0.3
		_, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 1.0)
		if !errors.Is(err, ErrStopTooTight) {
			t.Errorf("error = %v, want ErrStopTooTight", err)
		}
	})

	t.Run("zero balance", func(t *testing.T) {
		snap := goldSnapshot()
		snap.Balance = 0
		_, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 1.0)
		if !errors.Is(err, ErrZeroRisk) {
			t.Errorf("error = %v, want ErrZeroRisk", err)
		}
	})

	t.Run("lot below minimum", func(t *testing.T) {
		snap := goldSnapshot()
		snap.Balance = 50
		_, err := e.BuildSetup(forecast.DirectionUp, snap, regime.WeakTrend, 0.65, 0.1)
		if !errors.Is(err, ErrLotTooSmall) {
			t.Errorf("error = %v, want ErrLotTooSmall", err)
		}
	})

	t.Run("bad snapshot", func(t *testing.T) {
		_, err := e.BuildSetup(forecast.DirectionUp, forecast.MarketSnapshot{}, regime.WeakTrend, 0.65, 1.0)
		if !errors.Is(err, ErrBadSnapshot) {
			t.Errorf("error = %v, want ErrBadSnapshot", err)
		}
	})
}

func TestMaxLotClamp(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg)
	snap := goldSnapshot()
	snap.Balance = 50_000_000

	setup, err := e.BuildSetup(forecast.DirectionUp, snap, regime.StrongTrend, 0.80, 1.0)
	if err != nil {
		t.Fatalf("BuildSetup() error = %v", err)
	}
	if setup.Lots != cfg.MaxLot {
		t.Errorf("Lots = %v, want clamped to %v", setup.Lots, cfg.MaxLot)
	}
}
