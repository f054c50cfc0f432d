package news

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trade-decision-engine/internal/regime"
)

func newTestBlocker() (*Blocker, *Store) {
	store := NewStore()
	classifier := NewClassifier(DefaultClassifierConfig(), store)
	blocker := NewBlocker(DefaultBlockerConfig(), classifier, store, zerolog.Nop())
	return blocker, store
}

func fomcItem(origin time.Time, fetch time.Time) RawItem {
	return RawItem{
		Headline:   "FOMC decision: Fed holds rates steady",
		Source:     "wire",
		OriginTime: origin.Format(time.RFC3339),
		FetchTime:  fetch.Format(time.RFC3339),
	}
}

func TestBlockLifecycle(t *testing.T) {
	blocker, _ := newTestBlocker()

	origin := time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)
	now := origin.Add(10 * time.Minute)

	created := blocker.Process([]RawItem{fomcItem(origin, origin.Add(5*time.Minute))}, now)
	if len(created) != 1 {
		t.Fatalf("expected 1 block, got %d", len(created))
	}
	if created[0].EventType != EventFOMCDecision {
		t.Fatalf("event type = %v", created[0].EventType)
	}
	wantUntil := origin.Add(150 * time.Minute)
	if !created[0].BlockUntil.Equal(wantUntil) {
		t.Fatalf("BlockUntil = %v, want %v", created[0].BlockUntil, wantUntil)
	}

	// Inside the cooldown window.
	state, _ := blocker.Status(origin.Add(149*time.Minute), regime.WeakTrend, 1.0)
	if !state.Blocked || state.Phase != PhaseCooldown {
		t.Fatalf("at t+149 state = %+v, want cooldown block", state)
	}
	if state.MinutesLeft < 0.9 || state.MinutesLeft > 1.1 {
		t.Errorf("MinutesLeft = %v, want about 1", state.MinutesLeft)
	}

	// Past the window with calm conditions: resume.
	state, expired := blocker.Status(origin.Add(151*time.Minute), regime.WeakTrend, 1.2)
	if state.Blocked {
		t.Fatalf("at t+151 calm state = %+v, want unblocked", state)
	}
	if len(expired) != 1 {
		t.Errorf("expected 1 expired block, got %d", len(expired))
	}
}

func TestVolatilityHoldAfterExpiry(t *testing.T) {
	blocker, _ := newTestBlocker()

	origin := time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)
	blocker.Process([]RawItem{fomcItem(origin, origin.Add(5*time.Minute))}, origin.Add(10*time.Minute))

	// Window passed but volatility still elevated: held, distinct phase.
	state, _ := blocker.Status(origin.Add(151*time.Minute), regime.WeakTrend, 2.0)
	if !state.Blocked || state.Phase != PhaseVolatilityHold {
		t.Fatalf("state = %+v, want volatility hold", state)
	}

	// Hold persists across checks while conditions stay bad, with no new
	// timed window.
	state, _ = blocker.Status(origin.Add(200*time.Minute), regime.Chaotic, 1.0)
	if !state.Blocked || state.Phase != PhaseVolatilityHold {
		t.Fatalf("state = %+v, want volatility hold on chaotic regime", state)
	}

	// Conditions settle: resume.
	state, _ = blocker.Status(origin.Add(240*time.Minute), regime.Range, 1.4)
	if state.Blocked {
		t.Fatalf("state = %+v, want unblocked after confirmation", state)
	}

	// Confirmation is sticky until the next event.
	state, _ = blocker.Status(origin.Add(241*time.Minute), regime.Chaotic, 3.0)
	if state.Blocked {
		t.Fatalf("state = %+v, want unblocked after prior confirmation", state)
	}
}

func TestDuplicateEventSuppressed(t *testing.T) {
	blocker, store := newTestBlocker()

	origin := time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)
	now := origin.Add(10 * time.Minute)

	first := fomcItem(origin, origin.Add(5*time.Minute))
	second := RawItem{
		Headline:   "FOMC decision shocks markets",
		Source:     "other-wire",
		OriginTime: origin.Add(20 * time.Minute).Format(time.RFC3339),
		FetchTime:  origin.Add(25 * time.Minute).Format(time.RFC3339),
	}

	blocker.Process([]RawItem{first}, now)
	created := blocker.Process([]RawItem{second}, origin.Add(30*time.Minute))
	if len(created) != 0 {
		t.Fatalf("expected duplicate suppression, got %d new blocks", len(created))
	}
	if got := len(store.Blocks()); got != 1 {
		t.Errorf("active blocks = %d, want 1", got)
	}
}

func TestMediumImpactDoesNotBlock(t *testing.T) {
	blocker, store := newTestBlocker()

	origin := time.Date(2025, 3, 19, 18, 0, 0, 0, time.UTC)
	item := RawItem{
		Headline:   "Analyst says Fed expected to hold rates",
		Source:     "blog",
		OriginTime: origin.Format(time.RFC3339),
		FetchTime:  origin.Add(5 * time.Minute).Format(time.RFC3339),
	}

	created := blocker.Process([]RawItem{item}, origin.Add(10*time.Minute))
	if len(created) != 0 {
		t.Fatalf("commentary created a block: %+v", created)
	}
	if got := len(store.Blocks()); got != 0 {
		t.Errorf("active blocks = %d, want 0", got)
	}
}

func TestClassifyHeadline(t *testing.T) {
	tests := []struct {
		headline   string
		wantType   EventType
		wantImpact Impact
	}{
		{"FOMC decision: Fed cuts rates by 25bps", EventFOMCDecision, ImpactHigh},
		{"Powell speaks at Jackson Hole", EventFOMCSpeech, ImpactHigh},
		{"CPI rises 0.4% in February", EventCPI, ImpactHigh},
		{"Nonfarm payrolls smash estimates", EventNFP, ImpactHigh},
		{"PCE index cools slightly", EventPCE, ImpactHigh},
		{"Fed signals patience on rate path", EventFedSignals, ImpactHigh},
		{"Analyst says CPI could surprise", EventCPI, ImpactMedium},
		{"Gold steadies ahead of weekend", EventGeneric, ImpactLow},
	}

	for _, tt := range tests {
		t.Run(tt.headline, func(t *testing.T) {
			et, impact := ClassifyHeadline(tt.headline)
			if et != tt.wantType || impact != tt.wantImpact {
				t.Errorf("ClassifyHeadline() = (%v, %v), want (%v, %v)", et, impact, tt.wantType, tt.wantImpact)
			}
		})
	}
}
