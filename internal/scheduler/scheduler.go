package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"trade-decision-engine/internal/audit"
	"trade-decision-engine/internal/decision"
	"trade-decision-engine/internal/drift"
	"trade-decision-engine/internal/events"
	"trade-decision-engine/internal/htf"
	"trade-decision-engine/internal/news"
	"trade-decision-engine/internal/timeframe"
)

// NewsFetcher delivers the pre-fetched news batch for a cycle.
type NewsFetcher interface {
	Fetch(ctx context.Context) ([]news.RawItem, error)
}

// Config controls cycle cadence and evaluation parallelism.
type Config struct {
	Interval   time.Duration         `json:"interval"`
	Workers    int                   `json:"workers"`
	Timeframes []timeframe.Timeframe `json:"timeframes"`
}

// DefaultConfig evaluates the full hierarchy every five minutes.
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Minute,
		Workers:    3,
		Timeframes: timeframe.All(),
	}
}

// Scheduler drives evaluation cycles. Within a cycle, coarser
// timeframes are evaluated before finer ones so the HTF check always
// sees its parent's fresh result; timeframes at the same depth share a
// bounded worker pool.
type Scheduler struct {
	cfg      Config
	engine   *decision.Engine
	blocker  *news.Blocker
	fetcher  NewsFetcher
	recorder audit.Recorder
	bus      *events.EventBus
	persist  *news.RedisPersistence
	blockLog func(context.Context, news.ActiveBlock) error
	logger   zerolog.Logger
	now      func() time.Time

	mu     sync.RWMutex
	latest map[timeframe.Timeframe]decision.Verdict
}

// New wires a scheduler. persist may be nil for memory-only news state.
func New(
	cfg Config,
	engine *decision.Engine,
	blocker *news.Blocker,
	fetcher NewsFetcher,
	recorder audit.Recorder,
	bus *events.EventBus,
	persist *news.RedisPersistence,
	logger zerolog.Logger,
) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if len(cfg.Timeframes) == 0 {
		cfg.Timeframes = timeframe.All()
	}
	return &Scheduler{
		cfg:      cfg,
		engine:   engine,
		blocker:  blocker,
		fetcher:  fetcher,
		recorder: recorder,
		bus:      bus,
		persist:  persist,
		logger:   logger.With().Str("component", "scheduler").Logger(),
		now:      time.Now,
		latest:   make(map[timeframe.Timeframe]decision.Verdict),
	}
}

// SetBlockLog installs an optional sink for newly created news blocks,
// used for the durable block log when postgres is enabled.
func (s *Scheduler) SetBlockLog(fn func(context.Context, news.ActiveBlock) error) {
	s.blockLog = fn
}

// SetClock replaces the scheduler clock for tests.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Run executes cycles on the configured interval until ctx is done.
// One cycle runs immediately at startup.
func (s *Scheduler) Run(ctx context.Context) {
	s.RunCycle(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("scheduler stopped")
			return
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle performs one full evaluation pass and returns the verdicts
// keyed by timeframe.
func (s *Scheduler) RunCycle(ctx context.Context) map[timeframe.Timeframe]decision.Verdict {
	cycleID := uuid.New().String()
	start := s.now()
	s.bus.PublishCycle(events.EventCycleStarted, cycleID, 0)
	s.logger.Info().Str("cycle_id", cycleID).Msg("cycle started")

	s.ingestNews(ctx, cycleID)

	results := make(map[timeframe.Timeframe]decision.Verdict, len(s.cfg.Timeframes))
	var resultsMu sync.Mutex

	for _, level := range s.levels() {
		var wg sync.WaitGroup
		sem := make(chan struct{}, s.cfg.Workers)

		for _, tf := range level {
			wg.Add(1)
			sem <- struct{}{}
			go func(tf timeframe.Timeframe) {
				defer wg.Done()
				defer func() { <-sem }()

				resultsMu.Lock()
				parent := parentView(tf, results)
				resultsMu.Unlock()

				v := s.engine.Evaluate(ctx, decision.Request{
					Timeframe: tf,
					CycleID:   cycleID,
					Parent:    parent,
				})

				resultsMu.Lock()
				results[tf] = v
				resultsMu.Unlock()

				s.finishVerdict(ctx, v)
			}(tf)
		}
		wg.Wait()
	}

	if s.persist != nil {
		if err := s.persist.Save(ctx); err != nil {
			s.logger.Warn().Err(err).Msg("news state save failed")
		}
	}

	s.mu.Lock()
	for tf, v := range results {
		s.latest[tf] = v
	}
	s.mu.Unlock()

	s.bus.PublishCycle(events.EventCycleCompleted, cycleID, len(results))
	s.logger.Info().
		Str("cycle_id", cycleID).
		Int("evaluated", len(results)).
		Dur("elapsed", s.now().Sub(start)).
		Msg("cycle completed")
	return results
}

// ingestNews fetches the cycle's news batch and installs blocks. A
// fetch failure leaves existing blocks in force and the cycle proceeds.
func (s *Scheduler) ingestNews(ctx context.Context, cycleID string) {
	now := s.now()
	for _, e := range s.blocker.Prune(now) {
		s.bus.PublishNewsBlock(events.EventNewsBlockExpired, string(e.EventType), e.Headline, e.BlockUntil)
	}

	items, err := s.fetcher.Fetch(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Str("cycle_id", cycleID).Msg("news fetch failed")
		s.bus.PublishError("scheduler", "news fetch failed", err)
		return
	}

	for _, b := range s.blocker.Process(items, now) {
		s.bus.PublishNewsBlock(events.EventNewsBlockCreated, string(b.EventType), b.Headline, b.BlockUntil)
		if s.blockLog != nil {
			if err := s.blockLog(ctx, b); err != nil {
				s.logger.Warn().Err(err).Msg("news block log failed")
			}
		}
	}
}

// finishVerdict records and publishes one verdict.
func (s *Scheduler) finishVerdict(ctx context.Context, v decision.Verdict) {
	if err := s.recorder.Record(ctx, v); err != nil {
		s.logger.Error().Err(err).
			Str("cycle_id", v.CycleID).
			Str("timeframe", string(v.Timeframe)).
			Msg("verdict audit failed")
	}

	var setup map[string]interface{}
	if v.Admitted() {
		setup = map[string]interface{}{
			"direction": string(v.Forecast.Direction),
			"entry":     v.Setup.Entry,
			"stop":      v.Setup.Stop,
			"target":    v.Setup.Target,
			"lots":      v.Setup.Lots,
			"rr_ratio":  v.Setup.RRRatio,
		}
	}
	s.bus.PublishVerdict(v.CycleID, string(v.Timeframe), string(v.Decision), string(v.ReasonCode), v.RiskMultiplier, setup)

	if v.Drift != nil && v.Drift.Level != drift.Safe {
		s.bus.PublishDriftWarning(string(v.Timeframe), v.Drift.DriftPct, string(v.Drift.Level))
	}
}

// levels groups the configured timeframes by hierarchy depth, coarsest
// group first.
func (s *Scheduler) levels() [][]timeframe.Timeframe {
	byRank := make(map[int][]timeframe.Timeframe)
	maxRank := 0
	for _, tf := range s.cfg.Timeframes {
		r := timeframe.Rank(tf)
		byRank[r] = append(byRank[r], tf)
		if r > maxRank {
			maxRank = r
		}
	}

	var out [][]timeframe.Timeframe
	for r := 0; r <= maxRank; r++ {
		if group, ok := byRank[r]; ok {
			out = append(out, group)
		}
	}
	return out
}

// parentView extracts the parent timeframe's direction and regime from
// the results gathered so far. Missing or failed parents yield nil, so
// the alignment check fails open.
func parentView(tf timeframe.Timeframe, results map[timeframe.Timeframe]decision.Verdict) *htf.ParentView {
	parentTF, ok := timeframe.Parent(tf)
	if !ok {
		return nil
	}
	pv, ok := results[parentTF]
	if !ok || pv.Forecast == nil {
		return nil
	}
	return &htf.ParentView{
		Timeframe: parentTF,
		Direction: pv.Forecast.Direction,
		Regime:    pv.Regime,
	}
}

// Latest returns the most recent verdict per timeframe.
func (s *Scheduler) Latest() map[timeframe.Timeframe]decision.Verdict {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[timeframe.Timeframe]decision.Verdict, len(s.latest))
	for tf, v := range s.latest {
		out[tf] = v
	}
	return out
}

// LatestFor returns the most recent verdict for one timeframe.
func (s *Scheduler) LatestFor(tf timeframe.Timeframe) (decision.Verdict, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.latest[tf]
	return v, ok
}
