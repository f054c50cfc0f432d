package news

import (
	"time"

	"github.com/rs/zerolog"

	"trade-decision-engine/internal/regime"
)

// Phase distinguishes why trading is currently held.
type Phase string

const (
	PhaseCooldown       Phase = "COOLDOWN"
	PhaseVolatilityHold Phase = "VOLATILITY_HOLD"
)

// BlockState is the blocker's answer for one evaluation instant.
type BlockState struct {
	Blocked     bool      `json:"blocked"`
	Phase       Phase     `json:"phase,omitempty"`
	EventType   EventType `json:"event_type,omitempty"`
	Headline    string    `json:"headline,omitempty"`
	BlockUntil  time.Time `json:"block_until,omitempty"`
	MinutesLeft float64   `json:"minutes_left,omitempty"`
}

// BlockerConfig controls post-event resumption.
type BlockerConfig struct {
	MaxVolatilityRatio float64 `json:"max_volatility_ratio"`
}

// DefaultBlockerConfig returns the production resumption settings.
func DefaultBlockerConfig() BlockerConfig {
	return BlockerConfig{MaxVolatilityRatio: 1.5}
}

// Blocker turns live high-impact news into time-bounded trade blocks
// and gates resumption on calm market conditions after blocks expire.
type Blocker struct {
	cfg        BlockerConfig
	classifier *Classifier
	store      *Store
	logger     zerolog.Logger
}

// NewBlocker creates a blocker over the shared news store.
func NewBlocker(cfg BlockerConfig, classifier *Classifier, store *Store, logger zerolog.Logger) *Blocker {
	return &Blocker{
		cfg:        cfg,
		classifier: classifier,
		store:      store,
		logger:     logger.With().Str("component", "news_blocker").Logger(),
	}
}

// Process classifies a batch of raw items and installs blocks for live
// high-impact events. It returns the blocks that were newly created.
func (b *Blocker) Process(items []RawItem, now time.Time) []ActiveBlock {
	var created []ActiveBlock
	for _, raw := range items {
		item, class := b.classifier.Classify(raw, now)
		if class != LiveEvent {
			b.logger.Debug().
				Str("classification", string(class)).
				Str("headline", raw.Headline).
				Msg("news item skipped")
			continue
		}
		if item.Impact != ImpactHigh {
			continue
		}

		block := ActiveBlock{
			EventType:  item.EventType,
			OriginTime: item.OriginTime,
			BlockUntil: item.OriginTime.Add(Cooldown(item.EventType)),
			Headline:   item.Headline,
			Source:     item.Source,
		}
		if !b.store.AddBlock(block) {
			b.logger.Debug().
				Str("event_type", string(item.EventType)).
				Msg("duplicate event suppressed")
			continue
		}

		b.logger.Info().
			Str("event_type", string(item.EventType)).
			Time("block_until", block.BlockUntil).
			Str("headline", item.Headline).
			Msg("news block installed")
		created = append(created, block)
	}
	return created
}

// Prune drops expired blocks and returns them so callers can publish
// their lifecycle ahead of evaluation.
func (b *Blocker) Prune(now time.Time) []ActiveBlock {
	return b.store.Prune(now)
}

// Status reports whether trading is held at the given instant. Expired
// blocks are pruned first and returned so callers can publish their
// lifecycle. After expiry, resumption additionally requires a
// tradeable-or-ranging regime and a volatility ratio at or below the
// configured cap; until then the hold continues under a distinct phase
// with no new timed window.
func (b *Blocker) Status(now time.Time, reg regime.Label, volRatio float64) (BlockState, []ActiveBlock) {
	expired := b.store.Prune(now)
	for _, e := range expired {
		b.logger.Info().
			Str("event_type", string(e.EventType)).
			Msg("news block expired")
	}

	if active := b.store.Blocks(); len(active) > 0 {
		longest := active[0]
		for _, blk := range active[1:] {
			if blk.BlockUntil.After(longest.BlockUntil) {
				longest = blk
			}
		}
		return BlockState{
			Blocked:     true,
			Phase:       PhaseCooldown,
			EventType:   longest.EventType,
			Headline:    longest.Headline,
			BlockUntil:  longest.BlockUntil,
			MinutesLeft: longest.Remaining(now).Minutes(),
		}, expired
	}

	if pending := b.store.PendingConfirmation(); pending != nil {
		if b.volatilityConfirmed(reg, volRatio) {
			b.store.ConfirmResumption()
			b.logger.Info().
				Str("event_type", string(pending.EventType)).
				Float64("volatility_ratio", volRatio).
				Msg("post-event volatility confirmed, trading resumed")
			return BlockState{}, expired
		}
		return BlockState{
			Blocked:   true,
			Phase:     PhaseVolatilityHold,
			EventType: pending.EventType,
			Headline:  pending.Headline,
		}, expired
	}

	return BlockState{}, expired
}

func (b *Blocker) volatilityConfirmed(reg regime.Label, volRatio float64) bool {
	switch reg {
	case regime.StrongTrend, regime.WeakTrend, regime.Range:
	default:
		return false
	}
	return volRatio <= b.cfg.MaxVolatilityRatio
}
