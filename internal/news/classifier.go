package news

import "time"

// Classification grades how actionable a news item is at lookup time.
type Classification string

const (
	LiveEvent    Classification = "LIVE_EVENT"
	StaleContext Classification = "STALE_CONTEXT"
	Expired      Classification = "EXPIRED"
	Unverified   Classification = "UNVERIFIED"
)

// ClassifierConfig bounds how old an item may be before it loses its
// ability to trigger blocks.
type ClassifierConfig struct {
	MaxCacheAge     time.Duration `json:"max_cache_age"`
	RelevanceWindow time.Duration `json:"relevance_window"`
}

// DefaultClassifierConfig returns the production freshness windows.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		MaxCacheAge:     60 * time.Minute,
		RelevanceWindow: 180 * time.Minute,
	}
}

// Classifier decides whether a news item is a live event. It consults
// the shared store's seen-event cache for dedup.
type Classifier struct {
	cfg   ClassifierConfig
	store *Store
}

// NewClassifier creates a freshness classifier over the given store.
func NewClassifier(cfg ClassifierConfig, store *Store) *Classifier {
	return &Classifier{cfg: cfg, store: store}
}

// Classify grades one raw item at the given instant. The check order
// is fixed: timestamp validity, fetch staleness, origin staleness,
// then dedup. Only a LIVE_EVENT result updates the seen cache.
func (c *Classifier) Classify(raw RawItem, now time.Time) (Item, Classification) {
	item, ok := raw.Parse()
	if !ok {
		return item, Unverified
	}

	if now.Sub(item.FetchTime) > c.cfg.MaxCacheAge {
		return item, Expired
	}

	if now.Sub(item.OriginTime) > c.cfg.RelevanceWindow {
		return item, StaleContext
	}

	sig := item.Signature()
	if seen, ok := c.store.SeenOrigin(sig); ok && !seen.Before(item.OriginTime) {
		return item, StaleContext
	}

	c.store.MarkSeen(sig, item.OriginTime)
	return item, LiveEvent
}
