package news

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	// newsStateKey holds the serialized news state snapshot.
	newsStateKey = "decision:news:state"

	// newsStateTTL keeps the snapshot past the longest cooldown window
	// so a restart within a block never forgets it.
	newsStateTTL = 24 * time.Hour
)

// RedisPersistence snapshots the news store to Redis so blocks and the
// seen-event cache survive restarts. When Redis is unavailable the
// store keeps running from memory and persistence is skipped.
type RedisPersistence struct {
	client         *redis.Client
	store          *Store
	logger         zerolog.Logger
	redisAvailable atomic.Bool
}

// NewRedisPersistence creates the persistence layer. A nil client means
// memory-only operation.
func NewRedisPersistence(client *redis.Client, store *Store, logger zerolog.Logger) *RedisPersistence {
	p := &RedisPersistence{
		client: client,
		store:  store,
		logger: logger.With().Str("component", "news_persistence").Logger(),
	}

	if client != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			p.logger.Warn().Err(err).Msg("redis unavailable at startup, news state is memory-only")
		} else {
			p.redisAvailable.Store(true)
			p.logger.Info().Msg("redis connected for news state")
		}
	} else {
		p.logger.Info().Msg("no redis client, news state is memory-only")
	}

	return p
}

// Save writes the current store snapshot to Redis.
func (p *RedisPersistence) Save(ctx context.Context) error {
	if p.client == nil {
		return nil
	}

	data, err := json.Marshal(p.store.Snapshot())
	if err != nil {
		return fmt.Errorf("marshal news state: %w", err)
	}

	if err := p.client.Set(ctx, newsStateKey, data, newsStateTTL).Err(); err != nil {
		if p.redisAvailable.Swap(false) {
			p.logger.Warn().Err(err).Msg("redis write failed, news state is memory-only")
		}
		return fmt.Errorf("save news state: %w", err)
	}

	if !p.redisAvailable.Swap(true) {
		p.logger.Info().Msg("redis recovered for news state")
	}
	return nil
}

// Load restores the store from the last snapshot if one exists. It
// reports whether a snapshot was found.
func (p *RedisPersistence) Load(ctx context.Context) (bool, error) {
	if p.client == nil {
		return false, nil
	}

	data, err := p.client.Get(ctx, newsStateKey).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("load news state: %w", err)
	}

	var state StoreState
	if err := json.Unmarshal(data, &state); err != nil {
		return false, fmt.Errorf("unmarshal news state: %w", err)
	}

	p.store.Restore(state)
	p.logger.Info().
		Int("blocks", len(state.Blocks)).
		Int("seen_events", len(state.Seen)).
		Msg("news state restored from redis")
	return true, nil
}

// Available reports whether the last Redis operation succeeded.
func (p *RedisPersistence) Available() bool {
	return p.redisAvailable.Load()
}
