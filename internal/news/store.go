package news

import (
	"sync"
	"time"
)

// ActiveBlock is a time-bounded trade block caused by one news event.
type ActiveBlock struct {
	EventType  EventType `json:"event_type"`
	OriginTime time.Time `json:"origin_time"`
	BlockUntil time.Time `json:"block_until"`
	Headline   string    `json:"headline"`
	Source     string    `json:"source"`
}

// Remaining returns how long the block has left at the given instant.
func (b ActiveBlock) Remaining(now time.Time) time.Duration {
	if now.After(b.BlockUntil) {
		return 0
	}
	return b.BlockUntil.Sub(now)
}

// duplicateWindow suppresses re-blocking on the same event type when a
// block with a nearby origin already exists.
const duplicateWindow = time.Hour

// StoreState is the serializable snapshot of the news state, used for
// persistence across restarts.
type StoreState struct {
	Seen           map[string]time.Time `json:"seen"`
	Blocks         []ActiveBlock        `json:"blocks"`
	PendingConfirm *ActiveBlock         `json:"pending_confirm,omitempty"`
}

// Store holds all mutable news state: the seen-event cache used for
// dedup, the active block set, and the expired block awaiting
// volatility confirmation. All access goes through one lock.
type Store struct {
	mu             sync.RWMutex
	seen           map[string]time.Time
	blocks         []ActiveBlock
	pendingConfirm *ActiveBlock
}

// NewStore creates an empty news state store.
func NewStore() *Store {
	return &Store{seen: make(map[string]time.Time)}
}

// SeenOrigin returns the latest recorded origin time for a signature.
func (s *Store) SeenOrigin(sig string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.seen[sig]
	return t, ok
}

// MarkSeen records a signature's origin time, keeping the latest.
func (s *Store) MarkSeen(sig string, origin time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prev, ok := s.seen[sig]; !ok || origin.After(prev) {
		s.seen[sig] = origin
	}
}

// AddBlock inserts a block unless one of the same event type already
// exists with an origin within the duplicate window. It reports
// whether the block was added.
func (s *Store) AddBlock(b ActiveBlock) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.blocks {
		if existing.EventType != b.EventType {
			continue
		}
		gap := b.OriginTime.Sub(existing.OriginTime)
		if gap < 0 {
			gap = -gap
		}
		if gap < duplicateWindow {
			return false
		}
	}
	s.blocks = append(s.blocks, b)
	return true
}

// Blocks returns a copy of the active block set.
func (s *Store) Blocks() []ActiveBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ActiveBlock, len(s.blocks))
	copy(out, s.blocks)
	return out
}

// Prune removes blocks whose window has passed and returns them. The
// most recently expired block is parked for volatility confirmation;
// trading does not resume until ConfirmResumption clears it.
func (s *Store) Prune(now time.Time) []ActiveBlock {
	s.mu.Lock()
	defer s.mu.Unlock()

	var expired []ActiveBlock
	kept := s.blocks[:0]
	for _, b := range s.blocks {
		if !now.Before(b.BlockUntil) {
			expired = append(expired, b)
			continue
		}
		kept = append(kept, b)
	}
	s.blocks = kept

	if len(expired) > 0 {
		last := expired[len(expired)-1]
		s.pendingConfirm = &last
	}
	return expired
}

// PendingConfirmation returns the expired block still awaiting
// post-event volatility confirmation, if any.
func (s *Store) PendingConfirmation() *ActiveBlock {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pendingConfirm == nil {
		return nil
	}
	b := *s.pendingConfirm
	return &b
}

// ConfirmResumption clears the pending confirmation marker.
func (s *Store) ConfirmResumption() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pendingConfirm = nil
}

// Snapshot exports the full state for persistence.
func (s *Store) Snapshot() StoreState {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state := StoreState{
		Seen:   make(map[string]time.Time, len(s.seen)),
		Blocks: make([]ActiveBlock, len(s.blocks)),
	}
	for k, v := range s.seen {
		state.Seen[k] = v
	}
	copy(state.Blocks, s.blocks)
	if s.pendingConfirm != nil {
		b := *s.pendingConfirm
		state.PendingConfirm = &b
	}
	return state
}

// Restore replaces the store contents with a persisted snapshot.
func (s *Store) Restore(state StoreState) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seen = make(map[string]time.Time, len(state.Seen))
	for k, v := range state.Seen {
		s.seen[k] = v
	}
	s.blocks = make([]ActiveBlock, len(state.Blocks))
	copy(s.blocks, state.Blocks)
	s.pendingConfirm = nil
	if state.PendingConfirm != nil {
		b := *state.PendingConfirm
		s.pendingConfirm = &b
	}
}
