package client

import (
	"context"
	"math"
	"sync"
	"time"

	"tillgate/internal/ratelimit/models"
	psync "tillgate/pkg/platform/sync"
	"tillgate/pkg/platform/middleware/requesttime"
)

// InMemoryStore implements Store with one sliding window per address.
//
// The read-prune-compare-append sequence for a given address is serialized
// by a sharded per-key mutex, so two concurrent requests from one address
// cannot both observe count < max and both be admitted. The table mutex
// only guards map structure and is held briefly.
type InMemoryStore struct {
	locks *psync.ShardedMutex

	mu      sync.RWMutex
	clients map[string]*clientWindow
}

// clientWindow is the per-address aggregate: window timestamps, an optional
// punitive block, and the idle marker read by the sweeper.
type clientWindow struct {
	timestamps   []time.Time
	blockedUntil time.Time // zero when not blocked
	lastTouched  time.Time
}

// pruneExpired drops timestamps at or before the window cutoff. After any
// call the slice holds only instants within (now-window, now].
func (cw *clientWindow) pruneExpired(now time.Time, window time.Duration) {
	cutoff := now.Add(-window)
	i := 0
	for ; i < len(cw.timestamps); i++ {
		if cw.timestamps[i].After(cutoff) {
			break
		}
	}
	cw.timestamps = cw.timestamps[i:]
}

// NewInMemoryStore creates an empty admission table.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		locks:   psync.NewShardedMutex(),
		clients: make(map[string]*clientWindow),
	}
}

// Admit implements the admission check for one address. Blocked addresses
// are rejected without touching the window; a filled window imposes a
// cooldown strictly longer than the window itself.
func (s *InMemoryStore) Admit(ctx context.Context, address string, window time.Duration, maxRequests int, blockFor time.Duration) (*models.Result, error) {
	now := requesttime.Now(ctx)

	s.locks.Lock(address)
	defer s.locks.Unlock(address)

	cw := s.getOrCreate(address)
	cw.lastTouched = now

	if !cw.blockedUntil.IsZero() {
		if cw.blockedUntil.After(now) {
			return &models.Result{
				Allowed:    false,
				Limit:      maxRequests,
				Remaining:  0,
				ResetAt:    cw.blockedUntil,
				RetryAfter: ceilSeconds(cw.blockedUntil.Sub(now)),
				Reason:     models.ReasonBlocked,
			}, nil
		}
		cw.blockedUntil = time.Time{}
	}

	cw.pruneExpired(now, window)

	if len(cw.timestamps) >= maxRequests {
		cw.blockedUntil = now.Add(blockFor)
		return &models.Result{
			Allowed:    false,
			Limit:      maxRequests,
			Remaining:  0,
			ResetAt:    cw.blockedUntil,
			RetryAfter: ceilSeconds(blockFor),
			Reason:     models.ReasonLimitExceeded,
		}, nil
	}

	cw.timestamps = append(cw.timestamps, now)
	return &models.Result{
		Allowed:   true,
		Limit:     maxRequests,
		Remaining: maxRequests - len(cw.timestamps),
		ResetAt:   cw.timestamps[0].Add(window),
	}, nil
}

// Reset removes all state for an address.
func (s *InMemoryStore) Reset(_ context.Context, address string) error {
	s.locks.Lock(address)
	defer s.locks.Unlock(address)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, address)
	return nil
}

// ResetAll clears the whole table.
func (s *InMemoryStore) ResetAll(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clients = make(map[string]*clientWindow)
	return nil
}

// ListBlocked enumerates addresses whose block has not yet elapsed.
func (s *InMemoryStore) ListBlocked(ctx context.Context) ([]models.BlockedClient, error) {
	now := requesttime.Now(ctx)

	var blocked []models.BlockedClient
	for _, address := range s.addresses() {
		s.locks.Lock(address)
		s.mu.RLock()
		cw, ok := s.clients[address]
		var until time.Time
		if ok {
			until = cw.blockedUntil
		}
		s.mu.RUnlock()
		s.locks.Unlock(address)

		if ok && until.After(now) {
			blocked = append(blocked, models.BlockedClient{
				Address:      address,
				BlockedUntil: until,
				RetryAfter:   ceilSeconds(until.Sub(now)),
			})
		}
	}
	return blocked, nil
}

// Sweep evicts entries untouched for longer than retention. Takes the same
// per-address lock as Admit so it cannot race an in-flight check.
func (s *InMemoryStore) Sweep(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := requesttime.Now(ctx).Add(-retention)

	removed := 0
	for _, address := range s.addresses() {
		s.locks.Lock(address)
		s.mu.Lock()
		if cw, ok := s.clients[address]; ok && cw.lastTouched.Before(cutoff) {
			delete(s.clients, address)
			removed++
		}
		s.mu.Unlock()
		s.locks.Unlock(address)
	}
	return removed, nil
}

// Len returns the number of tracked addresses.
func (s *InMemoryStore) Len(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients), nil
}

// getOrCreate must be called with the address's shard lock held.
func (s *InMemoryStore) getOrCreate(address string) *clientWindow {
	s.mu.Lock()
	defer s.mu.Unlock()
	cw, ok := s.clients[address]
	if !ok {
		cw = &clientWindow{}
		s.clients[address] = cw
	}
	return cw
}

func (s *InMemoryStore) addresses() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.clients))
	for address := range s.clients {
		out = append(out, address)
	}
	return out
}

// ceilSeconds rounds a duration up to whole seconds, minimum 0.
func ceilSeconds(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Seconds()))
}
