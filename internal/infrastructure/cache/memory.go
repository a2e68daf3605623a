package cache

import (
	"context"
	"sync"
	"time"

	"github.com/curi/backend/internal/domain"
)

// memoryItem is a single entry in the fast tier with its expiration
type memoryItem struct {
	data       []byte
	expiration time.Time
}

// MemoryTier is the fast tier: a thread-safe in-memory store with TTL
// support. Expired entries are treated as misses immediately and swept by a
// background cleanup goroutine; until swept they can still serve stale
// last-known-good reads.
type MemoryTier struct {
	data  map[string]memoryItem
	mutex sync.RWMutex
	done  chan struct{}
	once  sync.Once
}

// NewMemoryTier creates a new in-memory cache tier. cleanupPeriod controls
// how often expired entries are swept; zero disables the sweeper.
func NewMemoryTier(cleanupPeriod time.Duration) *MemoryTier {
	tier := &MemoryTier{
		data: make(map[string]memoryItem),
		done: make(chan struct{}),
	}

	if cleanupPeriod > 0 {
		go tier.sweepExpired(cleanupPeriod)
	}

	return tier
}

// Name returns the tier identifier used in logs and stats.
func (t *MemoryTier) Name() string { return "memory" }

// Available always reports true: the fast tier has no external dependency.
func (t *MemoryTier) Available() bool { return true }

// Get retrieves a value, treating expired entries as misses.
func (t *MemoryTier) Get(ctx context.Context, key string) ([]byte, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	item, exists := t.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	if time.Now().After(item.expiration) {
		return nil, domain.ErrCacheMiss
	}

	return item.data, nil
}

// GetStale retrieves a value even when its TTL has elapsed, as long as the
// sweeper has not removed it yet.
func (t *MemoryTier) GetStale(ctx context.Context, key string) ([]byte, error) {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	item, exists := t.data[key]
	if !exists {
		return nil, domain.ErrCacheMiss
	}

	return item.data, nil
}

// Set stores a value with TTL.
func (t *MemoryTier) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	// Copy so callers can reuse their buffer
	stored := make([]byte, len(data))
	copy(stored, data)

	t.data[key] = memoryItem{
		data:       stored,
		expiration: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a value.
func (t *MemoryTier) Delete(ctx context.Context, key string) error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	delete(t.data, key)
	return nil
}

// Cleanup removes expired entries and returns how many were removed.
func (t *MemoryTier) Cleanup(ctx context.Context) (int, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	removed := 0
	now := time.Now()
	for key, item := range t.data {
		if now.After(item.expiration) {
			delete(t.data, key)
			removed++
		}
	}

	return removed, nil
}

// Len returns the number of live (unexpired) entries.
func (t *MemoryTier) Len(ctx context.Context) int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	now := time.Now()
	count := 0
	for _, item := range t.data {
		if now.Before(item.expiration) {
			count++
		}
	}
	return count
}

// Close stops the background sweeper.
func (t *MemoryTier) Close() {
	t.once.Do(func() { close(t.done) })
}

// sweepExpired removes expired entries from the cache periodically
func (t *MemoryTier) sweepExpired(period time.Duration) {
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			t.Cleanup(context.Background())
		case <-t.done:
			return
		}
	}
}
