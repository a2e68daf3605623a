package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/curi/backend/internal/domain"
)

// FileTier is the backup tier: one JSON file per key under a cache
// directory. Entries carry their own expiry envelope so stale
// last-known-good reads stay possible until cleanup removes them.
type FileTier struct {
	dir       string
	available bool
}

// NewFileTier creates a file-backed tier rooted at dir, creating the
// directory if needed. A directory that cannot be created leaves the tier
// degraded rather than failing construction.
func NewFileTier(dir string) *FileTier {
	tier := &FileTier{dir: dir, available: true}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		log.Printf("[Cache] File tier unavailable: %v", err)
		tier.available = false
	}

	return tier
}

// Name returns the tier identifier used in logs and stats.
func (t *FileTier) Name() string { return "file" }

// Available reports whether the cache directory is usable.
func (t *FileTier) Available() bool { return t.available }

func (t *FileTier) path(key string) string {
	return filepath.Join(t.dir, key+".json")
}

// Get retrieves a value, treating expired entries as misses.
func (t *FileTier) Get(ctx context.Context, key string) ([]byte, error) {
	entry, err := t.readEntry(key)
	if err != nil {
		return nil, err
	}

	if entry.Expired(time.Now()) {
		return nil, domain.ErrCacheMiss
	}

	return entry.Data, nil
}

// GetStale retrieves a value even when its TTL has elapsed.
func (t *FileTier) GetStale(ctx context.Context, key string) ([]byte, error) {
	entry, err := t.readEntry(key)
	if err != nil {
		return nil, err
	}

	return entry.Data, nil
}

func (t *FileTier) readEntry(key string) (*domain.CacheEntry, error) {
	if !t.available {
		return nil, domain.ErrCacheTierUnavailable
	}

	raw, err := os.ReadFile(t.path(key))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrCacheMiss
		}
		return nil, fmt.Errorf("%w: file: %v", domain.ErrCacheTierUnavailable, err)
	}

	var entry domain.CacheEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		// Corrupt entry; drop it and report a miss
		os.Remove(t.path(key))
		return nil, domain.ErrCacheMiss
	}

	return &entry, nil
}

// Set stores a value with its expiry envelope.
func (t *FileTier) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if !t.available {
		return domain.ErrCacheTierUnavailable
	}

	now := time.Now()
	entry := domain.CacheEntry{
		Data:      data,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Write to a temp file then rename so readers never see a partial entry
	tmp, err := os.CreateTemp(t.dir, "entry-*.tmp")
	if err != nil {
		return fmt.Errorf("%w: file: %v", domain.ErrCacheTierUnavailable, err)
	}

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: file: %v", domain.ErrCacheTierUnavailable, err)
	}
	tmp.Close()

	if err := os.Rename(tmp.Name(), t.path(key)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("%w: file: %v", domain.ErrCacheTierUnavailable, err)
	}

	return nil
}

// Delete removes a value.
func (t *FileTier) Delete(ctx context.Context, key string) error {
	if !t.available {
		return domain.ErrCacheTierUnavailable
	}

	if err := os.Remove(t.path(key)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("%w: file: %v", domain.ErrCacheTierUnavailable, err)
	}
	return nil
}

// Cleanup removes expired entries and returns how many were removed.
func (t *FileTier) Cleanup(ctx context.Context) (int, error) {
	if !t.available {
		return 0, domain.ErrCacheTierUnavailable
	}

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return 0, fmt.Errorf("%w: file: %v", domain.ErrCacheTierUnavailable, err)
	}

	removed := 0
	now := time.Now()
	for _, dirEntry := range entries {
		if dirEntry.IsDir() || !strings.HasSuffix(dirEntry.Name(), ".json") {
			continue
		}

		path := filepath.Join(t.dir, dirEntry.Name())
		raw, err := os.ReadFile(path)
		if err != nil {
			continue
		}

		var entry domain.CacheEntry
		if err := json.Unmarshal(raw, &entry); err != nil || entry.Expired(now) {
			if os.Remove(path) == nil {
				removed++
			}
		}
	}

	return removed, nil
}

// Len returns the number of entry files, expired or not.
func (t *FileTier) Len(ctx context.Context) int {
	if !t.available {
		return 0
	}

	entries, err := os.ReadDir(t.dir)
	if err != nil {
		return 0
	}

	count := 0
	for _, dirEntry := range entries {
		if !dirEntry.IsDir() && strings.HasSuffix(dirEntry.Name(), ".json") {
			count++
		}
	}
	return count
}
