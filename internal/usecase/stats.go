package usecase

import (
	"context"
	"sync"

	"github.com/curi/backend/internal/domain"
)

// ProviderStats are the per-provider counters for one data source.
type ProviderStats struct {
	Calls     int64 `json:"calls"`
	Successes int64 `json:"successes"`
	Failures  int64 `json:"failures"`
}

// StatsCollector aggregates request outcomes across all components. It is an
// explicit shared object passed to whoever records an outcome; counters
// reset on process restart and are never persisted.
type StatsCollector struct {
	mutex         sync.RWMutex
	providers     map[string]*ProviderStats
	cacheHits     int64
	cacheMisses   int64
	totalRequests int64
}

// StatsSnapshot is a read-only copy of the collector state plus derived
// values for the operational endpoints.
type StatsSnapshot struct {
	Providers     map[string]ProviderStats `json:"providers"`
	CacheHits     int64                    `json:"cacheHits"`
	CacheMisses   int64                    `json:"cacheMisses"`
	TotalRequests int64                    `json:"totalRequests"`
	CacheHitRate  float64                  `json:"cacheHitRate"`
	Tiers         []domain.TierStatus      `json:"tiers,omitempty"`
}

// NewStatsCollector creates an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		providers: make(map[string]*ProviderStats),
	}
}

// RecordRequest counts one inbound search request.
func (s *StatsCollector) RecordRequest() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.totalRequests++
}

// RecordCacheHit counts a request served from cache.
func (s *StatsCollector) RecordCacheHit() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cacheHits++
}

// RecordCacheMiss counts a request that fell through to the providers.
func (s *StatsCollector) RecordCacheMiss() {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.cacheMisses++
}

// RecordCall counts a provider attempt, regardless of its outcome.
func (s *StatsCollector) RecordCall(provider string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counters(provider).Calls++
}

// RecordSuccess counts a provider attempt that returned results.
func (s *StatsCollector) RecordSuccess(provider string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counters(provider).Successes++
}

// RecordFailure counts a provider attempt that failed.
func (s *StatsCollector) RecordFailure(provider string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	s.counters(provider).Failures++
}

// counters returns the stats for a provider, creating them on first use.
// Callers must hold the write lock.
func (s *StatsCollector) counters(provider string) *ProviderStats {
	stats, ok := s.providers[provider]
	if !ok {
		stats = &ProviderStats{}
		s.providers[provider] = stats
	}
	return stats
}

// Snapshot returns a copy of all counters with the derived hit rate
// (0 when no requests have been seen) and, when a cache is supplied, the
// current tier availability.
func (s *StatsCollector) Snapshot(ctx context.Context, tiered domain.CacheRepository) StatsSnapshot {
	s.mutex.RLock()

	snapshot := StatsSnapshot{
		Providers:     make(map[string]ProviderStats, len(s.providers)),
		CacheHits:     s.cacheHits,
		CacheMisses:   s.cacheMisses,
		TotalRequests: s.totalRequests,
	}
	for name, stats := range s.providers {
		snapshot.Providers[name] = *stats
	}

	if snapshot.TotalRequests > 0 {
		snapshot.CacheHitRate = float64(snapshot.CacheHits) / float64(snapshot.TotalRequests)
	}

	s.mutex.RUnlock()

	if tiered != nil {
		snapshot.Tiers = tiered.TierStatuses(ctx)
	}

	return snapshot
}
