package usecase

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/curi/backend/internal/domain"
)

// PrefetchConfig holds the cache warmup schedule.
type PrefetchConfig struct {
	Interval time.Duration
	MaxCycle time.Duration
	Limit    int
	Queries  []string
}

// PrefetchScheduler keeps the cache warm by re-running a fixed list of
// popular queries on an interval. Cycles never overlap: a new one starts
// only after the previous one finished or hit its deadline. The scheduler
// holds no lock that foreground requests contend on; the normal caching
// path does the writing.
type PrefetchScheduler struct {
	router   *DataSourceRouter
	interval time.Duration
	maxCycle time.Duration
	limit    int
	queries  []string

	cycleMu  sync.Mutex // held for the duration of one cycle
	stateMu  sync.RWMutex
	running  bool
	lastRun  time.Time
	lastErrs int

	cancel context.CancelFunc
	done   chan struct{}
}

// PrefetchStatus is the scheduler state reported by the status endpoint.
type PrefetchStatus struct {
	Running      bool      `json:"running"`
	LastRun      time.Time `json:"lastRun,omitzero"`
	LastFailures int       `json:"lastFailures"`
	Interval     string    `json:"interval"`
	Queries      int       `json:"queries"`
}

// NewPrefetchScheduler creates a scheduler over the router. Defaults:
// 4 hour interval, 5 minute cycle deadline, 50 results per query.
func NewPrefetchScheduler(router *DataSourceRouter, cfg PrefetchConfig) *PrefetchScheduler {
	interval := cfg.Interval
	if interval == 0 {
		interval = 4 * time.Hour
	}
	maxCycle := cfg.MaxCycle
	if maxCycle == 0 {
		maxCycle = 5 * time.Minute
	}
	limit := cfg.Limit
	if limit == 0 {
		limit = 50
	}

	return &PrefetchScheduler{
		router:   router,
		interval: interval,
		maxCycle: maxCycle,
		limit:    limit,
		queries:  cfg.Queries,
	}
}

// Start launches the background loop. It returns immediately; Stop shuts
// the loop down and waits for an in-flight cycle to finish.
func (s *PrefetchScheduler) Start(ctx context.Context) {
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.loop(runCtx)
	log.Printf("[Prefetch] Scheduler started: %d queries every %s", len(s.queries), s.interval)
}

// Stop cancels the loop and blocks until it exits.
func (s *PrefetchScheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

// RunOnce executes a single warmup cycle, as triggered by the admin refresh
// endpoint. Returns ErrRefreshInProgress when a cycle is already running.
func (s *PrefetchScheduler) RunOnce(ctx context.Context) error {
	if !s.cycleMu.TryLock() {
		return domain.ErrRefreshInProgress
	}
	defer s.cycleMu.Unlock()

	s.runCycle(ctx)
	return nil
}

// Status reports the current scheduler state.
func (s *PrefetchScheduler) Status() PrefetchStatus {
	s.stateMu.RLock()
	defer s.stateMu.RUnlock()

	return PrefetchStatus{
		Running:      s.running,
		LastRun:      s.lastRun,
		LastFailures: s.lastErrs,
		Interval:     s.interval.String(),
		Queries:      len(s.queries),
	}
}

func (s *PrefetchScheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// Warm the cache immediately on startup, then on every tick.
	if err := s.RunOnce(ctx); err != nil {
		log.Printf("[Prefetch] Initial cycle skipped: %v", err)
	}

	for {
		select {
		case <-ticker.C:
			if err := s.RunOnce(ctx); err != nil {
				log.Printf("[Prefetch] Cycle skipped: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// runCycle re-runs every popular query through the normal search pipeline
// under the cycle deadline. Callers must hold cycleMu.
func (s *PrefetchScheduler) runCycle(ctx context.Context) {
	cycleCtx, cancel := context.WithTimeout(ctx, s.maxCycle)
	defer cancel()

	s.setRunning(true)
	defer s.setRunning(false)

	start := time.Now()
	failures := 0

	for _, query := range s.queries {
		if cycleCtx.Err() != nil {
			log.Printf("[Prefetch] Cycle deadline hit after %s", time.Since(start))
			break
		}

		if _, err := s.router.Search(cycleCtx, query, s.limit); err != nil {
			failures++
			log.Printf("[Prefetch] %q failed: %v", query, err)
		}
	}

	s.stateMu.Lock()
	s.lastRun = time.Now()
	s.lastErrs = failures
	s.stateMu.Unlock()

	log.Printf("[Prefetch] Cycle complete in %s (%d queries, %d failures)",
		time.Since(start), len(s.queries), failures)
}

func (s *PrefetchScheduler) setRunning(running bool) {
	s.stateMu.Lock()
	s.running = running
	s.stateMu.Unlock()
}
