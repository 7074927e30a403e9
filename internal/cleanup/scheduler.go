// Package cleanup runs the recurring task that retires TTL-expired staging
// resources through the lifecycle manager.
package cleanup

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/rzpsarthak13/stagekeeper/internal/core"
)

// Retirer is the slice of the lifecycle manager the scheduler drives.
type Retirer interface {
	Retire(ctx context.Context, physicalName, reason string) bool
}

// SchedulerConfig contains configuration for the cleanup scheduler.
type SchedulerConfig struct {
	// Interval is the period between cleanup runs.
	Interval time.Duration `yaml:"interval" json:"interval"`

	// DropRate caps how many retirements are issued per second, protecting
	// the database from a burst of drop statements after a large batch.
	DropRate int `yaml:"drop_rate" json:"drop_rate"`
}

// DefaultSchedulerConfig returns sensible defaults for the scheduler.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval: 1 * time.Hour,
		DropRate: 10,
	}
}

// RunResult summarizes one cleanup run.
type RunResult struct {
	// Scanned is how many expired resources the run found.
	Scanned int

	// Retired is how many resources were retired successfully.
	Retired int

	// Failed is how many retirements failed. Individual failures do not
	// stop the run.
	Failed int
}

// Scheduler periodically scans for TTL-expired staging resources and routes
// them through the lifecycle manager's retirement path. Every run is wrapped
// in its own error boundary so the recurring task survives any failure.
type Scheduler struct {
	mu      sync.RWMutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}

	store   core.DefinitionStore
	retirer Retirer
	config  SchedulerConfig

	lastRun RunResult
}

// NewScheduler creates a cleanup scheduler over the store and retirer.
func NewScheduler(store core.DefinitionStore, retirer Retirer, config SchedulerConfig) *Scheduler {
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.DropRate <= 0 {
		config.DropRate = DefaultSchedulerConfig().DropRate
	}
	return &Scheduler{
		store:   store,
		retirer: retirer,
		config:  config,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start begins the recurring cleanup goroutine. Non-blocking; call Stop to
// shut it down gracefully.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		log.Printf("[CLEANUP] Already running")
		return nil
	}
	s.running = true
	// Reset channels for restart capability
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.run(ctx)
	log.Printf("[CLEANUP] Started with interval %v, drop rate %d/sec", s.config.Interval, s.config.DropRate)
	return nil
}

// Stop gracefully stops the scheduler, waiting for an in-progress run to finish.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	log.Printf("[CLEANUP] Stopping...")
	close(s.stopCh)
	<-s.doneCh
	log.Printf("[CLEANUP] Stopped")
	return nil
}

// IsRunning returns whether the scheduler is currently running.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// LastRun returns the result of the most recent cleanup run.
func (s *Scheduler) LastRun() RunResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRun
}

// run is the recurring loop. Each tick executes one cleanup pass inside an
// error boundary: an unexpected failure is logged, never propagated, so the
// scheduler survives to run again next period.
func (s *Scheduler) run(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopCh:
			log.Printf("[CLEANUP] Received stop signal")
			return
		case <-ctx.Done():
			log.Printf("[CLEANUP] Context cancelled")
			return
		case <-ticker.C:
			s.safeRun(ctx)
		}
	}
}

// safeRun executes one pass and absorbs every failure, including panics.
func (s *Scheduler) safeRun(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[CLEANUP] ERROR: Run panicked: %v", r)
		}
	}()

	result := s.RunOnce(ctx)
	s.mu.Lock()
	s.lastRun = result
	s.mu.Unlock()
}

// RunOnce performs a single cleanup pass: find expired resources and retire
// each one. A single resource's failure is logged and does not stop the
// remaining expired resources from being processed.
func (s *Scheduler) RunOnce(ctx context.Context) RunResult {
	var result RunResult

	expired, err := s.store.FindExpiredDefinitions(ctx, time.Now())
	if err != nil {
		log.Printf("[CLEANUP] Failed to query expired resources: %v", err)
		return result
	}
	result.Scanned = len(expired)
	if len(expired) == 0 {
		return result
	}

	log.Printf("[CLEANUP] Found %d expired staging resources", len(expired))
	limiter := rate.NewLimiter(rate.Limit(s.config.DropRate), 1)

	for _, def := range expired {
		if err := limiter.Wait(ctx); err != nil {
			log.Printf("[CLEANUP] Rate limiter interrupted: %v", err)
			break
		}
		if s.retirer.Retire(ctx, def.PhysicalName, "ttl expired") {
			result.Retired++
		} else {
			result.Failed++
			log.Printf("[CLEANUP] Failed to retire %s, continuing with remaining resources", def.PhysicalName)
		}
	}

	log.Printf("[CLEANUP] Run complete: %d retired, %d failed of %d expired",
		result.Retired, result.Failed, result.Scanned)
	return result
}
