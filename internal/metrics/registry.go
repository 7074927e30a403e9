// Package metrics provides an in-process metrics registry implementing the
// core.MetricsSink contract with counters, timers and gauges.
package metrics

import (
	"sync"
	"time"
)

// TimerStats summarizes the observations recorded for one timer.
type TimerStats struct {
	Count int64
	Total time.Duration
	Max   time.Duration
}

// Average returns the mean observed duration, or zero with no observations.
func (t TimerStats) Average() time.Duration {
	if t.Count == 0 {
		return 0
	}
	return t.Total / time.Duration(t.Count)
}

// Registry is a thread-safe in-process metrics sink. It keeps the latest
// values for scraping by an external exporter; it performs no I/O itself.
type Registry struct {
	mu       sync.RWMutex
	counters map[string]int64
	timers   map[string]*TimerStats
	gauges   map[string]int64
}

// NewRegistry creates an empty metrics registry.
func NewRegistry() *Registry {
	return &Registry{
		counters: make(map[string]int64),
		timers:   make(map[string]*TimerStats),
		gauges:   make(map[string]int64),
	}
}

// IncrCounter increments a named counter by delta.
func (r *Registry) IncrCounter(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counters[name] += delta
}

// RecordTimer records a single duration observation.
func (r *Registry) RecordTimer(name string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, ok := r.timers[name]
	if !ok {
		stats = &TimerStats{}
		r.timers[name] = stats
	}
	stats.Count++
	stats.Total += d
	if d > stats.Max {
		stats.Max = d
	}
}

// SetGauge sets a gauge to an absolute value.
func (r *Registry) SetGauge(name string, value int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] = value
}

// AddGauge adjusts a gauge by delta, which may be negative.
func (r *Registry) AddGauge(name string, delta int64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[name] += delta
}

// Counter returns the current value of a counter.
func (r *Registry) Counter(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.counters[name]
}

// Gauge returns the current value of a gauge.
func (r *Registry) Gauge(name string) int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.gauges[name]
}

// Timer returns a copy of the stats recorded for a timer.
func (r *Registry) Timer(name string) TimerStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if stats, ok := r.timers[name]; ok {
		return *stats
	}
	return TimerStats{}
}

// Snapshot returns a copy of all counters and gauges for export.
func (r *Registry) Snapshot() (counters, gauges map[string]int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	counters = make(map[string]int64, len(r.counters))
	for k, v := range r.counters {
		counters[k] = v
	}
	gauges = make(map[string]int64, len(r.gauges))
	for k, v := range r.gauges {
		gauges[k] = v
	}
	return counters, gauges
}
