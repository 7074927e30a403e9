package core

import (
	"time"
)

// Metric names published by the lifecycle manager and its collaborators.
const (
	MetricResourcesCreated     = "staging.resources.created"
	MetricResourcesDropped     = "staging.resources.dropped"
	MetricOptimizationsApplied = "staging.optimizations.applied"
	MetricCreateDuration       = "staging.create.duration"
	MetricDropDuration         = "staging.drop.duration"
	MetricOptimizeDuration     = "staging.optimize.duration"
	MetricActiveResources      = "staging.resources.active"
	MetricActiveMemoryBytes    = "staging.resources.active_memory_bytes"
)

// MetricsSink defines the observability contract for counters, timers and
// gauges emitted by this component. Implementations must be safe for
// concurrent use; a sink must never fail an operation.
type MetricsSink interface {
	// IncrCounter increments a named counter by delta.
	IncrCounter(name string, delta int64)

	// RecordTimer records a single duration observation.
	RecordTimer(name string, d time.Duration)

	// SetGauge sets a gauge to an absolute value.
	SetGauge(name string, value int64)

	// AddGauge adjusts a gauge by delta, which may be negative.
	AddGauge(name string, delta int64)
}
