package metrics

import (
	"sync"
	"testing"
	"time"
)

func TestRegistryCounters(t *testing.T) {
	r := NewRegistry()

	r.IncrCounter("staging.resources.created", 1)
	r.IncrCounter("staging.resources.created", 2)

	if got := r.Counter("staging.resources.created"); got != 3 {
		t.Errorf("expected counter 3, got %d", got)
	}
	if got := r.Counter("unknown"); got != 0 {
		t.Errorf("expected unknown counter 0, got %d", got)
	}
}

func TestRegistryGauges(t *testing.T) {
	r := NewRegistry()

	r.SetGauge("staging.resources.active", 5)
	r.AddGauge("staging.resources.active", 2)
	r.AddGauge("staging.resources.active", -3)

	if got := r.Gauge("staging.resources.active"); got != 4 {
		t.Errorf("expected gauge 4, got %d", got)
	}
}

func TestRegistryTimers(t *testing.T) {
	r := NewRegistry()

	r.RecordTimer("staging.create.duration", 100*time.Millisecond)
	r.RecordTimer("staging.create.duration", 300*time.Millisecond)

	stats := r.Timer("staging.create.duration")
	if stats.Count != 2 {
		t.Errorf("expected 2 observations, got %d", stats.Count)
	}
	if stats.Max != 300*time.Millisecond {
		t.Errorf("expected max 300ms, got %v", stats.Max)
	}
	if avg := stats.Average(); avg != 200*time.Millisecond {
		t.Errorf("expected average 200ms, got %v", avg)
	}
	if empty := r.Timer("unknown"); empty.Average() != 0 {
		t.Errorf("expected zero average for unknown timer")
	}
}

func TestRegistrySnapshotIsCopy(t *testing.T) {
	r := NewRegistry()
	r.IncrCounter("a", 1)
	r.SetGauge("b", 2)

	counters, gauges := r.Snapshot()
	counters["a"] = 99
	gauges["b"] = 99

	if r.Counter("a") != 1 || r.Gauge("b") != 2 {
		t.Error("mutating a snapshot must not affect the registry")
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				r.IncrCounter("c", 1)
				r.AddGauge("g", 1)
				r.RecordTimer("t", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if got := r.Counter("c"); got != 2000 {
		t.Errorf("expected counter 2000, got %d", got)
	}
	if got := r.Timer("t").Count; got != 2000 {
		t.Errorf("expected 2000 timer observations, got %d", got)
	}
}
