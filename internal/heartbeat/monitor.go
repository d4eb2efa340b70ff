// Package heartbeat watches for stalled stage runs. The orchestrator
// enforces no hard timeout on a run; a stuck model call or network hang can
// stall a worker indefinitely, so this monitor logs long runners for
// operators to act on. It never kills a job.
package heartbeat

import (
	"context"
	"log"
	"time"

	"github.com/bocklabs/bockscraper/internal/pipeline"
)

// Defaults for the stall monitor.
const (
	DefaultInterval  = time.Minute
	DefaultThreshold = 30 * time.Minute
)

// ActiveLister reports the currently running jobs.
type ActiveLister interface {
	Active() []pipeline.ActiveJob
}

// Monitor periodically logs jobs that have been running beyond a threshold.
type Monitor struct {
	registry  ActiveLister
	interval  time.Duration
	threshold time.Duration
}

// NewMonitor creates a stall monitor over the registry.
func NewMonitor(registry ActiveLister, interval, threshold time.Duration) *Monitor {
	if interval == 0 {
		interval = DefaultInterval
	}
	if threshold == 0 {
		threshold = DefaultThreshold
	}

	return &Monitor{
		registry:  registry,
		interval:  interval,
		threshold: threshold,
	}
}

// Run starts the monitor; it returns when ctx is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	log.Printf("[Heartbeat] monitor started (interval: %s, threshold: %s)",
		m.interval, m.threshold)

	for {
		select {
		case <-ctx.Done():
			log.Println("[Heartbeat] monitor stopped")
			return nil
		case <-ticker.C:
			m.check(time.Now())
		}
	}
}

func (m *Monitor) check(now time.Time) {
	for _, job := range m.registry.Active() {
		age := now.Sub(job.StartedAt)
		if age < m.threshold {
			continue
		}
		log.Printf("[Heartbeat] WARNING: %s job %s has been running for %s",
			job.Kind, job.SessionID, age.Round(time.Second))
	}
}
