package pipeline

import (
	"context"
	"fmt"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// Handle is the per-run view a worker gets of its slot: log appends, stats
// mutation and cancellation checks. Stats mutation happens under the slot
// lock so status snapshots never tear a counter update.
type Handle struct {
	slot *slot
	job  *Job
}

// SessionID returns the run's session identifier.
func (h *Handle) SessionID() string { return h.job.SessionID() }

// Context returns the worker context, cancelled on stop.
func (h *Handle) Context() context.Context { return h.job.Context() }

// Cancelled reports whether a stop was requested.
func (h *Handle) Cancelled() bool { return h.job.CancelRequested() }

// OnStop registers the best-effort termination hook fired by a stop request.
func (h *Handle) OnStop(fn func() error) { h.job.SetTerminator(fn) }

// Log classifies, stamps and appends one line to the slot's log buffer.
func (h *Handle) Log(line string) {
	h.slot.logs.Append(line)
}

// Logf formats and appends one line.
func (h *Handle) Logf(format string, args ...any) {
	h.slot.logs.Append(fmt.Sprintf(format, args...))
}

// UpdateStats applies fn to the slot's stats record under the slot lock.
func (h *Handle) UpdateStats(fn func(*domain.StageStats)) {
	h.slot.mu.Lock()
	fn(&h.slot.stats)
	h.slot.mu.Unlock()
}
