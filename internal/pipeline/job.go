// Package pipeline implements the job orchestration and status-aggregation
// engine: single-slot gates per stage kind, bounded log buffers, progress
// tracking, and cooperative cancellation for the scrape, convert and
// summarize workers.
package pipeline

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// ErrStopped is returned by a worker that exited because of a stop request.
var ErrStopped = errors.New("job stopped by user")

// Job is one run of a stage: a session identifier, a cancellation flag and
// the context its worker runs under. A Job is owned by the Registry slot for
// its kind; the worker may outlive the slot's knowledge of it after a stop.
type Job struct {
	kind      domain.StageKind
	sessionID string

	ctx    context.Context
	cancel context.CancelFunc

	cancelRequested atomic.Bool

	// terminator is a best-effort kill hook registered by the worker once
	// it owns an external process or connection.
	termMu     sync.Mutex
	terminator func() error
}

func newJob(kind domain.StageKind, sessionID string) *Job {
	ctx, cancel := context.WithCancel(context.Background())
	return &Job{
		kind:      kind,
		sessionID: sessionID,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Kind returns the stage kind this job belongs to.
func (j *Job) Kind() domain.StageKind { return j.kind }

// SessionID returns the run's session identifier.
func (j *Job) SessionID() string { return j.sessionID }

// Context is the worker's context; it is cancelled on stop.
func (j *Job) Context() context.Context { return j.ctx }

// CancelRequested reports whether a stop has been requested. Workers check
// this at the top of their per-item loops.
func (j *Job) CancelRequested() bool { return j.cancelRequested.Load() }

// SetTerminator registers the best-effort termination hook invoked on stop.
func (j *Job) SetTerminator(fn func() error) {
	j.termMu.Lock()
	j.terminator = fn
	j.termMu.Unlock()
}

// requestCancel sets the cancellation flag, cancels the worker context and
// fires the termination hook if one is registered.
func (j *Job) requestCancel() error {
	j.cancelRequested.Store(true)
	j.cancel()

	j.termMu.Lock()
	fn := j.terminator
	j.termMu.Unlock()

	if fn == nil {
		return nil
	}
	return fn()
}
