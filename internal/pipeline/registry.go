package pipeline

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/bocklabs/bockscraper/internal/domain"
	"github.com/bocklabs/bockscraper/internal/events"
	"github.com/bocklabs/bockscraper/internal/logbuf"
)

// WorkerFunc is the body of a stage run. It is executed on its own
// goroutine and must check h.Cancelled() at its per-item boundaries.
// A nil return marks the run completed; ErrStopped marks it stopped;
// any other error marks it failed.
type WorkerFunc func(ctx context.Context, h *Handle) error

// slot is the single-job container for one stage kind. Its mutex guards the
// active flag, the current job and the stats record; the log buffer carries
// its own lock.
type slot struct {
	mu     sync.Mutex
	active bool
	job    *Job
	runID  uuid.UUID
	stats  domain.StageStats
	logs   *logbuf.Buffer

	// finalized flips once per run, by Stop or by the worker's return,
	// whichever comes first. The loser skips history and event writes.
	finalized *atomic.Bool
}

// ActiveJob describes one currently running job, for monitoring.
type ActiveJob struct {
	Kind      domain.StageKind
	SessionID string
	StartedAt time.Time
}

// Registry holds one slot per stage kind and enforces "at most one active
// job per kind". Slots are independent: stages of different kinds run
// concurrently without sharing a lock.
type Registry struct {
	slots   map[domain.StageKind]*slot
	runs    domain.RunRepository // optional, nil disables history
	pub     events.Publisher     // optional, nil disables events
	started map[domain.StageKind]time.Time
	startMu sync.Mutex
}

// NewRegistry creates a registry with empty slots for every stage kind.
// runs and pub may be nil.
func NewRegistry(runs domain.RunRepository, pub events.Publisher) *Registry {
	slots := make(map[domain.StageKind]*slot, len(domain.Kinds()))
	for _, kind := range domain.Kinds() {
		slots[kind] = &slot{logs: logbuf.New(logbuf.CapacityFor(kind))}
	}
	return &Registry{
		slots:   slots,
		runs:    runs,
		pub:     pub,
		started: make(map[domain.StageKind]time.Time),
	}
}

// Start claims the slot for kind, resets its log buffer and stats, and
// launches worker on a new goroutine. It returns the new session identifier
// immediately; it never waits for the worker. The active flag is checked and
// set under the slot lock, so two concurrent Start calls for the same kind
// produce exactly one job and one ErrAlreadyActive.
func (r *Registry) Start(kind domain.StageKind, worker WorkerFunc) (string, error) {
	if !kind.IsValid() {
		return "", domain.InvalidInputError("kind")
	}

	s := r.slots[kind]
	now := time.Now()
	sessionID := domain.NewSessionID(now)
	job := newJob(kind, sessionID)
	run := domain.NewStageRun(kind, sessionID)

	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return "", domain.ErrAlreadyActive
	}
	s.active = true
	s.job = job
	s.runID = run.ID
	s.finalized = &atomic.Bool{}
	s.stats = domain.StageStats{SessionID: sessionID}
	s.logs.Reset()
	finalized := s.finalized
	s.mu.Unlock()

	r.startMu.Lock()
	r.started[kind] = now
	r.startMu.Unlock()

	r.recordStart(run)
	r.publish(&events.StageEvent{
		Kind:      kind,
		SessionID: sessionID,
		Status:    domain.RunStatusRunning,
		At:        now.UTC(),
	})

	h := &Handle{slot: s, job: job}
	go func() {
		err := worker(job.Context(), h)
		r.finalize(s, job, finalized, err)
		// Release the run context so backend teardown watchers exit.
		job.cancel()
	}()

	return sessionID, nil
}

// Stop rejects with NotActive if the slot is idle. Otherwise it sets the
// cancellation flag, fires the job's best-effort termination hook and clears
// the active flag immediately; it does not wait for the worker to exit.
func (r *Registry) Stop(kind domain.StageKind) error {
	if !kind.IsValid() {
		return domain.InvalidInputError("kind")
	}

	s := r.slots[kind]
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return domain.ErrNotActive
	}
	s.active = false
	job := s.job
	runID := s.runID
	finalized := s.finalized
	s.stats.Progress = 0
	s.stats.Completed = false
	sessionID := s.stats.SessionID
	s.mu.Unlock()

	if err := job.requestCancel(); err != nil {
		log.Printf("[Registry] WARNING: terminate for %s job failed: %v", kind, err)
	}

	if finalized.CompareAndSwap(false, true) {
		r.recordFinish(runID, domain.RunStatusStopped, nil)
		r.publish(&events.StageEvent{
			Kind:      kind,
			SessionID: sessionID,
			Status:    domain.RunStatusStopped,
			At:        time.Now().UTC(),
		})
	}
	return nil
}

// Status returns an immutable snapshot of the slot: a stats copy, the full
// current log sequence and the active flag. It never blocks on the worker.
func (r *Registry) Status(kind domain.StageKind) domain.StageStatus {
	s := r.slots[kind]
	s.mu.Lock()
	stats := s.stats
	active := s.active
	s.mu.Unlock()

	return domain.StageStatus{
		Stats:    stats,
		Logs:     s.logs.Snapshot(),
		IsActive: active,
	}
}

// Active lists the currently running jobs with their start times.
func (r *Registry) Active() []ActiveJob {
	var out []ActiveJob
	for _, kind := range domain.Kinds() {
		s := r.slots[kind]
		s.mu.Lock()
		active := s.active
		var sessionID string
		if s.job != nil {
			sessionID = s.job.SessionID()
		}
		s.mu.Unlock()
		if !active {
			continue
		}
		r.startMu.Lock()
		startedAt := r.started[kind]
		r.startMu.Unlock()
		out = append(out, ActiveJob{Kind: kind, SessionID: sessionID, StartedAt: startedAt})
	}
	return out
}

// finalize runs on the worker goroutine after the worker returns. A stale
// worker (slot already restarted for a newer job) must not touch the flag.
func (r *Registry) finalize(s *slot, job *Job, finalized *atomic.Bool, err error) {
	s.mu.Lock()
	if s.job == job {
		s.active = false
	}
	runID := s.runID
	s.mu.Unlock()

	if !finalized.CompareAndSwap(false, true) {
		return
	}

	status := domain.RunStatusCompleted
	var errMsg *string
	switch {
	case err == nil:
		// completed
	case job.CancelRequested():
		status = domain.RunStatusStopped
	default:
		status = domain.RunStatusFailed
		msg := err.Error()
		errMsg = &msg
	}

	r.recordFinish(runID, status, errMsg)
	evt := &events.StageEvent{
		Kind:      job.Kind(),
		SessionID: job.SessionID(),
		Status:    status,
		At:        time.Now().UTC(),
	}
	if errMsg != nil {
		evt.Error = *errMsg
	}
	r.publish(evt)
}

// History failures never affect the run itself.

func (r *Registry) recordStart(run *domain.StageRun) {
	if r.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.runs.Create(ctx, run); err != nil {
		log.Printf("[Registry] WARNING: failed to record %s run start: %v", run.Kind, err)
	}
}

func (r *Registry) recordFinish(id uuid.UUID, status domain.RunStatus, errMsg *string) {
	if r.runs == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.runs.Finish(ctx, id, status, errMsg); err != nil {
		log.Printf("[Registry] WARNING: failed to record run finish: %v", err)
	}
}

func (r *Registry) publish(evt *events.StageEvent) {
	if r.pub == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.pub.Publish(ctx, evt); err != nil {
		log.Printf("[Registry] WARNING: failed to publish %s event: %v", evt.Status, err)
	}
}
