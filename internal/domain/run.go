package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RunStatus is the terminal-or-running state of a recorded stage run.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusFailed    RunStatus = "failed"
	RunStatusStopped   RunStatus = "stopped"
)

// IsTerminal returns true if the run is in a terminal state.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed || s == RunStatusStopped
}

// StageRun is the persisted history record of one stage run.
type StageRun struct {
	ID         uuid.UUID  `json:"id"`
	Kind       StageKind  `json:"kind"`
	SessionID  string     `json:"session_id"`
	Status     RunStatus  `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Error      *string    `json:"error,omitempty"`
}

// NewStageRun creates a running history record for a freshly started job.
func NewStageRun(kind StageKind, sessionID string) *StageRun {
	return &StageRun{
		ID:        uuid.New(),
		Kind:      kind,
		SessionID: sessionID,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
}

// RunListParams are parameters for listing stage runs.
type RunListParams struct {
	Kind   *StageKind
	Limit  int
	Offset int
}

// RunRepository persists stage run history.
type RunRepository interface {
	Create(ctx context.Context, run *StageRun) error
	Finish(ctx context.Context, id uuid.UUID, status RunStatus, errMsg *string) error
	List(ctx context.Context, params RunListParams) ([]*StageRun, int, error)
}
