package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// RunRepository implements domain.RunRepository for PostgreSQL
type RunRepository struct {
	db *sql.DB
}

// NewRunRepository creates a new RunRepository
func NewRunRepository(db *sql.DB) *RunRepository {
	return &RunRepository{db: db}
}

// Create inserts a new stage run record
func (r *RunRepository) Create(ctx context.Context, run *domain.StageRun) error {
	query := `
		INSERT INTO stage_runs (id, kind, session_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, string(run.Kind), run.SessionID, string(run.Status), run.StartedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert stage run: %w", err)
	}
	return nil
}

// Finish marks a run terminal with its finish time and optional error
func (r *RunRepository) Finish(ctx context.Context, id uuid.UUID, status domain.RunStatus, errMsg *string) error {
	query := `
		UPDATE stage_runs
		SET status = $1, finished_at = $2, error_message = $3
		WHERE id = $4
	`

	_, err := r.db.ExecContext(ctx, query, string(status), time.Now().UTC(), errMsg, id)
	if err != nil {
		return fmt.Errorf("failed to finish stage run: %w", err)
	}
	return nil
}

// List returns runs newest first, with the total count for pagination
func (r *RunRepository) List(ctx context.Context, params domain.RunListParams) ([]*domain.StageRun, int, error) {
	where := ""
	args := []any{}
	if params.Kind != nil {
		where = "WHERE kind = $1"
		args = append(args, string(*params.Kind))
	}

	var total int
	countQuery := "SELECT COUNT(*) FROM stage_runs " + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count stage runs: %w", err)
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	query := fmt.Sprintf(`
		SELECT id, kind, session_id, status, started_at, finished_at, error_message
		FROM stage_runs %s
		ORDER BY started_at DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)+1, len(args)+2)
	args = append(args, limit, params.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list stage runs: %w", err)
	}
	defer rows.Close()

	var runs []*domain.StageRun
	for rows.Next() {
		var (
			kind, status string
			finishedAt   sql.NullTime
			errorMessage sql.NullString
			run          domain.StageRun
		)
		if err := rows.Scan(&run.ID, &kind, &run.SessionID, &status, &run.StartedAt, &finishedAt, &errorMessage); err != nil {
			return nil, 0, fmt.Errorf("failed to scan stage run: %w", err)
		}
		run.Kind = domain.StageKind(kind)
		run.Status = domain.RunStatus(status)
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		if errorMessage.Valid {
			run.Error = &errorMessage.String
		}
		runs = append(runs, &run)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return runs, total, nil
}
