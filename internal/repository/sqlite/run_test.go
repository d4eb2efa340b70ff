package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocklabs/bockscraper/internal/domain"
)

func newTestRepo(t *testing.T) *RunRepository {
	t.Helper()

	db, err := OpenConnection(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, RunMigrations(db))
	return NewRunRepository(db)
}

func TestRunRepositoryCreateAndList(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	run := domain.NewStageRun(domain.StageScrape, "session_100")
	require.NoError(t, repo.Create(ctx, run))

	runs, total, err := repo.List(ctx, domain.RunListParams{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, runs, 1)
	assert.Equal(t, run.ID, runs[0].ID)
	assert.Equal(t, domain.StageScrape, runs[0].Kind)
	assert.Equal(t, "session_100", runs[0].SessionID)
	assert.Equal(t, domain.RunStatusRunning, runs[0].Status)
	assert.Nil(t, runs[0].FinishedAt)
	assert.Nil(t, runs[0].Error)
}

func TestRunRepositoryFinish(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	run := domain.NewStageRun(domain.StageConvert, "session_101")
	require.NoError(t, repo.Create(ctx, run))

	msg := "bucket unreachable"
	require.NoError(t, repo.Finish(ctx, run.ID, domain.RunStatusFailed, &msg))

	runs, _, err := repo.List(ctx, domain.RunListParams{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, domain.RunStatusFailed, runs[0].Status)
	require.NotNil(t, runs[0].FinishedAt)
	require.NotNil(t, runs[0].Error)
	assert.Equal(t, msg, *runs[0].Error)
}

func TestRunRepositoryListFilterAndPaging(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, domain.NewStageRun(domain.StageScrape, "session_a")))
	}
	require.NoError(t, repo.Create(ctx, domain.NewStageRun(domain.StageSummarize, "session_b")))

	kind := domain.StageScrape
	runs, total, err := repo.List(ctx, domain.RunListParams{Kind: &kind, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, runs, 2)
	for _, run := range runs {
		assert.Equal(t, domain.StageScrape, run.Kind)
	}

	runs, total, err = repo.List(ctx, domain.RunListParams{Kind: &kind, Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, runs, 1)
}
