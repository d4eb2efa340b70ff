package pipeline

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocklabs/bockscraper/internal/domain"
)

func blockingWorker(release chan struct{}) WorkerFunc {
	return func(ctx context.Context, h *Handle) error {
		select {
		case <-release:
			return nil
		case <-ctx.Done():
			return ErrStopped
		}
	}
}

func waitInactive(t *testing.T, reg *Registry, kind domain.StageKind) {
	t.Helper()
	require.Eventually(t, func() bool {
		return !reg.Status(kind).IsActive
	}, 2*time.Second, 5*time.Millisecond)
}

func TestStartRejectsSecondJobOfSameKind(t *testing.T) {
	reg := NewRegistry(nil, nil)
	release := make(chan struct{})
	defer close(release)

	session, err := reg.Start(domain.StageScrape, blockingWorker(release))
	require.NoError(t, err)
	assert.NotEmpty(t, session)

	_, err = reg.Start(domain.StageScrape, blockingWorker(release))
	assert.ErrorIs(t, err, domain.ErrAlreadyActive)
}

func TestStartGateUnderConcurrency(t *testing.T) {
	reg := NewRegistry(nil, nil)
	release := make(chan struct{})
	defer close(release)

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = reg.Start(domain.StageSummarize, blockingWorker(release))
		}(i)
	}
	wg.Wait()

	started := 0
	for _, err := range errs {
		if err == nil {
			started++
		} else {
			assert.ErrorIs(t, err, domain.ErrAlreadyActive)
		}
	}
	assert.Equal(t, 1, started)
}

func TestSlotsAreIndependent(t *testing.T) {
	reg := NewRegistry(nil, nil)
	release := make(chan struct{})
	defer close(release)

	_, err := reg.Start(domain.StageScrape, blockingWorker(release))
	require.NoError(t, err)
	_, err = reg.Start(domain.StageConvert, blockingWorker(release))
	require.NoError(t, err)

	assert.True(t, reg.Status(domain.StageScrape).IsActive)
	assert.True(t, reg.Status(domain.StageConvert).IsActive)
	assert.False(t, reg.Status(domain.StageSummarize).IsActive)
}

func TestStopThenStatusIdempotence(t *testing.T) {
	reg := NewRegistry(nil, nil)
	release := make(chan struct{})
	defer close(release)

	_, err := reg.Start(domain.StageConvert, blockingWorker(release))
	require.NoError(t, err)

	require.NoError(t, reg.Stop(domain.StageConvert))

	status := reg.Status(domain.StageConvert)
	assert.False(t, status.IsActive)
	assert.Zero(t, status.Stats.Progress)
	assert.False(t, status.Stats.Completed)

	assert.ErrorIs(t, reg.Stop(domain.StageConvert), domain.ErrNotActive)
}

func TestStopOnIdleSlot(t *testing.T) {
	reg := NewRegistry(nil, nil)
	assert.ErrorIs(t, reg.Stop(domain.StageScrape), domain.ErrNotActive)
}

func TestStopFiresTerminator(t *testing.T) {
	reg := NewRegistry(nil, nil)

	terminated := make(chan struct{})
	_, err := reg.Start(domain.StageScrape, func(ctx context.Context, h *Handle) error {
		h.OnStop(func() error {
			close(terminated)
			return nil
		})
		<-ctx.Done()
		return ErrStopped
	})
	require.NoError(t, err)

	require.NoError(t, reg.Stop(domain.StageScrape))

	select {
	case <-terminated:
	case <-time.After(2 * time.Second):
		t.Fatal("terminator was not fired on stop")
	}
}

func TestWorkerCompletionClearsSlot(t *testing.T) {
	reg := NewRegistry(nil, nil)

	_, err := reg.Start(domain.StageScrape, func(ctx context.Context, h *Handle) error {
		h.Log("step one complete")
		h.UpdateStats(func(s *domain.StageStats) {
			s.Progress = 100
			s.Completed = true
		})
		return nil
	})
	require.NoError(t, err)

	waitInactive(t, reg, domain.StageScrape)

	status := reg.Status(domain.StageScrape)
	assert.True(t, status.Stats.Completed)
	assert.Equal(t, 100, status.Stats.Progress)
	require.Len(t, status.Logs, 1)
	assert.Equal(t, "step one complete", status.Logs[0].Message)
}

func TestStartResetsLogsAndStats(t *testing.T) {
	reg := NewRegistry(nil, nil)

	_, err := reg.Start(domain.StageScrape, func(ctx context.Context, h *Handle) error {
		h.Log("old run line")
		h.UpdateStats(func(s *domain.StageStats) { s.ArticlesFound = 7 })
		return nil
	})
	require.NoError(t, err)
	waitInactive(t, reg, domain.StageScrape)

	release := make(chan struct{})
	defer close(release)
	session, err := reg.Start(domain.StageScrape, blockingWorker(release))
	require.NoError(t, err)

	status := reg.Status(domain.StageScrape)
	assert.True(t, status.IsActive)
	assert.Empty(t, status.Logs)
	assert.Zero(t, status.Stats.ArticlesFound)
	assert.Equal(t, session, status.Stats.SessionID)
}

func TestFailedWorkerSurfacesError(t *testing.T) {
	reg := NewRegistry(nil, nil)

	_, err := reg.Start(domain.StageConvert, func(ctx context.Context, h *Handle) error {
		h.UpdateStats(func(s *domain.StageStats) { s.Error = "bucket unreachable" })
		return assert.AnError
	})
	require.NoError(t, err)
	waitInactive(t, reg, domain.StageConvert)

	status := reg.Status(domain.StageConvert)
	assert.Equal(t, "bucket unreachable", status.Stats.Error)
	assert.False(t, status.Stats.Completed)
}

func TestActiveListsRunningJobs(t *testing.T) {
	reg := NewRegistry(nil, nil)
	release := make(chan struct{})
	defer close(release)

	assert.Empty(t, reg.Active())

	session, err := reg.Start(domain.StageSummarize, blockingWorker(release))
	require.NoError(t, err)

	active := reg.Active()
	require.Len(t, active, 1)
	assert.Equal(t, domain.StageSummarize, active[0].Kind)
	assert.Equal(t, session, active[0].SessionID)
	assert.WithinDuration(t, time.Now(), active[0].StartedAt, 5*time.Second)
}
