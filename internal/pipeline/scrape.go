package pipeline

import (
	"context"
	"path/filepath"

	"github.com/bocklabs/bockscraper/internal/domain"
	"github.com/bocklabs/bockscraper/internal/execbackend"
	"github.com/bocklabs/bockscraper/internal/progress"
	"github.com/bocklabs/bockscraper/internal/storage"
)

// ScrapeConfig configures the scrape stage.
type ScrapeConfig struct {
	// Program is the scraper entry point handed to the execution backend.
	Program string

	// WorkDir is the directory the scraper writes its output into; each run
	// gets a per-session subdirectory.
	WorkDir string

	// Bucket receives the synced output after a clean exit.
	Bucket string
}

// dirSyncer uploads a directory tree to bucket/prefix. Remote backends
// implement it so the sync runs on the host that holds the output
// directory; this process's filesystem never sees remote output.
type dirSyncer interface {
	SyncDir(ctx context.Context, dir, bucket, prefix string) error
}

// ScrapeStage runs the external scraper through an execution backend,
// streams its combined output through the log buffer and the progress
// estimator, and syncs the output directory to object storage on success.
type ScrapeStage struct {
	backend execbackend.Backend
	store   storage.Store
	cfg     ScrapeConfig
}

// NewScrapeStage creates the scrape stage runner.
func NewScrapeStage(backend execbackend.Backend, store storage.Store, cfg ScrapeConfig) *ScrapeStage {
	return &ScrapeStage{backend: backend, store: store, cfg: cfg}
}

// Worker builds the worker function for one scrape run.
func (st *ScrapeStage) Worker(req domain.StartScrapeRequest) WorkerFunc {
	return func(ctx context.Context, h *Handle) error {
		h.UpdateStats(func(s *domain.StageStats) {
			s.TargetBucket = st.cfg.Bucket
			s.Progress = progress.MilestoneConnectStart
		})
		h.Logf("Starting scrape for %s (max %d articles)", req.URL, req.MaxArticles)

		outputDir := filepath.Join(st.cfg.WorkDir, h.SessionID())
		cmd := execbackend.ScrapeCommand(st.cfg.Program, req.URL, req.MaxArticles, outputDir)
		cmd.Dir = st.cfg.WorkDir

		stream, err := st.backend.Submit(ctx, cmd)
		if err != nil {
			h.Logf("Error: failed to launch scraper: %v", err)
			h.UpdateStats(func(s *domain.StageStats) {
				s.Error = err.Error()
				s.Progress = 0
			})
			return err
		}
		h.OnStop(st.backend.Cancel)
		h.UpdateStats(func(s *domain.StageStats) { s.Progress = progress.MilestoneConnectOK })
		h.Log("Scraper process started")
		h.UpdateStats(func(s *domain.StageStats) { s.Progress = progress.MilestoneCommandDispatch })

		est := progress.NewEstimator(req.MaxArticles)
		for stream.Scan() {
			line := stream.Text()
			h.Log(line)
			h.UpdateStats(func(s *domain.StageStats) { est.Observe(line, s) })
			if h.Cancelled() {
				break
			}
		}

		waitErr := stream.Wait()
		if h.Cancelled() {
			h.Log("Scrape stopped by user")
			h.UpdateStats(func(s *domain.StageStats) {
				s.Progress = 0
				s.Completed = false
			})
			return ErrStopped
		}
		if waitErr != nil {
			h.Logf("Error: scraper failed: %v", waitErr)
			h.UpdateStats(func(s *domain.StageStats) {
				s.Error = waitErr.Error()
				s.Progress = 0
				s.Completed = false
			})
			return waitErr
		}

		sync := st.store.SyncDir
		if s, ok := st.backend.(dirSyncer); ok {
			sync = s.SyncDir
		}

		h.Logf("Syncing output to %s/%s", st.cfg.Bucket, h.SessionID())
		if err := sync(ctx, outputDir, st.cfg.Bucket, h.SessionID()); err != nil {
			h.Logf("Error: output sync failed: %v", err)
			h.UpdateStats(func(s *domain.StageStats) {
				s.Error = err.Error()
				s.Progress = 0
			})
			return err
		}

		h.UpdateStats(func(s *domain.StageStats) {
			s.Progress = progress.Complete
			s.Completed = true
		})
		h.Log("Scraping completed successfully")
		return nil
	}
}
