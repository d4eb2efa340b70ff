package pipeline

import (
	"context"
	"fmt"
	"strings"

	"github.com/bocklabs/bockscraper/internal/domain"
	"github.com/bocklabs/bockscraper/internal/storage"
)

// ConvertStage walks a session's folders and rewrites each article JSON as a
// fixed-template plain-text document alongside the original. Per-file
// failures are logged and skipped; they never abort the batch.
type ConvertStage struct {
	store  storage.Store
	bucket string
}

// NewConvertStage creates the convert stage runner.
func NewConvertStage(store storage.Store, bucket string) *ConvertStage {
	return &ConvertStage{store: store, bucket: bucket}
}

// Worker builds the worker function for one convert run.
func (st *ConvertStage) Worker(req domain.StartSessionRequest) WorkerFunc {
	return func(ctx context.Context, h *Handle) error {
		h.UpdateStats(func(s *domain.StageStats) { s.TargetBucket = st.bucket })
		h.Logf("Starting conversion for session %s", req.SourceSession)

		folders, err := st.store.ListFolders(ctx, st.bucket, req.SourceSession+"/")
		if err != nil {
			h.Logf("Error: failed to list folders: %v", err)
			h.UpdateStats(func(s *domain.StageStats) { s.Error = err.Error() })
			return err
		}

		converted := 0
		for _, folder := range folders {
			if h.Cancelled() {
				h.Log("Conversion stopped by user")
				return ErrStopped
			}

			files, err := st.store.ListFiles(ctx, st.bucket, folder, []string{".json"})
			if err != nil {
				h.Logf("Error listing files in %s: %v", folder, err)
				continue
			}

			for _, key := range files {
				if h.Cancelled() {
					h.Log("Conversion stopped by user")
					return ErrStopped
				}
				if err := st.convertOne(ctx, key); err != nil {
					h.Logf("Error converting %s: %v", key, err)
					continue
				}
				converted++
				h.UpdateStats(func(s *domain.StageStats) { s.FilesConverted = converted })
				h.Logf("Saved %s", textKey(key))
			}
		}

		h.UpdateStats(func(s *domain.StageStats) { s.Completed = true })
		h.Logf("Conversion complete: %d files converted", converted)
		return nil
	}
}

func (st *ConvertStage) convertOne(ctx context.Context, key string) error {
	data, _, err := st.store.Get(ctx, st.bucket, key)
	if err != nil {
		return fmt.Errorf("read: %w", err)
	}

	article, err := domain.ParseArticle(data)
	if err != nil {
		return fmt.Errorf("parse: %w", err)
	}

	body := []byte(article.RenderText())
	if err := st.store.Upload(ctx, st.bucket, textKey(key), body, "text/plain; charset=utf-8"); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return nil
}

// textKey maps an article JSON key to its .txt sibling.
func textKey(jsonKey string) string {
	return strings.TrimSuffix(jsonKey, ".json") + ".txt"
}
