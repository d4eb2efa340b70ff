package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/bocklabs/bockscraper/internal/domain"
	"github.com/bocklabs/bockscraper/internal/storage"
	"github.com/bocklabs/bockscraper/internal/summarizer"
)

// imageExtensions are the image types the captioner accepts.
var imageExtensions = []string{".jpg", ".jpeg", ".png"}

// summaryDoc is the output document shape for both summary types.
type summaryDoc struct {
	Filename    string `json:"filename"`
	SummaryType string `json:"summary_type"`
	Summary     string `json:"summary"`
}

// SweepResult aggregates counters across a summarize sweep.
type SweepResult struct {
	TextSummaries  int
	ImageSummaries int
	TotalFolders   int
}

// SummarizeStage fans out over the folders under a session prefix, writing
// one text summary per folder and one caption per image into the output
// bucket. Per-item failures are logged and skipped; the batch continues.
type SummarizeStage struct {
	store        storage.Store
	text         summarizer.TextSummarizer
	images       summarizer.ImageCaptioner
	inputBucket  string
	outputBucket string
}

// NewSummarizeStage creates the summarize stage runner. text is expected to
// degrade gracefully (see summarizer.SafeSummarizer); caption failures are
// hard errors for that image only.
func NewSummarizeStage(store storage.Store, text summarizer.TextSummarizer, images summarizer.ImageCaptioner, inputBucket, outputBucket string) *SummarizeStage {
	return &SummarizeStage{
		store:        store,
		text:         text,
		images:       images,
		inputBucket:  inputBucket,
		outputBucket: outputBucket,
	}
}

// Worker builds the worker function for one summarize run.
func (st *SummarizeStage) Worker(req domain.StartSessionRequest) WorkerFunc {
	return func(ctx context.Context, h *Handle) error {
		h.UpdateStats(func(s *domain.StageStats) { s.TargetBucket = st.outputBucket })
		h.Logf("Starting summarization for session %s", req.SourceSession)

		result, err := st.Sweep(ctx, req.SourceSession+"/", h.Log, h.Cancelled, func(r SweepResult) {
			h.UpdateStats(func(s *domain.StageStats) {
				s.TextSummaries = r.TextSummaries
				s.ImageSummaries = r.ImageSummaries
				s.TotalFolders = r.TotalFolders
			})
		})
		if err != nil {
			if err != ErrStopped {
				h.UpdateStats(func(s *domain.StageStats) { s.Error = err.Error() })
			}
			return err
		}

		// Completed even when every item failed; callers inspect the
		// counters to tell full failure from success.
		h.UpdateStats(func(s *domain.StageStats) { s.Completed = true })
		h.Logf("Summarization complete: %d text summaries, %d image summaries across %d folders",
			result.TextSummaries, result.ImageSummaries, result.TotalFolders)
		return nil
	}
}

// Sweep summarizes every folder under prefix. report receives log lines,
// cancelled is polled at item boundaries, and onProgress (optional) observes
// running totals. Returns ErrStopped when cancelled mid-sweep.
func (st *SummarizeStage) Sweep(ctx context.Context, prefix string, report func(string), cancelled func() bool, onProgress func(SweepResult)) (SweepResult, error) {
	var result SweepResult

	folders, err := st.store.ListFolders(ctx, st.inputBucket, prefix)
	if err != nil {
		report(fmt.Sprintf("Error: failed to list folders: %v", err))
		return result, err
	}

	result.TotalFolders = len(folders)
	if onProgress != nil {
		onProgress(result)
	}

	for _, folder := range folders {
		if cancelled() {
			report("Summarization stopped by user")
			return result, ErrStopped
		}

		if st.summarizeText(ctx, folder, report) {
			result.TextSummaries++
		}

		images, err := st.store.ListFiles(ctx, st.inputBucket, folder, imageExtensions)
		if err != nil {
			report(fmt.Sprintf("Error listing images in %s: %v", folder, err))
			images = nil
		}
		for _, key := range images {
			if cancelled() {
				report("Summarization stopped by user")
				return result, ErrStopped
			}
			if st.captionImage(ctx, folder, key, len(images) == 1, report) {
				result.ImageSummaries++
			}
		}

		if onProgress != nil {
			onProgress(result)
		}
	}

	return result, nil
}

// summarizeText produces the folder's article_text_summary.json from the
// first usable non-summary JSON file; unreadable or empty candidates are
// skipped and the next file is tried. Returns true on success.
func (st *SummarizeStage) summarizeText(ctx context.Context, folder string, report func(string)) bool {
	files, err := st.store.ListFiles(ctx, st.inputBucket, folder, []string{".json"})
	if err != nil {
		report(fmt.Sprintf("Error listing files in %s: %v", folder, err))
		return false
	}

	for _, key := range files {
		data, _, err := st.store.Get(ctx, st.inputBucket, key)
		if err != nil {
			report(fmt.Sprintf("Error reading %s: %v", key, err))
			continue
		}

		body, err := domain.ExtractBody(data)
		if err != nil {
			report(fmt.Sprintf("Error extracting text from %s: %v", key, err))
			continue
		}

		summary, err := st.text.Summarize(ctx, body)
		if err != nil {
			report(fmt.Sprintf("Error summarizing %s: %v", key, err))
			continue
		}

		outKey := folder + "article_text_summary.json"
		if err := st.writeSummary(ctx, outKey, summaryDoc{
			Filename:    path.Base(key),
			SummaryType: "text",
			Summary:     summary,
		}); err != nil {
			report(fmt.Sprintf("Error saving summary for %s: %v", key, err))
			continue
		}

		report(fmt.Sprintf("Saved text summary for %s", key))
		return true
	}

	return false
}

// captionImage captions one image and writes its summary document. A single
// image in the folder is named image_summary.json; otherwise the output
// carries the image's base name. Returns true on success.
func (st *SummarizeStage) captionImage(ctx context.Context, folder, key string, only bool, report func(string)) bool {
	data, _, err := st.store.Get(ctx, st.inputBucket, key)
	if err != nil {
		report(fmt.Sprintf("Error reading %s: %v", key, err))
		return false
	}

	caption, err := st.images.Caption(ctx, data, summarizer.MediaTypeForKey(key))
	if err != nil {
		report(fmt.Sprintf("Error captioning %s: %v", key, err))
		return false
	}

	outKey := folder + imageSummaryName(key, only)
	if err := st.writeSummary(ctx, outKey, summaryDoc{
		Filename:    path.Base(key),
		SummaryType: "image",
		Summary:     caption,
	}); err != nil {
		report(fmt.Sprintf("Error saving caption for %s: %v", key, err))
		return false
	}

	report(fmt.Sprintf("Saved image summary for %s", key))
	return true
}

func (st *SummarizeStage) writeSummary(ctx context.Context, key string, doc summaryDoc) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return st.store.Upload(ctx, st.outputBucket, key, body, "application/json")
}

// imageSummaryName names the caption document: image_summary.json when the
// folder holds exactly one image, <base>_image_summary.json otherwise.
func imageSummaryName(key string, only bool) string {
	if only {
		return "image_summary.json"
	}
	base := path.Base(key)
	base = strings.TrimSuffix(base, path.Ext(base))
	return base + "_image_summary.json"
}
