// Package progress derives a coarse completion percentage for the scrape
// stage from unstructured scraper output. It is a staged heuristic over free
// text: intended to be monotonic but not strictly guaranteed (a late burst of
// "found" lines can raise it after a plateau). That behavior is deliberate.
package progress

import (
	"strings"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// Fixed milestone jumps for the connection/setup phase.
const (
	MilestoneConnectStart    = 5
	MilestoneConnectOK       = 10
	MilestoneCommandDispatch = 15
)

// Terminal values.
const (
	nearComplete = 95
	Complete     = 100
)

// Estimator updates scrape counters and the progress percentage as each
// output line arrives. Not safe for concurrent use; it is owned by the single
// job worker.
type Estimator struct {
	maxArticles int
}

// NewEstimator creates an Estimator for a job targeting maxArticles.
func NewEstimator(maxArticles int) *Estimator {
	if maxArticles < 1 {
		maxArticles = 1
	}
	return &Estimator{maxArticles: maxArticles}
}

// Observe inspects one output line and updates stats in place.
func (e *Estimator) Observe(line string, stats *domain.StageStats) {
	if isArticleFound(line) {
		stats.ArticlesFound++
		pct := 15 + float64(stats.ArticlesFound)/float64(e.maxArticles)*60
		if pct > 75 {
			pct = 75
		}
		stats.Progress = int(pct)
	}

	if isArticleSaved(line) {
		stats.ArticlesSaved++
	}

	if isImageSaved(line) {
		stats.ImagesFound++
		found := stats.ArticlesFound
		if found < 1 {
			found = 1
		}
		pct := 75 + float64(stats.ImagesFound)/float64(found)*15
		if pct > 90 {
			pct = 90
		}
		stats.Progress = int(pct)
	}

	if isCompletionMarker(line) {
		stats.Progress = nearComplete
	}
}

func isArticleFound(line string) bool {
	if strings.Contains(line, "VERIFIED ARTICLE") {
		return true
	}
	return strings.Contains(line, "Article") && strings.Contains(line, ":")
}

// isArticleSaved matches any line naming article.json, not just explicit
// save markers, so one article can be counted once per line that mentions
// its file. The saved counter is calibrated against that over-count; do not
// dedupe.
func isArticleSaved(line string) bool {
	return strings.Contains(line, "SAVED:") ||
		strings.Contains(line, "SUCCESS: Saved") ||
		strings.Contains(line, "article.json")
}

func isImageSaved(line string) bool {
	if !strings.Contains(line, "image.jpg") {
		return false
	}
	return strings.Contains(line, "SUCCESS") ||
		strings.Contains(line, "Saved") ||
		strings.Contains(line, "Downloaded")
}

func isCompletionMarker(line string) bool {
	return strings.Contains(strings.ToUpper(line), "COMPLETE") ||
		strings.Contains(line, "completed successfully")
}
