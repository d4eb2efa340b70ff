package progress

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bocklabs/bockscraper/internal/domain"
)

func TestDiscoveryPhaseProgress(t *testing.T) {
	// After N of maxArticles=10 "article found" lines with no image lines,
	// progress equals min(15 + N*6, 75) exactly.
	for n := 0; n <= 10; n++ {
		t.Run(fmt.Sprintf("N=%d", n), func(t *testing.T) {
			est := NewEstimator(10)
			stats := domain.StageStats{}

			for i := 0; i < n; i++ {
				est.Observe("VERIFIED ARTICLE found", &stats)
			}

			expected := 15 + n*6
			if expected > 75 {
				expected = 75
			}
			if n == 0 {
				expected = 0
			}

			assert.Equal(t, n, stats.ArticlesFound)
			assert.Equal(t, expected, stats.Progress)
		})
	}
}

func TestDiscoveryCapsAt75(t *testing.T) {
	est := NewEstimator(10)
	stats := domain.StageStats{}

	for i := 0; i < 25; i++ {
		est.Observe("Article 12: some headline", &stats)
	}

	assert.Equal(t, 25, stats.ArticlesFound)
	assert.Equal(t, 75, stats.Progress)
}

func TestAssetPhaseProgress(t *testing.T) {
	est := NewEstimator(10)
	stats := domain.StageStats{}

	for i := 0; i < 10; i++ {
		est.Observe("VERIFIED ARTICLE found", &stats)
	}
	est.Observe("Saved image.jpg for article 1", &stats)

	// 75 + (1/10)*15 = 76.5 -> 76
	assert.Equal(t, 1, stats.ImagesFound)
	assert.Equal(t, 76, stats.Progress)

	for i := 0; i < 20; i++ {
		est.Observe("SUCCESS image.jpg downloaded", &stats)
	}
	assert.Equal(t, 90, stats.Progress)
}

func TestImageWithoutArticlesUsesFloorOfOne(t *testing.T) {
	est := NewEstimator(10)
	stats := domain.StageStats{}

	est.Observe("Saved image.jpg", &stats)

	// 75 + (1/1)*15 = 90
	assert.Equal(t, 90, stats.Progress)
}

func TestCompletionMarkerForces95(t *testing.T) {
	est := NewEstimator(10)
	stats := domain.StageStats{}

	est.Observe("VERIFIED ARTICLE found", &stats)
	assert.Equal(t, 21, stats.Progress)

	est.Observe("SCRAPE COMPLETE", &stats)
	assert.Equal(t, 95, stats.Progress)

	est2 := NewEstimator(10)
	stats2 := domain.StageStats{}
	est2.Observe("run completed successfully", &stats2)
	assert.Equal(t, 95, stats2.Progress)
}

func TestSavedCounterOnly(t *testing.T) {
	est := NewEstimator(10)
	stats := domain.StageStats{}

	est.Observe("SAVED: article body", &stats)

	assert.Equal(t, 1, stats.ArticlesSaved)
	assert.Equal(t, 0, stats.ArticlesFound)
	assert.Equal(t, 0, stats.Progress)
}

func TestSavedCounterIncludesFilenameMentions(t *testing.T) {
	est := NewEstimator(10)
	stats := domain.StageStats{}

	// Any mention of the article file counts as a save; one article may be
	// counted across multiple lines.
	est.Observe("SUCCESS: Saved article body", &stats)
	est.Observe("wrote /out/session_1/art1/article.json", &stats)

	assert.Equal(t, 2, stats.ArticlesSaved)
}
