package summarizer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedSummarizer fails a configured number of calls before succeeding.
type scriptedSummarizer struct {
	failures int
	calls    int
	output   string
}

func (s *scriptedSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	s.calls++
	if s.calls <= s.failures {
		return "", errors.New("model overloaded")
	}
	return s.output, nil
}

func TestSafeSummarizerHappyPath(t *testing.T) {
	inner := &scriptedSummarizer{output: "a summary"}
	safe := NewSafeSummarizer(inner)

	out, err := safe.Summarize(context.Background(), "some article text here")
	require.NoError(t, err)
	assert.Equal(t, "a summary", out)
	assert.Equal(t, 1, inner.calls)
}

func TestSafeSummarizerTruncatedRetry(t *testing.T) {
	inner := &scriptedSummarizer{failures: 1, output: "degraded summary"}
	safe := NewSafeSummarizer(inner)

	out, err := safe.Summarize(context.Background(), "some article text here")
	require.NoError(t, err)
	assert.Equal(t, "degraded summary", out)
	assert.Equal(t, 2, inner.calls)
}

func TestSafeSummarizerSentenceFallback(t *testing.T) {
	inner := &scriptedSummarizer{failures: 100}
	safe := NewSafeSummarizer(inner)

	out, err := safe.Summarize(context.Background(), "First sentence. Second sentence. Third sentence.")
	require.NoError(t, err)
	assert.Equal(t, "First sentence. Second sentence.", out)
}

func TestSafeSummarizerPrefixFallback(t *testing.T) {
	inner := &scriptedSummarizer{failures: 100}
	safe := NewSafeSummarizer(inner)

	long := strings.Repeat("x", 300)
	out, err := safe.Summarize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("x", 200)+"...", out)
}

func TestSafeSummarizerEmptyInput(t *testing.T) {
	safe := NewSafeSummarizer(&scriptedSummarizer{})

	_, err := safe.Summarize(context.Background(), "   \n\t ")
	assert.ErrorIs(t, err, ErrEmptyText)
}

func TestSafeSummarizerChunksLongInput(t *testing.T) {
	inner := &scriptedSummarizer{output: "part"}
	safe := NewSafeSummarizer(inner)

	// 2000 words -> 3 chunks + 1 combine pass.
	long := strings.TrimSpace(strings.Repeat("word ", 2000))
	out, err := safe.Summarize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, "part", out)
	assert.Equal(t, 4, inner.calls)
}

func TestChunkByWords(t *testing.T) {
	chunks := chunkByWords("a b c d e", 2)
	assert.Equal(t, []string{"a b", "c d", "e"}, chunks)

	assert.Nil(t, chunkByWords("", 10))
}

func TestMediaTypeForKey(t *testing.T) {
	assert.Equal(t, "image/png", MediaTypeForKey("folder/Chart.PNG"))
	assert.Equal(t, "image/jpeg", MediaTypeForKey("folder/photo.jpg"))
	assert.Equal(t, "image/jpeg", MediaTypeForKey("folder/photo.jpeg"))
}
