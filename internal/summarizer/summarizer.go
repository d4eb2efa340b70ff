// Package summarizer wraps the black-box model calls used by the summarize
// stage: text summarization and image captioning. Model internals are out of
// scope; only latency and failure modes matter to the pipeline.
package summarizer

import (
	"context"
	"errors"
	"strings"
)

// TextSummarizer produces a summary for a body of text.
type TextSummarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// ImageCaptioner produces a caption for raw image bytes. It fails with an
// explicit error on unreadable images or empty model output.
type ImageCaptioner interface {
	Caption(ctx context.Context, image []byte, mediaType string) (string, error)
}

// ErrEmptyText is returned when there is nothing to summarize.
var ErrEmptyText = errors.New("text is empty")

const (
	// maxInputChars caps pathological inputs before chunking.
	maxInputChars = 250_000

	// chunkWords is the conservative per-chunk size.
	chunkWords = 800

	// truncatedRetryChars is the input size for the degraded retry.
	truncatedRetryChars = 1000
)

// SafeSummarizer decorates a TextSummarizer with the degrade-gracefully
// chain: full input, then a truncated retry, then the first two sentences,
// then the first 200 characters. Summarize never returns a model failure to
// the caller; only empty input is an error.
type SafeSummarizer struct {
	inner TextSummarizer
}

// NewSafeSummarizer wraps a TextSummarizer with the fallback chain.
func NewSafeSummarizer(inner TextSummarizer) *SafeSummarizer {
	return &SafeSummarizer{inner: inner}
}

// Summarize summarizes text, chunking long inputs and combining the partial
// summaries with a final pass.
func (s *SafeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	cleaned := strings.Join(strings.Fields(text), " ")
	if cleaned == "" {
		return "", ErrEmptyText
	}
	if len(cleaned) > maxInputChars {
		cleaned = cleaned[:maxInputChars]
	}

	chunks := chunkByWords(cleaned, chunkWords)
	if len(chunks) == 1 {
		return s.safeSummarize(ctx, chunks[0]), nil
	}

	partials := make([]string, 0, len(chunks))
	for _, chunk := range chunks {
		partials = append(partials, s.safeSummarize(ctx, chunk))
	}

	return s.safeSummarize(ctx, strings.Join(partials, "\n")), nil
}

func (s *SafeSummarizer) safeSummarize(ctx context.Context, text string) string {
	if out, err := s.inner.Summarize(ctx, text); err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out)
	}

	// Degraded retry with a truncated input.
	truncated := text
	if len(truncated) > truncatedRetryChars {
		truncated = truncated[:truncatedRetryChars]
	}
	if out, err := s.inner.Summarize(ctx, truncated); err == nil && strings.TrimSpace(out) != "" {
		return strings.TrimSpace(out)
	}

	// Last resorts: first two sentences, else a 200-character prefix.
	sentences := strings.SplitN(text, ". ", 3)
	if len(sentences) >= 2 {
		return sentences[0] + ". " + sentences[1] + "."
	}
	if len(text) > 200 {
		return text[:200] + "..."
	}
	return text
}

func chunkByWords(text string, maxWords int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	chunks := make([]string, 0, len(words)/maxWords+1)
	for i := 0; i < len(words); i += maxWords {
		end := i + maxWords
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[i:end], " "))
	}
	return chunks
}

// MediaTypeForKey maps an image key to its MIME type, defaulting to JPEG.
func MediaTypeForKey(key string) string {
	if strings.HasSuffix(strings.ToLower(key), ".png") {
		return "image/png"
	}
	return "image/jpeg"
}
