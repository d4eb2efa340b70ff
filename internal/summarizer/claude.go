package summarizer

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const (
	defaultTextModel    = "claude-3-5-haiku-latest"
	defaultCaptionModel = "claude-3-5-haiku-latest"
	defaultMaxTokens    = 1024
	defaultTimeout      = 2 * time.Minute
)

const summarizePrompt = "Summarize the following article in a short paragraph. " +
	"Reply with the summary only, no preamble.\n\n"

const captionPrompt = "Describe this image in one sentence. Reply with the caption only."

// ClaudeConfig holds settings for the Anthropic-backed summarizer.
type ClaudeConfig struct {
	APIKey       string
	TextModel    string
	CaptionModel string
	MaxTokens    int
	Timeout      time.Duration
}

// ClaudeSummarizer implements TextSummarizer and ImageCaptioner using the
// Anthropic Messages API.
type ClaudeSummarizer struct {
	client       anthropic.Client
	textModel    string
	captionModel string
	maxTokens    int64
	timeout      time.Duration
}

// NewClaudeSummarizer creates a ClaudeSummarizer.
func NewClaudeSummarizer(cfg ClaudeConfig) (*ClaudeSummarizer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Anthropic API key is required (set ANTHROPIC_API_KEY)")
	}
	if cfg.TextModel == "" {
		cfg.TextModel = defaultTextModel
	}
	if cfg.CaptionModel == "" {
		cfg.CaptionModel = defaultCaptionModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}

	return &ClaudeSummarizer{
		client:       anthropic.NewClient(option.WithAPIKey(cfg.APIKey)),
		textModel:    cfg.TextModel,
		captionModel: cfg.CaptionModel,
		maxTokens:    int64(cfg.MaxTokens),
		timeout:      cfg.Timeout,
	}, nil
}

// Summarize produces a summary for text.
func (s *ClaudeSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", ErrEmptyText
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.textModel),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(summarizePrompt + text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("summarization call failed: %w", err)
	}

	out := collectText(resp)
	if out == "" {
		return "", fmt.Errorf("summarization returned empty output")
	}
	return out, nil
}

// Caption produces a caption for raw image bytes.
func (s *ClaudeSummarizer) Caption(ctx context.Context, image []byte, mediaType string) (string, error) {
	if len(image) == 0 {
		return "", fmt.Errorf("unreadable image: empty data")
	}
	if mediaType == "" {
		mediaType = "image/jpeg"
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	encoded := base64.StdEncoding.EncodeToString(image)

	resp, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(s.captionModel),
		MaxTokens: s.maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(
				anthropic.NewImageBlockBase64(mediaType, encoded),
				anthropic.NewTextBlock(captionPrompt),
			),
		},
	})
	if err != nil {
		return "", fmt.Errorf("caption call failed: %w", err)
	}

	out := collectText(resp)
	if out == "" {
		return "", fmt.Errorf("caption returned empty output")
	}
	return out, nil
}

func collectText(resp *anthropic.Message) string {
	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	return strings.TrimSpace(b.String())
}
