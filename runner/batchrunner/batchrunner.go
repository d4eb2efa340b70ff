// Package batchrunner implements the one-shot summarize-all mode: it sweeps
// every article folder in the scrape bucket, writes summaries, reports
// counters, and exits.
package batchrunner

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/bocklabs/bockscraper/internal/pipeline"
	"github.com/bocklabs/bockscraper/internal/storage"
	"github.com/bocklabs/bockscraper/internal/summarizer"
	"github.com/bocklabs/bockscraper/runner"
	"github.com/bocklabs/bockscraper/tlmt"
)

type BatchRunner struct {
	cfg   *runner.Config
	stage *pipeline.SummarizeStage
}

func New(cfg *runner.Config) (runner.Runner, error) {
	var (
		store storage.Store
		err   error
	)

	if cfg.StorageDir != "" {
		store, err = storage.NewLocalStore(cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}
	} else {
		store, err = storage.NewS3Store(context.Background(), cfg.AwsRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to S3: %w", err)
		}
	}

	claude, err := summarizer.NewClaudeSummarizer(summarizer.ClaudeConfig{
		APIKey:       cfg.AnthropicAPIKey,
		TextModel:    cfg.TextModel,
		CaptionModel: cfg.CaptionModel,
		Timeout:      cfg.ClaudeTimeout,
	})
	if err != nil {
		return nil, err
	}

	stage := pipeline.NewSummarizeStage(
		store,
		summarizer.NewSafeSummarizer(claude),
		claude,
		cfg.ScrapeBucket,
		cfg.SummaryBucket,
	)

	return &BatchRunner{cfg: cfg, stage: stage}, nil
}

func (b *BatchRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("summarize_batch", map[string]any{
		"version": runner.Version,
	})
	_ = runner.Telemetry().Send(ctx, evt)

	prefix := b.cfg.SummarizePrefix
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	log.Printf("[Batch] summarizing bucket %s (prefix %q)", b.cfg.ScrapeBucket, prefix)

	report := func(line string) {
		log.Printf("[Batch] %s", line)
	}
	cancelled := func() bool {
		return ctx.Err() != nil
	}

	result, err := b.stage.Sweep(ctx, prefix, report, cancelled, nil)
	if err != nil {
		return err
	}

	log.Printf("[Batch] done: %d folders, %d text summaries, %d image summaries",
		result.TotalFolders, result.TextSummaries, result.ImageSummaries)

	return nil
}

func (b *BatchRunner) Close(_ context.Context) error {
	return nil
}
