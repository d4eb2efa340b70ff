package serverrunner

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/bocklabs/bockscraper/internal/api"
	"github.com/bocklabs/bockscraper/internal/api/handlers"
	"github.com/bocklabs/bockscraper/internal/cache"
	"github.com/bocklabs/bockscraper/internal/domain"
	"github.com/bocklabs/bockscraper/internal/events"
	"github.com/bocklabs/bockscraper/internal/execbackend"
	"github.com/bocklabs/bockscraper/internal/heartbeat"
	"github.com/bocklabs/bockscraper/internal/pipeline"
	"github.com/bocklabs/bockscraper/internal/repository/postgres"
	"github.com/bocklabs/bockscraper/internal/repository/sqlite"
	"github.com/bocklabs/bockscraper/internal/storage"
	"github.com/bocklabs/bockscraper/internal/summarizer"
	"github.com/bocklabs/bockscraper/runner"
	"github.com/bocklabs/bockscraper/tlmt"
)

// ServerRunner hosts the pipeline API server together with its background
// stall monitor.
type ServerRunner struct {
	cfg       *runner.Config
	db        *sql.DB
	srv       *http.Server
	store     storage.Store
	cch       cache.Cache
	publisher events.Publisher
	backend   execbackend.Backend
	hbMonitor *heartbeat.Monitor
}

// New wires every dependency the server needs. Optional infrastructure
// (Redis, RabbitMQ, SSH, Postgres) is selected by configuration; each has a
// local or no-op fallback so the server also runs standalone.
func New(cfg *runner.Config) (runner.Runner, error) {
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}

	if err := os.MkdirAll(cfg.DataFolder, os.ModePerm); err != nil {
		return nil, err
	}

	store, err := newStore(cfg)
	if err != nil {
		return nil, err
	}

	cch := newCache(cfg)
	publisher := newPublisher(cfg)

	db, runRepo, err := newRunRepository(cfg)
	if err != nil {
		return nil, err
	}

	backend, err := newBackend(cfg)
	if err != nil {
		db.Close()

		return nil, err
	}

	text, images, err := newSummarizers(cfg)
	if err != nil {
		db.Close()

		return nil, err
	}

	registry := pipeline.NewRegistry(runRepo, publisher)

	scrapeStage := pipeline.NewScrapeStage(backend, store, pipeline.ScrapeConfig{
		Program: cfg.ScraperProgram,
		WorkDir: cfg.DataFolder,
		Bucket:  cfg.ScrapeBucket,
	})
	convertStage := pipeline.NewConvertStage(store, cfg.ScrapeBucket)
	summarizeStage := pipeline.NewSummarizeStage(store, text, images, cfg.ScrapeBucket, cfg.SummaryBucket)

	svc := pipeline.NewService(registry, scrapeStage, convertStage, summarizeStage)

	pipelineHandler := handlers.NewPipelineHandler(svc)
	storageHandler := handlers.NewStorageHandler(store, cch)
	runHandler := handlers.NewRunHandler(runRepo)

	router := api.NewRouter(pipelineHandler, storageHandler, runHandler, runner.Version)
	handler := router.Setup(cfg.APIToken)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	hbMonitor := heartbeat.NewMonitor(registry, 0, 0)

	return &ServerRunner{
		cfg:       cfg,
		db:        db,
		srv:       srv,
		store:     store,
		cch:       cch,
		publisher: publisher,
		backend:   backend,
		hbMonitor: hbMonitor,
	}, nil
}

// Run starts the HTTP server and the stall monitor.
func (s *ServerRunner) Run(ctx context.Context) error {
	evt := tlmt.NewEvent("server_start", map[string]any{
		"version": runner.Version,
	})
	_ = runner.Telemetry().Send(ctx, evt)

	egroup, ctx := errgroup.WithContext(ctx)

	egroup.Go(func() error {
		return s.hbMonitor.Run(ctx)
	})

	egroup.Go(func() error {
		return s.startServer(ctx)
	})

	return egroup.Wait()
}

// Close cleans up resources
func (s *ServerRunner) Close(_ context.Context) error {
	if s.backend != nil {
		_ = s.backend.Close()
	}

	if s.publisher != nil {
		_ = s.publisher.Close()
	}

	if s.cch != nil {
		_ = s.cch.Close()
	}

	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func (s *ServerRunner) startServer(ctx context.Context) error {
	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := s.srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("error shutting down server: %v", err)
		}
	}()

	log.Printf("pipeline API server starting on http://localhost%s", s.cfg.Addr)
	log.Printf("API endpoints available at /api/v1/")

	err := s.srv.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

func newStore(cfg *runner.Config) (storage.Store, error) {
	if cfg.StorageDir != "" {
		store, err := storage.NewLocalStore(cfg.StorageDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open local storage: %w", err)
		}

		log.Printf("using local storage directory: %s", cfg.StorageDir)

		return store, nil
	}

	store, err := storage.NewS3Store(context.Background(), cfg.AwsRegion)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to S3: %w", err)
	}

	log.Printf("using S3 storage in region %s", cfg.AwsRegion)

	return store, nil
}

func newCache(cfg *runner.Config) cache.Cache {
	if cfg.RedisAddr == "" {
		return cache.NewNoOpCache()
	}

	redisCache, err := cache.NewRedisCache(cache.Config{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	if err != nil {
		log.Printf("WARNING: Redis unavailable, browse cache disabled: %v", err)

		return cache.NewNoOpCache()
	}

	log.Printf("using Redis browse cache at %s", cfg.RedisAddr)

	return redisCache
}

func newPublisher(cfg *runner.Config) events.Publisher {
	if cfg.RabbitMQURL == "" {
		return events.NewNoopPublisher()
	}

	publisher, err := events.NewAMQPPublisher(events.Config{URL: cfg.RabbitMQURL})
	if err != nil {
		log.Printf("WARNING: RabbitMQ unavailable, stage events disabled: %v", err)

		return events.NewNoopPublisher()
	}

	log.Printf("publishing stage events to RabbitMQ")

	return publisher
}

func newRunRepository(cfg *runner.Config) (*sql.DB, domain.RunRepository, error) {
	dsn := cfg.Dsn

	isPostgres := strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")

	if isPostgres {
		db, err := postgres.OpenConnection(dsn)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}

		if err := postgres.RunMigrations(db); err != nil {
			db.Close()

			return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
		}

		log.Printf("using PostgreSQL run history")

		return db, postgres.NewRunRepository(db), nil
	}

	if dsn == "" {
		dsn = "bockscraper.db"
	}

	db, err := sqlite.OpenConnection(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := sqlite.RunMigrations(db); err != nil {
		db.Close()

		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Printf("using SQLite run history: %s", dsn)

	return db, sqlite.NewRunRepository(db), nil
}

func newBackend(cfg *runner.Config) (execbackend.Backend, error) {
	if cfg.SSHHost == "" {
		return execbackend.NewLocalBackend(), nil
	}

	backend, err := execbackend.NewSSHBackend(execbackend.SSHConfig{
		Host:        cfg.SSHHost,
		User:        cfg.SSHUser,
		KeyPath:     cfg.SSHKeyPath,
		KillPattern: cfg.SSHKillPattern,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to scraper host: %w", err)
	}

	log.Printf("running scraper over SSH on %s", cfg.SSHHost)

	return backend, nil
}

func newSummarizers(cfg *runner.Config) (summarizer.TextSummarizer, summarizer.ImageCaptioner, error) {
	claude, err := summarizer.NewClaudeSummarizer(summarizer.ClaudeConfig{
		APIKey:       cfg.AnthropicAPIKey,
		TextModel:    cfg.TextModel,
		CaptionModel: cfg.CaptionModel,
		Timeout:      cfg.ClaudeTimeout,
	})
	if err != nil {
		return nil, nil, err
	}

	return summarizer.NewSafeSummarizer(claude), claude, nil
}
