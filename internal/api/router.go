// Package api wires the HTTP surface: the stage start/stop/status triads,
// storage browsing and run history, behind the shared middleware chain.
package api

import (
	"net/http"

	"github.com/bocklabs/bockscraper/internal/api/handlers"
	"github.com/bocklabs/bockscraper/internal/domain"
)

// Router sets up all API routes
type Router struct {
	mux      *http.ServeMux
	pipeline *handlers.PipelineHandler
	storage  *handlers.StorageHandler
	runs     *handlers.RunHandler
	version  string
}

// NewRouter creates a new Router. runs may be nil when run history is
// disabled.
func NewRouter(
	pipeline *handlers.PipelineHandler,
	storage *handlers.StorageHandler,
	runs *handlers.RunHandler,
	version string,
) *Router {
	return &Router{
		mux:      http.NewServeMux(),
		pipeline: pipeline,
		storage:  storage,
		runs:     runs,
		version:  version,
	}
}

// Setup configures all routes
func (r *Router) Setup(token string) http.Handler {
	// Stage triads
	r.mux.HandleFunc("POST /api/v1/scrape/start", r.pipeline.StartScrape)
	r.mux.HandleFunc("POST /api/v1/scrape/stop", r.pipeline.Stop(domain.StageScrape))
	r.mux.HandleFunc("GET /api/v1/scrape/status", r.pipeline.ScrapeStatus)

	r.mux.HandleFunc("POST /api/v1/convert/start", r.pipeline.StartConvert)
	r.mux.HandleFunc("POST /api/v1/convert/stop", r.pipeline.Stop(domain.StageConvert))
	r.mux.HandleFunc("GET /api/v1/convert/status", r.pipeline.ConvertStatus)

	r.mux.HandleFunc("POST /api/v1/summarize/start", r.pipeline.StartSummarize)
	r.mux.HandleFunc("POST /api/v1/summarize/stop", r.pipeline.Stop(domain.StageSummarize))
	r.mux.HandleFunc("GET /api/v1/summarize/status", r.pipeline.SummarizeStatus)

	// Storage browsing
	r.mux.HandleFunc("POST /api/v1/storage/list", r.storage.List)
	r.mux.HandleFunc("POST /api/v1/storage/download", r.storage.Download)

	// Run history
	if r.runs != nil {
		r.mux.HandleFunc("GET /api/v1/runs", r.runs.List)
	}

	r.mux.HandleFunc("GET /api/v1/health", r.health)

	// Apply middleware
	return Chain(r.mux,
		Recovery,
		Logger,
		CORS,
		SecurityHeaders,
		Auth(token),
	)
}

func (r *Router) health(w http.ResponseWriter, req *http.Request) {
	handlers.RenderJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": r.version,
	})
}
