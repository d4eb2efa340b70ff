package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// PipelineService is the orchestration surface the stage handlers call.
type PipelineService interface {
	StartScrape(req domain.StartScrapeRequest) (string, error)
	StartConvert(req domain.StartSessionRequest) (string, error)
	StartSummarize(req domain.StartSessionRequest) (string, error)
	Stop(kind domain.StageKind) error
	Status(kind domain.StageKind) domain.StageStatus
}

// PipelineHandler serves the start/stop/status triads for all three stages.
type PipelineHandler struct {
	service PipelineService
}

// NewPipelineHandler creates a new PipelineHandler
func NewPipelineHandler(service PipelineService) *PipelineHandler {
	return &PipelineHandler{service: service}
}

// StartScrape handles POST /api/v1/scrape/start
func (h *PipelineHandler) StartScrape(w http.ResponseWriter, r *http.Request) {
	var req domain.StartScrapeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID, err := h.service.StartScrape(req)
	if err != nil {
		renderGateError(w, err)
		return
	}

	log.Printf("[Pipeline] scrape started, session %s", sessionID)
	RenderJSON(w, http.StatusOK, map[string]string{
		"message":   "Scraping started",
		"sessionId": sessionID,
	})
}

// StartConvert handles POST /api/v1/convert/start
func (h *PipelineHandler) StartConvert(w http.ResponseWriter, r *http.Request) {
	var req domain.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID, err := h.service.StartConvert(req)
	if err != nil {
		renderGateError(w, err)
		return
	}

	log.Printf("[Pipeline] convert started, session %s", sessionID)
	RenderJSON(w, http.StatusOK, map[string]string{
		"message":   "Conversion started",
		"sessionId": sessionID,
	})
}

// StartSummarize handles POST /api/v1/summarize/start
func (h *PipelineHandler) StartSummarize(w http.ResponseWriter, r *http.Request) {
	var req domain.StartSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RenderError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	sessionID, err := h.service.StartSummarize(req)
	if err != nil {
		renderGateError(w, err)
		return
	}

	log.Printf("[Pipeline] summarize started, session %s", sessionID)
	RenderJSON(w, http.StatusOK, map[string]string{
		"message":   "Summarization started",
		"sessionId": sessionID,
	})
}

// Stop handles POST /api/v1/{stage}/stop for a fixed stage kind.
func (h *PipelineHandler) Stop(kind domain.StageKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.service.Stop(kind); err != nil {
			renderGateError(w, err)
			return
		}
		RenderJSON(w, http.StatusOK, map[string]string{
			"message": "Stop requested",
		})
	}
}

// scrapeStatusResponse flattens the scrape snapshot for pollers.
type scrapeStatusResponse struct {
	IsActive      bool              `json:"isActive"`
	Progress      int               `json:"progress"`
	ArticlesFound int               `json:"articlesFound"`
	ArticlesSaved int               `json:"articlesSaved"`
	ImagesFound   int               `json:"imagesFound"`
	Completed     bool              `json:"completed"`
	Error         string            `json:"error,omitempty"`
	SessionID     string            `json:"sessionId,omitempty"`
	TargetBucket  string            `json:"targetBucket,omitempty"`
	Logs          []domain.LogEntry `json:"logs"`
}

type convertStatusResponse struct {
	IsActive       bool              `json:"isActive"`
	FilesConverted int               `json:"filesConverted"`
	Completed      bool              `json:"completed"`
	Error          string            `json:"error,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	TargetBucket   string            `json:"targetBucket,omitempty"`
	Logs           []domain.LogEntry `json:"logs"`
}

type summarizeStatusResponse struct {
	IsActive       bool              `json:"isActive"`
	TextSummaries  int               `json:"textSummaries"`
	ImageSummaries int               `json:"imageSummaries"`
	TotalFolders   int               `json:"totalFolders"`
	Completed      bool              `json:"completed"`
	Error          string            `json:"error,omitempty"`
	SessionID      string            `json:"sessionId,omitempty"`
	TargetBucket   string            `json:"targetBucket,omitempty"`
	Logs           []domain.LogEntry `json:"logs"`
}

// ScrapeStatus handles GET /api/v1/scrape/status
func (h *PipelineHandler) ScrapeStatus(w http.ResponseWriter, r *http.Request) {
	st := h.service.Status(domain.StageScrape)
	RenderJSON(w, http.StatusOK, scrapeStatusResponse{
		IsActive:      st.IsActive,
		Progress:      st.Stats.Progress,
		ArticlesFound: st.Stats.ArticlesFound,
		ArticlesSaved: st.Stats.ArticlesSaved,
		ImagesFound:   st.Stats.ImagesFound,
		Completed:     st.Stats.Completed,
		Error:         st.Stats.Error,
		SessionID:     st.Stats.SessionID,
		TargetBucket:  st.Stats.TargetBucket,
		Logs:          logsOrEmpty(st.Logs),
	})
}

// ConvertStatus handles GET /api/v1/convert/status
func (h *PipelineHandler) ConvertStatus(w http.ResponseWriter, r *http.Request) {
	st := h.service.Status(domain.StageConvert)
	RenderJSON(w, http.StatusOK, convertStatusResponse{
		IsActive:       st.IsActive,
		FilesConverted: st.Stats.FilesConverted,
		Completed:      st.Stats.Completed,
		Error:          st.Stats.Error,
		SessionID:      st.Stats.SessionID,
		TargetBucket:   st.Stats.TargetBucket,
		Logs:           logsOrEmpty(st.Logs),
	})
}

// SummarizeStatus handles GET /api/v1/summarize/status
func (h *PipelineHandler) SummarizeStatus(w http.ResponseWriter, r *http.Request) {
	st := h.service.Status(domain.StageSummarize)
	RenderJSON(w, http.StatusOK, summarizeStatusResponse{
		IsActive:       st.IsActive,
		TextSummaries:  st.Stats.TextSummaries,
		ImageSummaries: st.Stats.ImageSummaries,
		TotalFolders:   st.Stats.TotalFolders,
		Completed:      st.Stats.Completed,
		Error:          st.Stats.Error,
		SessionID:      st.Stats.SessionID,
		TargetBucket:   st.Stats.TargetBucket,
		Logs:           logsOrEmpty(st.Logs),
	})
}

// logsOrEmpty keeps the logs field a JSON array even when empty.
func logsOrEmpty(logs []domain.LogEntry) []domain.LogEntry {
	if logs == nil {
		return []domain.LogEntry{}
	}
	return logs
}

// renderGateError maps gate rejections to 400 responses.
func renderGateError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrAlreadyActive),
		errors.Is(err, domain.ErrNotActive),
		errors.Is(err, domain.ErrInvalidInput):
		RenderError(w, http.StatusBadRequest, err.Error())
	default:
		RenderError(w, http.StatusInternalServerError, err.Error())
	}
}
