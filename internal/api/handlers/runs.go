package handlers

import (
	"net/http"
	"strconv"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// RunHandler serves stage run history.
type RunHandler struct {
	runs domain.RunRepository
}

// NewRunHandler creates a new RunHandler
func NewRunHandler(runs domain.RunRepository) *RunHandler {
	return &RunHandler{runs: runs}
}

// List handles GET /api/v1/runs?kind=&limit=&offset=
func (h *RunHandler) List(w http.ResponseWriter, r *http.Request) {
	params := domain.RunListParams{Limit: 50}

	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			RenderError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		params.Limit = limit
	}
	// Clamp here so the pagination metadata matches what the repository
	// actually returns.
	if params.Limit > 100 {
		params.Limit = 50
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			RenderError(w, http.StatusBadRequest, "invalid offset")
			return
		}
		params.Offset = offset
	}
	if v := r.URL.Query().Get("kind"); v != "" {
		kind := domain.StageKind(v)
		if !kind.IsValid() {
			RenderError(w, http.StatusBadRequest, "invalid kind")
			return
		}
		params.Kind = &kind
	}

	runs, total, err := h.runs.List(r.Context(), params)
	if err != nil {
		RenderError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if runs == nil {
		runs = []*domain.StageRun{}
	}

	page := params.Offset/params.Limit + 1
	RenderJSON(w, http.StatusOK, NewPaginatedResponse(runs, total, page, params.Limit))
}
