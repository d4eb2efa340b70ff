package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bocklabs/bockscraper/internal/domain"
)

type fakeRunRepo struct {
	lastParams domain.RunListParams
	runs       []*domain.StageRun
	total      int
}

func (f *fakeRunRepo) Create(context.Context, *domain.StageRun) error { return nil }

func (f *fakeRunRepo) Finish(context.Context, uuid.UUID, domain.RunStatus, *string) error {
	return nil
}

func (f *fakeRunRepo) List(_ context.Context, params domain.RunListParams) ([]*domain.StageRun, int, error) {
	f.lastParams = params
	return f.runs, f.total, nil
}

func TestRunListClampsOversizedLimit(t *testing.T) {
	repo := &fakeRunRepo{total: 120}
	handler := NewRunHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/runs?limit=500", nil)
	rec := httptest.NewRecorder()
	handler.List(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 50, repo.lastParams.Limit, "repository must see the clamped limit")

	var resp PaginatedResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 50, resp.PerPage, "metadata must reflect the limit actually applied")
	assert.Equal(t, 120, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
}

func TestRunListRejectsBadParams(t *testing.T) {
	handler := NewRunHandler(&fakeRunRepo{})

	tests := []struct {
		name  string
		query string
	}{
		{name: "non-numeric limit", query: "?limit=abc"},
		{name: "zero limit", query: "?limit=0"},
		{name: "negative offset", query: "?offset=-1"},
		{name: "unknown kind", query: "?kind=upload"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/v1/runs"+tt.query, nil)
			rec := httptest.NewRecorder()
			handler.List(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}
