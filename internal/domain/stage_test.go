package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageKindIsValid(t *testing.T) {
	for _, kind := range Kinds() {
		assert.True(t, kind.IsValid(), "kind %s", kind)
	}

	assert.False(t, StageKind("").IsValid())
	assert.False(t, StageKind("upload").IsValid())
}

func TestNewSessionID(t *testing.T) {
	ts := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	assert.Equal(t, "session_1773480813", NewSessionID(ts))
}

func TestStartScrapeRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     StartScrapeRequest
		wantErr bool
		wantMax int
	}{
		{
			name:    "valid request keeps max articles",
			req:     StartScrapeRequest{URL: "https://example.com", MaxArticles: 25},
			wantMax: 25,
		},
		{
			name:    "zero max articles defaults to 10",
			req:     StartScrapeRequest{URL: "https://example.com"},
			wantMax: 10,
		},
		{
			name:    "negative max articles defaults to 10",
			req:     StartScrapeRequest{URL: "https://example.com", MaxArticles: -3},
			wantMax: 10,
		},
		{
			name:    "missing url rejected",
			req:     StartScrapeRequest{MaxArticles: 5},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()

			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidInput))
				assert.Contains(t, err.Error(), "url")

				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantMax, tt.req.MaxArticles)
		})
	}
}

func TestStartSessionRequestValidate(t *testing.T) {
	req := StartSessionRequest{SourceSession: "session_1700000000"}
	require.NoError(t, req.Validate())

	empty := StartSessionRequest{}
	err := empty.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Contains(t, err.Error(), "sourceSession")
}
