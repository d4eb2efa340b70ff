package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyLine(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		expected LogCategory
	}{
		{
			name:     "Plain info line",
			line:     "Fetching page 3 of 10",
			expected: LogInfo,
		},
		{
			name:     "Success keyword",
			line:     "SUCCESS: Saved article.json",
			expected: LogSuccess,
		},
		{
			name:     "Warning keyword",
			line:     "Warning: duplicate URL filtered",
			expected: LogWarning,
		},
		{
			name:     "Error keyword",
			line:     "Exception while parsing page",
			expected: LogError,
		},
		{
			name:     "Error wins over success on the same line",
			line:     "Error: file saved but validation failed",
			expected: LogError,
		},
		{
			name:     "Success wins over warning",
			line:     "saved despite warning",
			expected: LogSuccess,
		},
		{
			name:     "Case insensitive",
			line:     "DOWNLOADED image.jpg",
			expected: LogSuccess,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ClassifyLine(tt.line))
		})
	}
}

func TestNewLogEntryTimestampFormat(t *testing.T) {
	entry := NewLogEntry("hello", LogInfo)
	assert.Regexp(t, `^\d{2}:\d{2}:\d{2}$`, entry.Timestamp)
	assert.Equal(t, "hello", entry.Message)
	assert.Equal(t, LogInfo, entry.Category)
}
