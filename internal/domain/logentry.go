package domain

import (
	"strings"
	"time"
)

// LogCategory is a heuristic severity label attached to a raw output line.
// The producers (scraper process, remote shell) emit free text with no
// schema, so this is a display concern rather than a structured log level.
type LogCategory string

const (
	LogInfo    LogCategory = "info"
	LogSuccess LogCategory = "success"
	LogWarning LogCategory = "warning"
	LogError   LogCategory = "error"
)

// LogEntry is one timestamped, classified line of job output.
// Immutable once appended; ordering is append order.
type LogEntry struct {
	Timestamp string      `json:"timestamp"`
	Message   string      `json:"message"`
	Category  LogCategory `json:"type"`
}

// Keyword sets scanned in precedence order. First match wins, so a line
// mentioning both an error and a success keyword still surfaces as an error.
var (
	errorKeywords   = []string{"error", "failed", "exception"}
	successKeywords = []string{"success", "saved", "complete", "downloaded"}
	warningKeywords = []string{"warning", "filtered"}
)

// ClassifyLine maps a raw output line to a log category using
// case-insensitive keyword scanning.
func ClassifyLine(line string) LogCategory {
	lower := strings.ToLower(line)

	for _, kw := range errorKeywords {
		if strings.Contains(lower, kw) {
			return LogError
		}
	}
	for _, kw := range successKeywords {
		if strings.Contains(lower, kw) {
			return LogSuccess
		}
	}
	for _, kw := range warningKeywords {
		if strings.Contains(lower, kw) {
			return LogWarning
		}
	}

	return LogInfo
}

// NewLogEntry wraps a message with the current wall-clock time and its
// classified category.
func NewLogEntry(message string, category LogCategory) LogEntry {
	return LogEntry{
		Timestamp: time.Now().Format("15:04:05"),
		Message:   message,
		Category:  category,
	}
}
