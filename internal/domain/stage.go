package domain

import (
	"errors"
	"fmt"
	"time"
)

// StageKind identifies one independently gated pipeline phase.
type StageKind string

const (
	StageScrape    StageKind = "scrape"
	StageConvert   StageKind = "convert"
	StageSummarize StageKind = "summarize"
)

// Kinds lists all stage kinds in pipeline order.
func Kinds() []StageKind {
	return []StageKind{StageScrape, StageConvert, StageSummarize}
}

// IsValid returns true for a known stage kind.
func (k StageKind) IsValid() bool {
	switch k {
	case StageScrape, StageConvert, StageSummarize:
		return true
	}
	return false
}

// Common gate errors
var (
	ErrAlreadyActive = errors.New("a job of this kind is already in progress")
	ErrNotActive     = errors.New("no active job of this kind")
	ErrInvalidInput  = errors.New("invalid input")
)

// InvalidInputError wraps ErrInvalidInput with the offending field name so
// handlers can return a descriptive rejection.
func InvalidInputError(field string) error {
	return fmt.Errorf("%w: %s is required", ErrInvalidInput, field)
}

// NewSessionID derives a session identifier from a start time, matching the
// session_<unix> layout used for output prefixes in object storage.
func NewSessionID(t time.Time) string {
	return fmt.Sprintf("session_%d", t.Unix())
}

// StageStats is the mutable counter record owned by a stage's running job.
// One record is active per stage at a time; it is reset to the zero value on
// start and mutated only by the owning worker. Status queries receive copies.
//
// Counters that do not apply to a stage stay at zero and are omitted from
// JSON output by the handler shaping that stage's response.
type StageStats struct {
	ArticlesFound  int    `json:"articlesFound"`
	ArticlesSaved  int    `json:"articlesSaved"`
	ImagesFound    int    `json:"imagesFound"`
	FilesConverted int    `json:"filesConverted"`
	TextSummaries  int    `json:"textSummaries"`
	ImageSummaries int    `json:"imageSummaries"`
	TotalFolders   int    `json:"totalFolders"`
	Progress       int    `json:"progress"`
	Completed      bool   `json:"completed"`
	Error          string `json:"error,omitempty"`
	SessionID      string `json:"sessionId,omitempty"`
	TargetBucket   string `json:"targetBucket,omitempty"`
}

// StageStatus is the immutable snapshot returned by a status query.
// Note: completed=true with zero counters means every item in the batch
// failed; callers must inspect the counters, not just Completed.
type StageStatus struct {
	Stats    StageStats `json:"stats"`
	Logs     []LogEntry `json:"logs"`
	IsActive bool       `json:"isActive"`
}

// StartScrapeRequest is the request to start a scrape job.
type StartScrapeRequest struct {
	URL         string `json:"url"`
	MaxArticles int    `json:"maxArticles"`
}

// Validate checks required fields and applies defaults.
func (r *StartScrapeRequest) Validate() error {
	if r.URL == "" {
		return InvalidInputError("url")
	}
	if r.MaxArticles <= 0 {
		r.MaxArticles = 10
	}
	return nil
}

// StartSessionRequest is the request to start a convert or summarize job
// against an existing session prefix.
type StartSessionRequest struct {
	SourceSession string `json:"sourceSession"`
}

// Validate checks required fields.
func (r *StartSessionRequest) Validate() error {
	if r.SourceSession == "" {
		return InvalidInputError("sourceSession")
	}
	return nil
}
