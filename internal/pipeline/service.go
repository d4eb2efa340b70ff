package pipeline

import (
	"github.com/bocklabs/bockscraper/internal/domain"
)

// Service is the facade the HTTP handlers talk to: it validates requests,
// picks the stage runner and delegates gate semantics to the Registry.
type Service struct {
	registry  *Registry
	scrape    *ScrapeStage
	convert   *ConvertStage
	summarize *SummarizeStage
}

// NewService wires the registry and the three stage runners.
func NewService(registry *Registry, scrape *ScrapeStage, convert *ConvertStage, summarize *SummarizeStage) *Service {
	return &Service{
		registry:  registry,
		scrape:    scrape,
		convert:   convert,
		summarize: summarize,
	}
}

// StartScrape validates and launches a scrape run, returning its session ID.
func (s *Service) StartScrape(req domain.StartScrapeRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return s.registry.Start(domain.StageScrape, s.scrape.Worker(req))
}

// StartConvert validates and launches a convert run.
func (s *Service) StartConvert(req domain.StartSessionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return s.registry.Start(domain.StageConvert, s.convert.Worker(req))
}

// StartSummarize validates and launches a summarize run.
func (s *Service) StartSummarize(req domain.StartSessionRequest) (string, error) {
	if err := req.Validate(); err != nil {
		return "", err
	}
	return s.registry.Start(domain.StageSummarize, s.summarize.Worker(req))
}

// Stop requests cancellation of the active job for kind.
func (s *Service) Stop(kind domain.StageKind) error {
	return s.registry.Stop(kind)
}

// Status returns the current snapshot for kind.
func (s *Service) Status(kind domain.StageKind) domain.StageStatus {
	return s.registry.Status(kind)
}
