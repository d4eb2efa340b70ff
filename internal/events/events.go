// Package events publishes stage lifecycle events to RabbitMQ so external
// consumers (dashboards, downstream automation) can react to runs starting
// and finishing without polling the status API.
package events

import (
	"context"
	"time"

	"github.com/bocklabs/bockscraper/internal/domain"
)

// StageEvent is one lifecycle transition of a stage run.
type StageEvent struct {
	Kind      domain.StageKind `json:"kind"`
	SessionID string           `json:"session_id"`
	Status    domain.RunStatus `json:"status"`
	Error     string           `json:"error,omitempty"`
	At        time.Time        `json:"at"`
}

// Publisher publishes stage lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, evt *StageEvent) error
	Close() error
}

// NoopPublisher discards events. Used when no broker is configured.
type NoopPublisher struct{}

// NewNoopPublisher creates a publisher that drops every event.
func NewNoopPublisher() *NoopPublisher { return &NoopPublisher{} }

// Publish discards the event.
func (*NoopPublisher) Publish(context.Context, *StageEvent) error { return nil }

// Close is a no-op.
func (*NoopPublisher) Close() error { return nil }
