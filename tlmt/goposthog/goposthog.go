package goposthog

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"

	"github.com/posthog/posthog-go"

	"github.com/bocklabs/bockscraper/tlmt"
)

type service struct {
	client     posthog.Client
	distinctID string
}

// New creates a PostHog-backed Telemetry. The distinct ID is a hash of the
// hostname; no user data is sent.
func New(apiKey, endpoint string) (tlmt.Telemetry, error) {
	client, err := posthog.NewWithConfig(apiKey, posthog.Config{Endpoint: endpoint})
	if err != nil {
		return nil, err
	}

	return &service{
		client:     client,
		distinctID: machineID(),
	}, nil
}

func (s *service) Send(_ context.Context, event tlmt.Event) error {
	props := posthog.NewProperties()
	for k, v := range event.Props {
		props.Set(k, v)
	}

	return s.client.Enqueue(posthog.Capture{
		DistinctId: s.distinctID,
		Event:      event.Name,
		Properties: props,
	})
}

func (s *service) Close() error {
	return s.client.Close()
}

func machineID() string {
	host, err := os.Hostname()
	if err != nil {
		host = "unknown"
	}
	sum := sha256.Sum256([]byte(host))
	return hex.EncodeToString(sum[:8])
}
