package persistence

import (
	"context"

	"github.com/petrijr/deepflow/pkg/api"
)

// EventStore is an append-only history store for flow execution events.
type EventStore interface {
	AppendEvent(ctx context.Context, ev api.FlowEvent) error
	ListEvents(ctx context.Context, flowID string) ([]api.FlowEvent, error)
}

var _ api.EventSink = (EventStore)(nil)

// NoopEventStore discards all events.
type NoopEventStore struct{}

func (NoopEventStore) AppendEvent(ctx context.Context, ev api.FlowEvent) error { return nil }
func (NoopEventStore) ListEvents(ctx context.Context, flowID string) ([]api.FlowEvent, error) {
	return nil, nil
}
