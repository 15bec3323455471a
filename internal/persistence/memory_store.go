package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/petrijr/deepflow/pkg/api"
)

// InMemoryStore is a simple, goroutine-safe implementation of FlowStore
// and EventStore backed by maps. Records are cloned on the way in and out.
type InMemoryStore struct {
	mu     sync.RWMutex
	flows  map[string]api.FlowRecord
	events map[string][]api.FlowEvent
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		flows:  make(map[string]api.FlowRecord),
		events: make(map[string][]api.FlowEvent),
	}
}

// Ensure InMemoryStore implements the interfaces.
var (
	_ FlowStore  = (*InMemoryStore)(nil)
	_ EventStore = (*InMemoryStore)(nil)
)

func (s *InMemoryStore) SaveFlow(ctx context.Context, rec api.FlowRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.flows[rec.ID] = rec.Clone()
	return nil
}

func (s *InMemoryStore) GetFlow(ctx context.Context, id string) (api.FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.flows[id]
	if !ok {
		return api.FlowRecord{}, ErrFlowNotFound
	}
	return rec.Clone(), nil
}

func (s *InMemoryStore) ListFlows(ctx context.Context, filter FlowFilter) ([]api.FlowRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.FlowRecord
	for _, rec := range s.flows {
		if filter.Match(rec) {
			out = append(out, rec.Clone())
		}
	}
	sortByID(out)
	return out, nil
}

func (s *InMemoryStore) DeleteFlow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.flows[id]; !ok {
		return ErrFlowNotFound
	}
	delete(s.flows, id)
	return nil
}

func (s *InMemoryStore) AppendEvent(ctx context.Context, ev api.FlowEvent) error {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.events[ev.FlowID] = append(s.events[ev.FlowID], ev)
	return nil
}

func (s *InMemoryStore) ListEvents(ctx context.Context, flowID string) ([]api.FlowEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evs := s.events[flowID]
	out := make([]api.FlowEvent, len(evs))
	copy(out, evs)
	return out, nil
}
