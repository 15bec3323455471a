package persistence

import (
	"context"
	"errors"
	"slices"

	"github.com/petrijr/deepflow/pkg/api"
)

// ErrFlowNotFound is returned when a flow record is not found.
var ErrFlowNotFound = errors.New("flow not found")

// FlowFilter is used to select flows from the store.
// Empty strings mean "no filter" for that field.
type FlowFilter struct {
	// Intent matches the flow intent exactly.
	Intent string
	// ResourceType matches flows declaring at least one resource of that type.
	ResourceType string
}

// Match reports whether rec passes the filter.
func (f FlowFilter) Match(rec api.FlowRecord) bool {
	if f.Intent != "" && rec.Intent != f.Intent {
		return false
	}
	if f.ResourceType != "" {
		return slices.ContainsFunc(rec.Resources, func(r api.Resource) bool {
			return r.Type == f.ResourceType
		})
	}
	return true
}

// FlowStore persists flow records keyed by flow id.
//
// Records are stored in their serialized form, so a stored record can be
// loaded back into a flow without loss even if it does not validate.
type FlowStore interface {
	// SaveFlow inserts rec or replaces the record stored under rec.ID.
	SaveFlow(ctx context.Context, rec api.FlowRecord) error
	GetFlow(ctx context.Context, id string) (api.FlowRecord, error)
	// ListFlows returns matching records ordered by id.
	ListFlows(ctx context.Context, filter FlowFilter) ([]api.FlowRecord, error)
	// DeleteFlow removes the record. Deleting an unknown id returns
	// ErrFlowNotFound.
	DeleteFlow(ctx context.Context, id string) error
}

// sortByID orders records by id, as ListFlows promises.
func sortByID(recs []api.FlowRecord) {
	slices.SortFunc(recs, func(a, b api.FlowRecord) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
}
