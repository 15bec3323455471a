package persistence

// Persistence bundles the store interfaces so callers can depend on a
// single abstraction.
type Persistence struct {
	Flows  FlowStore
	Events EventStore
}
