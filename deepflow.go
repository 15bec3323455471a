package deepflow

import (
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/petrijr/deepflow/internal/persistence"
	"github.com/petrijr/deepflow/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Resource             = api.Resource
	Action               = api.Action
	Step                 = api.Step
	FlowRecord           = api.FlowRecord
	Value                = api.Value
	Kind                 = api.Kind
	StepOutput           = api.StepOutput
	StepRunner           = api.StepRunner
	RunnerFunc           = api.RunnerFunc
	ResourceRouter       = api.ResourceRouter
	RetryPolicy          = api.RetryPolicy
	ExecutionState       = api.ExecutionState
	ExecutionResult      = api.ExecutionResult
	StepResult           = api.StepResult
	Observer             = api.Observer
	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
	HistoryObserver      = api.HistoryObserver
	FlowEvent            = api.FlowEvent
	EventType            = api.EventType

	DuplicateIDError = api.DuplicateIDError
	ReferenceError   = api.ReferenceError
	CycleError       = api.CycleError
	MalformedError   = api.MalformedError
	RunnerError      = api.RunnerError
)

// Store types. The implementations live in an internal package; these
// aliases and constructors are the supported way to reach them.

type (
	FlowStore  = persistence.FlowStore
	EventStore = persistence.EventStore
	FlowFilter = persistence.FlowFilter
)

// Re-export value constructors and observer helpers.

var (
	Null        = api.Null
	Bool        = api.Bool
	Int         = api.Int
	Float       = api.Float
	String      = api.String
	List        = api.List
	Map         = api.Map
	FromAny     = api.FromAny
	MustFromAny = api.MustFromAny

	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
	NewHistoryObserver   = api.NewHistoryObserver

	IsRunnerFailure = api.IsRunnerFailure
)

// Error kinds. Every error returned by this package wraps one of these.
var (
	ErrDuplicateID        = api.ErrDuplicateID
	ErrInvalidReference   = api.ErrInvalidReference
	ErrCircularDependency = api.ErrCircularDependency
	ErrMalformedInput     = api.ErrMalformedInput
	ErrRunnerFailure      = api.ErrRunnerFailure
	ErrFlowBusy           = api.ErrFlowBusy
	ErrFlowNotFound       = persistence.ErrFlowNotFound
)

// Re-export value kinds.

const (
	KindNull   = api.KindNull
	KindBool   = api.KindBool
	KindInt    = api.KindInt
	KindFloat  = api.KindFloat
	KindString = api.KindString
	KindList   = api.KindList
	KindMap    = api.KindMap
)

// Re-export execution states.

const (
	StateIdle       = api.StateIdle
	StateValidating = api.StateValidating
	StateRunning    = api.StateRunning
	StateSucceeded  = api.StateSucceeded
	StateFailed     = api.StateFailed
)

// Store constructors
// These wrap the internal/persistence package so external callers
// never need to import internal packages.

// NewInMemoryStore returns a FlowStore that is also an EventStore, backed
// by maps.
func NewInMemoryStore() *persistence.InMemoryStore {
	return persistence.NewInMemoryStore()
}

// NewSQLiteFlowStore returns a FlowStore persisting records in SQLite.
// The caller imports a driver such as modernc.org/sqlite.
func NewSQLiteFlowStore(db *sql.DB) (FlowStore, error) {
	s, err := persistence.NewSQLiteFlowStore(db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewSQLiteEventStore returns an EventStore persisting history in SQLite.
func NewSQLiteEventStore(db *sql.DB) (EventStore, error) {
	s, err := persistence.NewSQLiteEventStore(db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewPostgresFlowStore returns a FlowStore persisting records in PostgreSQL.
// The caller imports a driver such as github.com/jackc/pgx/v5/stdlib.
func NewPostgresFlowStore(db *sql.DB) (FlowStore, error) {
	s, err := persistence.NewPostgresFlowStore(db)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// NewRedisFlowStore returns a FlowStore persisting records in Redis under
// prefix ("deepflow:" if empty).
func NewRedisFlowStore(client *redis.Client, prefix string) FlowStore {
	return persistence.NewRedisFlowStore(client, prefix)
}

// NewMongoFlowStore returns a FlowStore persisting records in the
// deepflow.flows collection.
func NewMongoFlowStore(client *mongo.Client) FlowStore {
	return persistence.NewMongoFlowStore(client, "", "")
}
