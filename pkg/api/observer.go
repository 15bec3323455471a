package api

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// Observer receives callbacks from the executor for logging and metrics.
//
// Step callbacks are invoked from the goroutine running the step, so
// implementations must be safe for concurrent use. They should be fast and
// non-blocking; heavy work should be done asynchronously so as not to delay
// a wave.
type Observer interface {
	// OnFlowStart is called once per execution, before validation.
	OnFlowStart(ctx context.Context, flowID string)

	// OnFlowSucceeded is called when an execution reaches StateSucceeded.
	OnFlowSucceeded(ctx context.Context, flowID string, res ExecutionResult)

	// OnFlowFailed is called when an execution reaches StateFailed.
	OnFlowFailed(ctx context.Context, flowID string, err error)

	// OnWaveStart is called before the steps of a wave are dispatched.
	// wave is 0-based.
	OnWaveStart(ctx context.Context, flowID string, wave int, stepIDs []string)

	// OnStepStart is called before invoking the runner for a step.
	OnStepStart(ctx context.Context, flowID string, stepID string, wave int)

	// OnStepCompleted is called after the runner returns, for both
	// successes and failures (err != nil).
	OnStepCompleted(ctx context.Context, flowID string, stepID string, wave int, err error, duration time.Duration)
}

// NoopObserver is an Observer that does nothing.
// It is used as the default when no observer is configured.
type NoopObserver struct{}

func (NoopObserver) OnFlowStart(ctx context.Context, flowID string)                          {}
func (NoopObserver) OnFlowSucceeded(ctx context.Context, flowID string, res ExecutionResult) {}
func (NoopObserver) OnFlowFailed(ctx context.Context, flowID string, err error)              {}
func (NoopObserver) OnWaveStart(ctx context.Context, flowID string, wave int, stepIDs []string) {
}
func (NoopObserver) OnStepStart(ctx context.Context, flowID string, stepID string, wave int) {}
func (NoopObserver) OnStepCompleted(ctx context.Context, flowID string, stepID string, wave int, err error, d time.Duration) {
}

// CompositeObserver fans out events to multiple observers.
type CompositeObserver struct {
	observers []Observer
}

// NewCompositeObserver creates an Observer that forwards events to each
// non-nil observer in obs.
func NewCompositeObserver(obs ...Observer) Observer {
	filtered := make([]Observer, 0, len(obs))
	for _, o := range obs {
		if o != nil {
			filtered = append(filtered, o)
		}
	}
	if len(filtered) == 0 {
		return NoopObserver{}
	}
	if len(filtered) == 1 {
		return filtered[0]
	}
	return &CompositeObserver{observers: filtered}
}

func (c *CompositeObserver) OnFlowStart(ctx context.Context, flowID string) {
	for _, o := range c.observers {
		o.OnFlowStart(ctx, flowID)
	}
}

func (c *CompositeObserver) OnFlowSucceeded(ctx context.Context, flowID string, res ExecutionResult) {
	for _, o := range c.observers {
		o.OnFlowSucceeded(ctx, flowID, res)
	}
}

func (c *CompositeObserver) OnFlowFailed(ctx context.Context, flowID string, err error) {
	for _, o := range c.observers {
		o.OnFlowFailed(ctx, flowID, err)
	}
}

func (c *CompositeObserver) OnWaveStart(ctx context.Context, flowID string, wave int, stepIDs []string) {
	for _, o := range c.observers {
		o.OnWaveStart(ctx, flowID, wave, stepIDs)
	}
}

func (c *CompositeObserver) OnStepStart(ctx context.Context, flowID string, stepID string, wave int) {
	for _, o := range c.observers {
		o.OnStepStart(ctx, flowID, stepID, wave)
	}
}

func (c *CompositeObserver) OnStepCompleted(ctx context.Context, flowID string, stepID string, wave int, err error, d time.Duration) {
	for _, o := range c.observers {
		o.OnStepCompleted(ctx, flowID, stepID, wave, err, d)
	}
}

// LoggingObserver writes structured logs using log/slog.
type LoggingObserver struct {
	Logger *slog.Logger
}

// NewLoggingObserver creates an Observer that logs flow, wave and step
// lifecycle events using the provided slog.Logger. If logger is nil,
// slog.Default() is used.
func NewLoggingObserver(logger *slog.Logger) Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LoggingObserver{Logger: logger}
}

func (o *LoggingObserver) OnFlowStart(ctx context.Context, flowID string) {
	o.Logger.InfoContext(ctx, "flow_start",
		slog.String("flow_id", flowID),
	)
}

func (o *LoggingObserver) OnFlowSucceeded(ctx context.Context, flowID string, res ExecutionResult) {
	o.Logger.InfoContext(ctx, "flow_succeeded",
		slog.String("flow_id", flowID),
		slog.Int("steps", len(res.Data)),
	)
}

func (o *LoggingObserver) OnFlowFailed(ctx context.Context, flowID string, err error) {
	o.Logger.ErrorContext(ctx, "flow_failed",
		slog.String("flow_id", flowID),
		slog.Any("error", err),
	)
}

func (o *LoggingObserver) OnWaveStart(ctx context.Context, flowID string, wave int, stepIDs []string) {
	o.Logger.DebugContext(ctx, "wave_start",
		slog.String("flow_id", flowID),
		slog.Int("wave", wave),
		slog.Any("steps", stepIDs),
	)
}

func (o *LoggingObserver) OnStepStart(ctx context.Context, flowID string, stepID string, wave int) {
	o.Logger.DebugContext(ctx, "step_start",
		slog.String("flow_id", flowID),
		slog.String("step", stepID),
		slog.Int("wave", wave),
	)
}

func (o *LoggingObserver) OnStepCompleted(ctx context.Context, flowID string, stepID string, wave int, err error, d time.Duration) {
	level := slog.LevelDebug
	if err != nil {
		level = slog.LevelError
	}
	o.Logger.Log(ctx, level, "step_completed",
		slog.String("flow_id", flowID),
		slog.String("step", stepID),
		slog.Int("wave", wave),
		slog.Duration("duration", d),
		slog.Any("error", err),
	)
}

// BasicMetrics collects simple counters and aggregate step durations.
// It implements Observer, and can be combined with LoggingObserver via
// NewCompositeObserver.
type BasicMetrics struct {
	NoopObserver

	flowsStarted      atomic.Int64
	flowsSucceeded    atomic.Int64
	flowsFailed       atomic.Int64
	wavesStarted      atomic.Int64
	stepsCompleted    atomic.Int64
	stepsFailed       atomic.Int64
	totalStepDuration atomic.Int64 // nanoseconds
	maxWaveWidth      atomic.Int64
}

// BasicMetricsSnapshot is an immutable snapshot of BasicMetrics.
type BasicMetricsSnapshot struct {
	FlowsStarted   int64
	FlowsSucceeded int64
	FlowsFailed    int64
	RunningFlows   int64

	Waves        int64
	MaxWaveWidth int64

	StepsCompleted  int64
	StepsFailed     int64
	AvgStepDuration time.Duration
}

func (m *BasicMetrics) OnFlowStart(ctx context.Context, flowID string) {
	m.flowsStarted.Add(1)
}

func (m *BasicMetrics) OnFlowSucceeded(ctx context.Context, flowID string, res ExecutionResult) {
	m.flowsSucceeded.Add(1)
}

func (m *BasicMetrics) OnFlowFailed(ctx context.Context, flowID string, err error) {
	m.flowsFailed.Add(1)
}

func (m *BasicMetrics) OnWaveStart(ctx context.Context, flowID string, wave int, stepIDs []string) {
	m.wavesStarted.Add(1)
	width := int64(len(stepIDs))
	for {
		cur := m.maxWaveWidth.Load()
		if width <= cur || m.maxWaveWidth.CompareAndSwap(cur, width) {
			return
		}
	}
}

func (m *BasicMetrics) OnStepCompleted(ctx context.Context, flowID string, stepID string, wave int, err error, d time.Duration) {
	if err != nil {
		m.stepsFailed.Add(1)
		return
	}
	// Only successful steps count towards the average duration.
	m.stepsCompleted.Add(1)
	m.totalStepDuration.Add(d.Nanoseconds())
}

// Snapshot returns a snapshot of the current metrics.
func (m *BasicMetrics) Snapshot() BasicMetricsSnapshot {
	started := m.flowsStarted.Load()
	succeeded := m.flowsSucceeded.Load()
	failed := m.flowsFailed.Load()
	steps := m.stepsCompleted.Load()
	totalNs := m.totalStepDuration.Load()

	var avg time.Duration
	if steps > 0 {
		avg = time.Duration(totalNs / steps)
	}

	return BasicMetricsSnapshot{
		FlowsStarted:    started,
		FlowsSucceeded:  succeeded,
		FlowsFailed:     failed,
		RunningFlows:    started - succeeded - failed,
		Waves:           m.wavesStarted.Load(),
		MaxWaveWidth:    m.maxWaveWidth.Load(),
		StepsCompleted:  steps,
		StepsFailed:     m.stepsFailed.Load(),
		AvgStepDuration: avg,
	}
}
