package api

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

// EventType identifies a flow history event.
type EventType string

const (
	EventFlowStarted   EventType = "flow.started"
	EventFlowSucceeded EventType = "flow.succeeded"
	EventFlowFailed    EventType = "flow.failed"

	EventWaveStarted EventType = "wave.started"

	EventStepCompleted EventType = "step.completed"
	EventStepFailed    EventType = "step.failed"
)

// FlowEvent is a minimal append-only history record for audit/debugging.
type FlowEvent struct {
	FlowID string
	At     time.Time
	Type   EventType

	// Wave is the 0-based wave index, -1 for flow-level events.
	Wave int
	// StepID is set for step events.
	StepID string

	// Small, human-oriented details (proof line, error string, step ids).
	// Keep this low-volume: do NOT dump step outputs here.
	Detail string
}

// EventSink receives flow events. persistence.EventStore implementations
// satisfy it.
type EventSink interface {
	AppendEvent(ctx context.Context, ev FlowEvent) error
}

// HistoryObserver records every lifecycle callback as a FlowEvent in an
// EventSink. Append failures are logged and otherwise ignored so history
// never fails an execution.
type HistoryObserver struct {
	Sink   EventSink
	Logger *slog.Logger
}

// NewHistoryObserver creates a HistoryObserver writing to sink.
func NewHistoryObserver(sink EventSink, logger *slog.Logger) *HistoryObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &HistoryObserver{Sink: sink, Logger: logger}
}

func (h *HistoryObserver) append(ctx context.Context, ev FlowEvent) {
	ev.At = time.Now()
	if err := h.Sink.AppendEvent(ctx, ev); err != nil {
		h.Logger.WarnContext(ctx, "history_append_failed",
			slog.String("flow_id", ev.FlowID),
			slog.String("event", string(ev.Type)),
			slog.Any("error", err),
		)
	}
}

func (h *HistoryObserver) OnFlowStart(ctx context.Context, flowID string) {
	h.append(ctx, FlowEvent{FlowID: flowID, Type: EventFlowStarted, Wave: -1})
}

func (h *HistoryObserver) OnFlowSucceeded(ctx context.Context, flowID string, res ExecutionResult) {
	h.append(ctx, FlowEvent{
		FlowID: flowID,
		Type:   EventFlowSucceeded,
		Wave:   -1,
		Detail: fmt.Sprintf("%d steps", len(res.Data)),
	})
}

func (h *HistoryObserver) OnFlowFailed(ctx context.Context, flowID string, err error) {
	h.append(ctx, FlowEvent{FlowID: flowID, Type: EventFlowFailed, Wave: -1, Detail: errString(err)})
}

func (h *HistoryObserver) OnWaveStart(ctx context.Context, flowID string, wave int, stepIDs []string) {
	h.append(ctx, FlowEvent{
		FlowID: flowID,
		Type:   EventWaveStarted,
		Wave:   wave,
		Detail: strings.Join(stepIDs, ","),
	})
}

func (h *HistoryObserver) OnStepStart(ctx context.Context, flowID string, stepID string, wave int) {}

func (h *HistoryObserver) OnStepCompleted(ctx context.Context, flowID string, stepID string, wave int, err error, d time.Duration) {
	ev := FlowEvent{FlowID: flowID, Type: EventStepCompleted, Wave: wave, StepID: stepID, Detail: d.String()}
	if err != nil {
		ev.Type = EventStepFailed
		ev.Detail = errString(err)
	}
	h.append(ctx, ev)
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
