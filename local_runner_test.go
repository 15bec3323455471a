package deepflow

import (
	"context"
	"testing"
	"time"

	"github.com/petrijr/deepflow/pkg/api"
	"github.com/petrijr/deepflow/pkg/worker"
)

// TestLocalRunner_ExecutesSubmittedFlow verifies that a submitted flow is
// picked up by the worker loop and that its history lands in the store.
func TestLocalRunner_ExecutesSubmittedFlow(t *testing.T) {
	runner := NewLocalRunner(worker.Config{})
	ctx := context.Background()

	f := NewBuilder("local runner").
		ID("local-1").
		Resource("db", "database", "x").
		Step("s1", "db", "Q1", "o1").
		Step("s2", "db", "Q2", "o2", "s1").
		MustBuild()

	if err := runner.StartWorkers(ctx, 2); err != nil {
		t.Fatalf("StartWorkers failed: %v", err)
	}
	defer runner.Stop()

	if _, err := runner.Submit(ctx, f, 0); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	var events []FlowEvent
	for time.Now().Before(deadline) {
		evs, err := runner.Store.ListEvents(ctx, f.ID())
		if err != nil {
			t.Fatalf("ListEvents failed: %v", err)
		}
		if len(evs) > 0 && evs[len(evs)-1].Type == api.EventFlowSucceeded {
			events = evs
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	if events == nil {
		t.Fatalf("did not observe a succeeded flow before timeout")
	}
	if events[0].Type != api.EventFlowStarted {
		t.Fatalf("expected first event %q, got %q", api.EventFlowStarted, events[0].Type)
	}
}

// TestLocalRunner_SubmitSnapshotsFlow ensures later changes to a submitted
// flow do not leak into the stored record.
func TestLocalRunner_SubmitSnapshotsFlow(t *testing.T) {
	runner := NewLocalRunner(worker.Config{})
	ctx := context.Background()

	f := NewFlow("snap", "snapshot", WithResources(Resource{ID: "db"}))
	if _, err := runner.Submit(ctx, f, 0); err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if err := f.AddResource(Resource{ID: "cache"}); err != nil {
		t.Fatalf("AddResource failed: %v", err)
	}

	stored, err := Load(ctx, runner.Store, "snap")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n := len(stored.Resources()); n != 1 {
		t.Fatalf("expected 1 stored resource, got %d", n)
	}
	if runner.Queue.Len() != 1 {
		t.Fatalf("expected 1 queued task, got %d", runner.Queue.Len())
	}
}

// TestLocalRunner_StartWorkersTwice ensures that StartWorkers cannot be
// called twice without Stop in between.
func TestLocalRunner_StartWorkersTwice(t *testing.T) {
	runner := NewLocalRunner(worker.Config{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	defer runner.Stop()

	if err := runner.StartWorkers(ctx, 1); err != nil {
		t.Fatalf("first StartWorkers failed: %v", err)
	}

	if err := runner.StartWorkers(ctx, 1); err == nil {
		t.Fatalf("expected error from second StartWorkers call, got nil")
	}
}

// TestLocalRunner_StopWithoutStart ensures Stop is safe when workers were
// never started.
func TestLocalRunner_StopWithoutStart(t *testing.T) {
	runner := NewLocalRunner(worker.Config{})
	runner.Stop()
}
