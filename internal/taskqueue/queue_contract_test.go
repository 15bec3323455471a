package taskqueue

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testQueueContract exercises the behaviour every Queue backend must share.
// q must be empty.
func testQueueContract(t *testing.T, q Queue) {
	ctx := context.Background()

	t.Run("fifo", func(t *testing.T) {
		for _, id := range []string{"1", "2", "3"} {
			require.NoError(t, q.Enqueue(ctx, Task{ID: id, FlowID: "flow-" + id, MaxParallel: 2}))
		}
		assert.Equal(t, 3, q.Len())

		for _, id := range []string{"1", "2", "3"} {
			got, err := q.Dequeue(ctx)
			require.NoError(t, err)
			assert.Equal(t, id, got.ID)
			assert.Equal(t, "flow-"+id, got.FlowID)
			assert.Equal(t, 2, got.MaxParallel)
			assert.False(t, got.EnqueuedAt.IsZero())
		}
		assert.Equal(t, 0, q.Len())
	})

	t.Run("attempts survive", func(t *testing.T) {
		require.NoError(t, q.Enqueue(ctx, Task{ID: "r", FlowID: "f", Attempts: 2}))
		got, err := q.Dequeue(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Attempts)
	})

	t.Run("dequeue honours cancellation", func(t *testing.T) {
		cctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()

		_, err := q.Dequeue(cctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("dequeue wakes on enqueue", func(t *testing.T) {
		done := make(chan *Task, 1)
		go func() {
			task, _ := q.Dequeue(ctx)
			done <- task
		}()

		time.Sleep(30 * time.Millisecond)
		require.NoError(t, q.Enqueue(ctx, Task{ID: "late", FlowID: "f"}))

		select {
		case task := <-done:
			require.NotNil(t, task)
			assert.Equal(t, "late", task.ID)
		case <-time.After(5 * time.Second):
			t.Fatal("Dequeue did not return after Enqueue")
		}
	})
}
