package persistence

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/petrijr/deepflow/internal/testutil"
	"github.com/petrijr/deepflow/pkg/api"
)

// testFlowStoreContract exercises the behaviour every FlowStore backend
// must share. store must be empty.
func testFlowStoreContract(t *testing.T, store FlowStore) {
	ctx := context.Background()

	t.Run("get missing", func(t *testing.T) {
		_, err := store.GetFlow(ctx, "missing")
		assert.ErrorIs(t, err, ErrFlowNotFound)
	})

	t.Run("save and get round trip", func(t *testing.T) {
		want := testutil.SampleRecord("flow-rt")
		require.NoError(t, store.SaveFlow(ctx, want))

		got, err := store.GetFlow(ctx, "flow-rt")
		require.NoError(t, err)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("record mismatch (-want +got):\n%s", diff)
		}

		// Kinds survive: 1.0 stays a float.
		ratio := got.Metadata["ratio"]
		assert.Equal(t, api.KindFloat, ratio.Kind())
	})

	t.Run("save replaces", func(t *testing.T) {
		rec := testutil.SampleRecord("flow-up")
		require.NoError(t, store.SaveFlow(ctx, rec))

		rec.Intent = "updated intent"
		rec.Steps = rec.Steps[:1]
		require.NoError(t, store.SaveFlow(ctx, rec))

		got, err := store.GetFlow(ctx, "flow-up")
		require.NoError(t, err)
		assert.Equal(t, "updated intent", got.Intent)
		assert.Len(t, got.Steps, 1)

		old, err := store.ListFlows(ctx, FlowFilter{Intent: "summarize quarterly sales"})
		require.NoError(t, err)
		for _, r := range old {
			assert.NotEqual(t, "flow-up", r.ID)
		}
	})

	t.Run("list filters and orders by id", func(t *testing.T) {
		b := testutil.SampleRecord("list-b")
		a := testutil.SampleRecord("list-a")
		c := testutil.SampleRecord("list-c")
		c.Intent = "other"
		c.Resources = []api.Resource{{ID: "cache", Type: "redis"}}
		c.Steps = nil
		for _, r := range []api.FlowRecord{b, a, c} {
			require.NoError(t, store.SaveFlow(ctx, r))
		}

		all, err := store.ListFlows(ctx, FlowFilter{})
		require.NoError(t, err)
		assert.Equal(t, []string{"flow-rt", "flow-up", "list-a", "list-b", "list-c"}, ids(all))

		byIntent, err := store.ListFlows(ctx, FlowFilter{Intent: "other"})
		require.NoError(t, err)
		assert.Equal(t, []string{"list-c"}, ids(byIntent))

		byType, err := store.ListFlows(ctx, FlowFilter{ResourceType: "model"})
		require.NoError(t, err)
		assert.Equal(t, []string{"flow-rt", "flow-up", "list-a", "list-b"}, ids(byType))

		none, err := store.ListFlows(ctx, FlowFilter{Intent: "other", ResourceType: "model"})
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("delete", func(t *testing.T) {
		require.NoError(t, store.DeleteFlow(ctx, "list-a"))
		_, err := store.GetFlow(ctx, "list-a")
		assert.ErrorIs(t, err, ErrFlowNotFound)
		assert.ErrorIs(t, store.DeleteFlow(ctx, "list-a"), ErrFlowNotFound)
	})
}

func ids(recs []api.FlowRecord) []string {
	out := make([]string, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.ID)
	}
	return out
}
