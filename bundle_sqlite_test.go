package deepflow

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/petrijr/deepflow/pkg/api"
	"github.com/petrijr/deepflow/pkg/worker"
)

func openBundleDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	// A single connection keeps every statement on the same in-memory database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestSQLiteBundle_SubmitAndProcess(t *testing.T) {
	db := openBundleDB(t)
	bundle, err := NewSQLiteBundle(db, worker.Config{})
	require.NoError(t, err)
	ctx := context.Background()

	f := NewBuilder("bundle").
		ID("bundle-1").
		Resource("db", "database", "x").
		Step("s1", "db", "Q1", "o1").
		MustBuild()

	_, err = bundle.Submit(ctx, f, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, bundle.Pending())

	out, err := bundle.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	require.True(t, out.Result.Success, "proofs: %v", out.Result.Proofs)
	assert.Equal(t, 0, bundle.Pending())

	evs, err := bundle.Events.ListEvents(ctx, "bundle-1")
	require.NoError(t, err)
	require.NotEmpty(t, evs)
	assert.Equal(t, api.EventFlowSucceeded, evs[len(evs)-1].Type)

	stored, err := Load(ctx, bundle.Flows, "bundle-1")
	require.NoError(t, err)
	assert.Equal(t, f.Serialize().Steps, stored.Serialize().Steps)
}

func TestSQLiteBundle_SurvivesReopen(t *testing.T) {
	db := openBundleDB(t)
	ctx := context.Background()

	first, err := NewSQLiteBundle(db, worker.Config{})
	require.NoError(t, err)
	_, err = first.Submit(ctx, NewFlow("later", "run later", WithResources(Resource{ID: "db"})), 0)
	require.NoError(t, err)

	second, err := NewSQLiteBundle(db, worker.Config{})
	require.NoError(t, err)
	assert.Equal(t, 1, second.Pending())

	out, err := second.Worker.ProcessOne(ctx)
	require.NoError(t, err)
	assert.Equal(t, "later", out.Task.FlowID)
	assert.True(t, out.Result.Success)
}
