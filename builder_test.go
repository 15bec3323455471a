package deepflow

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilder_BuildsValidFlow(t *testing.T) {
	f, err := NewBuilder("summarize quarterly sales").
		ID("sales").
		Metadata("owner", String("analytics")).
		Resource("db", "postgres", "aws").
		Resource("llm", "model", "local").
		Step("report", "llm", "summarize", "report", "load").
		Step("load", "db", "SELECT * FROM sales", "rows").
		Build()
	require.NoError(t, err)

	assert.Equal(t, "sales", f.ID())
	assert.Equal(t, "summarize quarterly sales", f.Intent())
	assert.Equal(t, String("analytics"), f.Metadata()["owner"])
	require.Len(t, f.Steps(), 2)

	res := f.Execute(context.Background(), ExecuteOptions{})
	require.True(t, res.Success)
	assert.Equal(t, [][]string{{"load"}, {"report"}}, res.Waves())
}

func TestBuilder_DefaultsToUUID(t *testing.T) {
	f, err := NewBuilder("anything").Build()
	require.NoError(t, err)

	_, err = uuid.Parse(f.ID())
	assert.NoError(t, err)
}

func TestBuilder_ReportsInvalidGraph(t *testing.T) {
	_, err := NewBuilder("bad").
		Resource("db", "", "").
		Step("a", "db", "", "", "b").
		Step("b", "db", "", "", "a").
		Build()
	assert.ErrorIs(t, err, ErrCircularDependency)

	_, err = NewBuilder("bad").Step("a", "nope", "", "").Build()
	assert.ErrorIs(t, err, ErrInvalidReference)

	_, err = NewBuilder("").Build()
	assert.ErrorIs(t, err, ErrMalformedInput)
}

func TestBuilder_MustBuildPanics(t *testing.T) {
	assert.Panics(t, func() {
		NewBuilder("bad").Resource("db", "", "").Resource("db", "", "").MustBuild()
	})
}
