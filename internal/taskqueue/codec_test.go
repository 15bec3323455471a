package taskqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCodec_RoundTrip(t *testing.T) {
	in := Task{ID: "t", FlowID: "f", MaxParallel: 2, Attempts: 1, EnqueuedAt: time.Unix(1700000000, 0).UTC()}

	payload, err := encodeTask(in)
	require.NoError(t, err)
	out, err := decodeTask(payload)
	require.NoError(t, err)
	assert.Equal(t, in.ID, out.ID)
	assert.Equal(t, in.FlowID, out.FlowID)
	assert.Equal(t, in.MaxParallel, out.MaxParallel)
	assert.Equal(t, in.Attempts, out.Attempts)
	assert.True(t, in.EnqueuedAt.Equal(out.EnqueuedAt))

	_, err = decodeTask([]byte{0xff})
	assert.Error(t, err)
}
