package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
)

// sharedContainer starts a container at most once per test binary and hands
// out its connection string to every test that asks for it. Ryuk reaps the
// container when the binary exits.
type sharedContainer struct {
	once sync.Once
	addr string
	err  error
}

func (c *sharedContainer) get(t *testing.T, start func(ctx context.Context) (string, error)) string {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	c.once.Do(func() {
		// Give generous timeout in CI environments
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
		defer cancel()
		c.addr, c.err = start(ctx)
	})
	require.NoError(t, c.err)
	return c.addr
}

// endpoint returns host:port of the container's first exposed port, or
// terminates the container if it cannot be resolved.
func endpoint(ctx context.Context, c testcontainers.Container) (string, error) {
	ep, err := c.Endpoint(ctx, "")
	if err != nil {
		_ = c.Terminate(context.Background()) // best-effort cleanup
		return "", err
	}
	return ep, nil
}
