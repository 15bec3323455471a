package testutil

import (
	"context"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var redisC sharedContainer

// GetRedisAddress returns host:port of a shared Redis container.
func GetRedisAddress(t *testing.T) string {
	t.Helper()
	return redisC.get(t, func(ctx context.Context) (string, error) {
		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7",
				ExposedPorts: []string{"6379/tcp"},
			},
			Started: true,
		}
		for _, opt := range []testcontainers.CustomizeRequestOption{
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("6379/tcp"),
				wait.ForLog("Ready to accept connections"),
			),
		} {
			if err := opt.Customize(&req); err != nil {
				return "", err
			}
		}
		c, err := testcontainers.GenericContainer(ctx, req)
		if err != nil {
			return "", err
		}
		return endpoint(ctx, c)
	})
}
