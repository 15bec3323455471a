package testutil

import (
	"context"
	"fmt"
	"testing"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var mongoC sharedContainer

// GetMongoURI returns a mongodb:// URI for a shared MongoDB container.
func GetMongoURI(t *testing.T) string {
	t.Helper()
	return mongoC.get(t, func(ctx context.Context) (string, error) {
		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "mongo:7",
				ExposedPorts: []string{"27017/tcp"},
			},
			Started: true,
		}
		for _, opt := range []testcontainers.CustomizeRequestOption{
			testcontainers.WithWaitStrategy(
				wait.ForListeningPort("27017/tcp"),
				wait.ForLog("Waiting for connections"),
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
		ep, err := endpoint(ctx, c)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("mongodb://%s", ep), nil
	})
}
