package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var pgC sharedContainer

// GetPostgresDSN returns a pgx DSN for a shared PostgreSQL container.
func GetPostgresDSN(t *testing.T) string {
	t.Helper()
	return pgC.get(t, func(ctx context.Context) (string, error) {
		req := testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "postgres:16",
				ExposedPorts: []string{"5432/tcp"},
			},
			Started: true,
		}
		for _, opt := range []testcontainers.CustomizeRequestOption{
			testcontainers.WithWaitStrategy(
				wait.ForAll(
					wait.ForListeningPort("5432/tcp"),
					wait.ForLog("ready to accept connections"),
					// Actively verify SQL connectivity using the mapped host:port
					wait.ForSQL("5432/tcp", "pgx", func(host string, port nat.Port) string {
						return fmt.Sprintf("postgres://deepflow:deepflow@%s:%s/deepflow_test?sslmode=disable", host, port.Port())
					}).WithQuery("SELECT 1"),
				).WithDeadline(2 * time.Minute),
			),
			testcontainers.WithEnv(map[string]string{
				"POSTGRES_USER":     "deepflow",
				"POSTGRES_PASSWORD": "deepflow",
				"POSTGRES_DB":       "deepflow_test",
			}),
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
		return fmt.Sprintf("postgres://deepflow:deepflow@%s/deepflow_test?sslmode=disable", ep), nil
	})
}
