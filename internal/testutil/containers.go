package testutil

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcwait "github.com/testcontainers/testcontainers-go/wait"
)

// TestRedisContainer holds the Redis test container
type TestRedisContainer struct {
	Container testcontainers.Container
	URL       string
	Client    *redis.Client
}

// SetupTestRedisContainer starts a Redis test container
func SetupTestRedisContainer(ctx context.Context, t *testing.T) (*TestRedisContainer, error) {
	t.Helper()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor: tcwait.ForAll(
			tcwait.ForLog("Ready to accept connections"),
			tcwait.ForListeningPort("6379/tcp"),
		).WithDeadline(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get host: %w", err)
	}

	mappedPort, err := container.MappedPort(ctx, "6379")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mapped port: %w", err)
	}

	url := fmt.Sprintf("redis://%s:%s/0", host, mappedPort.Port())
	opts, err := redis.ParseURL(url)
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	client := redis.NewClient(opts)

	// Verify connection
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &TestRedisContainer{
		Container: container,
		URL:       url,
		Client:    client,
	}, nil
}

// Teardown cleans up the test container
func (tc *TestRedisContainer) Teardown(ctx context.Context, t *testing.T) {
	t.Helper()
	if tc.Client != nil {
		_ = tc.Client.Close()
	}
	if tc.Container != nil {
		if err := tc.Container.Terminate(ctx); err != nil {
			t.Logf("Failed to terminate container: %v", err)
		}
	}
}

// RequireRedis starts a Redis container or skips the test in -short mode
func RequireRedis(t *testing.T) *TestRedisContainer {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping Redis integration test in short mode")
	}

	ctx := context.Background()
	tc, err := SetupTestRedisContainer(ctx, t)
	if err != nil {
		t.Fatalf("failed to start redis: %v", err)
	}
	t.Cleanup(func() { tc.Teardown(ctx, t) })
	return tc
}
