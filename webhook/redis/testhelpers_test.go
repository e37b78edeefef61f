//go:build integration

package redis_test

import (
	"context"
	"strings"
	"testing"

	"github.com/marcelsud/webhook-inspector/webhook/redis"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	testcontainersredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

/* Test helpers backed by a real Redis container
 * Following the pattern from: https://eltonminetto.dev/post/2024-02-15-using-test-helpers/
 */

// RedisContainer holds the Redis testcontainer and connection details
type RedisContainer struct {
	Container *testcontainersredis.RedisContainer
	Addr      string
}

// SetupRedisContainer creates and starts a Redis testcontainer
func SetupRedisContainer(t *testing.T, ctx context.Context) (*RedisContainer, func()) {
	t.Helper()

	redisContainer, err := testcontainersredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start Redis container")

	addr, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err, "failed to get Redis connection string")
	addr = strings.TrimPrefix(addr, "redis://")

	cleanup := func() {
		if err := redisContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate Redis container: %v", err)
		}
	}

	return &RedisContainer{
		Container: redisContainer,
		Addr:      addr,
	}, cleanup
}

// CreateTestRepository creates a Redis repository on an emptied database
func CreateTestRepository(t *testing.T, addr string) *redis.Repository {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	require.NoError(t, client.FlushDB(context.Background()).Err())
	require.NoError(t, client.Close())

	repo, err := redis.NewRepository(addr, "", 0)
	require.NoError(t, err, "failed to create Redis repository")
	t.Cleanup(func() { _ = repo.Close(context.Background()) })

	return repo
}

// Stored reports whether the record hash and its index entry exist for id
func Stored(t *testing.T, addr string, id string) (hash bool, indexed bool) {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	n, err := client.Exists(ctx, "webhook:"+id).Result()
	require.NoError(t, err)

	_, err = client.ZScore(ctx, "webhooks:index", id).Result()
	if err != nil && err != goredis.Nil {
		require.NoError(t, err)
	}

	return n > 0, err == nil
}

// DropHash deletes the record hash and leaves its index entry behind,
// the state a concurrent Delete leaves between its two reads
func DropHash(t *testing.T, addr string, id string) {
	t.Helper()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()

	require.NoError(t, client.Del(context.Background(), "webhook:"+id).Err())
}
