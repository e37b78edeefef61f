//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/marcelsud/webhook-inspector/migrations"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

/*
Test helpers backed by a real PostgreSQL container.
References:
- https://golang.testcontainers.org/modules/postgres/
- https://eltonminetto.dev/post/2024-02-15-using-test-helpers/
*/

const (
	defaultDatabase = "testdb"
	defaultUser     = "testuser"
	defaultPassword = "testpass"
)

// PostgresContainer wraps the container and its connection string
type PostgresContainer struct {
	Container testcontainers.Container
	ConnStr   string
}

// SetupPostgresContainer starts PostgreSQL and applies the migrations
func SetupPostgresContainer(t *testing.T, ctx context.Context) (*PostgresContainer, func()) {
	t.Helper()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase(defaultDatabase),
		postgres.WithUsername(defaultUser),
		postgres.WithPassword(defaultPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err)

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	db, err := sql.Open(DriverName, connStr)
	require.NoError(t, err)
	require.NoError(t, migrations.Run(db, migrations.Postgres))

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("failed to terminate postgres container: %v", err)
		}
	}

	return &PostgresContainer{
		Container: pgContainer,
		ConnStr:   connStr,
	}, cleanup
}

// CreateTestRepository opens a repository on the container and empties the table
func CreateTestRepository(t *testing.T, ctx context.Context, container *PostgresContainer) *Repository {
	t.Helper()

	repo, err := NewRepository(container.ConnStr)
	require.NoError(t, err)

	_, err = repo.DB.ExecContext(ctx, "TRUNCATE webhooks")
	require.NoError(t, err)

	t.Cleanup(func() { _ = repo.Close(ctx) })
	return repo
}

// AssertWebhookCount checks the number of stored rows
func AssertWebhookCount(t *testing.T, ctx context.Context, repo *Repository, expected int64) {
	t.Helper()

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, expected, n)
}

func ptr[T any](v T) *T { return &v }
