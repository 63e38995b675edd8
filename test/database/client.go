// Package database provides shared testcontainers-backed Postgres bootstrap
// for package integration tests, grounded on the teacher's test/database
// helper (same NewTestClient shape, re-pointed at the pgvector/pgvector
// image and the ent schema generated for this module).
package database

import (
	"context"
	"os"
	"testing"
	"time"

	"entgo.io/ent/dialect"
	"entgo.io/ent/dialect/sql"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/hybridmem/memstore/ent"
	"github.com/hybridmem/memstore/pkg/database"
)

// NewTestClient creates a test database client. In CI (when
// CI_DATABASE_URL is set) it connects to an already-running PostgreSQL
// service container; otherwise it spins up a pgvector-enabled
// testcontainer. The container/connection is cleaned up automatically
// when the test ends.
func NewTestClient(t *testing.T) *database.Client {
	t.Helper()
	ctx := context.Background()

	connStr := os.Getenv("CI_DATABASE_URL")
	if connStr != "" {
		t.Log("using external PostgreSQL from CI_DATABASE_URL")
	} else {
		t.Log("using testcontainers for PostgreSQL (pgvector/pgvector:pg16)")
		pgContainer, err := postgres.Run(ctx,
			"pgvector/pgvector:pg16",
			postgres.WithDatabase("test"),
			postgres.WithUsername("test"),
			postgres.WithPassword("test"),
			testcontainers.WithWaitStrategy(
				wait.ForLog("database system is ready to accept connections").
					WithOccurrence(2).
					WithStartupTimeout(30*time.Second)),
		)
		require.NoError(t, err)

		t.Cleanup(func() {
			if err := testcontainers.TerminateContainer(pgContainer); err != nil {
				t.Logf("failed to terminate container: %v", err)
			}
		})

		connStr, err = pgContainer.ConnectionString(ctx, "sslmode=disable")
		require.NoError(t, err)
	}

	drv, err := sql.Open(dialect.Postgres, connStr)
	require.NoError(t, err)

	db := drv.DB()
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)

	entClient := ent.NewClient(ent.Driver(drv))

	err = entClient.Schema.Create(ctx)
	require.NoError(t, err)

	err = database.CreateGINIndexes(ctx, drv)
	require.NoError(t, err)

	client := database.NewClientFromEnt(entClient, db)

	t.Cleanup(func() {
		client.Close()
	})

	return client
}
