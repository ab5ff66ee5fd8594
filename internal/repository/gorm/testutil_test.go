package gormrepository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"tokenwatch/internal/config"
	"tokenwatch/internal/db"
)

// setupStore starts a throwaway PostgreSQL container, migrates the schema and
// returns a Store backed by it. Skipped in -short runs where no Docker daemon
// is expected.
func setupStore(t *testing.T) (*Store, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping container-backed store test in short mode")
	}

	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:15-alpine",
		tcpostgres.WithDatabase("tokenwatch_test"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	database, err := db.Open(config.DBConfig{
		DSN:          dsn,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	})
	require.NoError(t, err, "failed to open database")
	require.NoError(t, db.AutoMigrate(database), "failed to migrate schema")

	cleanup := func() {
		_ = db.Close(database)
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}
	return New(database.Gorm), cleanup
}

func ptr[T any](v T) *T {
	return &v
}
