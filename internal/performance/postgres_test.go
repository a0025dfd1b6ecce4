package performance

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupPostgres starts a throwaway PostgreSQL container. Set
// PG_TESTCONTAINERS=1 to run; it needs a Docker daemon.
func setupPostgres(t *testing.T) *PostgresStore {
	t.Helper()
	if testing.Short() || os.Getenv("PG_TESTCONTAINERS") != "1" {
		t.Skip("set PG_TESTCONTAINERS=1 to run PostgreSQL tests")
	}
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := NewPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	store := NewPostgresStore(pool, "perf_snapshots")
	require.NoError(t, store.Migrate(ctx))
	require.NoError(t, store.Migrate(ctx), "migrate is idempotent")
	return store
}

func TestPostgresStore(t *testing.T) {
	s := setupPostgres(t)
	storeContract(t, s, func(now time.Time) { s.now = func() time.Time { return now } })
}

func TestPostgresHeadlines(t *testing.T) {
	s := setupPostgres(t)
	ctx := context.Background()
	s.now = func() time.Time { return base }

	require.NoError(t, s.Put(ctx, Key("paa"), sampleSnapshot("paa", 0.071234, base.Add(time.Hour))))
	require.NoError(t, s.Put(ctx, Key("vaa"), sampleSnapshot("vaa", 0.125, base.Add(time.Hour))))

	hs, err := s.Headlines(ctx)
	require.NoError(t, err)
	require.Len(t, hs, 2)
	assert.Equal(t, "vaa", hs[0].StrategyID)
	assert.True(t, hs[0].CAGR.Equal(decimal.RequireFromString("0.125")), hs[0].CAGR.String())
	assert.True(t, hs[1].CAGR.Equal(decimal.RequireFromString("0.071234")), hs[1].CAGR.String())
}
