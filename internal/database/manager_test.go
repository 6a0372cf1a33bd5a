package database

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"thetrek/internal/config"
)

func observedManager(threshold time.Duration) (*Manager, *observer.ObservedLogs) {
	core, logs := observer.New(zap.WarnLevel)
	m := &Manager{
		logger: zap.New(core),
		config: &config.DatabaseConfig{SlowQueryThreshold: threshold},
	}
	return m, logs
}

func TestLogIfSlow(t *testing.T) {
	t.Run("fast query stays quiet", func(t *testing.T) {
		m, logs := observedManager(time.Second)
		m.logIfSlow("query", "SELECT 1", time.Now())
		assert.Zero(t, logs.Len())
	})

	t.Run("query past the threshold is reported", func(t *testing.T) {
		m, logs := observedManager(time.Millisecond)
		m.logIfSlow("query", "SELECT pg_sleep(1)", time.Now().Add(-time.Second))

		require.Equal(t, 1, logs.Len())
		entry := logs.All()[0]
		assert.Equal(t, "slow query detected", entry.Message)
		fields := entry.ContextMap()
		assert.Equal(t, "query", fields["type"])
		assert.Equal(t, time.Millisecond, fields["threshold"])
	})

	t.Run("single-row lookups get half the budget", func(t *testing.T) {
		m, logs := observedManager(100 * time.Millisecond)
		m.logIfSlow("query_row", "SELECT 1", time.Now().Add(-75*time.Millisecond))

		require.Equal(t, 1, logs.Len())
		assert.Equal(t, 50*time.Millisecond, logs.All()[0].ContextMap()["threshold"])
	})
}

func TestConfigureConnectionPool(t *testing.T) {
	// sql.Open does not dial, so the pool can be inspected without a
	// reachable server.
	db, err := sql.Open("postgres", "postgres://localhost:5432/trek?sslmode=disable")
	require.NoError(t, err)
	defer db.Close()

	configureConnectionPool(db, &config.DatabaseConfig{
		MaxOpenConns:    7,
		MaxIdleConns:    3,
		ConnMaxLifetime: time.Hour,
		ConnMaxIdleTime: 10 * time.Minute,
	})

	assert.Equal(t, 7, db.Stats().MaxOpenConnections)
}

func TestWaitForReadyTimeout(t *testing.T) {
	db, err := sql.Open("postgres", "postgres://127.0.0.1:1/trek?sslmode=disable&connect_timeout=1")
	require.NoError(t, err)
	defer db.Close()

	start := time.Now()
	err = waitForReady(db, 300*time.Millisecond, zap.NewNop())
	require.Error(t, err)
	assert.Less(t, time.Since(start), 10*time.Second)
}
