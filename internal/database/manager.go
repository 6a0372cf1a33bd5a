package database

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"thetrek/internal/config"

	"github.com/cenkalti/backoff/v4"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// Manager wraps the database connection with pooling, slow-query logging
// and migration support
type Manager struct {
	db     *sql.DB
	logger *zap.Logger
	config *config.DatabaseConfig
	mu     sync.RWMutex
}

// NewManager opens a pooled connection and verifies it is reachable,
// retrying with exponential backoff so the service survives a database
// that is still starting up
func NewManager(cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("database URL is required")
	}

	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	configureConnectionPool(db, cfg)

	if err := waitForReady(db, cfg.HealthWaitTimeout, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("database not reachable: %w", err)
	}

	logger.Info("database connection established",
		zap.Int("max_open_conns", cfg.MaxOpenConns),
		zap.Int("max_idle_conns", cfg.MaxIdleConns),
		zap.Duration("conn_max_lifetime", cfg.ConnMaxLifetime),
	)

	return &Manager{
		db:     db,
		logger: logger,
		config: cfg,
	}, nil
}

func configureConnectionPool(db *sql.DB, cfg *config.DatabaseConfig) {
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
}

// waitForReady pings the database with exponential backoff until it
// answers or the overall timeout elapses
func waitForReady(db *sql.DB, timeout time.Duration, logger *zap.Logger) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxElapsedTime = timeout

	attempt := 0
	return backoff.Retry(func() error {
		attempt++
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := db.PingContext(ctx); err != nil {
			logger.Warn("database ping failed, retrying",
				zap.Int("attempt", attempt),
				zap.Error(err),
			)
			return err
		}
		return nil
	}, policy)
}

// DB returns the underlying database connection
func (m *Manager) DB() *sql.DB {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.db
}

// Migrate runs pending migrations on a separate connection so the
// migrator cannot close the main pool
func (m *Manager) Migrate(migrationsPath string) error {
	m.logger.Info("running database migrations", zap.String("path", migrationsPath))

	migrationDB, err := sql.Open("postgres", m.config.URL)
	if err != nil {
		return fmt.Errorf("failed to create migration connection: %w", err)
	}
	defer migrationDB.Close()

	if err := migrationDB.Ping(); err != nil {
		return fmt.Errorf("migration connection failed: %w", err)
	}

	driver, err := postgres.WithInstance(migrationDB, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("failed to create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithDatabaseInstance(
		fmt.Sprintf("file://%s", migrationsPath),
		"postgres",
		driver,
	)
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer migrator.Close()

	currentVersion, dirty, err := migrator.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get migration version: %w", err)
	}

	if dirty {
		m.logger.Warn("database is in dirty state", zap.Uint("version", currentVersion))
		return fmt.Errorf("database is in dirty state at version %d", currentVersion)
	}

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	newVersion, _, err := migrator.Version()
	if err != nil && err != migrate.ErrNilVersion {
		return fmt.Errorf("failed to get new migration version: %w", err)
	}

	m.logger.Info("migrations completed",
		zap.Uint("from_version", currentVersion),
		zap.Uint("to_version", newVersion),
	)

	return nil
}

// logIfSlow reports statements that ran past the configured threshold.
// Single-row lookups get half the budget.
func (m *Manager) logIfSlow(queryType, query string, start time.Time) {
	threshold := m.config.SlowQueryThreshold
	if queryType == "query_row" {
		threshold /= 2
	}
	if duration := time.Since(start); duration > threshold {
		m.logger.Warn("slow query detected",
			zap.String("type", queryType),
			zap.Duration("duration", duration),
			zap.Duration("threshold", threshold),
			zap.String("query", truncateQuery(query)),
		)
	}
}

// ExecContext executes a statement and logs it when slow
func (m *Manager) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	defer m.logIfSlow("exec", query, time.Now())

	result, err := m.db.ExecContext(ctx, query, args...)
	if err != nil {
		m.logger.Error("query execution failed",
			zap.Error(err),
			zap.String("query", truncateQuery(query)),
		)
	}

	return result, err
}

// QueryContext executes a multi-row query and logs it when slow
func (m *Manager) QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	defer m.logIfSlow("query", query, time.Now())

	rows, err := m.db.QueryContext(ctx, query, args...)
	if err != nil {
		m.logger.Error("query execution failed",
			zap.Error(err),
			zap.String("query", truncateQuery(query)),
		)
	}

	return rows, err
}

// QueryRowContext executes a single-row query and logs it when slow
func (m *Manager) QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row {
	defer m.logIfSlow("query_row", query, time.Now())

	return m.db.QueryRowContext(ctx, query, args...)
}

// BeginTx starts a new transaction with context
func (m *Manager) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	tx, err := m.db.BeginTx(ctx, opts)
	if err != nil {
		m.logger.Error("failed to begin transaction", zap.Error(err))
	}
	return tx, err
}

// Health pings the database with a short timeout
func (m *Manager) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	return m.db.PingContext(ctx)
}

// Stats returns connection pool statistics
func (m *Manager) Stats() sql.DBStats {
	return m.db.Stats()
}

// Close closes the database connection
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.db != nil {
		m.logger.Info("closing database connection")
		return m.db.Close()
	}
	return nil
}

func truncateQuery(query string) string {
	const maxLength = 200
	if len(query) <= maxLength {
		return query
	}
	return query[:maxLength] + "..."
}
