package database

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// DB wraps the PostgreSQL connection pool
type DB struct {
	Pool *pgxpool.Pool
}

// Config holds database configuration
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// NewDB creates a new database connection
func NewDB(cfg Config) (*DB, error) {
	// Build connection string
	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Database, cfg.SSLMode,
	)

	// Parse connection string
	poolConfig, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	// Configure connection pool
	poolConfig.MaxConns = 25
	poolConfig.MinConns = 5
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	// Create connection pool
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	log.Printf("Successfully connected to PostgreSQL database: %s", cfg.Database)

	return &DB{Pool: pool}, nil
}

// Close closes the database connection
func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
		log.Println("Database connection closed")
	}
}

// RunMigrations executes database migrations
func (db *DB) RunMigrations(ctx context.Context) error {
	log.Println("Running database migrations...")

	migrations := []string{
		// Create backtest_runs table
		`CREATE TABLE IF NOT EXISTS backtest_runs (
			id UUID PRIMARY KEY,
			pair VARCHAR(20) NOT NULL,
			timeframe VARCHAR(10) NOT NULL,
			initial_capital DECIMAL(20, 8) NOT NULL,
			budget_fraction DECIMAL(10, 6) NOT NULL,
			trailing_stop BOOLEAN NOT NULL DEFAULT TRUE,
			insufficient_data BOOLEAN NOT NULL DEFAULT FALSE,
			all_rules_passed BOOLEAN NOT NULL DEFAULT FALSE,
			total_trades INTEGER NOT NULL DEFAULT 0,
			wins INTEGER NOT NULL DEFAULT 0,
			win_rate_pct DECIMAL(10, 4) NOT NULL DEFAULT 0,
			avg_return_pct DECIMAL(20, 8) NOT NULL DEFAULT 0,
			cumulative_return_pct DECIMAL(20, 8) NOT NULL DEFAULT 0,
			final_equity_value DECIMAL(20, 8) NOT NULL DEFAULT 0,
			total_income DECIMAL(20, 8) NOT NULL DEFAULT 0,
			roi_pct DECIMAL(20, 8) NOT NULL DEFAULT 0,
			cagr_pct DECIMAL(20, 8) NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_runs_pair ON backtest_runs(pair)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_runs_created_at ON backtest_runs(created_at)`,

		// Create backtest_trades table
		`CREATE TABLE IF NOT EXISTS backtest_trades (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			entry_time TIMESTAMP NOT NULL,
			exit_time TIMESTAMP NOT NULL,
			entry_price DECIMAL(20, 8) NOT NULL,
			exit_price DECIMAL(20, 8) NOT NULL,
			position_units DECIMAL(20, 8) NOT NULL,
			invested_amount DECIMAL(20, 8) NOT NULL,
			pnl_pct DECIMAL(20, 8) NOT NULL,
			pnl_amount DECIMAL(20, 8) NOT NULL,
			cutloss_price DECIMAL(20, 8),
			duration_days DECIMAL(12, 4),
			entry_color VARCHAR(10),
			exit_color VARCHAR(10),
			exit_reason VARCHAR(30) NOT NULL,
			open_ended BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_run_id ON backtest_trades(run_id)`,
		`CREATE INDEX IF NOT EXISTS idx_backtest_trades_entry_time ON backtest_trades(entry_time)`,

		// Create divergence_signals table
		`CREATE TABLE IF NOT EXISTS divergence_signals (
			id SERIAL PRIMARY KEY,
			run_id UUID NOT NULL REFERENCES backtest_runs(id) ON DELETE CASCADE,
			signal_type VARCHAR(10) NOT NULL,
			start_index INTEGER NOT NULL,
			end_index INTEGER NOT NULL,
			rsi_start DECIMAL(10, 4) NOT NULL,
			rsi_end DECIMAL(10, 4) NOT NULL,
			price_start DECIMAL(20, 8) NOT NULL,
			price_end DECIMAL(20, 8) NOT NULL,
			distance_candles INTEGER NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_divergence_signals_run_id ON divergence_signals(run_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	log.Println("Database migrations completed successfully")
	return nil
}

// HealthCheck performs a database health check
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.Pool.Ping(ctx)
}
