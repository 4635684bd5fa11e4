package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/andresuchdata/autopo-insights/backend-go/internal/config"
)

const defaultMaxConcurrency = 10

type DB struct {
	*sqlx.DB
	sem *semaphore.Weighted
}

// NewDB creates a lib/pq connection pool from the server configuration.
func NewDB(cfg *config.DatabaseConfig) (*DB, error) {
	connStr := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	return Open("postgres", connStr, cfg.MaxConcurrency)
}

// Open connects with any registered database/sql driver ("postgres", "pgx").
func Open(driverName, dsn string, maxConcurrency int64) (*DB, error) {
	db, err := sqlx.Connect(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("could not connect to database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	return Wrap(db, maxConcurrency), nil
}

// Wrap adds the concurrency limit to an existing pool.
func Wrap(db *sqlx.DB, maxConcurrency int64) *DB {
	if maxConcurrency <= 0 {
		maxConcurrency = defaultMaxConcurrency
	}
	return &DB{
		DB:  db,
		sem: semaphore.NewWeighted(maxConcurrency),
	}
}

// WithTx executes fn within a transaction, holding one semaphore slot for its
// whole duration.
func (db *DB) WithTx(ctx context.Context, opts *sql.TxOptions, fn func(tx *sqlx.Tx) error) error {
	if err := db.sem.Acquire(ctx, 1); err != nil {
		return fmt.Errorf("could not acquire semaphore: %w", err)
	}
	defer db.sem.Release(1)

	tx, err := db.BeginTxx(ctx, opts)
	if err != nil {
		return fmt.Errorf("could not begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			log.Error().Err(rbErr).Msg("could not rollback transaction")
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("could not commit transaction: %w", err)
	}

	return nil
}

// WithSnapshotTx runs fn in a read-only REPEATABLE READ transaction so every
// query inside sees the same data.
func (db *DB) WithSnapshotTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	return db.WithTx(ctx, &sql.TxOptions{
		Isolation: sql.LevelRepeatableRead,
		ReadOnly:  true,
	}, fn)
}
