package repo

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresBlobStore stores blobs in a Postgres table via pgxpool.
type PostgresBlobStore struct {
	pool   *pgxpool.Pool
	logger *slog.Logger
	schema string
}

// NewPostgres opens a connection pool to the database with the desired search_path.
func NewPostgres(ctx context.Context, databaseURL, schema string, logger *slog.Logger) (*PostgresBlobStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	if cfg.ConnConfig.RuntimeParams == nil {
		cfg.ConnConfig.RuntimeParams = map[string]string{}
	}
	if schema != "" {
		cfg.ConnConfig.RuntimeParams["search_path"] = schema
	}
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeSimpleProtocol

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	r := &PostgresBlobStore{
		pool:   pool,
		logger: logger.With("component", "repo_postgres"),
		schema: schema,
	}

	if err := r.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return r, nil
}

// Close releases the connection pool.
func (r *PostgresBlobStore) Close() error {
	if r.pool != nil {
		r.pool.Close()
	}
	return nil
}

// Ping ensures the database is reachable.
func (r *PostgresBlobStore) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (r *PostgresBlobStore) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplyMigrations(ctx, r.pool, filesystem)
}

func (r *PostgresBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.pool.QueryRow(ctx, `SELECT value FROM blobs WHERE key = $1`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, true, nil
}

func (r *PostgresBlobStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO blobs (key, value, updated_at)
VALUES ($1, $2, NOW())
ON CONFLICT (key) DO UPDATE SET
    value = EXCLUDED.value,
    updated_at = NOW();
`
	if _, err := r.pool.Exec(ctx, q, key, value); err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	return nil
}

func (r *PostgresBlobStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if _, err := r.pool.Exec(ctx, `DELETE FROM blobs WHERE key = ANY($1)`, keys); err != nil {
		return fmt.Errorf("delete blobs: %w", err)
	}
	return nil
}
