package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteBlobStore stores blobs in a local SQLite database.
type SQLiteBlobStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLite opens a connection to the SQLite database at databasePath.
func NewSQLite(ctx context.Context, databasePath string, logger *slog.Logger) (*SQLiteBlobStore, error) {
	path := strings.TrimSpace(databasePath)
	if path == "" {
		return nil, fmt.Errorf("sqlite database path is empty")
	}
	inMemory := path == ":memory:" || strings.Contains(path, "mode=memory")
	if !inMemory && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create sqlite directory: %w", err)
		}
	}

	dsn := path
	if !strings.HasPrefix(dsn, "file:") {
		dsn = "file:" + dsn
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	dsn = fmt.Sprintf("%s%s_pragma=busy_timeout=10000&_pragma=journal_mode=WAL&_pragma=foreign_keys=ON", dsn, sep)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Every pooled connection to :memory: would see its own empty database.
	if inMemory {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return &SQLiteBlobStore{
		db:     db,
		logger: logger.With("component", "repo_sqlite"),
	}, nil
}

// Close releases the database connection.
func (r *SQLiteBlobStore) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping ensures the database is reachable.
func (r *SQLiteBlobStore) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// RunMigrations applies schema migrations on the connected database.
func (r *SQLiteBlobStore) RunMigrations(ctx context.Context, filesystem fs.FS) error {
	return ApplySQLMigrations(ctx, r.db, filesystem)
}

func (r *SQLiteBlobStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	var value []byte
	err := r.db.QueryRowContext(ctx, `SELECT value FROM blobs WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get blob %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SQLiteBlobStore) Set(ctx context.Context, key string, value []byte) error {
	const q = `
INSERT INTO blobs (key, value, updated_at)
VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT (key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at;
`
	if _, err := r.db.ExecContext(ctx, q, key, value); err != nil {
		return fmt.Errorf("set blob %s: %w", key, err)
	}
	return nil
}

func (r *SQLiteBlobStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	if _, err := r.db.ExecContext(ctx, "DELETE FROM blobs WHERE key IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("delete blobs: %w", err)
	}
	return nil
}
