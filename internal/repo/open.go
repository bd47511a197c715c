package repo

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
)

// Options select and configure a SQL-backed or in-memory blob store.
type Options struct {
	Driver         string
	SQLitePath     string
	DatabaseURL    string
	DatabaseSchema string
	// Migrations holds one sub-directory per driver ("sqlite", "postgres").
	Migrations fs.FS
}

// Open builds the blob store named by opts.Driver and applies its migrations.
func Open(ctx context.Context, opts Options, logger *slog.Logger) (BlobStore, error) {
	switch opts.Driver {
	case "memory":
		return NewMemory(), nil
	case "sqlite":
		store, err := NewSQLite(ctx, opts.SQLitePath, logger)
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, store.RunMigrations, opts.Migrations, "sqlite"); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	case "postgres":
		store, err := NewPostgres(ctx, opts.DatabaseURL, opts.DatabaseSchema, logger)
		if err != nil {
			return nil, err
		}
		if err := migrate(ctx, store.RunMigrations, opts.Migrations, "postgres"); err != nil {
			store.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", opts.Driver)
	}
}

func migrate(ctx context.Context, run func(context.Context, fs.FS) error, migrations fs.FS, dir string) error {
	if migrations == nil {
		return nil
	}
	sub, err := fs.Sub(migrations, dir)
	if err != nil {
		return fmt.Errorf("open %s migrations: %w", dir, err)
	}
	if err := run(ctx, sub); err != nil {
		return fmt.Errorf("run %s migrations: %w", dir, err)
	}
	return nil
}
