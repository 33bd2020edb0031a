package repository

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5/pgxpool"
)

// StateStore keeps small string values per (scope, key).
type StateStore interface {
	Get(ctx context.Context, scope, key string) (string, bool, error)
	Put(ctx context.Context, scope, key, value string) error
	Delete(ctx context.Context, scope string, keys ...string) error
	Close() error
}

// Open connects to the database named by databaseURL, applies migrations and
// returns the matching store. postgres:// and postgresql:// select Postgres;
// sqlite:// selects an SQLite file. migrations must hold
// migrations/<backend>/*.sql.
func Open(ctx context.Context, databaseURL string, migrations fs.FS) (StateStore, error) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		if err := migrateFrom(databaseURL, migrations, "postgres"); err != nil {
			return nil, err
		}
		pool, err := NewPool(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil

	case strings.HasPrefix(databaseURL, "sqlite://"):
		if err := migrateFrom(databaseURL, migrations, "sqlite"); err != nil {
			return nil, err
		}
		return NewSQLiteStore(ctx, strings.TrimPrefix(databaseURL, "sqlite://"))

	default:
		return nil, fmt.Errorf("unsupported database url %q", databaseURL)
	}
}

func migrateFrom(databaseURL string, migrations fs.FS, dir string) error {
	sub, err := fs.Sub(migrations, path.Join("migrations", dir))
	if err != nil {
		return fmt.Errorf("load %s migrations: %w", dir, err)
	}
	return RunMigrations(databaseURL, sub)
}

func NewPool(ctx context.Context, databaseURL string) (*pgxpool.Pool, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database config: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 1

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

func RunMigrations(databaseURL string, migrationsFS fs.FS) error {
	d, err := iofs.New(migrationsFS, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", d, databaseURL)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	version, dirty, _ := m.Version()
	slog.Info("migrations applied", "version", version, "dirty", dirty)
	return nil
}
