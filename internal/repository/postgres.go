package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore shares one app_state table between bot replicas.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Get(ctx context.Context, scope, key string) (string, bool, error) {
	var value string
	err := s.pool.QueryRow(ctx,
		`SELECT value FROM app_state WHERE scope = $1 AND key = $2`,
		scope, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get app_state: %w", err)
	}
	return value, true, nil
}

func (s *PostgresStore) Put(ctx context.Context, scope, key, value string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO app_state (scope, key, value, updated_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (scope, key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()`,
		scope, key, value,
	)
	if err != nil {
		return fmt.Errorf("put app_state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, scope string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := s.pool.Exec(ctx,
		`DELETE FROM app_state WHERE scope = $1 AND key = ANY($2)`,
		scope, keys,
	)
	if err != nil {
		return fmt.Errorf("delete app_state: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
