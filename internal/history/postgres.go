package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const pgCreateTable = `CREATE TABLE IF NOT EXISTS bin_load_history (
	id           UUID PRIMARY KEY,
	source       TEXT NOT NULL,
	encoding     TEXT NOT NULL,
	format       TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	mapping      JSONB NOT NULL,
	client_ip    TEXT NOT NULL DEFAULT '',
	loaded_at    TIMESTAMPTZ NOT NULL
)`

const pgCreateIndex = `CREATE INDEX IF NOT EXISTS bin_load_history_loaded_at_idx
	ON bin_load_history (loaded_at DESC)`

// PoolConfig sizes the PostgreSQL connection pool.
type PoolConfig struct {
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// PostgresStore keeps history in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// ConnectPostgres opens a pool, verifies it and ensures the schema exists.
func ConnectPostgres(ctx context.Context, url string, cfg PoolConfig) (*PostgresStore, error) {
	poolConfig, err := pgxpool.ParseConfig(url)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := NewPostgresStore(pool)
	if err := s.Migrate(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgresStore wraps an existing pool. The caller owns the schema; see
// Migrate.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the history table and its index when missing.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range []string{pgCreateTable, pgCreateIndex} {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate %s: %w", TableName, err)
		}
	}
	return nil
}

func (s *PostgresStore) Record(ctx context.Context, e Entry) error {
	mapping, err := encodeMapping(e.Mapping)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO bin_load_history
			(id, source, encoding, format, row_count, column_count, mapping, client_ip, loaded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		e.ID, e.Source, e.Encoding, e.Format, e.Rows, e.Columns, mapping, e.ClientIP, e.LoadedAt,
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, source, encoding, format, row_count, column_count, mapping, client_ip, loaded_at
		FROM bin_load_history
		ORDER BY loaded_at DESC
		LIMIT $1`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (Entry, error) {
		var (
			e       Entry
			mapping []byte
		)
		if err := row.Scan(&e.ID, &e.Source, &e.Encoding, &e.Format, &e.Rows, &e.Columns, &mapping, &e.ClientIP, &e.LoadedAt); err != nil {
			return Entry{}, err
		}
		m, err := decodeMapping(mapping)
		if err != nil {
			return Entry{}, err
		}
		e.Mapping = m
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	return entries, nil
}

func (s *PostgresStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM bin_load_history WHERE loaded_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
