package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/google/uuid"
)

const sqliteCreateTable = `CREATE TABLE IF NOT EXISTS bin_load_history (
	id           TEXT PRIMARY KEY,
	source       TEXT NOT NULL,
	encoding     TEXT NOT NULL,
	format       TEXT NOT NULL,
	row_count    INTEGER NOT NULL,
	column_count INTEGER NOT NULL,
	mapping      TEXT NOT NULL,
	client_ip    TEXT NOT NULL DEFAULT '',
	loaded_at    INTEGER NOT NULL
)`

const sqliteCreateIndex = `CREATE INDEX IF NOT EXISTS bin_load_history_loaded_at_idx
	ON bin_load_history (loaded_at DESC)`

// SQLiteStore keeps history in a SQLite file. Timestamps are stored as
// Unix nanoseconds.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and ensures the
// schema exists. Use ":memory:" for a throwaway store.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// A single connection keeps ":memory:" databases alive and serializes writes.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{sqliteCreateTable, sqliteCreateIndex} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("migrate %s: %w", TableName, err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, e Entry) error {
	mapping, err := encodeMapping(e.Mapping)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO bin_load_history
			(id, source, encoding, format, row_count, column_count, mapping, client_ip, loaded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID.String(), e.Source, e.Encoding, e.Format, e.Rows, e.Columns, string(mapping), e.ClientIP, e.LoadedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("insert history entry: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Recent(ctx context.Context, limit int) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, source, encoding, format, row_count, column_count, mapping, client_ip, loaded_at
		FROM bin_load_history
		ORDER BY loaded_at DESC
		LIMIT ?`, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e        Entry
			id       string
			mapping  string
			loadedAt int64
		)
		if err := rows.Scan(&id, &e.Source, &e.Encoding, &e.Format, &e.Rows, &e.Columns, &mapping, &e.ClientIP, &loadedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("scan history: bad id %q: %w", id, err)
		}
		if e.Mapping, err = decodeMapping([]byte(mapping)); err != nil {
			return nil, err
		}
		e.LoadedAt = time.Unix(0, loadedAt).UTC()
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	return entries, nil
}

func (s *SQLiteStore) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM bin_load_history WHERE loaded_at < ?`, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune history: %w", err)
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
