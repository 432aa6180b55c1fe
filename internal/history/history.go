// Package history records successful dataset loads.
//
// Entries are written after a new snapshot is published and pruned by a
// background scheduler once they fall outside the retention window. The
// PostgreSQL and SQLite stores keep the same single-table layout.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

// TableName is the table both SQL stores write to.
const TableName = "bin_load_history"

// DefaultRecentLimit is used when Recent is called with a non-positive limit.
const DefaultRecentLimit = 20

// ErrUnknownDriver is returned by Open for an unsupported driver name.
var ErrUnknownDriver = errors.New("unknown history driver")

// Entry describes one successful load.
type Entry struct {
	ID       uuid.UUID    `json:"id"`
	Source   string       `json:"source"`
	Encoding string       `json:"encoding"`
	Format   string       `json:"format"`
	Rows     int          `json:"rows"`
	Columns  int          `json:"columns"`
	Mapping  bins.Mapping `json:"mapping"`
	ClientIP string       `json:"client_ip,omitempty"`
	LoadedAt time.Time    `json:"loaded_at"`
}

// Store persists load history.
type Store interface {
	// Record appends an entry.
	Record(ctx context.Context, e Entry) error
	// Recent returns up to limit entries, newest first.
	Recent(ctx context.Context, limit int) ([]Entry, error)
	// Prune deletes entries loaded before the cutoff and reports how many.
	Prune(ctx context.Context, before time.Time) (int64, error)
	Close() error
}

// NopStore discards everything. It is used when no backend is configured.
type NopStore struct{}

func (NopStore) Record(context.Context, Entry) error             { return nil }
func (NopStore) Recent(context.Context, int) ([]Entry, error)    { return nil, nil }
func (NopStore) Prune(context.Context, time.Time) (int64, error) { return 0, nil }
func (NopStore) Close() error                                    { return nil }

// Config selects and configures a backend.
type Config struct {
	Driver     string // none, postgres or sqlite
	URL        string
	SQLitePath string
	Pool       PoolConfig
}

// Open returns the store named by cfg.Driver. An empty driver or "none"
// yields a NopStore.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "none":
		return NopStore{}, nil
	case "postgres", "postgresql":
		return ConnectPostgres(ctx, cfg.URL, cfg.Pool)
	case "sqlite":
		return OpenSQLite(ctx, cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func encodeMapping(m bins.Mapping) ([]byte, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode mapping: %w", err)
	}
	return data, nil
}

func decodeMapping(data []byte) (bins.Mapping, error) {
	var m bins.Mapping
	if len(data) == 0 {
		return m, nil
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("decode mapping: %w", err)
	}
	return m, nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return limit
}
