package core

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/binfilter/internal/bins"
	"github.com/JonMunkholm/binfilter/internal/history"
	"github.com/JonMunkholm/binfilter/internal/loader"
	"github.com/JonMunkholm/binfilter/internal/logging"
)

// ErrNoData is returned by every read operation before the first load.
var ErrNoData = errors.New("no data loaded")

// ErrNoDataFile is returned by LoadDefault when none of the candidates exist.
var ErrNoDataFile = errors.New("no data file found")

const (
	DefaultPageSize = 50
	MaxPageSize     = 1000
	// DefaultLoadTimeout bounds a single parse.
	DefaultLoadTimeout = 5 * time.Minute
)

// Config tunes a Service. Zero values use the package defaults.
type Config struct {
	MaxFileSize     int64
	MaxConcurrent   int
	MaxWait         time.Duration
	LoadTimeout     time.Duration
	DefaultPageSize int
}

// Service owns the current dataset snapshot.
type Service struct {
	cfg     Config
	limiter *LoadLimiter
	history history.Store

	current    atomic.Pointer[Snapshot]
	generation atomic.Uint64

	now func() time.Time
}

// NewService creates a Service with no data loaded. A nil store disables
// load history.
func NewService(store history.Store, cfg Config) *Service {
	if store == nil {
		store = history.NopStore{}
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = loader.DefaultMaxBytes
	}
	if cfg.LoadTimeout <= 0 {
		cfg.LoadTimeout = DefaultLoadTimeout
	}
	if cfg.DefaultPageSize <= 0 {
		cfg.DefaultPageSize = DefaultPageSize
	}
	return &Service{
		cfg:     cfg,
		limiter: NewLoadLimiter(cfg.MaxConcurrent, cfg.MaxWait),
		history: store,
		now:     time.Now,
	}
}

// Snapshot returns the current snapshot or ErrNoData.
func (s *Service) Snapshot() (*Snapshot, error) {
	snap := s.current.Load()
	if snap == nil {
		return nil, ErrNoData
	}
	return snap, nil
}

// HasData reports whether a dataset is loaded.
func (s *Service) HasData() bool {
	return s.current.Load() != nil
}

// LoadFile replaces the dataset with the file at path.
func (s *Service) LoadFile(ctx context.Context, path string) (*Snapshot, error) {
	f, err := os.Open(path) //nolint:gosec // operator-supplied data path
	if err != nil {
		return nil, fmt.Errorf("open data file: %w", err)
	}
	defer f.Close()

	return s.Upload(ctx, path, f)
}

// Upload replaces the dataset with the contents of r. name is used to
// detect compression and format and is recorded as the source.
func (s *Service) Upload(ctx context.Context, name string, r io.Reader) (*Snapshot, error) {
	if err := s.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer s.limiter.Release()

	log := logging.WithFields(ctx, "source", filepath.Base(name))
	start := s.now()

	loadCtx, cancel := context.WithTimeout(ctx, s.cfg.LoadTimeout)
	defer cancel()

	res, err := loader.Load(loadCtx, filepath.Base(name), r, loader.Options{MaxBytes: s.cfg.MaxFileSize})
	if err != nil {
		log.Warn("dataset load failed", "error", err)
		return nil, fmt.Errorf("load dataset: %w", err)
	}

	snap := &Snapshot{
		ID:         uuid.New(),
		Generation: s.generation.Add(1),
		Source:     filepath.Base(name),
		Encoding:   res.Encoding,
		Format:     res.Format.String(),
		Table:      res.Table,
		Mapping:    bins.Detect(res.Table),
		LoadedAt:   s.now().UTC(),
	}
	s.current.Store(snap)

	log.Info("dataset loaded",
		"snapshot_id", snap.ID.String(),
		"generation", snap.Generation,
		"rows", res.Table.Len(),
		"columns", res.Table.Width(),
		"encoding", res.Encoding,
		"format", snap.Format,
		"compression", res.Compression.String(),
		"bytes", res.Bytes,
		"raw_bytes", res.RawBytes,
		"duration_ms", s.now().Sub(start).Milliseconds(),
	)

	s.recordHistory(ctx, snap)
	return snap, nil
}

// LoadDefault loads the first existing file among paths.
func (s *Service) LoadDefault(ctx context.Context, paths []string) (*Snapshot, error) {
	for _, p := range paths {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("stat %s: %w", p, err)
		}
		return s.LoadFile(ctx, p)
	}
	return nil, ErrNoDataFile
}

// SetMapping validates candidate against the current table and publishes
// it as a new generation sharing the same table. Columns the table lacks
// become absent; dimensions not named in candidate are absent as well.
func (s *Service) SetMapping(candidate bins.Mapping) (*Snapshot, error) {
	for {
		cur := s.current.Load()
		if cur == nil {
			return nil, ErrNoData
		}
		next := *cur
		next.Mapping = bins.SetMapping(cur.Table, candidate)
		next.Generation = s.generation.Add(1)
		if s.current.CompareAndSwap(cur, &next) {
			return &next, nil
		}
	}
}

// History returns the most recent loads, newest first.
func (s *Service) History(ctx context.Context, limit int) ([]history.Entry, error) {
	return s.history.Recent(ctx, limit)
}

// LimiterStatus exposes the load limiter state.
func (s *Service) LimiterStatus() LimiterStatus {
	return s.limiter.Status()
}

// WaitForLoads blocks until in-flight loads finish or ctx ends.
func (s *Service) WaitForLoads(ctx context.Context) error {
	return s.limiter.WaitForDrain(ctx)
}

func (s *Service) recordHistory(ctx context.Context, snap *Snapshot) {
	entry := history.Entry{
		ID:       snap.ID,
		Source:   snap.Source,
		Encoding: snap.Encoding,
		Format:   snap.Format,
		Rows:     snap.Table.Len(),
		Columns:  snap.Table.Width(),
		Mapping:  snap.Mapping,
		ClientIP: ClientIPFromContext(ctx),
		LoadedAt: snap.LoadedAt,
	}
	// The dataset is already published; a slow or failing store must not
	// undo it or hold the request open much longer.
	recCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.history.Record(recCtx, entry); err != nil {
		logging.FromContext(ctx).Error("failed to record load history", "snapshot_id", snap.ID.String(), "error", err)
	}
}
