package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/binfilter/internal/bins"
)

func openMemory(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(context.Background(), ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func entryAt(source string, at time.Time) Entry {
	return Entry{
		ID:       uuid.New(),
		Source:   source,
		Encoding: "utf-8",
		Format:   "csv",
		Rows:     10,
		Columns:  3,
		Mapping:  bins.Mapping{bins.DimBIN: "bin", bins.DimBank: ""},
		LoadedAt: at.UTC(),
	}
}

func TestSQLiteStore_RecordAndRecent(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.Record(ctx, entryAt("a.csv", base)))
	require.NoError(t, s.Record(ctx, entryAt("b.csv", base.Add(time.Hour))))
	require.NoError(t, s.Record(ctx, entryAt("c.csv", base.Add(2*time.Hour))))

	got, err := s.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c.csv", got[0].Source)
	assert.Equal(t, "b.csv", got[1].Source)
	assert.True(t, got[0].LoadedAt.Equal(base.Add(2*time.Hour)))

	col, ok := got[0].Mapping.Column(bins.DimBIN)
	assert.True(t, ok)
	assert.Equal(t, "bin", col)
	_, ok = got[0].Mapping.Column(bins.DimBank)
	assert.False(t, ok)
}

func TestSQLiteStore_RecentDefaultLimit(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	base := time.Now()
	for i := 0; i < DefaultRecentLimit+5; i++ {
		require.NoError(t, s.Record(ctx, entryAt("x.csv", base.Add(time.Duration(i)*time.Second))))
	}

	got, err := s.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, DefaultRecentLimit)
}

func TestSQLiteStore_Prune(t *testing.T) {
	ctx := context.Background()
	s := openMemory(t)
	now := time.Now()

	require.NoError(t, s.Record(ctx, entryAt("old.csv", now.Add(-48*time.Hour))))
	require.NoError(t, s.Record(ctx, entryAt("new.csv", now)))

	n, err := s.Prune(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "new.csv", got[0].Source)
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	s, err := Open(ctx, Config{})
	require.NoError(t, err)
	assert.IsType(t, NopStore{}, s)

	s, err = Open(ctx, Config{Driver: "sqlite", SQLitePath: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	_, err = Open(ctx, Config{Driver: "mongo"})
	assert.True(t, errors.Is(err, ErrUnknownDriver))
}

type recordingStore struct {
	NopStore
	mu      sync.Mutex
	cutoffs []time.Time
	err     error
}

func (r *recordingStore) Prune(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cutoffs = append(r.cutoffs, before)
	return 3, r.err
}

func (r *recordingStore) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestRunPrune_UsesRetentionCutoff(t *testing.T) {
	store := &recordingStore{}
	now := time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC)

	runPrune(context.Background(), store, 24*time.Hour, func() time.Time { return now })

	require.Len(t, store.cutoffs, 1)
	assert.Equal(t, now.Add(-24*time.Hour), store.cutoffs[0])
}

func TestRunPrune_ErrorIsNotFatal(t *testing.T) {
	store := &recordingStore{err: errors.New("disk full")}

	assert.NotPanics(t, func() {
		runPrune(context.Background(), store, time.Hour, time.Now)
	})
}

func TestStartPruneScheduler_RunsImmediatelyAndStops(t *testing.T) {
	store := &recordingStore{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		StartPruneScheduler(ctx, store, PruneConfig{Retention: time.Hour, CheckInterval: time.Hour})
		close(done)
	}()

	require.Eventually(t, func() bool { return store.calls() == 1 }, time.Second, 10*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("scheduler did not stop after cancel")
	}
}
