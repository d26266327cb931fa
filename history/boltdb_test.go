package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"searchlens/pkg/errkind"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T, now func() time.Time) *BoltStore {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "history.db"), nil, WithClock(now))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func at(t time.Time) float64 { return float64(t.UnixMilli()) }

func TestBoltStore_RecentNewestFirst(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openTestStore(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Visit{URL: "https://a.example", Title: "A", LastVisitTime: at(now.Add(-30 * time.Minute))}))
	require.NoError(t, store.Record(ctx, Visit{URL: "https://b.example", Title: "B", LastVisitTime: at(now.Add(-5 * time.Minute))}))
	require.NoError(t, store.Record(ctx, Visit{URL: "https://old.example", Title: "Old", LastVisitTime: at(now.Add(-2 * time.Hour))}))

	got, err := store.Recent(ctx, time.Hour, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://b.example", got[0].URL)
	assert.Equal(t, "https://a.example", got[1].URL)
}

func TestBoltStore_RevisitReplacesEntry(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openTestStore(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Visit{URL: "https://a.example", Title: "A", LastVisitTime: at(now.Add(-20 * time.Minute))}))
	require.NoError(t, store.Record(ctx, Visit{URL: "https://b.example", Title: "B", LastVisitTime: at(now.Add(-10 * time.Minute))}))
	require.NoError(t, store.Record(ctx, Visit{URL: "https://a.example", Title: "A again", LastVisitTime: at(now.Add(-1 * time.Minute))}))

	got, err := store.Recent(ctx, time.Hour, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "A again", got[0].Title)
	assert.Equal(t, "https://b.example", got[1].URL)
}

func TestBoltStore_MaxItems(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openTestStore(t, func() time.Time { return now })
	ctx := context.Background()

	for i, u := range []string{"https://1.example", "https://2.example", "https://3.example"} {
		require.NoError(t, store.Record(ctx, Visit{URL: u, LastVisitTime: at(now.Add(time.Duration(-3+i) * time.Minute))}))
	}

	got, err := store.Recent(ctx, time.Hour, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "https://3.example", got[0].URL)
	assert.Equal(t, "https://2.example", got[1].URL)
}

func TestBoltStore_RecordDefaultsToNow(t *testing.T) {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	store := openTestStore(t, func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Visit{URL: "https://a.example"}))

	got, err := store.Recent(ctx, time.Minute, 5)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, now, got[0].Time().UTC())
}

func TestBoltStore_RecordRequiresURL(t *testing.T) {
	store := openTestStore(t, time.Now)
	err := store.Record(context.Background(), Visit{Title: "no url"})
	assert.True(t, errkind.Is(err, errkind.InvalidInput))
}

func TestBoltStore_Clear(t *testing.T) {
	store := openTestStore(t, time.Now)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, Visit{URL: "https://a.example"}))
	require.NoError(t, store.Clear())

	got, err := store.Recent(ctx, time.Hour, 20)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestQuery_Defaults(t *testing.T) {
	window, maxItems := Query(0, -1)
	assert.Equal(t, time.Hour, window)
	assert.Equal(t, DefaultMaxItems, maxItems)

	window, maxItems = Query(15, 3)
	assert.Equal(t, 15*time.Minute, window)
	assert.Equal(t, 3, maxItems)
}
