package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestCache_ExpiresAtFixedTTL(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	entry := c.Put("https://example.com/a", "summary")
	assert.Equal(t, entry.CreatedAt.Add(5*time.Minute), entry.ExpiresAt)

	clock.Advance(4*time.Minute + 59*time.Second)
	got, ok := c.Get("https://example.com/a")
	require.True(t, ok)
	assert.Equal(t, "summary", got)

	clock.Advance(time.Second)
	_, ok = c.Get("https://example.com/a")
	assert.False(t, ok)
	assert.Equal(t, 0, c.Len(), "expired entry is evicted on read")
}

func TestCache_ReadsDoNotExtendLifetime(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))
	c.Put("k", "v")

	for i := 0; i < 4; i++ {
		clock.Advance(time.Minute)
		_, ok := c.Get("k")
		require.True(t, ok)
	}
	clock.Advance(time.Minute)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestCache_PutOverwrites(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("k", "first")
	clock.Advance(3 * time.Minute)
	c.Put("k", "second")
	clock.Advance(3 * time.Minute)

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "second", got)
}

func TestCache_EvictClearSweep(t *testing.T) {
	clock := newFakeClock()
	c := New(WithClock(clock.Now))

	c.Put("a", "1")
	c.Put("b", "2")
	c.Evict("a")
	_, ok := c.Get("a")
	assert.False(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Len())

	c.Put("old", "x")
	clock.Advance(10 * time.Minute)
	c.Put("new", "y")
	assert.Equal(t, 1, c.Sweep())
	assert.Equal(t, 1, c.Len())
}

func TestCache_StartStop(t *testing.T) {
	c := New()
	c.Start(time.Millisecond)
	c.Put("k", "v")
	c.Stop()
	c.Stop()

	got, ok := c.Get("k")
	require.True(t, ok)
	assert.Equal(t, "v", got)
}

func TestCache_RoundTripProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		clock := newFakeClock()
		c := New(WithClock(clock.Now))

		key := rapid.String().Draw(t, "key")
		value := rapid.String().Draw(t, "value")
		elapsed := time.Duration(rapid.Int64Range(0, int64(10*time.Minute)).Draw(t, "elapsed"))

		c.Put(key, value)
		clock.Advance(elapsed)
		got, ok := c.Get(key)

		if elapsed < TTL {
			if !ok || got != value {
				t.Fatalf("expected %q before expiry, got %q (present=%v)", value, got, ok)
			}
		} else if ok {
			t.Fatalf("expected absent after %v", elapsed)
		}
	})
}
