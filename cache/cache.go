package cache

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// TTL is the fixed lifetime of an entry, counted from insertion.
const TTL = 5 * time.Minute

const DefaultSweepInterval = time.Minute

// Entry is immutable once stored; Put replaces the whole entry.
type Entry struct {
	Key       string
	Value     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (e Entry) expired(now time.Time) bool {
	return !now.Before(e.ExpiresAt)
}

type Option func(*Cache)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cache) { c.now = now }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Cache) { c.logger = logger }
}

// Cache is a TTL key/value store. Expired entries are dropped on read and by
// the sweeper started with Start.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Entry
	now     func() time.Time
	logger  *zap.Logger

	stopOnce sync.Once
	stop     chan struct{}
}

func New(opts ...Option) *Cache {
	c := &Cache{
		entries: make(map[string]Entry),
		now:     time.Now,
		logger:  zap.NewNop(),
		stop:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the value for key if present and not expired.
func (c *Cache) Get(key string) (string, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false
	}

	if entry.expired(c.now()) {
		c.mu.Lock()
		if current, ok := c.entries[key]; ok && current.expired(c.now()) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return "", false
	}
	return entry.Value, true
}

// Put stores value under key, overwriting any previous entry.
func (c *Cache) Put(key, value string) Entry {
	now := c.now()
	entry := Entry{
		Key:       key,
		Value:     value,
		CreatedAt: now,
		ExpiresAt: now.Add(TTL),
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return entry
}

func (c *Cache) Evict(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

func (c *Cache) Clear() {
	c.mu.Lock()
	n := len(c.entries)
	c.entries = make(map[string]Entry)
	c.mu.Unlock()

	c.logger.Info("cache_cleared", zap.Int("entries", n))
}

// Len counts stored entries, expired ones included until swept.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *Cache) Sweep() int {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	removed := 0
	for key, entry := range c.entries {
		if entry.expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Start runs Sweep every interval until Stop is called.
func (c *Cache) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C:
				if removed := c.Sweep(); removed > 0 {
					c.logger.Debug("cache_swept", zap.Int("removed", removed))
				}
			}
		}
	}()
}

// Stop ends the sweeper. It is a no-op when Start was never called.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stop)
	})
}
