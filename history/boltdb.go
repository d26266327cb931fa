package history

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"searchlens/pkg/errkind"

	bolt "go.etcd.io/bbolt"
	"go.uber.org/zap"
)

var (
	visitsBucket = []byte("visits")
	// byTime maps big-endian visit time + url to the url, so a reverse cursor
	// walk yields newest first.
	byTimeBucket = []byte("visits_by_time")
)

type BoltStore struct {
	path   string
	db     *bolt.DB
	mu     sync.RWMutex
	now    func() time.Time
	logger *zap.Logger
}

type Option func(*BoltStore)

func WithClock(now func() time.Time) Option {
	return func(s *BoltStore) { s.now = now }
}

// Open creates the database file and its buckets if needed.
func Open(path string, logger *zap.Logger, opts ...Option) (*BoltStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory for history db: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open history db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{visitsBucket, byTimeBucket} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history buckets: %w", err)
	}

	s := &BoltStore{path: path, db: db, now: time.Now, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Record stores v as the latest visit of its URL. A zero LastVisitTime means
// now.
func (s *BoltStore) Record(ctx context.Context, v Visit) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if v.URL == "" {
		return errkind.Newf(errkind.InvalidInput, "history", "visit url is required")
	}
	if v.LastVisitTime <= 0 {
		v.LastVisitTime = float64(s.now().UnixMilli())
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode visit: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		visits := tx.Bucket(visitsBucket)
		byTime := tx.Bucket(byTimeBucket)

		if prev := visits.Get([]byte(v.URL)); prev != nil {
			var old Visit
			if err := json.Unmarshal(prev, &old); err == nil {
				if err := byTime.Delete(timeKey(old)); err != nil {
					return err
				}
			}
		}
		if err := visits.Put([]byte(v.URL), data); err != nil {
			return err
		}
		return byTime.Put(timeKey(v), []byte(v.URL))
	})
}

// Recent returns up to maxItems visits from the last window, newest first.
func (s *BoltStore) Recent(ctx context.Context, window time.Duration, maxItems int) ([]Visit, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	since := s.now().Add(-window).UnixMilli()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []Visit
	err := s.db.View(func(tx *bolt.Tx) error {
		visits := tx.Bucket(visitsBucket)
		c := tx.Bucket(byTimeBucket).Cursor()
		for k, u := c.Last(); k != nil && len(out) < maxItems; k, u = c.Prev() {
			if int64(binary.BigEndian.Uint64(k[:8])) < since {
				break
			}
			raw := visits.Get(u)
			if raw == nil {
				continue
			}
			var v Visit
			if err := json.Unmarshal(raw, &v); err != nil {
				s.logger.Warn("history_decode_failed", zap.ByteString("url", u), zap.Error(err))
				continue
			}
			out = append(out, v)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

// Clear removes all visits.
func (s *BoltStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.Update(func(tx *bolt.Tx) error {
		for _, name := range [][]byte{visitsBucket, byTimeBucket} {
			if err := tx.DeleteBucket(name); err != nil {
				return err
			}
			if _, err := tx.CreateBucket(name); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *BoltStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func timeKey(v Visit) []byte {
	var buf bytes.Buffer
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(int64(v.LastVisitTime)))
	buf.Write(ts[:])
	buf.WriteString(v.URL)
	return buf.Bytes()
}

var _ Store = (*BoltStore)(nil)
