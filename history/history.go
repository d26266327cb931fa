package history

import (
	"context"
	"time"
)

const (
	DefaultWindowMinutes = 60
	DefaultMaxItems      = 20
)

// Visit is one page view. LastVisitTime is milliseconds since the epoch, the
// unit browsers report.
type Visit struct {
	URL           string  `json:"url"`
	Title         string  `json:"title"`
	LastVisitTime float64 `json:"lastVisitTime"`
}

func (v Visit) Time() time.Time {
	return time.UnixMilli(int64(v.LastVisitTime))
}

// Store keeps the latest visit per URL.
type Store interface {
	Record(ctx context.Context, v Visit) error
	Recent(ctx context.Context, window time.Duration, maxItems int) ([]Visit, error)
	Close() error
}

// Query normalizes a history lookup, applying the defaults for
// non-positive values.
func Query(minutes, maxItems int) (time.Duration, int) {
	if minutes <= 0 {
		minutes = DefaultWindowMinutes
	}
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return time.Duration(minutes) * time.Minute, maxItems
}
