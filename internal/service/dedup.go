package service

import (
	"sync"
	"time"

	"watopic/internal/constants"
)

// Deduper suppresses repeated call and status notifications. An event key
// seen within the window is dropped; outside the window it notifies again
// and restarts its window. Expired entries are purged lazily, with a full
// sweep once the table grows past the threshold.
type Deduper struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

func NewDeduper(window time.Duration) *Deduper {
	if window <= 0 {
		window = constants.DedupWindow
	}
	return &Deduper{
		seen:   make(map[string]time.Time),
		window: window,
		now:    time.Now,
	}
}

// ShouldNotify records the key and reports whether a notification should be
// emitted for it.
func (d *Deduper) ShouldNotify(key string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	if last, ok := d.seen[key]; ok && now.Sub(last) < d.window {
		return false
	}

	d.seen[key] = now
	if len(d.seen) > constants.DedupSweepThreshold {
		d.sweep(now)
	}
	return true
}

// sweep removes entries whose window has lapsed. Caller holds the lock.
func (d *Deduper) sweep(now time.Time) {
	for key, last := range d.seen {
		if now.Sub(last) >= d.window {
			delete(d.seen, key)
		}
	}
}

// Len reports the number of tracked keys, expired or not.
func (d *Deduper) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}
