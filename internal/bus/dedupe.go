package bus

import (
	"sync"
	"time"
)

// DedupeCache drops Telegram updates that were already processed. Long
// polling can redeliver updates after restarts or network hiccups, and
// processing the same message twice would double-write tasks.
//
// Entries expire after the TTL and are pruned lazily on each check.
type DedupeCache struct {
	mu      sync.Mutex
	seen    map[string]time.Time
	ttl     time.Duration
	maxSize int
}

func NewDedupeCache(ttl time.Duration, maxSize int) *DedupeCache {
	return &DedupeCache{
		seen:    make(map[string]time.Time, 256),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

// IsDuplicate reports whether key was seen within the TTL window, and
// records it otherwise.
func (d *DedupeCache) IsDuplicate(key string) bool {
	now := time.Now()
	cutoff := now.Add(-d.ttl)

	d.mu.Lock()
	defer d.mu.Unlock()

	if at, ok := d.seen[key]; ok && !at.Before(cutoff) {
		return true
	}

	d.prune(cutoff)
	d.seen[key] = now
	return false
}

// prune removes expired entries and evicts arbitrary ones if the cache is
// still over maxSize. Caller holds d.mu.
func (d *DedupeCache) prune(cutoff time.Time) {
	for k, at := range d.seen {
		if at.Before(cutoff) {
			delete(d.seen, k)
		}
	}
	if d.maxSize > 0 && len(d.seen) >= d.maxSize {
		excess := len(d.seen) - d.maxSize + 1
		for k := range d.seen {
			if excess <= 0 {
				break
			}
			delete(d.seen, k)
			excess--
		}
	}
}
