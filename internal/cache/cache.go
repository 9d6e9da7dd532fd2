// Package cache holds the in-memory caches the event follower uses to
// remember what it has already seen.
package cache

import (
	"context"
	"time"
)

// Cache defines a generic cache interface
type Cache[K comparable, V any] interface {
	Get(key K) (V, bool)
	Set(key K, value V)
	Delete(key K)
	Size() int
}

// Cleaner is a cache that can drop its expired entries.
type Cleaner interface {
	CleanExpired() int
}

// Janitor periodically cleans registered caches.
type Janitor struct {
	caches []Cleaner
	// OnClean, when set, receives the number of entries each sweep removed.
	OnClean func(removed int)
}

// NewJanitor creates a janitor for caches.
func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

// Register adds a cache to the sweep.
func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	if j.OnClean != nil {
		j.OnClean(total)
	}
	return total
}

// Run sweeps every interval until ctx is done.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			j.Sweep()
		case <-ctx.Done():
			return
		}
	}
}

var _ Cache[string, int] = (*LRU[string, int])(nil)
