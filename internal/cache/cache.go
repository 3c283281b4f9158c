package cache

import (
	"context"
	"log/slog"
	"time"
)

// Cache is the read-through store used for slow-changing lookups such as
// the project and category registry.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, data T)
	Delete(key string)
	Size() int
}

// Cleaner is implemented by caches that can drop expired entries.
type Cleaner interface {
	CleanExpired() int
}

// StatsReporter is implemented by caches that count their traffic.
type StatsReporter interface {
	Stats() Stats
}

// Janitor periodically cleans the registered caches until its context ends.
type Janitor struct {
	caches []Cleaner
}

func NewJanitor(caches ...Cleaner) *Janitor {
	return &Janitor{caches: caches}
}

func (j *Janitor) Register(c Cleaner) {
	j.caches = append(j.caches, c)
}

// Sweep cleans every registered cache once and returns the number of
// entries removed.
func (j *Janitor) Sweep() int {
	total := 0
	for _, c := range j.caches {
		total += c.CleanExpired()
	}
	return total
}

// Run sweeps on every tick and returns when ctx is cancelled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := j.Sweep(); n > 0 {
				slog.DebugContext(ctx, "Expired cache entries removed", "count", n)
			}
			j.report(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (j *Janitor) report(ctx context.Context) {
	for i, c := range j.caches {
		r, ok := c.(StatsReporter)
		if !ok {
			continue
		}
		s := r.Stats()
		slog.DebugContext(ctx, "Cache stats", "cache", i, "hits", s.Hits, "misses", s.Misses,
			"evictions", s.Evictions, "expirations", s.Expirations, "size", s.Size)
	}
}
