package sampling

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultRateLimit and DefaultRateWindow back the per-workspace sliding
// window: 10 requests / 60 s (spec.md §4.K step 2).
const (
	DefaultRateLimit  = 10
	DefaultRateWindow = 60 * time.Second
)

// rateBucket holds one workspace's recent call timestamps.
type rateBucket struct {
	mu         sync.Mutex
	timestamps []time.Time
}

// RateLimiter is a per-workspace in-memory sliding-window limiter, pruned
// lazily before each check (spec.md §5 "Shared-resource policy" — "no disk
// persistence"). Buckets are held in a bounded LRU so an unbounded set of
// workspaces can't grow the limiter's memory without bound, grounded on the
// teacher's use of hashicorp/golang-lru for bounded per-key in-memory state
// (store.PlaybookRegistry's effective-set cache).
type RateLimiter struct {
	limit   int
	window  time.Duration
	buckets *lru.Cache[string, *rateBucket]
}

// NewRateLimiter constructs a RateLimiter. limit <= 0 defaults to
// DefaultRateLimit; window <= 0 defaults to DefaultRateWindow.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	buckets, _ := lru.New[string, *rateBucket](4096)
	return &RateLimiter{limit: limit, window: window, buckets: buckets}
}

// Allow reports whether workspaceID may make another sampling call right
// now, recording the attempt if so.
func (r *RateLimiter) Allow(workspaceID string) bool {
	bucket, ok := r.buckets.Get(workspaceID)
	if !ok {
		bucket = &rateBucket{}
		r.buckets.Add(workspaceID, bucket)
	}

	bucket.mu.Lock()
	defer bucket.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-r.window)
	pruned := bucket.timestamps[:0]
	for _, ts := range bucket.timestamps {
		if ts.After(cutoff) {
			pruned = append(pruned, ts)
		}
	}
	bucket.timestamps = pruned

	if len(bucket.timestamps) >= r.limit {
		return false
	}
	bucket.timestamps = append(bucket.timestamps, now)
	return true
}
