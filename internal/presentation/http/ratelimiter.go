package http

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type clientBucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter hands each client address its own token bucket.
// Buckets idle for longer than ttl are dropped until Stop is called.
type RateLimiter struct {
	mu       sync.Mutex
	clients  map[string]*clientBucket
	limit    rate.Limit
	burst    int
	ttl      time.Duration
	now      func() time.Time
	stop     chan struct{}
	stopOnce sync.Once
}

// NewRateLimiter allows burst requests at once per client, refilled at refillPerSecond.
func NewRateLimiter(burst int, refillPerSecond float64, ttl time.Duration) *RateLimiter {
	rl := &RateLimiter{
		clients: make(map[string]*clientBucket),
		limit:   rate.Limit(refillPerSecond),
		burst:   burst,
		ttl:     ttl,
		now:     time.Now,
		stop:    make(chan struct{}),
	}

	if ttl > 0 {
		go rl.pruneLoop()
	}

	return rl
}

// Allow consumes a token for key if one is available.
func (rl *RateLimiter) Allow(key string) bool {
	if key == "" {
		key = "unknown"
	}

	now := rl.now()

	rl.mu.Lock()
	bucket, ok := rl.clients[key]
	if !ok {
		bucket = &clientBucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.clients[key] = bucket
	}
	bucket.lastSeen = now
	rl.mu.Unlock()

	return bucket.limiter.AllowN(now, 1)
}

// Stop ends the pruning goroutine. It is safe to call more than once.
func (rl *RateLimiter) Stop() {
	rl.stopOnce.Do(func() {
		close(rl.stop)
	})
}

func (rl *RateLimiter) pruneLoop() {
	ticker := time.NewTicker(rl.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.pruneIdle()
		}
	}
}

func (rl *RateLimiter) pruneIdle() {
	cutoff := rl.now().Add(-rl.ttl)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for key, bucket := range rl.clients {
		if bucket.lastSeen.Before(cutoff) {
			delete(rl.clients, key)
		}
	}
}
