package infrastructure

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// MessageRateLimiter keeps a token bucket per key (a chat session or a user)
// and forgets keys that stay idle.
type MessageRateLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*bucket
	limit       rate.Limit
	burst       int
	idleTTL     time.Duration
	cleanupTick time.Duration
	now         func() time.Time
	stop        chan struct{}
	stopOnce    sync.Once
}

type bucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewMessageRateLimiter starts a limiter allowing perSecond messages per
// second with the given burst. Call Stop to end the cleanup goroutine.
func NewMessageRateLimiter(perSecond float64, burst int) *MessageRateLimiter {
	if burst < 1 {
		burst = 1
	}
	rl := &MessageRateLimiter{
		buckets:     make(map[string]*bucket),
		limit:       rate.Limit(perSecond),
		burst:       burst,
		idleTTL:     10 * time.Minute,
		cleanupTick: 5 * time.Minute,
		now:         time.Now,
		stop:        make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow consumes one token for key if one is available.
func (rl *MessageRateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{lim: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	return b.lim.AllowN(now, 1)
}

// WaitTime is how long key must wait for its next token.
func (rl *MessageRateLimiter) WaitTime(key string) time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, ok := rl.buckets[key]
	if !ok || rl.limit <= 0 {
		return 0
	}
	tokens := b.lim.TokensAt(rl.now())
	if tokens >= 1 {
		return 0
	}
	return time.Duration((1 - tokens) / float64(rl.limit) * float64(time.Second))
}

func (rl *MessageRateLimiter) Stop() {
	rl.stopOnce.Do(func() { close(rl.stop) })
}

func (rl *MessageRateLimiter) cleanup() {
	ticker := time.NewTicker(rl.cleanupTick)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.evictIdle()
		}
	}
}

func (rl *MessageRateLimiter) evictIdle() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastSeen) > rl.idleTTL {
			delete(rl.buckets, key)
		}
	}
}
