package httpapi

import (
	"math"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
)

type bucket struct {
	tokens     float64
	lastRefill time.Time
}

// rateLimiter is a per-key token bucket. Idle buckets expire from the cache
// once they would have refilled completely.
type rateLimiter struct {
	mu    sync.Mutex
	rps   float64
	burst int
	bkts  *cache.Cache // key: ip
	idle  time.Duration
	now   func() time.Time
}

func newRateLimiter(rps float64, burst int) *rateLimiter {
	if burst < 1 {
		burst = 1
	}
	idle := time.Minute
	if rps > 0 {
		idle = time.Duration(float64(burst)/rps*float64(time.Second)) + time.Second
	}
	return &rateLimiter{
		rps:   rps,
		burst: burst,
		bkts:  cache.New(idle, idle),
		idle:  idle,
		now:   time.Now,
	}
}

// Allow takes one token for key. When none is left it reports how long
// until the next token is available.
func (rl *rateLimiter) Allow(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	var bkt *bucket
	if x, ok := rl.bkts.Get(key); ok {
		bkt = x.(*bucket)
	} else {
		bkt = &bucket{tokens: float64(rl.burst), lastRefill: now}
	}

	elapsed := now.Sub(bkt.lastRefill).Seconds()
	bkt.tokens = math.Min(float64(rl.burst), bkt.tokens+elapsed*rl.rps)
	bkt.lastRefill = now
	rl.bkts.Set(key, bkt, rl.idle)

	if bkt.tokens >= 1 {
		bkt.tokens -= 1
		return true, 0
	}
	if rl.rps <= 0 {
		return false, rl.idle
	}
	wait := time.Duration((1 - bkt.tokens) / rl.rps * float64(time.Second))
	return false, wait
}

// spamGuard rejects a key that asks more than max times inside window.
type spamGuard struct {
	mu     sync.Mutex
	window time.Duration
	max    int
	hits   *cache.Cache // key: ip, value: []time.Time
	now    func() time.Time
}

func newSpamGuard(window time.Duration, limit int) *spamGuard {
	if window <= 0 {
		window = 10 * time.Second
	}
	return &spamGuard{
		window: window,
		max:    limit,
		hits:   cache.New(window, 2*window),
		now:    time.Now,
	}
}

func (g *spamGuard) Allow(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	var recent []time.Time
	if x, ok := g.hits.Get(key); ok {
		for _, ts := range x.([]time.Time) {
			if now.Sub(ts) < g.window {
				recent = append(recent, ts)
			}
		}
	}
	recent = append(recent, now)
	g.hits.Set(key, recent, g.window)
	return len(recent) <= g.max
}
