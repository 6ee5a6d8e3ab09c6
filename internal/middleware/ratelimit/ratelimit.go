// Package ratelimit throttles state-changing requests per client.
package ratelimit

import (
	"math"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	applog "ledger/internal/log"
)

const window = time.Minute

// Config holds rate limiter configuration
type Config struct {
	RequestsPerMinute int
	CleanupInterval   time.Duration
	// IdleTTL drops clients that have not been seen for this long.
	IdleTTL time.Duration
	// Cost weighs a request against the per-minute budget. Nil means 1.
	Cost func(*http.Request) int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		RequestsPerMinute: 120,
		CleanupInterval:   5 * time.Minute,
		IdleTTL:           10 * time.Minute,
	}
}

// Limiter spends a per-client budget of request units in fixed one-minute
// windows. A window starts with the first request after the previous one
// expired.
type Limiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	budget  int
	idleTTL time.Duration
	cost    func(*http.Request) int

	rejected atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

type bucket struct {
	opened   time.Time
	lastSeen time.Time
	spent    int
}

// NewLimiter creates a limiter and starts its cleanup goroutine. Call Stop
// to release it.
func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerMinute <= 0 {
		config.RequestsPerMinute = def.RequestsPerMinute
	}
	if config.CleanupInterval <= 0 {
		config.CleanupInterval = def.CleanupInterval
	}
	if config.IdleTTL <= 0 {
		config.IdleTTL = def.IdleTTL
	}

	l := &Limiter{
		buckets: make(map[string]*bucket),
		now:     time.Now,
		budget:  config.RequestsPerMinute,
		idleTTL: config.IdleTTL,
		cost:    config.Cost,
		stop:    make(chan struct{}),
	}
	go l.cleanupLoop(config.CleanupInterval)
	return l
}

// Allow spends one unit for client.
func (l *Limiter) Allow(client string) bool {
	ok, _ := l.Take(client, 1)
	return ok
}

// Take spends n units for client. When the budget is exhausted it reports
// how long until the client's window reopens. A cost above the whole budget
// is clamped so that heavy requests stay possible in an empty window.
func (l *Limiter) Take(client string, n int) (bool, time.Duration) {
	if n < 1 {
		n = 1
	}
	if n > l.budget {
		n = l.budget
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[client]
	if !ok || now.Sub(b.opened) >= window {
		b = &bucket{opened: now}
		l.buckets[client] = b
	}
	b.lastSeen = now

	if b.spent+n > l.budget {
		l.rejected.Add(1)
		return false, b.opened.Add(window).Sub(now)
	}
	b.spent += n
	return true, 0
}

func (l *Limiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-l.stop:
			return
		}
	}
}

// evictIdle forgets clients not seen within idleTTL.
func (l *Limiter) evictIdle() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := l.now().Add(-l.idleTTL)
	evicted := 0
	for client, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, client)
			evicted++
		}
	}
	return evicted
}

// ActiveClients returns the number of currently tracked clients
func (l *Limiter) ActiveClients() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

// Rejected returns how many requests were refused since start.
func (l *Limiter) Rejected() int64 {
	return l.rejected.Load()
}

// Stop gracefully shuts down the cleanup goroutine
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() {
		close(l.stop)
	})
}

// Middleware limits state-changing requests. Safe methods pass through.
// onLimit writes the rejection; Retry-After is already set when it runs.
func (l *Limiter) Middleware(extractIP func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			switch r.Method {
			case http.MethodGet, http.MethodHead, http.MethodOptions:
				next.ServeHTTP(w, r)
				return
			}

			cost := 1
			if l.cost != nil {
				cost = l.cost(r)
			}
			client := extractIP(r)

			ok, wait := l.Take(client, cost)
			if !ok {
				retry := int(math.Ceil(wait.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				applog.FromContext(r.Context()).WithComponent(applog.ComponentRateLimit).
					WarnContext(r.Context(), "Rate limit exceeded",
						applog.FieldClientIP, client,
						applog.FieldMethod, r.Method,
						applog.FieldPath, r.URL.Path,
						"retry_after", retry)
				if onLimit != nil {
					onLimit(w, r)
				} else {
					http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
				}
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
