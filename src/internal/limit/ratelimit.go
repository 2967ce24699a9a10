package limit

import (
	"sync"
	"sync/atomic"
	"time"

	"lognarrator/src/internal/config"

	"golang.org/x/time/rate"
)

// Limiter provides per-client request rate limiting
type Limiter struct {
	clients         sync.Map // map[string]*clientLimiter
	requestsPerSec  float64
	burstSize       int
	cleanupInterval time.Duration
	done            chan struct{}
	stopOnce        sync.Once

	allowed atomic.Uint64
	denied  atomic.Uint64
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen atomic.Int64 // unix nanos
}

// New creates a limiter, or returns nil when cfg is nil
func New(cfg *config.RateLimitConfig) *Limiter {
	if cfg == nil || cfg.RequestsPerSecond <= 0 {
		return nil
	}

	burst := int(cfg.BurstSize)
	if burst <= 0 {
		burst = int(cfg.RequestsPerSecond)
		if burst < 1 {
			burst = 1
		}
	}

	l := &Limiter{
		requestsPerSec:  cfg.RequestsPerSecond,
		burstSize:       burst,
		cleanupInterval: time.Minute,
		done:            make(chan struct{}),
	}

	go l.cleanup()
	return l
}

// Allow reports whether a request from client may proceed
func (l *Limiter) Allow(client string) bool {
	if l.getLimiter(client).Allow() {
		l.allowed.Add(1)
		return true
	}
	l.denied.Add(1)
	return false
}

func (l *Limiter) getLimiter(client string) *rate.Limiter {
	now := time.Now().UnixNano()
	if val, ok := l.clients.Load(client); ok {
		c := val.(*clientLimiter)
		c.lastSeen.Store(now)
		return c.limiter
	}

	c := &clientLimiter{limiter: rate.NewLimiter(rate.Limit(l.requestsPerSec), l.burstSize)}
	c.lastSeen.Store(now)
	actual, _ := l.clients.LoadOrStore(client, c)
	return actual.(*clientLimiter).limiter
}

func (l *Limiter) cleanup() {
	ticker := time.NewTicker(l.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.removeOldClients(time.Now().Add(-l.cleanupInterval * 2))
		}
	}
}

// removeOldClients drops limiters not seen since threshold
func (l *Limiter) removeOldClients(threshold time.Time) {
	cutoff := threshold.UnixNano()
	l.clients.Range(func(key, value any) bool {
		if value.(*clientLimiter).lastSeen.Load() < cutoff {
			l.clients.Delete(key)
		}
		return true
	})
}

// Stop ends the cleanup routine
func (l *Limiter) Stop() {
	l.stopOnce.Do(func() { close(l.done) })
}

func (l *Limiter) GetStats() map[string]any {
	count := 0
	l.clients.Range(func(_, _ any) bool {
		count++
		return true
	})
	return map[string]any{
		"requests_per_second": l.requestsPerSec,
		"burst_size":          l.burstSize,
		"active_clients":      count,
		"allowed":             l.allowed.Load(),
		"denied":              l.denied.Load(),
	}
}
