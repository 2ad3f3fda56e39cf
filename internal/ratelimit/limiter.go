// Package ratelimit keeps per-phone token buckets for the dispatch pipeline.
// Buckets are process-local.
package ratelimit

import (
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ajayykmr/sms-dispatch-service/internal/config"
)

const (
	idleTTL     = 2 * time.Hour
	sweepEveryN  = 5000
)

type bucket struct {
	minute   *rate.Limiter
	hour     *rate.Limiter
	lastSeen time.Time
}

// PhoneLimiter enforces a per-minute and a per-hour budget for every phone
// number. Safe for concurrent use.
type PhoneLimiter struct {
	perMinute int
	perHour   int
	now       func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
	lookups uint64
}

// New builds a limiter from cfg. Non-positive limits are coerced to 1.
func New(cfg config.RateLimitConfig) *PhoneLimiter {
	perMinute, perHour := cfg.PerMinute, cfg.PerHour
	if perMinute < 1 {
		perMinute = 1
	}
	if perHour < 1 {
		perHour = 1
	}
	return &PhoneLimiter{
		perMinute: perMinute,
		perHour:   perHour,
		now:       time.Now,
		buckets:   make(map[string]*bucket),
	}
}

// Allow consumes one token from both budgets of phone. Nothing is consumed
// when either budget is exhausted.
func (l *PhoneLimiter) Allow(phone string) bool {
	now := l.now()
	b := l.bucketFor(phone, now)

	m := b.minute.ReserveN(now, 1)
	if !m.OK() || m.DelayFrom(now) > 0 {
		m.CancelAt(now)
		return false
	}
	h := b.hour.ReserveN(now, 1)
	if !h.OK() || h.DelayFrom(now) > 0 {
		h.CancelAt(now)
		m.CancelAt(now)
		return false
	}
	return true
}

// Len reports how many phone buckets are tracked.
func (l *PhoneLimiter) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.buckets)
}

func (l *PhoneLimiter) bucketFor(phone string, now time.Time) *bucket {
	l.mu.Lock()
	defer l.mu.Unlock()

	// sweep before lookup so a stale bucket for phone is replaced
	l.lookups++
	if l.lookups >= sweepEveryN {
		for k, b := range l.buckets {
			if now.Sub(b.lastSeen) >= idleTTL {
				delete(l.buckets, k)
			}
		}
		l.lookups = 0
	}

	if b, ok := l.buckets[phone]; ok {
		b.lastSeen = now
		return b
	}
	b := &bucket{
		minute:   rate.NewLimiter(rate.Limit(float64(l.perMinute)/60), l.perMinute),
		hour:     rate.NewLimiter(rate.Limit(float64(l.perHour)/3600), l.perHour),
		lastSeen: now,
	}
	l.buckets[phone] = b
	return b
}
