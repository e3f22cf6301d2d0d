package ratelimit

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Rate is a request quota per period, written as "N/period"
type Rate struct {
	Requests int
	Period   time.Duration
}

// ParseRate accepts "N/s", "N/second", "N/m", "N/minute", "N/h", "N/hour", "N/d", "N/day"
func ParseRate(s string) (Rate, error) {
	num, period, ok := strings.Cut(strings.TrimSpace(s), "/")
	if !ok {
		return Rate{}, fmt.Errorf("invalid rate %q: want N/period", s)
	}
	if period == "" {
		return Rate{}, fmt.Errorf("invalid rate %q: missing period", s)
	}
	n, err := strconv.Atoi(num)
	if err != nil || n <= 0 {
		return Rate{}, fmt.Errorf("invalid rate %q: bad request count", s)
	}

	var d time.Duration
	switch strings.ToLower(period)[:1] {
	case "s":
		d = time.Second
	case "m":
		d = time.Minute
	case "h":
		d = time.Hour
	case "d":
		d = 24 * time.Hour
	default:
		return Rate{}, fmt.Errorf("invalid rate %q: unknown period", s)
	}
	return Rate{Requests: n, Period: d}, nil
}

func (r Rate) String() string {
	return fmt.Sprintf("%d/%s", r.Requests, r.Period)
}

const maxBuckets = 10000

type entry struct {
	limiter *rate.Limiter
	seen    time.Time
}

// Limiter keeps one token bucket per key. The bucket holds Requests tokens
// and refills evenly over Period.
type Limiter struct {
	rate    Rate
	mu      sync.Mutex
	buckets map[string]*entry
	now     func() time.Time
}

// NewLimiter creates a keyed limiter for r
func NewLimiter(r Rate) *Limiter {
	return &Limiter{
		rate:    r,
		buckets: map[string]*entry{},
		now:     time.Now,
	}
}

// Allow consumes one token for key. When the bucket is empty it returns
// false and how long until the next token.
func (l *Limiter) Allow(key string) (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	e, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxBuckets {
			l.prune(now)
		}
		every := l.rate.Period / time.Duration(l.rate.Requests)
		e = &entry{limiter: rate.NewLimiter(rate.Every(every), l.rate.Requests)}
		l.buckets[key] = e
	}
	e.seen = now

	res := e.limiter.ReserveN(now, 1)
	if delay := res.DelayFrom(now); delay > 0 {
		res.CancelAt(now)
		return false, delay
	}
	return true, 0
}

// RetryAfterSeconds rounds a delay up to whole seconds, at least one
func RetryAfterSeconds(d time.Duration) int {
	return int(math.Max(1, math.Ceil(d.Seconds())))
}

// prune drops buckets idle for a whole period; they have refilled completely
// and are indistinguishable from new ones. Callers hold l.mu.
func (l *Limiter) prune(now time.Time) {
	cutoff := now.Add(-l.rate.Period)
	for key, e := range l.buckets {
		if e.seen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}
