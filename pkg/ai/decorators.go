package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/armorclaw/errexplain/pkg/metrics"
)

// Metric outcomes
const (
	OutcomeAnswer      = "answer"
	OutcomeEmpty       = "empty"
	OutcomeCacheHit    = "cache_hit"
	OutcomeRateLimited = "rate_limited"
)

func cacheKey(prompt string, opts Options) string {
	h := sha256.New()
	for _, part := range []string{opts.Model, opts.APIURL, opts.APIKey, prompt} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

type cached struct {
	next  Backend
	lru   *expirable.LRU[string, string]
	onHit func()
}

// WithCache remembers non-empty answers for ttl. onHit may be nil.
func WithCache(next Backend, size int, ttl time.Duration, onHit func()) Backend {
	if size <= 0 {
		return next
	}
	return &cached{
		next:  next,
		lru:   expirable.NewLRU[string, string](size, nil, ttl),
		onHit: onHit,
	}
}

func (c *cached) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	key := cacheKey(prompt, opts)
	if answer, ok := c.lru.Get(key); ok {
		if c.onHit != nil {
			c.onHit()
		}
		return answer
	}
	answer := c.next.GenerateExplanation(ctx, prompt, opts)
	if answer != "" {
		c.lru.Add(key, answer)
	}
	return answer
}

type deduped struct {
	next  Backend
	group singleflight.Group
}

// WithDedupe collapses concurrent calls for the same prompt into one
func WithDedupe(next Backend) Backend {
	return &deduped{next: next}
}

func (d *deduped) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	v, _, _ := d.group.Do(cacheKey(prompt, opts), func() (any, error) {
		return d.next.GenerateExplanation(ctx, prompt, opts), nil
	})
	return v.(string)
}

type limited struct {
	next    Backend
	limiter *rate.Limiter
	onDeny  func()
}

// WithRateLimit allows perMinute calls per minute, bursting up to
// perMinute. Calls over the limit return no answer without waiting.
func WithRateLimit(next Backend, perMinute int, onDeny func()) Backend {
	if perMinute <= 0 {
		return next
	}
	return &limited{
		next:    next,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute),
		onDeny:  onDeny,
	}
}

func (l *limited) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	if !l.limiter.Allow() {
		if l.onDeny != nil {
			l.onDeny()
		}
		return ""
	}
	return l.next.GenerateExplanation(ctx, prompt, opts)
}

type measured struct {
	next Backend
	name string
	m    *metrics.Metrics
}

// WithMetrics records the outcome and latency of every call
func WithMetrics(next Backend, name string, m *metrics.Metrics) Backend {
	if m == nil {
		return next
	}
	return &measured{next: next, name: name, m: m}
}

func (w *measured) GenerateExplanation(ctx context.Context, prompt string, opts Options) string {
	start := time.Now()
	answer := w.next.GenerateExplanation(ctx, prompt, opts)
	outcome := OutcomeAnswer
	if answer == "" {
		outcome = OutcomeEmpty
	}
	w.m.RecordAIRequest(w.name, outcome, time.Since(start))
	return answer
}

// Stack describes the decorator chain around an adapter
type Stack struct {
	Name              string
	Metrics           *metrics.Metrics
	CacheSize         int
	CacheTTL          time.Duration
	RequestsPerMinute int
}

// Wrap applies, outermost first: cache, rate limit, dedupe, metrics. Cache
// hits never spend rate budget.
func (s Stack) Wrap(b Backend) Backend {
	if b == nil {
		return nil
	}
	b = WithMetrics(b, s.Name, s.Metrics)
	b = WithDedupe(b)
	b = WithRateLimit(b, s.RequestsPerMinute, func() { s.Metrics.RecordAISkipped(s.Name, OutcomeRateLimited) })
	b = WithCache(b, s.CacheSize, s.CacheTTL, func() { s.Metrics.RecordAISkipped(s.Name, OutcomeCacheHit) })
	return b
}
