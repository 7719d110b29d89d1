// Package ratelimit throttles requests per principal with token buckets. Idle
// buckets expire so the map stays bounded by the active principal set.
package ratelimit

import (
	"context"
	"errors"
	"math"
	"time"

	"golang.org/x/time/rate"

	"sanctum/pkg/platform/shardmap"
	"sanctum/pkg/requestcontext"
)

type Config struct {
	RPS     float64
	Burst   int
	IdleTTL time.Duration
}

func DefaultConfig() Config {
	return Config{RPS: 10, Burst: 20, IdleTTL: 10 * time.Minute}
}

// Result describes one admission decision. RetryAfter is whole seconds and
// only set when the request was refused.
type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter int
}

type Limiter struct {
	cfg     Config
	buckets *shardmap.Map[*rate.Limiter]
	metrics *Metrics
}

type Option func(*Limiter)

func WithMetrics(m *Metrics) Option {
	return func(l *Limiter) { l.metrics = m }
}

func WithShardOptions(opts ...shardmap.Option) Option {
	return func(l *Limiter) { l.buckets = shardmap.New[*rate.Limiter](opts...) }
}

func New(cfg Config, opts ...Option) (*Limiter, error) {
	if cfg.RPS <= 0 || cfg.Burst <= 0 {
		return nil, errors.New("rate limit RPS and burst must be positive")
	}
	if cfg.IdleTTL <= 0 {
		cfg.IdleTTL = DefaultConfig().IdleTTL
	}
	l := &Limiter{cfg: cfg, buckets: shardmap.New[*rate.Limiter]()}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Allow takes one token from key's bucket at the request time.
func (l *Limiter) Allow(ctx context.Context, key string) Result {
	now := requestcontext.Now(ctx)
	res := Result{Limit: l.cfg.Burst}

	_, _ = l.buckets.Compute(key, l.cfg.IdleTTL, func(bucket *rate.Limiter, exists bool) (*rate.Limiter, shardmap.Action, error) {
		if !exists {
			bucket = rate.NewLimiter(rate.Limit(l.cfg.RPS), l.cfg.Burst)
		}
		r := bucket.ReserveN(now, 1)
		if delay := r.DelayFrom(now); delay > 0 {
			r.CancelAt(now)
			res.RetryAfter = int(math.Ceil(delay.Seconds()))
		} else {
			res.Allowed = true
		}
		res.Remaining = max(0, int(bucket.TokensAt(now)))
		return bucket, shardmap.Keep, nil
	})

	l.metrics.observe(res.Allowed)
	return res
}

// Sweep drops buckets idle longer than IdleTTL.
func (l *Limiter) Sweep(context.Context) (int, error) {
	return l.buckets.Sweep(nil, nil), nil
}
