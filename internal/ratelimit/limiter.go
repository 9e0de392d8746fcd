// Package ratelimit throttles mutating API calls per client.
package ratelimit

import (
	"context"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/schoolbilling/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const redisKeyPrefix = "schoolbilling:ratelimit:"

type Result struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetTime  time.Time
	RetryAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed.
type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

type Params struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
	Redis  *redis.Client `optional:"true"`
}

// New returns the redis token bucket when redis is configured and an
// in-process limiter otherwise. A non-positive rate disables limiting and
// yields a nil Limiter.
func New(p Params) Limiter {
	cfg := p.Config.RateLimit
	if cfg.Rate <= 0 || cfg.Burst <= 0 {
		p.Log.Info("rate limiting disabled")
		return nil
	}
	if p.Redis != nil {
		p.Log.Info("rate limiting via redis", zap.Float64("rate", cfg.Rate), zap.Int("burst", cfg.Burst))
		return NewTokenBucket(p.Redis, cfg.Rate, cfg.Burst)
	}
	p.Log.Info("rate limiting in process", zap.Float64("rate", cfg.Rate), zap.Int("burst", cfg.Burst))
	return NewMemoryLimiter(cfg.Rate, cfg.Burst)
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// MemoryLimiter keeps one bucket per key in process memory. Buckets idle for
// longer than idleTTL are dropped on the next call.
type MemoryLimiter struct {
	mu       sync.Mutex
	visitors map[string]*visitor
	rate     rate.Limit
	burst    int
	idleTTL  time.Duration
	now      func() time.Time
}

func NewMemoryLimiter(r float64, burst int) *MemoryLimiter {
	return &MemoryLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(r),
		burst:    burst,
		idleTTL:  bucketTTL(r, burst),
		now:      time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	if key == "" {
		return Result{}, ErrEmptyKey
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for k, v := range m.visitors {
		if now.Sub(v.lastSeen) > m.idleTTL {
			delete(m.visitors, k)
		}
	}

	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.rate, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now

	allowed := v.limiter.AllowN(now, 1)
	tokens := v.limiter.TokensAt(now)

	var retryAfter time.Duration
	if !allowed {
		retryAfter = refillDelay(tokens, float64(m.rate))
	}
	return Result{
		Allowed:    allowed,
		Limit:      m.burst,
		Remaining:  int(tokens),
		ResetTime:  now.Add(retryAfter),
		RetryAfter: retryAfter,
	}, nil
}
