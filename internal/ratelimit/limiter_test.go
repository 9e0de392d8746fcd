package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/smallbiznis/schoolbilling/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMemoryLimiterExhaustsBurst(t *testing.T) {
	l := NewMemoryLimiter(1, 2)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		res, err := l.Allow(context.Background(), "client-a")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))

	other, err := l.Allow(context.Background(), "client-b")
	require.NoError(t, err)
	assert.True(t, other.Allowed)

	now = now.Add(time.Second)
	res, err = l.Allow(context.Background(), "client-a")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestMemoryLimiterRejectsEmptyKey(t *testing.T) {
	_, err := NewMemoryLimiter(1, 1).Allow(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyKey)
}

func TestNewDisabled(t *testing.T) {
	l := New(Params{Config: config.Config{}, Log: zap.NewNop()})
	assert.Nil(t, l)
}

func TestNewInProcess(t *testing.T) {
	l := New(Params{
		Config: config.Config{RateLimit: config.RateLimitConfig{Rate: 5, Burst: 5}},
		Log:    zap.NewNop(),
	})
	_, ok := l.(*MemoryLimiter)
	assert.True(t, ok)
}

func TestRefillDelay(t *testing.T) {
	assert.Equal(t, 500*time.Millisecond, refillDelay(0.5, 1))
	assert.Equal(t, time.Duration(0), refillDelay(1.5, 1))
}
