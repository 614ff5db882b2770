package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func TestRateLimiterAllowsBurstThenBlocks(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(RateLimitConfig{Burst: 3, RefillInterval: time.Second}, clock.Now)

	for i := 0; i < 3; i++ {
		require.True(t, rl.allow(), "message %d within burst", i)
	}
	require.False(t, rl.allow())
}

func TestRateLimiterRefills(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(RateLimitConfig{Burst: 2, RefillInterval: time.Second}, clock.Now)
	require.True(t, rl.allow())
	require.True(t, rl.allow())
	require.False(t, rl.allow())

	clock.Advance(500 * time.Millisecond)
	require.True(t, rl.allow())
	require.False(t, rl.allow())

	clock.Advance(time.Hour)
	require.True(t, rl.allow())
	require.True(t, rl.allow())
	require.False(t, rl.allow(), "tokens are capped at the burst size")
}

func TestRateLimiterFallsBackOnInvalidConfig(t *testing.T) {
	clock := &fakeClock{now: time.Unix(0, 0)}
	rl := newRateLimiterWithClock(RateLimitConfig{}, clock.Now)

	require.True(t, rl.allow())
	require.False(t, rl.allow())
	clock.Advance(time.Second)
	require.True(t, rl.allow())
}
