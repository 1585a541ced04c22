package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestRateLimiterAllowsBurstThenDenies(t *testing.T) {
	req := require.New(t)
	rl := newRateLimiter(3, time.Minute)

	for i := 0; i < 3; i++ {
		req.Truef(rl.allow(), "token %d should be available", i)
	}
	req.False(rl.allow())
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	req := require.New(t)
	rl := newRateLimiter(2, 100*time.Millisecond)

	req.True(rl.allow())
	req.True(rl.allow())
	req.False(rl.allow())

	time.Sleep(150 * time.Millisecond)
	req.True(rl.allow())
}

func TestRateLimiterDefendsAgainstBadParameters(t *testing.T) {
	rl := newRateLimiter(0, -time.Second)
	require.True(t, rl.allow())
}
