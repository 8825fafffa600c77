package api

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRateLimiterAllowsWithinBudget(t *testing.T) {
	l := newIPRateLimiter(1, 2)
	lim := l.limiter("10.0.0.1")
	assert.True(t, lim.Allow())
	assert.True(t, lim.Allow())
	assert.False(t, lim.Allow(), "burst exhausted")
}

func TestRateLimiterIsolatesClients(t *testing.T) {
	l := newIPRateLimiter(1, 1)
	assert.True(t, l.limiter("10.0.0.1").Allow())
	assert.False(t, l.limiter("10.0.0.1").Allow())
	assert.True(t, l.limiter("10.0.0.2").Allow(), "a throttled peer does not affect others")
}

func TestRateLimiterEvictsIdleEntries(t *testing.T) {
	l := newIPRateLimiter(1, 1)
	l.limiter("10.0.0.1")
	l.limiter("10.0.0.2")

	l.mu.Lock()
	l.limiters["10.0.0.1"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)
	l.sweepLocked(time.Now())
	l.mu.Unlock()

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.NotContains(t, l.limiters, "10.0.0.1", "idle bucket dropped")
	assert.Contains(t, l.limiters, "10.0.0.2", "active bucket kept")
}
