package limit

import (
	"testing"
	"time"

	"lognarrator/src/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Disabled(t *testing.T) {
	assert.Nil(t, New(nil))
	assert.Nil(t, New(&config.RateLimitConfig{RequestsPerSecond: 0}))
}

func TestLimiter_PerClientBurst(t *testing.T) {
	l := New(&config.RateLimitConfig{RequestsPerSecond: 0.001, BurstSize: 2})
	require.NotNil(t, l)
	defer l.Stop()

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	// Independent bucket per client
	assert.True(t, l.Allow("10.0.0.2"))

	stats := l.GetStats()
	assert.Equal(t, uint64(3), stats["allowed"])
	assert.Equal(t, uint64(1), stats["denied"])
	assert.Equal(t, 2, stats["active_clients"])
}

func TestLimiter_RemoveOldClients(t *testing.T) {
	l := New(&config.RateLimitConfig{RequestsPerSecond: 10, BurstSize: 10})
	require.NotNil(t, l)
	defer l.Stop()

	l.Allow("a")
	l.Allow("b")
	l.removeOldClients(time.Now().Add(time.Second))
	assert.Equal(t, 0, l.GetStats()["active_clients"])
}
