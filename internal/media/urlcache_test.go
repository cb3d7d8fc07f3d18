package media

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLCache_SetGet(t *testing.T) {
	cache, err := NewURLCache(100, time.Hour, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	key := MediaKey("thumb:abc123")

	_, ok := cache.Get(key)
	assert.False(t, ok)

	cache.Set(key, "https://media.example.com/abc123.png")
	cache.Wait()

	url, ok := cache.Get(key)
	require.True(t, ok)
	assert.Equal(t, "https://media.example.com/abc123.png", url)
}

func TestURLCache_TTLExpiry(t *testing.T) {
	cache, err := NewURLCache(100, 20*time.Millisecond, testLogger())
	require.NoError(t, err)
	defer cache.Close()

	key := MediaKey("thumb:def456")
	cache.Set(key, "https://media.example.com/def456.png")
	cache.Wait()

	_, ok := cache.Get(key)
	require.True(t, ok)

	assert.Eventually(t, func() bool {
		_, ok := cache.Get(key)
		return !ok
	}, time.Second, 10*time.Millisecond)
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.True(t, StateReady.Terminal())
	assert.True(t, StateFailed.Terminal())
	assert.True(t, StateExpired.Terminal())
}
