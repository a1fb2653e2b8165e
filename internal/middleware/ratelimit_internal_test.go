package middleware

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientLimiter_CapsTrackedClients(t *testing.T) {
	l := NewClientLimiter(1, 1)
	l.maxClients = 2

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))

	// table is full: new clients draw from one shared bucket
	assert.True(t, l.Allow("c"))
	for i := 0; i < 100; i++ {
		assert.False(t, l.Allow(fmt.Sprintf("spoof-%d", i)))
	}
	assert.Len(t, l.clients, 2)

	// tracked clients keep their own buckets
	assert.False(t, l.Allow("a"))
}

func TestClientLimiter_SweepsIdleWhenFull(t *testing.T) {
	l := NewClientLimiter(1, 1)
	l.maxClients = 2

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("b"))
	l.clients["a"].lastSeen = time.Now().Add(-2 * limiterIdleTTL)

	assert.True(t, l.Allow("c"), "idle client should make room")
	assert.Contains(t, l.clients, "c")
	assert.NotContains(t, l.clients, "a")
}
