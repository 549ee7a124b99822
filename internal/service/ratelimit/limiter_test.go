package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_BurstThenDeny(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(1, 2, time.Minute)
	l.now = func() time.Time { return base }

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.2"), "keys are independent")

	l.now = func() time.Time { return base.Add(1100 * time.Millisecond) }
	assert.True(t, l.Allow("10.0.0.1"), "one token refilled")
}

func TestLimiter_Sweep(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	l := New(5, 5, time.Minute)
	l.now = func() time.Time { return base }
	l.Allow("a")
	l.now = func() time.Time { return base.Add(50 * time.Second) }
	l.Allow("b")

	l.now = func() time.Time { return base.Add(90 * time.Second) }
	assert.Equal(t, 1, l.Sweep())
	assert.Equal(t, 1, l.Len())
}
