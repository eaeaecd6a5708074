package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestKeyedLimiter_BurstThenDeny(t *testing.T) {
	l := NewKeyedLimiter(time.Hour, 3)

	for i := 0; i < 3; i++ {
		assert.True(t, l.Allow("alice@example.com"), "call %d within burst should pass", i+1)
	}
	assert.False(t, l.Allow("alice@example.com"))
}

func TestKeyedLimiter_KeysAreIndependent(t *testing.T) {
	l := NewKeyedLimiter(time.Hour, 1)

	assert.True(t, l.Allow("alice@example.com"))
	assert.False(t, l.Allow("alice@example.com"))
	assert.True(t, l.Allow("bob@example.com"))
}
