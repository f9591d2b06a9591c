package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowRefills(t *testing.T) {
	l := New(2, 2)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("yahoo"))
	assert.True(t, l.Allow("yahoo"))
	assert.False(t, l.Allow("yahoo"))
	assert.True(t, l.Allow("other"), "keys are independent")

	now = now.Add(500 * time.Millisecond)
	assert.True(t, l.Allow("yahoo"))
	assert.False(t, l.Allow("yahoo"))

	now = now.Add(10 * time.Second)
	assert.True(t, l.Allow("yahoo"))
	assert.True(t, l.Allow("yahoo"))
	assert.False(t, l.Allow("yahoo"), "burst caps the refill")
}

func TestReserveDelay(t *testing.T) {
	l := New(4, 1)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	assert.Zero(t, l.reserve("k"))
	assert.Equal(t, 250*time.Millisecond, l.reserve("k"))
}

func TestWait(t *testing.T) {
	l := New(100, 1)
	require.NoError(t, l.Wait(context.Background(), "k"))
	require.NoError(t, l.Wait(context.Background(), "k"))

	slow := New(0.01, 1)
	require.NoError(t, slow.Wait(context.Background(), "k"))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, slow.Wait(ctx, "k"), context.DeadlineExceeded)
}

func TestDisabled(t *testing.T) {
	l := New(0, 0)
	for i := 0; i < 100; i++ {
		require.True(t, l.Allow("k"))
	}
}
