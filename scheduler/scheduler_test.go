package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimerFiresWhenDue(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 1)
	s := NewTimer(func() { fired <- struct{}{} })
	defer s.Stop()

	require.NoError(t, s.SetWake(context.Background(), time.Now().Add(10*time.Millisecond)))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("timer did not fire")
	}

	// Firing clears the pending wake-up.
	wake, err := s.Wake(context.Background())
	require.NoError(t, err)
	assert.True(t, wake.IsZero())
}

func TestTimerSetWakeReplacesPending(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 2)
	s := NewTimer(func() { fired <- struct{}{} })
	defer s.Stop()

	ctx := context.Background()
	far := time.Now().Add(time.Hour)
	require.NoError(t, s.SetWake(ctx, far))

	wake, err := s.Wake(ctx)
	require.NoError(t, err)
	assert.Equal(t, far, wake)

	// Rescheduling to a near time replaces the pending hour-away wake-up.
	require.NoError(t, s.SetWake(ctx, time.Now().Add(10*time.Millisecond)))

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatal("rescheduled timer did not fire")
	}

	// Only one fire: the original wake-up was replaced, not queued.
	select {
	case <-fired:
		t.Fatal("replaced wake-up fired as well")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTimerStopCancelsPending(t *testing.T) {
	t.Parallel()

	fired := make(chan struct{}, 1)
	s := NewTimer(func() { fired <- struct{}{} })

	require.NoError(t, s.SetWake(context.Background(), time.Now().Add(10*time.Millisecond)))
	s.Stop()

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(50 * time.Millisecond):
	}

	wake, err := s.Wake(context.Background())
	require.NoError(t, err)
	assert.True(t, wake.IsZero())
}

func TestManualFire(t *testing.T) {
	t.Parallel()

	count := 0
	s := NewManual(func() { count++ })

	ctx := context.Background()
	require.NoError(t, s.SetWake(ctx, time.Now().Add(time.Hour)))

	wake, err := s.Wake(ctx)
	require.NoError(t, err)
	assert.False(t, wake.IsZero())

	s.Fire()
	assert.Equal(t, 1, count)

	wake, err = s.Wake(ctx)
	require.NoError(t, err)
	assert.True(t, wake.IsZero())
}
