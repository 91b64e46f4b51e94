package game

import (
	"testing"
	"time"

	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHoldTimerFiresOnceAfterDuration(t *testing.T) {
	t.Parallel()

	clock := quartz.NewMock(t)
	h := newHoldTimer(clock, 3*time.Second, 500*time.Millisecond)

	fired := 0
	for i := 0; i < 40; i++ {
		if h.Update(true) {
			fired++
		}
		clock.Advance(100 * time.Millisecond)
	}

	assert.Equal(t, 1, fired, "continuous condition fires exactly once until rearmed")
}

func TestHoldTimerToleratesFlickerWithinGrace(t *testing.T) {
	t.Parallel()

	clock := quartz.NewMock(t)
	h := newHoldTimer(clock, 3*time.Second, 500*time.Millisecond)

	// Hold for 2.5s of the 3s target.
	for i := 0; i < 25; i++ {
		require.False(t, h.Update(true))
		clock.Advance(100 * time.Millisecond)
	}
	frozen := h.Elapsed()

	// Flicker out for 300ms, inside the 500ms grace window.
	for i := 0; i < 3; i++ {
		require.False(t, h.Update(false))
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, frozen, h.Elapsed(), "elapsed freezes during tolerated flicker")

	// The hold completes shortly after recovery instead of starting over.
	fired := false
	for i := 0; i < 5 && !fired; i++ {
		fired = h.Update(true)
		clock.Advance(100 * time.Millisecond)
	}
	assert.True(t, fired)
}

func TestHoldTimerAbortsBeyondGrace(t *testing.T) {
	t.Parallel()

	clock := quartz.NewMock(t)
	h := newHoldTimer(clock, 3*time.Second, 500*time.Millisecond)

	for i := 0; i < 25; i++ {
		h.Update(true)
		clock.Advance(100 * time.Millisecond)
	}

	// Out for longer than the grace window.
	for i := 0; i < 7; i++ {
		require.False(t, h.Update(false))
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, time.Duration(0), h.Elapsed(), "hold aborts once grace is exceeded")

	// A fresh hold must run the full duration again.
	fired := false
	for i := 0; i < 29; i++ {
		fired = h.Update(true)
		require.False(t, fired)
		clock.Advance(100 * time.Millisecond)
	}
}
