package game

import (
	"time"

	"github.com/coder/quartz"
)

// holdTimer advances only while its condition holds, tolerating brief
// interruptions: a failing tick aborts the hold only once the condition has
// been unmet for longer than the grace window. Every "hold condition for
// duration D" phase transition runs on one of these.
type holdTimer struct {
	clock    quartz.Clock
	duration time.Duration
	grace    time.Duration

	holdStart time.Time // zero while no hold is in progress
	lastMet   time.Time
	elapsed   time.Duration
}

func newHoldTimer(clock quartz.Clock, duration, grace time.Duration) *holdTimer {
	return &holdTimer{clock: clock, duration: duration, grace: grace}
}

// Update records one tick of the condition and reports whether the hold just
// completed. Completion is one-shot: the timer clears itself when it fires.
func (h *holdTimer) Update(met bool) bool {
	now := h.clock.Now()

	if met {
		h.lastMet = now
		if h.holdStart.IsZero() {
			h.holdStart = now
		}
		h.elapsed = now.Sub(h.holdStart)
		if h.elapsed > h.duration {
			h.Reset()
			return true
		}
		return false
	}

	// Brief flicker freezes the reported elapsed time instead of aborting.
	if !h.holdStart.IsZero() && now.Sub(h.lastMet) > h.grace {
		h.Reset()
	}
	return false
}

// Reset abandons any hold in progress.
func (h *holdTimer) Reset() {
	h.holdStart = time.Time{}
	h.lastMet = time.Time{}
	h.elapsed = 0
}

// Elapsed returns the currently reported hold time.
func (h *holdTimer) Elapsed() time.Duration {
	return h.elapsed
}
