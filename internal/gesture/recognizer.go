// Package gesture recognizes the palm-flip confirm sequence on tracked hands.
//
// Each track runs an independent four-step machine:
//
//	0 (idle) -> 1 on Palm -> 2 on Back -> 3 on Palm -> trigger on Back, reset to 0
//
// Facing observations are debounced before they can drive a transition, and
// every non-idle step is bounded by a timeout, so classifier jitter neither
// advances nor wedges the machine.
package gesture

import (
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/jmcrae/palmdraw/internal/pose"
)

// Config holds the recognizer's timing constants.
type Config struct {
	// StableWindow is how long a facing value must be continuously reported
	// before it is accepted as a transition input.
	StableWindow time.Duration

	// StepTimeout bounds the time between accepted transitions; expiry
	// resets progress to idle.
	StepTimeout time.Duration
}

// DefaultConfig returns the gesture timing defaults.
func DefaultConfig() Config {
	return Config{
		StableWindow: 150 * time.Millisecond,
		StepTimeout:  2 * time.Second,
	}
}

type state struct {
	step         int
	stepDeadline time.Time

	// Debounce: candidate is the facing currently being reported, accepted
	// is the last facing that survived the stability window.
	candidate      pose.Facing
	candidateSince time.Time
	accepted       pose.Facing
}

// sequence is the accepted-facing order that advances the machine. Index i
// is the facing required to move from step i to step i+1.
var sequence = [4]pose.Facing{pose.FacingPalm, pose.FacingBack, pose.FacingPalm, pose.FacingBack}

// Recognizer holds per-track gesture state. Single-writer, like the tracker.
type Recognizer struct {
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger
	states map[int64]*state
}

// New creates a Recognizer.
func New(cfg Config, clock quartz.Clock, logger *log.Logger) *Recognizer {
	return &Recognizer{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		states: make(map[int64]*state),
	}
}

// Observe records this tick's facing for a track and reports whether the
// full sequence just completed. Completion is one-shot: the machine resets
// to idle in the same call. Callers gate the returned trigger with their own
// precondition; any single hand completing the sequence is sufficient.
func (r *Recognizer) Observe(trackID int64, facing pose.Facing) bool {
	now := r.clock.Now()

	s, ok := r.states[trackID]
	if !ok {
		s = &state{candidate: facing, candidateSince: now}
		r.states[trackID] = s
		return false
	}

	// Step timeout: the next transition did not arrive in time.
	if s.step > 0 && now.After(s.stepDeadline) {
		r.logger.Debug("gesture step timed out", "trackID", trackID, "step", s.step)
		s.step = 0
	}

	// Debounce the raw facing.
	if facing != s.candidate {
		s.candidate = facing
		s.candidateSince = now
		return false
	}
	if now.Sub(s.candidateSince) < r.cfg.StableWindow {
		return false
	}
	if s.candidate == s.accepted {
		return false
	}
	s.accepted = s.candidate

	// An accepted facing either advances the sequence or resets it.
	if s.accepted != sequence[s.step] {
		s.step = 0
		return false
	}

	s.step++
	s.stepDeadline = now.Add(r.cfg.StepTimeout)
	if s.step < len(sequence) {
		r.logger.Debug("gesture step advanced", "trackID", trackID, "step", s.step)
		return false
	}

	r.logger.Debug("gesture sequence completed", "trackID", trackID)
	s.step = 0
	return true
}

// Step returns a track's current sequence progress (0..3).
func (r *Recognizer) Step(trackID int64) int {
	if s, ok := r.states[trackID]; ok {
		return s.step
	}
	return 0
}

// Prune drops state for tracks no longer live. Called every tick so no
// stale entry outlives its track by more than one tick.
func (r *Recognizer) Prune(live map[int64]struct{}) {
	for id := range r.states {
		if _, ok := live[id]; !ok {
			delete(r.states, id)
		}
	}
}

// Reset clears all gesture state, used when a round restarts.
func (r *Recognizer) Reset() {
	clear(r.states)
}
