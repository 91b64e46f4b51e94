package game

import (
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcrae/palmdraw/internal/pose"
)

// recorder collects published events for assertions.
type recorder struct {
	events []Event
}

func (r *recorder) HandleEvent(e Event) {
	r.events = append(r.events, e)
}

func (r *recorder) captures() []CaptureRequestEvent {
	var out []CaptureRequestEvent
	for _, e := range r.events {
		if c, ok := e.(CaptureRequestEvent); ok {
			out = append(out, c)
		}
	}
	return out
}

func newTestGame(t *testing.T, cfg Config) (*Game, *quartz.Mock, *recorder) {
	t.Helper()
	clock := quartz.NewMock(t)
	bus := NewBus()
	rec := &recorder{}
	bus.Subscribe(rec)
	return New(cfg, clock, log.New(io.Discard), bus), clock, rec
}

func fists(ids ...int64) []Hand {
	hands := make([]Hand, len(ids))
	for i, id := range ids {
		hands[i] = Hand{TrackID: id, Pose: pose.HandPose{IsFist: true}}
	}
	return hands
}

func open(fingers int, ids ...int64) []Hand {
	hands := make([]Hand, len(ids))
	for i, id := range ids {
		hands[i] = Hand{TrackID: id, Pose: pose.HandPose{FingerCount: fingers}}
	}
	return hands
}

// tickFor feeds the same hands every 100ms for the given span.
func tickFor(g *Game, clock *quartz.Mock, hands []Hand, d time.Duration) {
	const step = 100 * time.Millisecond
	for elapsed := time.Duration(0); elapsed <= d; elapsed += step {
		g.Tick(hands, false)
		clock.Advance(step)
	}
}

// driveToShowWinner runs a full simple-mode round with the given hands.
func driveToShowWinner(t *testing.T, g *Game, clock *quartz.Mock, ids ...int64) {
	t.Helper()
	cfg := g.cfg

	g.Start()
	g.Tick(open(5, ids...), false) // setup -> detect_participants
	require.Equal(t, PhaseDetectParticipants, g.Phase())

	tickFor(g, clock, open(5, ids...), cfg.Cooldown+cfg.ParticipantHold+300*time.Millisecond)
	require.Equal(t, PhaseWaitFistsReady, g.Phase())
	require.Equal(t, len(ids), g.ParticipantCount())

	tickFor(g, clock, fists(ids...), cfg.Cooldown+cfg.FistHold+300*time.Millisecond)
	require.Equal(t, PhaseDrawing, g.Phase())

	tickFor(g, clock, fists(ids...), cfg.DrawDuration+200*time.Millisecond)
	require.Equal(t, PhaseShowWinner, g.Phase())
}

func TestSimpleRoundReachesShowWinner(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 7
	g, clock, rec := newTestGame(t, cfg)

	driveToShowWinner(t, g, clock, 1, 2, 3)

	winners := g.Winners()
	require.Len(t, winners, 1)
	assert.Contains(t, []int64{1, 2, 3}, winners[0])

	var drawn *WinnersDrawnEvent
	for _, e := range rec.events {
		if w, ok := e.(WinnersDrawnEvent); ok {
			require.Nil(t, drawn, "winners drawn exactly once per round")
			drawn = &w
		}
	}
	require.NotNil(t, drawn)
	assert.Equal(t, 3, drawn.PoolSize)
}

func TestParticipantChangeRestartsHold(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	g.Tick(open(5, 1, 2), false)
	require.Equal(t, PhaseDetectParticipants, g.Phase())

	// Two hands almost through the hold.
	tickFor(g, clock, open(5, 1, 2), cfg.Cooldown+cfg.ParticipantHold-500*time.Millisecond)
	require.Equal(t, PhaseDetectParticipants, g.Phase())
	require.Equal(t, 2, g.ParticipantCount())

	// A third hand joins: the count updates and the hold restarts, so the
	// phase must not advance on the old hold's schedule.
	g.Tick(open(5, 1, 2, 3), false)
	assert.Equal(t, 3, g.ParticipantCount())
	tickFor(g, clock, open(5, 1, 2, 3), cfg.ParticipantHold-500*time.Millisecond)
	assert.Equal(t, PhaseDetectParticipants, g.Phase())

	tickFor(g, clock, open(5, 1, 2, 3), time.Second)
	assert.Equal(t, PhaseWaitFistsReady, g.Phase())
}

func TestSingleHandDoesNotStartRound(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	g.Tick(open(5, 1), false)

	tickFor(g, clock, open(5, 1), cfg.Cooldown+2*cfg.ParticipantHold)
	assert.Equal(t, PhaseDetectParticipants, g.Phase())
	assert.Contains(t, g.Message(), "at least")
}

func TestExtendedModeFingerCountSelectsWinners(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ExtendedMode = true
	cfg.Seed = 11
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	g.Tick(open(5, 1, 2, 3), false)
	tickFor(g, clock, open(5, 1, 2, 3), cfg.Cooldown+cfg.ParticipantHold+300*time.Millisecond)
	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown+cfg.FistHold+300*time.Millisecond)
	require.Equal(t, PhaseSetWinnerCount, g.Phase())

	// Two fingers total across the group selects two winners.
	hands := []Hand{
		{TrackID: 1, Pose: pose.HandPose{FingerCount: 1}},
		{TrackID: 2, Pose: pose.HandPose{FingerCount: 1}},
		{TrackID: 3, Pose: pose.HandPose{FingerCount: 0}},
	}
	tickFor(g, clock, hands, cfg.Cooldown+cfg.WinnerCountHold+300*time.Millisecond)
	require.Equal(t, PhaseWaitFistsPreDraw, g.Phase())
	require.Equal(t, 2, g.WinnerCount())

	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown+cfg.FistHold+300*time.Millisecond)
	require.Equal(t, PhaseDrawing, g.Phase())
	assert.Len(t, g.Winners(), 2)
}

func TestInvalidWinnerCountDoesNotAdvance(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ExtendedMode = true
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	g.Tick(open(5, 1, 2, 3), false)
	tickFor(g, clock, open(5, 1, 2, 3), cfg.Cooldown+cfg.ParticipantHold+300*time.Millisecond)
	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown+cfg.FistHold+300*time.Millisecond)
	require.Equal(t, PhaseSetWinnerCount, g.Phase())

	// Summed fingers equal the participant count: out of the valid range.
	tickFor(g, clock, open(1, 1, 2, 3), cfg.Cooldown+2*cfg.WinnerCountHold)
	assert.Equal(t, PhaseSetWinnerCount, g.Phase())
	assert.Contains(t, g.Message(), "1 to 2")
}

func TestWinnerCountChangeRestartsHoldImmediately(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.ExtendedMode = true
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	g.Tick(open(5, 1, 2, 3), false)
	tickFor(g, clock, open(5, 1, 2, 3), cfg.Cooldown+cfg.ParticipantHold+300*time.Millisecond)
	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown+cfg.FistHold+300*time.Millisecond)
	require.Equal(t, PhaseSetWinnerCount, g.Phase())

	// Hold one finger most of the way, then switch to two.
	tickFor(g, clock, open(1, 1), cfg.Cooldown+cfg.WinnerCountHold-300*time.Millisecond)
	require.Equal(t, PhaseSetWinnerCount, g.Phase())

	tickFor(g, clock, open(2, 1), cfg.WinnerCountHold-300*time.Millisecond)
	assert.Equal(t, PhaseSetWinnerCount, g.Phase(), "changed sum restarts the hold")

	tickFor(g, clock, open(2, 1), time.Second)
	require.Equal(t, PhaseWaitFistsPreDraw, g.Phase())
	assert.Equal(t, 2, g.WinnerCount())
}

func TestDrawIsUniform(t *testing.T) {
	t.Parallel()

	const trials = 1000
	counts := make(map[int64]int)

	for i := 0; i < trials; i++ {
		cfg := DefaultConfig()
		cfg.Seed = int64(i + 1)
		g, _, _ := newTestGame(t, cfg)
		g.winnerCount = 2
		g.draw(open(0, 10, 11, 12, 13, 14))

		require.Len(t, g.Winners(), 2)
		for _, id := range g.Winners() {
			counts[id]++
		}
	}

	// Each of the 5 pool members should win about 2/5 of the time.
	for id := int64(10); id <= 14; id++ {
		assert.InDelta(t, float64(trials)*2.0/5.0, float64(counts[id]), 80, "id %d", id)
	}
}

func TestDrawNeverExceedsPool(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 3
	g, _, _ := newTestGame(t, cfg)
	g.winnerCount = 7

	g.draw(open(0, 1, 2, 3))
	assert.Len(t, g.Winners(), 3)
}

func TestWinnersFrozenOncePerRound(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 5
	g, _, _ := newTestGame(t, cfg)
	g.winnerCount = 1

	g.draw(open(0, 1, 2, 3))
	first := g.Winners()
	g.draw(open(0, 4, 5, 6))
	assert.Equal(t, first, g.Winners(), "a second draw must be a no-op")
}

func TestDrawFallsBackToLastKnownHands(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 9
	g, _, _ := newTestGame(t, cfg)

	// A momentary dropout at draw time resolves against the last known
	// active set instead of failing the round.
	g.lastActiveIDs = []int64{1, 2}
	g.winnerCount = 1
	g.draw(nil)

	winners := g.Winners()
	require.Len(t, winners, 1)
	assert.Contains(t, []int64{1, 2}, winners[0])
}

func TestCaptureFiresAfterDelay(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 7
	g, clock, rec := newTestGame(t, cfg)
	driveToShowWinner(t, g, clock, 1, 2, 3)
	winner := g.Winners()[0]

	// Winner opens the fist and keeps it open past the capture delay. The
	// span covers the post-transition cooldown as well.
	tickFor(g, clock, open(5, 1, 2, 3), cfg.Cooldown+cfg.CaptureDelay+300*time.Millisecond)

	caps := rec.captures()
	require.Len(t, caps, 1)
	assert.Equal(t, winner, caps[0].TrackID)

	// Re-opening later must not fire again.
	tickFor(g, clock, fists(1, 2, 3), 500*time.Millisecond)
	tickFor(g, clock, open(5, 1, 2, 3), cfg.CaptureDelay+300*time.Millisecond)
	assert.Len(t, rec.captures(), 1)
}

func TestReFistingCancelsPendingCapture(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 7
	g, clock, rec := newTestGame(t, cfg)
	driveToShowWinner(t, g, clock, 1, 2, 3)
	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown) // burn the cooldown

	// Open briefly, close again before the delay elapses.
	tickFor(g, clock, open(5, 1, 2, 3), cfg.CaptureDelay/2)
	tickFor(g, clock, fists(1, 2, 3), cfg.CaptureDelay*2)

	assert.Empty(t, rec.captures())
}

func TestWinnerDropoutCancelsPendingCapture(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 7
	g, clock, rec := newTestGame(t, cfg)
	driveToShowWinner(t, g, clock, 1, 2, 3)
	winner := g.Winners()[0]
	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown)

	// The winner opens, then leaves the frame before the delay elapses.
	remaining := make([]Hand, 0, 2)
	for _, h := range open(5, 1, 2, 3) {
		if h.TrackID != winner {
			remaining = append(remaining, h)
		}
	}
	tickFor(g, clock, open(5, 1, 2, 3), cfg.CaptureDelay/2)
	tickFor(g, clock, remaining, cfg.CaptureDelay*3)
	assert.Empty(t, rec.captures(), "no capture while the winner is out of frame")

	// Returning open does not fire either; a fresh fist-open cycle is
	// required to rearm.
	tickFor(g, clock, open(5, 1, 2, 3), cfg.CaptureDelay*2)
	assert.Empty(t, rec.captures())
}

func TestResetClearsRoundState(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 7
	g, clock, rec := newTestGame(t, cfg)
	driveToShowWinner(t, g, clock, 1, 2, 3)
	tickFor(g, clock, fists(1, 2, 3), cfg.Cooldown)

	// Arm a pending capture, then reset mid-delay.
	tickFor(g, clock, open(5, 1, 2, 3), cfg.CaptureDelay/2)
	g.Reset()

	assert.Equal(t, PhaseSetup, g.Phase())
	assert.Nil(t, g.Winners())
	assert.Equal(t, 0, g.ParticipantCount())

	// The cancelled capture must never fire, even after the delay passes.
	g.Tick(nil, false)
	clock.Advance(cfg.CaptureDelay * 2)
	g.Tick(nil, false)
	assert.Empty(t, rec.captures())
}

func TestConfirmGestureRestartsFromShowWinner(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 7
	g, clock, rec := newTestGame(t, cfg)
	driveToShowWinner(t, g, clock, 1, 2, 3)

	// Cooldown first, then the confirm flip with three hands visible.
	clock.Advance(cfg.Cooldown)
	g.Tick(open(5, 1, 2, 3), true)
	assert.Equal(t, PhaseSetup, g.Phase())

	confirmed := false
	for _, e := range rec.events {
		if c, ok := e.(GestureConfirmEvent); ok {
			confirmed = true
			assert.Equal(t, PhaseShowWinner, c.Phase)
		}
	}
	assert.True(t, confirmed, "accepting the flip publishes a confirm event")
}

func TestFistsHeldAcrossTransitionWaitFullHold(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	g, clock, _ := newTestGame(t, cfg)
	const step = 100 * time.Millisecond

	g.Start()
	g.Tick(fists(1, 2), false) // setup -> detect_participants
	clock.Advance(step)

	// Fists also satisfy the participant count, so the fist condition is
	// already met on the tick that enters wait_fists_ready.
	deadline := cfg.Cooldown + cfg.ParticipantHold + 2*time.Second
	for waited := time.Duration(0); g.Phase() != PhaseWaitFistsReady && waited < deadline; waited += step {
		g.Tick(fists(1, 2), false)
		clock.Advance(step)
	}
	require.Equal(t, PhaseWaitFistsReady, g.Phase())

	// Inside the cooldown the carried-over fists accrue nothing.
	offset := step
	for ; offset+step < cfg.Cooldown; offset += step {
		g.Tick(fists(1, 2), false)
		clock.Advance(step)
		require.Equal(t, PhaseWaitFistsReady, g.Phase())
		require.Zero(t, g.TimerElapsed())
	}

	// The hold then runs in full: cooldown plus fist hold must both elapse
	// before the draw starts.
	for ; offset < cfg.Cooldown+cfg.FistHold; offset += step {
		g.Tick(fists(1, 2), false)
		clock.Advance(step)
	}
	assert.Equal(t, PhaseWaitFistsReady, g.Phase())

	tickFor(g, clock, fists(1, 2), 500*time.Millisecond)
	assert.Equal(t, PhaseDrawing, g.Phase())
}

func TestDrawingPhaseReportsTimerProgress(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	cfg.Seed = 3
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	g.Tick(open(5, 1, 2), false)
	tickFor(g, clock, open(5, 1, 2), cfg.Cooldown+cfg.ParticipantHold+300*time.Millisecond)
	tickFor(g, clock, fists(1, 2), cfg.Cooldown+cfg.FistHold+300*time.Millisecond)
	require.Equal(t, PhaseDrawing, g.Phase())

	// No hold runs during the draw, but the timer still tracks the
	// animation window so the progress bar is not stuck empty.
	require.Equal(t, cfg.DrawDuration, g.TimerMax())
	first := g.TimerElapsed()
	clock.Advance(500 * time.Millisecond)
	g.Tick(fists(1, 2), false)
	assert.Greater(t, g.TimerElapsed(), first)
	assert.Less(t, g.TimerElapsed(), cfg.DrawDuration)
}

func TestZeroDetectionsNeverPanic(t *testing.T) {
	t.Parallel()

	cfg := DefaultConfig()
	g, clock, _ := newTestGame(t, cfg)

	g.Start()
	for i := 0; i < 100; i++ {
		g.Tick(nil, false)
		clock.Advance(100 * time.Millisecond)
	}
	assert.Equal(t, PhaseDetectParticipants, g.Phase())
}
