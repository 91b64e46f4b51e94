package game

import (
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/google/uuid"

	"github.com/jmcrae/palmdraw/internal/pose"
	"github.com/jmcrae/palmdraw/internal/randutil"
)

// Config holds every tunable the round state machine uses. All timings are
// wall-clock so behavior is frame-rate independent.
type Config struct {
	// MinParticipants is the smallest hand count a round can start with.
	MinParticipants int

	// WinnerCount is the number of winners drawn when ExtendedMode is off.
	WinnerCount int

	// ExtendedMode inserts the finger-count winner-selection phases.
	ExtendedMode bool

	ParticipantHold time.Duration // stable hand count hold before locking participants
	FistHold        time.Duration // all-fists hold before advancing
	WinnerCountHold time.Duration // stable finger sum hold before locking winner count

	// Grace is how long a failing condition is tolerated before a hold
	// aborts; it covers detection flicker, not deliberate changes.
	Grace time.Duration

	// Cooldown suppresses all condition evaluation right after a phase
	// transition so stale poses cannot instantly satisfy the next phase.
	Cooldown time.Duration

	// DrawDuration is how long the drawing phase lasts before the winners
	// are shown; it exists so renderers can animate the draw.
	DrawDuration time.Duration

	// CaptureDelay is the pause between a winning hand opening and the
	// capture request firing; re-fisting within it cancels the capture.
	CaptureDelay time.Duration

	// Seed makes draws reproducible when non-zero.
	Seed int64
}

// DefaultConfig returns the round timing defaults.
func DefaultConfig() Config {
	return Config{
		MinParticipants: 2,
		WinnerCount:     1,
		ParticipantHold: 3 * time.Second,
		FistHold:        3 * time.Second,
		WinnerCountHold: 2 * time.Second,
		Grace:           500 * time.Millisecond,
		Cooldown:        750 * time.Millisecond,
		DrawDuration:    2 * time.Second,
		CaptureDelay:    800 * time.Millisecond,
	}
}

// Hand is the game's view of one active tracked hand for a tick.
type Hand struct {
	TrackID int64
	Pose    pose.HandPose
}

// Game is the round state machine. It mutates only inside Tick and the
// explicit Start/Reset calls, all of which run on the engine's single
// writer.
type Game struct {
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger
	bus    Bus
	rng    *rand.Rand

	phase        Phase
	phaseEntered time.Time
	hold         *holdTimer
	holdMax      time.Duration

	roundID          uuid.UUID
	participantCount int
	winnerCount      int
	proposedCount    int
	winners          []int64
	message          string

	// Capture bookkeeping for ShowWinner, keyed by winning track ID.
	captured       map[int64]bool
	pendingCapture map[int64]time.Time
	wasFist        map[int64]bool

	// lastActiveIDs remembers the most recent non-empty active set so a
	// draw can still resolve IDs across a momentary dropout.
	lastActiveIDs []int64
}

// New creates a Game in the idle phase.
func New(cfg Config, clock quartz.Clock, logger *log.Logger, bus Bus) *Game {
	seed := cfg.Seed
	if seed == 0 {
		seed = clock.Now().UnixNano()
	}
	return &Game{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		bus:    bus,
		rng:    randutil.New(seed),
		phase:  PhaseIdle,
	}
}

// Phase returns the current phase.
func (g *Game) Phase() Phase { return g.phase }

// ParticipantCount returns the current participant count. It only mutates
// during the participant-counting phase.
func (g *Game) ParticipantCount() int { return g.participantCount }

// WinnerCount returns the configured or finger-selected winner count.
func (g *Game) WinnerCount() int { return g.winnerCount }

// Winners returns the frozen winning track IDs, nil before the draw. The
// returned slice must not be mutated.
func (g *Game) Winners() []int64 { return g.winners }

// Message returns the current advisory message, empty when none.
func (g *Game) Message() string { return g.message }

// TimerElapsed returns the active hold's progress, zero when no hold runs.
// During the drawing phase, which has no hold, it reports time since the
// draw began so renderers can animate against DrawDuration.
func (g *Game) TimerElapsed() time.Duration {
	if g.phase == PhaseDrawing {
		return g.clock.Now().Sub(g.phaseEntered)
	}
	if g.hold == nil {
		return 0
	}
	return g.hold.Elapsed()
}

// TimerMax returns the active hold's target duration, zero when none.
func (g *Game) TimerMax() time.Duration { return g.holdMax }

// RoundID identifies the round in logs and events.
func (g *Game) RoundID() uuid.UUID { return g.roundID }

// Start begins a round from idle. It is a no-op in any other phase.
func (g *Game) Start() {
	if g.phase != PhaseIdle {
		return
	}
	g.transition(PhaseSetup)
}

// Reset tears the round down and returns to setup, clearing all
// round-scoped state. Pending delayed captures are cancelled synchronously.
func (g *Game) Reset() {
	if g.phase == PhaseIdle {
		return
	}
	g.logger.Info("round reset", "roundID", g.roundID)
	g.bus.Publish(RoundResetEvent{RoundID: g.roundID, timestamp: g.clock.Now()})
	g.clearRound()
	g.transition(PhaseSetup)
}

// clearRound drops every piece of round-scoped state, including pending
// capture deadlines.
func (g *Game) clearRound() {
	g.participantCount = 0
	g.winnerCount = 0
	g.proposedCount = 0
	g.winners = nil
	g.message = ""
	g.captured = nil
	g.pendingCapture = nil
	g.wasFist = nil
	g.lastActiveIDs = nil
}

// Tick advances the state machine with this tick's active hands and the
// debounced confirm-gesture trigger.
func (g *Game) Tick(hands []Hand, confirm bool) {
	now := g.clock.Now()
	visible := len(hands)

	if visible > 0 {
		ids := make([]int64, len(hands))
		for i, h := range hands {
			ids[i] = h.TrackID
		}
		g.lastActiveIDs = ids
	}

	switch g.phase {
	case PhaseIdle:
		// The confirm gesture doubles as a start trigger once enough hands
		// are in frame.
		if confirm && visible >= g.cfg.MinParticipants {
			g.bus.Publish(GestureConfirmEvent{RoundID: g.roundID, Phase: g.phase, timestamp: now})
			g.Start()
		}
		return
	case PhaseSetup:
		// Setup is a single-tick staging phase: round state is cleared and
		// counting starts fresh.
		g.clearRound()
		g.roundID = uuid.New()
		g.logger.Info("round started", "roundID", g.roundID)
		g.transition(PhaseDetectParticipants)
		return
	}

	// Post-transition cooldown: poses left over from the previous phase
	// must not satisfy the new one.
	if now.Sub(g.phaseEntered) < g.cfg.Cooldown {
		return
	}

	// A confirm flip during the reveal starts the next round, provided
	// enough non-winning hands are still around to make another draw
	// meaningful.
	if confirm && g.phase == PhaseShowWinner && visible > g.winnerCount {
		g.bus.Publish(GestureConfirmEvent{RoundID: g.roundID, Phase: g.phase, timestamp: now})
		g.Reset()
		return
	}

	switch g.phase {
	case PhaseDetectParticipants:
		g.tickDetectParticipants(hands)
	case PhaseWaitFistsReady:
		if g.tickWaitFists(hands) {
			if g.cfg.ExtendedMode {
				g.transition(PhaseSetWinnerCount)
			} else {
				g.winnerCount = g.cfg.WinnerCount
				g.enterDrawing(hands)
			}
		}
	case PhaseSetWinnerCount:
		g.tickSetWinnerCount(hands)
	case PhaseWaitFistsPreDraw:
		if g.tickWaitFists(hands) {
			g.enterDrawing(hands)
		}
	case PhaseDrawing:
		if now.Sub(g.phaseEntered) >= g.cfg.DrawDuration {
			g.transition(PhaseShowWinner)
		}
	case PhaseShowWinner:
		g.tickShowWinner(hands)
	}
}

// tickDetectParticipants counts hands until the count stays stable long
// enough. A changed count restarts the hold immediately; only visibility
// loss gets the grace window.
func (g *Game) tickDetectParticipants(hands []Hand) {
	visible := len(hands)

	if visible > 0 && visible != g.participantCount {
		g.participantCount = visible
		g.hold.Reset()
	}

	met := visible >= g.cfg.MinParticipants
	switch {
	case visible == 0:
		g.message = ""
	case !met:
		g.message = fmt.Sprintf("need at least %d hands", g.cfg.MinParticipants)
	default:
		g.message = ""
	}

	if g.hold.Update(met) {
		g.logger.Info("participants locked", "roundID", g.roundID, "count", g.participantCount)
		g.transition(PhaseWaitFistsReady)
	}
}

// tickWaitFists reports whether the all-fists hold just completed.
func (g *Game) tickWaitFists(hands []Hand) bool {
	visible := len(hands)
	allFists := visible > 0
	for _, h := range hands {
		if !h.Pose.IsFist {
			allFists = false
			break
		}
	}

	met := allFists && visible >= g.cfg.MinParticipants
	if visible > 0 && !allFists {
		g.message = "everyone make a fist"
	} else {
		g.message = ""
	}

	return g.hold.Update(met)
}

// tickSetWinnerCount reads the winner count from the summed extended
// fingers across all visible hands. Any change in the sum restarts the hold
// immediately; the grace window only covers visibility loss.
func (g *Game) tickSetWinnerCount(hands []Hand) {
	visible := len(hands)
	if visible == 0 {
		g.hold.Update(false)
		return
	}

	sum := 0
	for _, h := range hands {
		sum += h.Pose.FingerCount
	}
	if sum != g.proposedCount {
		g.proposedCount = sum
		g.hold.Reset()
	}

	valid := sum >= 1 && sum <= g.participantCount-1
	if !valid {
		g.message = fmt.Sprintf("show 1 to %d fingers", g.participantCount-1)
	} else {
		g.message = fmt.Sprintf("winners: %d", sum)
	}

	if g.hold.Update(valid) {
		g.winnerCount = g.proposedCount
		g.logger.Info("winner count locked", "roundID", g.roundID, "count", g.winnerCount)
		g.transition(PhaseWaitFistsPreDraw)
	}
}

// enterDrawing freezes the winner set and starts the drawing phase.
func (g *Game) enterDrawing(hands []Hand) {
	g.transition(PhaseDrawing)
	g.draw(hands)
}

// draw selects winners with an unbiased Fisher-Yates permutation of the
// visible pool. The winner set is written exactly once per round.
func (g *Game) draw(hands []Hand) {
	if g.winners != nil {
		return
	}

	pool := make([]int64, 0, len(hands))
	for _, h := range hands {
		pool = append(pool, h.TrackID)
	}
	// Momentary dropout at draw time falls back to the last known set.
	if len(pool) == 0 {
		pool = append(pool, g.lastActiveIDs...)
	}
	if len(pool) == 0 {
		g.logger.Warn("draw with no candidates, resetting", "roundID", g.roundID)
		g.Reset()
		return
	}

	winners := DrawWinners(g.rng, pool, g.winnerCount)
	n := len(winners)
	g.winners = winners
	g.captured = make(map[int64]bool, n)
	g.pendingCapture = make(map[int64]time.Time, n)
	g.wasFist = make(map[int64]bool, n)
	for _, id := range winners {
		g.wasFist[id] = true
	}

	g.logger.Info("winners drawn", "roundID", g.roundID, "winners", winners, "pool", len(pool))
	g.bus.Publish(WinnersDrawnEvent{
		RoundID:   g.roundID,
		TrackIDs:  winners,
		PoolSize:  len(pool),
		timestamp: g.clock.Now(),
	})
}

// tickShowWinner gates capture requests: a winning hand opening from a fist
// arms a short delay; the request fires only if the hand stays open through
// it and the hand is still visible. Absence or re-fisting cancels the
// pending capture.
func (g *Game) tickShowWinner(hands []Hand) {
	now := g.clock.Now()

	byID := make(map[int64]Hand, len(hands))
	for _, h := range hands {
		byID[h.TrackID] = h
	}

	for _, id := range g.winners {
		if g.captured[id] {
			continue
		}

		h, visible := byID[id]
		if !visible {
			delete(g.pendingCapture, id)
			continue
		}

		isFist := h.Pose.IsFist
		wasFist := g.wasFist[id]
		g.wasFist[id] = isFist

		if isFist {
			// Re-closing before the delay elapses cancels the capture.
			delete(g.pendingCapture, id)
			continue
		}
		if wasFist {
			g.pendingCapture[id] = now.Add(g.cfg.CaptureDelay)
			continue
		}
		if deadline, pending := g.pendingCapture[id]; pending && now.After(deadline) {
			delete(g.pendingCapture, id)
			g.captured[id] = true
			g.logger.Info("capture requested", "roundID", g.roundID, "trackID", id)
			g.bus.Publish(CaptureRequestEvent{RoundID: g.roundID, TrackID: id, timestamp: now})
		}
	}
}

// transition moves to the next phase, arms the phase's hold timer, and
// publishes the change. The cooldown clock starts here.
func (g *Game) transition(to Phase) {
	from := g.phase
	g.phase = to
	g.phaseEntered = g.clock.Now()
	g.message = ""

	switch to {
	case PhaseDetectParticipants:
		g.holdMax = g.cfg.ParticipantHold
	case PhaseWaitFistsReady, PhaseWaitFistsPreDraw:
		g.holdMax = g.cfg.FistHold
	case PhaseSetWinnerCount:
		g.holdMax = g.cfg.WinnerCountHold
	case PhaseDrawing:
		g.holdMax = g.cfg.DrawDuration
	default:
		g.holdMax = 0
	}
	if g.holdMax > 0 && to != PhaseDrawing {
		g.hold = newHoldTimer(g.clock, g.holdMax, g.cfg.Grace)
	} else {
		g.hold = nil
	}

	g.logger.Debug("phase change", "from", from, "to", to)
	g.bus.Publish(PhaseChangeEvent{
		RoundID:   g.roundID,
		From:      from,
		To:        to,
		timestamp: g.clock.Now(),
	})
}
