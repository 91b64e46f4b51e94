// Package engine runs the per-tick update cycle: classify raw detections,
// track identities, advance gesture machines, and step the round state
// machine, then publish an immutable snapshot for readers.
//
// All mutation happens synchronously inside HandleFrame under a single
// writer; a render tick may read the latest snapshot concurrently at any
// rate without observing partial state.
package engine

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/jmcrae/palmdraw/internal/game"
	"github.com/jmcrae/palmdraw/internal/gesture"
	"github.com/jmcrae/palmdraw/internal/pose"
	"github.com/jmcrae/palmdraw/internal/track"
)

// Config aggregates every component's configuration.
type Config struct {
	Classifier pose.ClassifierConfig
	Tracker    track.Config
	Gesture    gesture.Config
	Game       game.Config
}

// DefaultConfig returns the defaults of every component.
func DefaultConfig() Config {
	return Config{
		Classifier: pose.DefaultClassifierConfig(),
		Tracker:    track.DefaultConfig(),
		Gesture:    gesture.DefaultConfig(),
		Game:       game.DefaultConfig(),
	}
}

// HandView is one active hand as exposed to renderers.
type HandView struct {
	TrackID     int64
	Pose        pose.HandPose
	Centroid    pose.Point
	GestureStep int
}

// Snapshot is the published read model for one tick. It is immutable once
// returned; renderers may hold it across ticks.
type Snapshot struct {
	Tick             uint64
	Phase            game.Phase
	Hands            []HandView
	TimerElapsed     time.Duration
	TimerMax         time.Duration
	Message          string
	Winners          []int64
	ParticipantCount int
	WinnerCount      int
}

// Engine owns the pipeline components and the latest snapshot.
type Engine struct {
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger

	tracker  *track.Tracker
	gestures *gesture.Recognizer
	game     *game.Game
	bus      game.Bus

	mu       sync.RWMutex
	snapshot Snapshot
	tick     uint64

	inFlight atomic.Bool
}

// New creates an Engine with its own event bus.
func New(cfg Config, clock quartz.Clock, logger *log.Logger) *Engine {
	bus := game.NewBus()
	gestures := gesture.New(cfg.Gesture, clock, logger)
	// Flip progress is round-scoped: every reset, whether the external call
	// or the in-round confirm gesture, must clear it. Both paths publish
	// RoundResetEvent, so the listener is the single clearing site.
	bus.Subscribe(&resetListener{gestures: gestures})
	return &Engine{
		cfg:      cfg,
		clock:    clock,
		logger:   logger,
		tracker:  track.New(cfg.Tracker, clock, logger),
		gestures: gestures,
		game:     game.New(cfg.Game, clock, logger, bus),
		bus:      bus,
	}
}

// resetListener clears per-track gesture state when a round is torn down.
type resetListener struct {
	gestures *gesture.Recognizer
}

func (l *resetListener) HandleEvent(ev game.Event) {
	if _, ok := ev.(game.RoundResetEvent); ok {
		l.gestures.Reset()
	}
}

// Bus exposes the round event bus for collaborators (capture, rendering).
func (e *Engine) Bus() game.Bus {
	return e.bus
}

// TryBeginInference claims the single in-flight inference slot. Callers
// that fail to claim it skip the frame: back-pressure by skipping, never
// queueing.
func (e *Engine) TryBeginInference() bool {
	return e.inFlight.CompareAndSwap(false, true)
}

// EndInference releases the in-flight slot.
func (e *Engine) EndInference() {
	e.inFlight.Store(false)
}

// StartRound begins a round from idle.
func (e *Engine) StartRound() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.game.Start()
	e.publish(nil)
}

// ResetRound tears down the current round, cancelling any pending capture.
// Gesture state is cleared via the RoundResetEvent the reset publishes.
func (e *Engine) ResetRound() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.game.Reset()
	e.publish(nil)
}

// HandleFrame processes one completed pose-inference result and returns the
// snapshot it produced. Malformed detections are dropped for this tick
// only.
func (e *Engine) HandleFrame(frames []pose.Landmarks) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.tick++

	dets := make([]track.Detection, 0, len(frames))
	for _, lm := range frames {
		hp, err := pose.Classify(lm, e.cfg.Classifier)
		if err != nil {
			e.logger.Debug("rejected detection", "tick", e.tick, "error", err)
			continue
		}
		dets = append(dets, track.Detection{
			Centroid:   hp.Centroid,
			Handedness: hp.Handedness,
			Pose:       hp,
		})
	}

	e.tracker.Observe(dets)
	e.gestures.Prune(e.tracker.LiveIDs())

	active := e.tracker.Active()
	confirm := false
	hands := make([]game.Hand, 0, len(active))
	for _, tr := range active {
		if e.gestures.Observe(tr.ID, tr.Pose.Facing) {
			// Any single hand completing the flip sequence is sufficient;
			// the game applies its own hand-count precondition.
			confirm = true
		}
		hands = append(hands, game.Hand{TrackID: tr.ID, Pose: *tr.Pose})
	}

	e.game.Tick(hands, confirm)

	return e.publish(active)
}

// publish rebuilds the snapshot from current component state. Callers hold
// the write lock.
func (e *Engine) publish(active []*track.Track) Snapshot {
	views := make([]HandView, len(active))
	for i, tr := range active {
		views[i] = HandView{
			TrackID:     tr.ID,
			Pose:        *tr.Pose,
			Centroid:    tr.Centroid,
			GestureStep: e.gestures.Step(tr.ID),
		}
	}

	var winners []int64
	if w := e.game.Winners(); w != nil {
		winners = make([]int64, len(w))
		copy(winners, w)
	}

	e.snapshot = Snapshot{
		Tick:             e.tick,
		Phase:            e.game.Phase(),
		Hands:            views,
		TimerElapsed:     e.game.TimerElapsed(),
		TimerMax:         e.game.TimerMax(),
		Message:          e.game.Message(),
		Winners:          winners,
		ParticipantCount: e.game.ParticipantCount(),
		WinnerCount:      e.game.WinnerCount(),
	}
	return e.snapshot
}

// Snapshot returns the latest published snapshot. Safe for concurrent use.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snapshot
}
