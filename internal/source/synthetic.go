package source

import (
	"context"
	rand "math/rand/v2"
	"time"

	"github.com/jmcrae/palmdraw/internal/pose"
	"github.com/jmcrae/palmdraw/internal/randutil"
)

// SyntheticConfig tunes the synthetic generator.
type SyntheticConfig struct {
	Hands       int           // number of simulated hands
	Seed        int64         // seed for motion, jitter and noise
	FramePeriod time.Duration // simulated time per frame
	Jitter      float64       // landmark noise amplitude, normalized units
	DropProb    float64       // per-hand chance of a missed detection
	DupProb     float64       // per-hand chance of a duplicated detection
}

// DefaultSyntheticConfig returns the settings used by the demo command.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		Hands:       3,
		Seed:        1,
		FramePeriod: 50 * time.Millisecond,
		Jitter:      0.002,
		DropProb:    0.01,
		DupProb:     0.01,
	}
}

// Synthetic generates frames of plausible hand detections on a fixed
// script: everyone holds an open palm, makes a fist, then opens again,
// with one hand flipping palm/back during the open stretch so the
// confirm gesture fires from time to time. Motion is a bounded random
// walk; the same seed always produces the same stream.
type Synthetic struct {
	cfg   SyntheticConfig
	rng   *rand.Rand
	hands []syntheticHand
	frame int64
}

type syntheticHand struct {
	pos        pose.Point
	vel        pose.Point
	handedness pose.Handedness
}

// The posture script repeats on a fixed cycle. Boundaries are phase
// offsets into the cycle.
const (
	scriptCycle   = 16 * time.Second
	scriptFistAt  = 5 * time.Second  // open until here
	scriptOpenAt  = 11 * time.Second // fists until here, open after
	scriptFlipAt  = 13 * time.Second // hand 0 starts flipping here
	scriptFlipEnd = 15 * time.Second
	flipPeriod    = 500 * time.Millisecond
)

// NewSynthetic returns a generator for cfg.Hands hands spread evenly
// across the frame.
func NewSynthetic(cfg SyntheticConfig) *Synthetic {
	s := &Synthetic{cfg: cfg, rng: randutil.New(cfg.Seed)}
	for i := 0; i < cfg.Hands; i++ {
		h := pose.LeftHand
		if i%2 == 1 {
			h = pose.RightHand
		}
		s.hands = append(s.hands, syntheticHand{
			pos: pose.Point{
				X: 0.2 + 0.6*float64(i)/float64(max(cfg.Hands-1, 1)),
				Y: 0.5,
			},
			handedness: h,
		})
	}
	return s
}

// Next advances the simulation one frame. It never returns io.EOF; the
// stream runs until ctx is cancelled.
func (s *Synthetic) Next(ctx context.Context) ([]pose.Landmarks, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	t := time.Duration(s.frame) * s.cfg.FramePeriod
	s.frame++

	frames := make([]pose.Landmarks, 0, len(s.hands))
	for i := range s.hands {
		s.step(&s.hands[i])
		lm := s.build(i, t)
		if s.rng.Float64() < s.cfg.DropProb {
			continue
		}
		frames = append(frames, lm)
		if s.rng.Float64() < s.cfg.DupProb {
			frames = append(frames, lm)
		}
	}
	return frames, nil
}

// step moves a hand one increment of its random walk, reflecting at the
// frame margins so hands stay in view.
func (s *Synthetic) step(h *syntheticHand) {
	h.vel.X += s.rng.NormFloat64() * 0.0004
	h.vel.Y += s.rng.NormFloat64() * 0.0004
	h.vel.X = clamp(h.vel.X, -0.004, 0.004)
	h.vel.Y = clamp(h.vel.Y, -0.004, 0.004)
	h.pos.X += h.vel.X
	h.pos.Y += h.vel.Y
	if h.pos.X < 0.15 || h.pos.X > 0.85 {
		h.pos.X = clamp(h.pos.X, 0.15, 0.85)
		h.vel.X = -h.vel.X
	}
	if h.pos.Y < 0.2 || h.pos.Y > 0.8 {
		h.pos.Y = clamp(h.pos.Y, 0.2, 0.8)
		h.vel.Y = -h.vel.Y
	}
}

// build renders hand i's scripted posture at simulated time t.
func (s *Synthetic) build(i int, t time.Duration) pose.Landmarks {
	h := s.hands[i]
	phase := t % scriptCycle

	facing := pose.FacingPalm
	fist := phase >= scriptFistAt && phase < scriptOpenAt
	if i == 0 && phase >= scriptFlipAt && phase < scriptFlipEnd {
		if ((phase-scriptFlipAt)/flipPeriod)%2 == 1 {
			facing = pose.FacingBack
		}
	}

	var lm pose.Landmarks
	if fist {
		lm = pose.FistHand(h.pos, h.handedness, facing)
	} else {
		lm = pose.OpenHand(h.pos, h.handedness, facing)
	}
	if s.cfg.Jitter > 0 {
		for j := range lm.Points {
			lm.Points[j].X += s.rng.NormFloat64() * s.cfg.Jitter
			lm.Points[j].Y += s.rng.NormFloat64() * s.cfg.Jitter
		}
	}
	return lm
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
