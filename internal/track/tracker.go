package track

import (
	"math"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/jmcrae/palmdraw/internal/pose"
)

// Tracker owns the cross-tick track list and the next-ID counter. It is not
// safe for concurrent use; the engine is its single writer.
type Tracker struct {
	cfg    Config
	clock  quartz.Clock
	logger *log.Logger

	tracks []*Track
	nextID int64
	tick   uint64
}

// New creates a Tracker. The clock is injected so tests can drive LastSeen
// deterministically.
func New(cfg Config, clock quartz.Clock, logger *log.Logger) *Tracker {
	return &Tracker{
		cfg:    cfg,
		clock:  clock,
		logger: logger,
		nextID: 1,
	}
}

func dist(a, b pose.Point) float64 {
	return math.Hypot(a.X-b.X, a.Y-b.Y)
}

// Observe processes one tick of detections: deduplicate, predict, match,
// update, spawn, expire. Detections are assumed already classified.
func (t *Tracker) Observe(dets []Detection) {
	t.tick++
	now := t.clock.Now()

	dets = t.dedupe(dets)

	// Predict every track forward by its smoothed velocity so fast-moving
	// hands still match their own track.
	predicted := make([]pose.Point, len(t.tracks))
	for i, tr := range t.tracks {
		predicted[i] = pose.Point{X: tr.Centroid.X + tr.Velocity.X, Y: tr.Centroid.Y + tr.Velocity.Y}
	}

	// Collect all candidate pairs under the cost ceiling, then assign
	// greedily from the cheapest, one-to-one. Optimal assignment is not
	// worth the complexity at hand-count scales.
	type pair struct {
		trackIdx, detIdx int
		cost             float64
	}
	var pairs []pair
	for ti, tr := range t.tracks {
		for di, d := range dets {
			cost := dist(predicted[ti], d.Centroid)
			if d.Handedness != tr.Handedness {
				cost += t.cfg.HandednessPenalty
			}
			if cost < t.cfg.MaxTrackingDistance {
				pairs = append(pairs, pair{trackIdx: ti, detIdx: di, cost: cost})
			}
		}
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].cost < pairs[j].cost })

	matchedTrack := make([]bool, len(t.tracks))
	matchedDet := make([]bool, len(dets))
	for _, p := range pairs {
		if matchedTrack[p.trackIdx] || matchedDet[p.detIdx] {
			continue
		}
		matchedTrack[p.trackIdx] = true
		matchedDet[p.detIdx] = true

		tr := t.tracks[p.trackIdx]
		d := dets[p.detIdx]

		delta := pose.Point{X: d.Centroid.X - tr.Centroid.X, Y: d.Centroid.Y - tr.Centroid.Y}
		a := t.cfg.VelocitySmoothing
		tr.Velocity = pose.Point{
			X: (1-a)*tr.Velocity.X + a*delta.X,
			Y: (1-a)*tr.Velocity.Y + a*delta.Y,
		}
		tr.Centroid = d.Centroid
		tr.LastSeen = now
		tr.Matches++
		tr.Missing = 0
		tr.Handedness = d.Handedness
		hp := d.Pose
		tr.Pose = &hp
		tr.matchedTick = t.tick
	}

	// Unmatched tracks age; their pose is cleared so a track never reports
	// a stale classification.
	for i, tr := range t.tracks {
		if matchedTrack[i] {
			continue
		}
		tr.Missing++
		tr.Matches = 0
		tr.Pose = nil
	}

	// Unmatched detections spawn fresh tracks.
	for di, d := range dets {
		if matchedDet[di] {
			continue
		}
		tr := &Track{
			ID:          t.nextID,
			Centroid:    d.Centroid,
			LastSeen:    now,
			Matches:     1,
			Handedness:  d.Handedness,
			matchedTick: t.tick,
		}
		hp := d.Pose
		tr.Pose = &hp
		t.nextID++
		t.tracks = append(t.tracks, tr)
		t.logger.Debug("spawned track", "trackID", tr.ID, "x", d.Centroid.X, "y", d.Centroid.Y)
	}

	// Expire tracks missing for too long. IDs are never reclaimed.
	kept := t.tracks[:0]
	for _, tr := range t.tracks {
		if tr.Missing > t.cfg.MaxMissingTicks {
			t.logger.Debug("expired track", "trackID", tr.ID, "missing", tr.Missing)
			continue
		}
		kept = append(kept, tr)
	}
	t.tracks = kept
}

// dedupe collapses detections closer than DuplicateDistance, keeping the
// first of each cluster. Two genuinely distinct hands inside the threshold
// collapse into one; that is the documented trade-off.
func (t *Tracker) dedupe(dets []Detection) []Detection {
	if len(dets) < 2 {
		return dets
	}
	out := dets[:0:0]
	for _, d := range dets {
		dup := false
		for _, kept := range out {
			if dist(d.Centroid, kept.Centroid) < t.cfg.DuplicateDistance {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, d)
		}
	}
	return out
}

// Active returns the tracks matched this tick whose consecutive-match count
// has reached the confirmation threshold, sorted left to right by centroid X
// for stable downstream ordering.
func (t *Tracker) Active() []*Track {
	var active []*Track
	for _, tr := range t.tracks {
		if tr.matchedTick == t.tick && tr.Matches >= t.cfg.ConfirmFrames {
			active = append(active, tr)
		}
	}
	sort.Slice(active, func(i, j int) bool { return active[i].Centroid.X < active[j].Centroid.X })
	return active
}

// LiveIDs returns the IDs of every live track, matched or not. Downstream
// per-track state is pruned against this set every tick.
func (t *Tracker) LiveIDs() map[int64]struct{} {
	ids := make(map[int64]struct{}, len(t.tracks))
	for _, tr := range t.tracks {
		ids[tr.ID] = struct{}{}
	}
	return ids
}

// Lookup returns the live track with the given ID, or nil.
func (t *Tracker) Lookup(id int64) *Track {
	for _, tr := range t.tracks {
		if tr.ID == id {
			return tr
		}
	}
	return nil
}

// Len returns the number of live tracks.
func (t *Tracker) Len() int {
	return len(t.tracks)
}
