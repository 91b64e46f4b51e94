// Package track maintains stable identities for hands across inference ticks.
//
// The pose estimator reports an unordered, identity-less list of detections
// every tick; this package turns that stream into persistent tracks with
// unique, monotonically increasing IDs that are never reused.
package track

import (
	"time"

	"github.com/jmcrae/palmdraw/internal/pose"
)

// Detection is one deduplicated, classified hand observation for a tick.
type Detection struct {
	Centroid   pose.Point
	Handedness pose.Handedness
	Pose       pose.HandPose
}

// Track is the persistent identity of one physical hand.
type Track struct {
	// ID is unique for the process lifetime and never reused.
	ID int64

	Centroid pose.Point
	// Velocity is an exponentially smoothed per-tick displacement used to
	// predict the next position before matching.
	Velocity pose.Point

	LastSeen time.Time

	// Matches counts consecutive ticks this track was matched; it gates
	// visibility so one-frame ghosts are never reported.
	Matches int
	// Missing counts consecutive unmatched ticks; the track expires when it
	// exceeds the configured ceiling.
	Missing int

	// Handedness is the remembered label from the most recent match. A
	// differing candidate label adds a matching-cost penalty rather than
	// vetoing the match, since estimator labels flicker.
	Handedness pose.Handedness

	// Pose holds this tick's classification, or nil when the track was not
	// matched this tick.
	Pose *pose.HandPose

	matchedTick uint64
}

// Config holds the tracker's tunable constants. Distances are in normalized
// image coordinates (0..1 across the frame).
type Config struct {
	// DuplicateDistance collapses detections closer than this into one;
	// guards against the estimator double-reporting a single physical hand.
	DuplicateDistance float64

	// MaxTrackingDistance is the largest matching cost still accepted when
	// pairing a predicted track position with a detection.
	MaxTrackingDistance float64

	// HandednessPenalty is added to the matching cost when the candidate's
	// handedness label differs from the track's remembered one.
	HandednessPenalty float64

	// VelocitySmoothing is the EMA weight given to the newest displacement.
	VelocitySmoothing float64

	// ConfirmFrames is the consecutive-match count a track needs before it
	// is reported as active.
	ConfirmFrames int

	// MaxMissingTicks is how many consecutive unmatched ticks a track
	// survives before expiring.
	MaxMissingTicks int
}

// DefaultConfig returns the tracking constants tuned for webcam hand scales.
func DefaultConfig() Config {
	return Config{
		DuplicateDistance:   0.08,
		MaxTrackingDistance: 0.25,
		HandednessPenalty:   0.05,
		VelocitySmoothing:   0.3,
		ConfirmFrames:       3,
		MaxMissingTicks:     10,
	}
}
