package pose

import (
	"errors"
	"fmt"
)

// ErrTooFewLandmarks is returned when a detection does not carry the full
// 21-point landmark list. The malformed detection is rejected for that tick
// only; the caller continues with the remaining detections.
var ErrTooFewLandmarks = errors.New("pose: too few landmarks")

// Facing is the palm orientation relative to the camera.
type Facing string

const (
	FacingPalm Facing = "Palm"
	FacingBack Facing = "Back"
)

// HandPose is the semantic classification of a single detection. It is an
// immutable value derived once per tick.
type HandPose struct {
	Handedness  Handedness
	Facing      Facing
	FingerCount int
	IsFist      bool
	Centroid    Point
}

// ClassifierConfig holds the empirically tuned classification margins.
// They are calibration targets, not exact thresholds; tests assert stability
// under small landmark perturbation rather than threshold equality.
type ClassifierConfig struct {
	// ExtendMargin scales the pip-to-wrist squared distance a fingertip must
	// exceed to count as extended.
	ExtendMargin float64

	// FoldMargin scales the pip-to-wrist squared distance a fingertip must
	// stay under to count as folded.
	FoldMargin float64
}

// DefaultClassifierConfig returns the margins the classifier was tuned with.
func DefaultClassifierConfig() ClassifierConfig {
	return ClassifierConfig{
		ExtendMargin: 1.1,
		FoldMargin:   1.05,
	}
}

// fingers lists tip/pip landmark pairs for the four non-thumb fingers.
var fingers = [4]struct{ tip, pip int }{
	{IndexTip, IndexPIP},
	{MiddleTip, MiddlePIP},
	{RingTip, RingPIP},
	{PinkyTip, PinkyPIP},
}

// Classify derives a HandPose from one raw detection. It is a pure function:
// the same landmarks and config always produce the same pose.
func Classify(lm Landmarks, cfg ClassifierConfig) (HandPose, error) {
	if len(lm.Points) < NumLandmarks {
		return HandPose{}, fmt.Errorf("%w: got %d, need %d", ErrTooFewLandmarks, len(lm.Points), NumLandmarks)
	}

	pose := HandPose{
		Handedness: lm.Handedness,
		Facing:     classifyFacing(lm.Points, lm.Handedness),
		Centroid:   lm.Points[MiddleMCP],
	}

	wrist := lm.Points[Wrist]

	// Finger extension: a fingertip is extended when its squared distance to
	// the wrist clearly exceeds its PIP joint's.
	extended := 0
	folded := 0
	for _, f := range fingers {
		tipD := sqDist(lm.Points[f.tip], wrist)
		pipD := sqDist(lm.Points[f.pip], wrist)
		if tipD > cfg.ExtendMargin*pipD {
			extended++
		}
		if tipD <= cfg.FoldMargin*pipD {
			folded++
		}
	}

	// The thumb has no PIP; compare its tip against the MCP joint instead.
	if sqDist(lm.Points[ThumbTip], wrist) > cfg.ExtendMargin*sqDist(lm.Points[ThumbMCP], wrist) {
		extended++
	}

	pose.FingerCount = extended

	// A fist needs at least three of the four non-thumb fingers folded. The
	// thumb is excluded: its resting position varies too much across closed
	// hands to be a reliable signal.
	pose.IsFist = folded >= 3

	return pose, nil
}

// classifyFacing determines palm orientation from the winding of the palm
// triangle (wrist, index MCP, pinky MCP). In image coordinates the cross
// product of wrist->indexMCP and wrist->pinkyMCP flips sign when the hand
// turns over, and the interpretation mirrors between left and right hands.
func classifyFacing(pts []Point, handedness Handedness) Facing {
	w := pts[Wrist]
	ix := pts[IndexMCP]
	pk := pts[PinkyMCP]

	cross := (ix.X-w.X)*(pk.Y-w.Y) - (ix.Y-w.Y)*(pk.X-w.X)

	if handedness == LeftHand {
		cross = -cross
	}
	if cross > 0 {
		return FacingPalm
	}
	return FacingBack
}
