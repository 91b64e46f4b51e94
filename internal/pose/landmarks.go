// Package pose classifies raw hand-landmark frames into semantic hand poses.
package pose

// Hand landmark indices following the MediaPipe hand convention.
// See: https://developers.google.com/mediapipe/solutions/vision/hand_landmarker
const (
	Wrist        = 0
	ThumbCMC     = 1
	ThumbMCP     = 2
	ThumbIP      = 3
	ThumbTip     = 4
	IndexMCP     = 5
	IndexPIP     = 6
	IndexDIP     = 7
	IndexTip     = 8
	MiddleMCP    = 9
	MiddlePIP    = 10
	MiddleDIP    = 11
	MiddleTip    = 12
	RingMCP      = 13
	RingPIP      = 14
	RingDIP      = 15
	RingTip      = 16
	PinkyMCP     = 17
	PinkyPIP     = 18
	PinkyDIP     = 19
	PinkyTip     = 20
	NumLandmarks = 21
)

// Point is a single landmark in normalized image coordinates (0..1 for x and y,
// z is depth relative to the wrist and may be zero when the estimator omits it).
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Handedness is the pose estimator's left/right label for a detection.
type Handedness string

const (
	LeftHand  Handedness = "Left"
	RightHand Handedness = "Right"
)

// Landmarks is one raw detection from the pose-estimation collaborator:
// an ordered fixed-length landmark list plus the estimator's handedness
// label and confidence score. Confidence thresholding is owned by the
// collaborator; it is carried here for logging only.
type Landmarks struct {
	Points     []Point    `json:"points"`
	Handedness Handedness `json:"handedness"`
	Score      float64    `json:"score"`
}

// sqDist returns the squared 2D distance between two landmarks. Depth is
// deliberately ignored: estimator z values are far noisier than x/y and
// the extension/fold ratios are stable without them.
func sqDist(a, b Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}
