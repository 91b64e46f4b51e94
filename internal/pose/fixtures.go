package pose

// Synthetic landmark builders used by tests and the demo pose source.
// The geometry is a stylized but anatomically plausible hand: wrist below
// the knuckle row, fingers pointing up in image coordinates (y grows down).

const (
	wristDrop   = 0.12 // wrist sits this far below the knuckle row
	knuckleStep = 0.03 // horizontal spacing between adjacent MCPs
)

// SyntheticHand describes a hand to synthesize.
type SyntheticHand struct {
	Center     Point // middle-finger MCP position, doubles as the centroid
	Handedness Handedness
	Facing     Facing
	// Extended marks which of the five fingers are extended, in the order
	// thumb, index, middle, ring, pinky.
	Extended [5]bool
}

// Build produces the full 21-point landmark list for the described hand.
func (s SyntheticHand) Build() Landmarks {
	cx, cy := s.Center.X, s.Center.Y

	// Knuckle row winding encodes facing: a right palm toward the camera has
	// the index MCP left of the pinky MCP, and every other combination of
	// handedness and facing mirrors from there.
	mirror := 1.0
	if (s.Handedness == RightHand) != (s.Facing == FacingPalm) {
		mirror = -1
	}

	lm := Landmarks{
		Points:     make([]Point, NumLandmarks),
		Handedness: s.Handedness,
		Score:      0.95,
	}
	lm.Points[Wrist] = Point{X: cx, Y: cy + wristDrop}

	// Thumb on the index side of the hand.
	thumbSide := -mirror
	lm.Points[ThumbCMC] = Point{X: cx + thumbSide*0.07, Y: cy + 0.08}
	lm.Points[ThumbMCP] = Point{X: cx + thumbSide*0.09, Y: cy + 0.04}
	if s.Extended[0] {
		lm.Points[ThumbIP] = Point{X: cx + thumbSide*0.11, Y: cy}
		lm.Points[ThumbTip] = Point{X: cx + thumbSide*0.13, Y: cy - 0.04}
	} else {
		lm.Points[ThumbIP] = Point{X: cx + thumbSide*0.07, Y: cy + 0.03}
		lm.Points[ThumbTip] = Point{X: cx + thumbSide*0.05, Y: cy + 0.03}
	}

	// The four fingers, left to right from the viewer of a right palm.
	mcps := [4]int{IndexMCP, MiddleMCP, RingMCP, PinkyMCP}
	offsets := [4]float64{-knuckleStep, 0, knuckleStep, 2 * knuckleStep}
	for i, mcp := range mcps {
		x := cx + mirror*offsets[i]
		lm.Points[mcp] = Point{X: x, Y: cy}
		if s.Extended[i+1] {
			lm.Points[mcp+1] = Point{X: x, Y: cy - 0.03} // PIP
			lm.Points[mcp+2] = Point{X: x, Y: cy - 0.08} // DIP
			lm.Points[mcp+3] = Point{X: x, Y: cy - 0.12} // Tip
		} else {
			lm.Points[mcp+1] = Point{X: x, Y: cy - 0.03}
			lm.Points[mcp+2] = Point{X: x, Y: cy - 0.01}
			lm.Points[mcp+3] = Point{X: x, Y: cy + 0.02}
		}
	}

	return lm
}

// OpenHand returns landmarks for a fully open hand (five fingers extended).
func OpenHand(center Point, h Handedness, f Facing) Landmarks {
	return SyntheticHand{
		Center:     center,
		Handedness: h,
		Facing:     f,
		Extended:   [5]bool{true, true, true, true, true},
	}.Build()
}

// FistHand returns landmarks for a closed fist.
func FistHand(center Point, h Handedness, f Facing) Landmarks {
	return SyntheticHand{Center: center, Handedness: h, Facing: f}.Build()
}

// CountHand returns landmarks showing n extended fingers (0..5). The four
// non-thumb fingers extend first; the thumb only joins at five.
func CountHand(center Point, h Handedness, n int) Landmarks {
	s := SyntheticHand{Center: center, Handedness: h, Facing: FacingPalm}
	for i := 0; i < n && i < 4; i++ {
		s.Extended[i+1] = true
	}
	if n >= 5 {
		s.Extended[0] = true
	}
	return s.Build()
}
