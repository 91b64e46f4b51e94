package pose

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcrae/palmdraw/internal/randutil"
)

func TestClassifyRejectsShortLandmarkList(t *testing.T) {
	t.Parallel()

	lm := OpenHand(Point{X: 0.5, Y: 0.5}, RightHand, FacingPalm)
	lm.Points = lm.Points[:NumLandmarks-1]

	_, err := Classify(lm, DefaultClassifierConfig())
	require.ErrorIs(t, err, ErrTooFewLandmarks)
}

func TestClassifyOpenHand(t *testing.T) {
	t.Parallel()

	center := Point{X: 0.4, Y: 0.6}
	hp, err := Classify(OpenHand(center, RightHand, FacingPalm), DefaultClassifierConfig())
	require.NoError(t, err)

	assert.Equal(t, 5, hp.FingerCount)
	assert.False(t, hp.IsFist)
	assert.Equal(t, FacingPalm, hp.Facing)
	assert.Equal(t, RightHand, hp.Handedness)
	assert.InDelta(t, center.X, hp.Centroid.X, 1e-9)
	assert.InDelta(t, center.Y, hp.Centroid.Y, 1e-9)
}

func TestClassifyFist(t *testing.T) {
	t.Parallel()

	hp, err := Classify(FistHand(Point{X: 0.5, Y: 0.5}, LeftHand, FacingBack), DefaultClassifierConfig())
	require.NoError(t, err)

	assert.True(t, hp.IsFist)
	assert.Equal(t, 0, hp.FingerCount)
}

func TestClassifyFingerCounts(t *testing.T) {
	t.Parallel()

	for n := 0; n <= 5; n++ {
		hp, err := Classify(CountHand(Point{X: 0.5, Y: 0.5}, RightHand, n), DefaultClassifierConfig())
		require.NoError(t, err)
		assert.Equal(t, n, hp.FingerCount, "count for %d extended fingers", n)
	}
}

func TestClassifyFacing(t *testing.T) {
	t.Parallel()

	tests := []struct {
		handedness Handedness
		facing     Facing
	}{
		{RightHand, FacingPalm},
		{RightHand, FacingBack},
		{LeftHand, FacingPalm},
		{LeftHand, FacingBack},
	}

	for _, tt := range tests {
		hp, err := Classify(OpenHand(Point{X: 0.5, Y: 0.5}, tt.handedness, tt.facing), DefaultClassifierConfig())
		require.NoError(t, err)
		assert.Equal(t, tt.facing, hp.Facing, "%s hand built facing %s", tt.handedness, tt.facing)
	}
}

// Classification must not flip under estimator jitter well below the margin
// scale. Margins are calibration targets, so this asserts stability rather
// than exact threshold behavior.
func TestClassifyStableUnderPerturbation(t *testing.T) {
	t.Parallel()

	rng := randutil.New(42)
	cfg := DefaultClassifierConfig()

	base := []Landmarks{
		OpenHand(Point{X: 0.5, Y: 0.5}, RightHand, FacingPalm),
		FistHand(Point{X: 0.5, Y: 0.5}, RightHand, FacingPalm),
		CountHand(Point{X: 0.5, Y: 0.5}, LeftHand, 3),
	}

	for _, lm := range base {
		want, err := Classify(lm, cfg)
		require.NoError(t, err)

		for trial := 0; trial < 50; trial++ {
			jittered := Landmarks{
				Points:     make([]Point, NumLandmarks),
				Handedness: lm.Handedness,
				Score:      lm.Score,
			}
			for i, p := range lm.Points {
				jittered.Points[i] = Point{
					X: p.X + (rng.Float64()-0.5)*0.006,
					Y: p.Y + (rng.Float64()-0.5)*0.006,
					Z: p.Z,
				}
			}

			got, err := Classify(jittered, cfg)
			require.NoError(t, err)
			assert.Equal(t, want.FingerCount, got.FingerCount)
			assert.Equal(t, want.IsFist, got.IsFist)
			assert.Equal(t, want.Facing, got.Facing)
		}
	}
}
