package tui

import (
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcrae/palmdraw/internal/engine"
	"github.com/jmcrae/palmdraw/internal/game"
	"github.com/jmcrae/palmdraw/internal/pose"
)

type stubProvider struct {
	snapshot engine.Snapshot
	started  int
	resets   int
}

func (s *stubProvider) Snapshot() engine.Snapshot { return s.snapshot }
func (s *stubProvider) StartRound()               { s.started++ }
func (s *stubProvider) ResetRound()               { s.resets++ }

func newTestModel(snapshot engine.Snapshot) (*Model, *stubProvider) {
	provider := &stubProvider{snapshot: snapshot}
	m := New(provider, log.New(io.Discard))
	m.width = 100
	m.height = 30
	m.snapshot = snapshot
	return m, provider
}

func TestViewShowsPhaseAndHands(t *testing.T) {
	m, _ := newTestModel(engine.Snapshot{
		Phase: game.PhaseDetectParticipants,
		Hands: []engine.HandView{
			{TrackID: 1, Pose: pose.HandPose{Handedness: pose.LeftHand, Facing: pose.FacingPalm, FingerCount: 5}},
			{TrackID: 2, Pose: pose.HandPose{Handedness: pose.RightHand, IsFist: true}},
		},
		ParticipantCount: 2,
		TimerElapsed:     time.Second,
		TimerMax:         3 * time.Second,
	})

	out := m.View()
	assert.Contains(t, out, "DETECT PARTICIPANTS")
	assert.Contains(t, out, "#1 left")
	assert.Contains(t, out, "#2 right")
	assert.Contains(t, out, "fist")
	assert.Contains(t, out, "5 finger(s)")
	assert.Contains(t, out, "participants 2")
}

func TestViewHighlightsWinnerAndCapture(t *testing.T) {
	snap := engine.Snapshot{
		Phase: game.PhaseShowWinner,
		Hands: []engine.HandView{
			{TrackID: 3, Pose: pose.HandPose{Handedness: pose.LeftHand, FingerCount: 5}},
			{TrackID: 4, Pose: pose.HandPose{Handedness: pose.RightHand, FingerCount: 5}},
		},
		Winners:     []int64{4},
		WinnerCount: 1,
	}
	m, _ := newTestModel(snap)

	out := m.View()
	assert.Contains(t, out, "★ winner")
	assert.NotContains(t, out, "★ captured")

	m.handleEvent(game.CaptureRequestEvent{TrackID: 4})
	out = m.View()
	assert.Contains(t, out, "★ captured")
	assert.Contains(t, out, "captured hand #4")
}

func TestRoundResetClearsCaptureMarks(t *testing.T) {
	m, _ := newTestModel(engine.Snapshot{Phase: game.PhaseShowWinner})
	m.handleEvent(game.CaptureRequestEvent{TrackID: 9})
	require.True(t, m.captured[9])

	m.handleEvent(game.RoundResetEvent{})
	assert.Empty(t, m.captured)
}

func TestKeysDriveProvider(t *testing.T) {
	m, provider := newTestModel(engine.Snapshot{})

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	assert.Equal(t, 1, provider.started)

	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.Equal(t, 1, provider.resets)

	_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.True(t, m.quitting)
	assert.Empty(t, m.View())
}

func TestFrameMsgRefreshesSnapshot(t *testing.T) {
	m, provider := newTestModel(engine.Snapshot{Phase: game.PhaseIdle})
	provider.snapshot = engine.Snapshot{Phase: game.PhaseDrawing}

	_, cmd := m.Update(frameMsg(time.Now()))
	require.NotNil(t, cmd)
	assert.Equal(t, game.PhaseDrawing, m.snapshot.Phase)
}

func TestHistoryIsBounded(t *testing.T) {
	m, _ := newTestModel(engine.Snapshot{})
	for i := 0; i < 20; i++ {
		m.addHistory("line")
	}
	assert.Len(t, m.history, historyLines)
}
