// Package tui renders the selection round on the terminal with Bubble Tea.
// The model is a pure reader: it polls the engine's snapshot on a render
// ticker and never mutates pipeline state except through StartRound and
// ResetRound.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"

	"github.com/jmcrae/palmdraw/internal/engine"
	"github.com/jmcrae/palmdraw/internal/game"
	"github.com/jmcrae/palmdraw/internal/pose"
)

const renderInterval = 100 * time.Millisecond

// Provider is the slice of the engine the TUI needs.
type Provider interface {
	Snapshot() engine.Snapshot
	StartRound()
	ResetRound()
}

// frameMsg asks the model to re-read the snapshot.
type frameMsg time.Time

// EventMsg wraps a round event forwarded onto the Bubble Tea loop.
type EventMsg struct {
	Event game.Event
}

// Model is the Bubble Tea model for the selection round display.
type Model struct {
	provider Provider
	logger   *log.Logger

	timerBar progress.Model
	drawSpin spinner.Model

	snapshot engine.Snapshot
	captured map[int64]bool
	history  []string

	width    int
	height   int
	quitting bool
}

// New creates a model reading from provider.
func New(provider Provider, logger *log.Logger) *Model {
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = WinnerStyle

	return &Model{
		provider: provider,
		logger:   logger.WithPrefix("tui"),
		timerBar: bar,
		drawSpin: sp,
		captured: make(map[int64]bool),
	}
}

// Init starts the render ticker and the draw spinner.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.tickRender(), m.drawSpin.Tick)
}

func (m *Model) tickRender() tea.Cmd {
	return tea.Tick(renderInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

// Update handles messages in the TUI.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		m.snapshot = m.provider.Snapshot()
		return m, m.tickRender()

	case EventMsg:
		m.handleEvent(msg.Event)
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.timerBar.Width = min(msg.Width-6, 48)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.quitting = true
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "s":
			m.provider.StartRound()
		case "r":
			m.provider.ResetRound()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.drawSpin, cmd = m.drawSpin.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleEvent folds a round event into display state.
func (m *Model) handleEvent(ev game.Event) {
	switch ev := ev.(type) {
	case game.PhaseChangeEvent:
		m.addHistory(fmt.Sprintf("phase %s", ev.To))
	case game.WinnersDrawnEvent:
		m.addHistory(fmt.Sprintf("drew %d winner(s) from %d hands", len(ev.TrackIDs), ev.PoolSize))
	case game.CaptureRequestEvent:
		m.captured[ev.TrackID] = true
		m.addHistory(fmt.Sprintf("captured hand #%d", ev.TrackID))
	case game.RoundResetEvent:
		m.captured = make(map[int64]bool)
		m.addHistory("round reset")
	case game.GestureConfirmEvent:
		m.addHistory("confirm gesture accepted")
	}
}

const historyLines = 5

func (m *Model) addHistory(line string) {
	m.history = append(m.history, line)
	if len(m.history) > historyLines {
		m.history = m.history[len(m.history)-historyLines:]
	}
}

// View renders the TUI.
func (m *Model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "Loading..."
	}

	s := m.snapshot
	sections := []string{m.renderBanner(s), m.renderStatus(s)}
	if strip := m.renderHands(s); strip != "" {
		sections = append(sections, strip)
	}
	if s.Message != "" {
		sections = append(sections, MessageStyle.Render(s.Message))
	}
	if len(m.history) > 0 {
		sections = append(sections, InfoStyle.Render(strings.Join(m.history, "\n")))
	}
	sections = append(sections, InfoStyle.Render("s start • r reset • q quit"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) renderBanner(s engine.Snapshot) string {
	label := strings.ToUpper(strings.ReplaceAll(s.Phase.String(), "_", " "))
	if s.Phase == game.PhaseDrawing {
		label = label + " " + m.drawSpin.View()
	}
	return BannerStyle.Render(label)
}

// renderStatus shows the hold-timer bar while a phase is waiting on a held
// condition, and the round counters otherwise.
func (m *Model) renderStatus(s engine.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "hands %d", len(s.Hands))
	if s.ParticipantCount > 0 {
		fmt.Fprintf(&b, " • participants %d", s.ParticipantCount)
	}
	if s.WinnerCount > 0 {
		fmt.Fprintf(&b, " • winners %d", s.WinnerCount)
	}
	line := b.String()

	if s.TimerMax > 0 {
		frac := float64(s.TimerElapsed) / float64(s.TimerMax)
		if frac > 1 {
			frac = 1
		}
		return line + "\n" + m.timerBar.ViewAs(frac)
	}
	return line
}

// renderHands draws one card per active hand, left to right.
func (m *Model) renderHands(s engine.Snapshot) string {
	if len(s.Hands) == 0 {
		return ""
	}

	winners := make(map[int64]bool, len(s.Winners))
	for _, id := range s.Winners {
		winners[id] = true
	}

	cards := make([]string, 0, len(s.Hands))
	for _, h := range s.Hands {
		cards = append(cards, m.renderHandCard(h, winners[h.TrackID]))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cards...)
}

func (m *Model) renderHandCard(h engine.HandView, winner bool) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#%d %s\n", h.TrackID, strings.ToLower(string(h.Pose.Handedness)))

	if h.Pose.IsFist {
		b.WriteString(FistStyle.Render("fist"))
	} else {
		b.WriteString(OpenStyle.Render(fmt.Sprintf("%d finger(s)", h.Pose.FingerCount)))
	}
	b.WriteString("\n")

	facing := "palm"
	if h.Pose.Facing == pose.FacingBack {
		facing = "back"
	}
	b.WriteString(facing)
	if h.GestureStep > 0 {
		fmt.Fprintf(&b, " %s", strings.Repeat("●", h.GestureStep))
	}

	if winner {
		b.WriteString("\n")
		if m.captured[h.TrackID] {
			b.WriteString(CapturedStyle.Render("★ captured"))
		} else {
			b.WriteString(WinnerStyle.Render("★ winner"))
		}
		return WinnerCardStyle.Render(b.String())
	}
	return HandCardStyle.Render(b.String())
}

// Forwarder bridges bus events onto a running Bubble Tea program. It is
// registered as a bus subscriber and is safe to call from the engine
// goroutine.
type Forwarder struct {
	program *tea.Program
}

// NewForwarder wraps program.
func NewForwarder(program *tea.Program) *Forwarder {
	return &Forwarder{program: program}
}

// HandleEvent implements game.Subscriber.
func (f *Forwarder) HandleEvent(ev game.Event) {
	f.program.Send(EventMsg{Event: ev})
}
