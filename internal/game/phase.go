// Package game owns the randomized-selection round: its phases, hold timers,
// the winner draw, and capture gating.
package game

// Phase is one stage of a selection round. Transitions follow a strict
// linear order; no phase is ever skipped.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSetup
	PhaseDetectParticipants
	PhaseWaitFistsReady
	PhaseSetWinnerCount
	PhaseWaitFistsPreDraw
	PhaseDrawing
	PhaseShowWinner
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSetup:
		return "setup"
	case PhaseDetectParticipants:
		return "detect_participants"
	case PhaseWaitFistsReady:
		return "wait_fists_ready"
	case PhaseSetWinnerCount:
		return "set_winner_count"
	case PhaseWaitFistsPreDraw:
		return "wait_fists_pre_draw"
	case PhaseDrawing:
		return "drawing"
	case PhaseShowWinner:
		return "show_winner"
	default:
		return "unknown"
	}
}
