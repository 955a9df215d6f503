package domain

// Color identifies a stone color on the board.
type Color string

const (
	Empty Color = ""
	Black Color = "black"
	White Color = "white"
)

// Opponent returns the other player's color.
func (c Color) Opponent() Color {
	switch c {
	case Black:
		return White
	case White:
		return Black
	default:
		return Empty
	}
}

func (c Color) Valid() bool {
	return c == Black || c == White
}

const (
	BoardSize = 15
	ToWin     = 5
)

// GamePhase tracks where a game instance is in its lifecycle.
type GamePhase string

const (
	PhaseReadyPending GamePhase = "ready_pending"
	PhaseInProgress   GamePhase = "in_progress"
	PhasePaused       GamePhase = "paused"
	PhaseFinished     GamePhase = "finished"
	PhaseRematch      GamePhase = "rematch_pending"
	PhaseClosed       GamePhase = "closed"
)

// OutcomeKind says how a finished game ended.
type OutcomeKind string

const (
	OutcomeNone      OutcomeKind = ""
	OutcomeWin       OutcomeKind = "win"
	OutcomeDraw      OutcomeKind = "draw"
	OutcomeSurrender OutcomeKind = "surrender"
	OutcomeForfeit   OutcomeKind = "forfeit"
)

// Outcome is set at most once per game instance and is terminal.
type Outcome struct {
	Kind   OutcomeKind `json:"kind"`
	Winner Color       `json:"winner,omitempty"` // Empty on draw
}

// RematchVote is a player's answer to a rematch request.
type RematchVote string

const (
	VotePending  RematchVote = "pending"
	VoteAccepted RematchVote = "accepted"
	VoteDeclined RematchVote = "declined"
)

// Error is a sentinel rule-violation error.
type Error string

func (e Error) Error() string {
	return string(e)
}

const (
	ErrOutOfBounds  Error = "position out of bounds"
	ErrCellOccupied Error = "position already occupied"
	ErrNotYourTurn  Error = "not your turn"
	ErrNotPlaying   Error = "game is not in progress"
	ErrGameFinished Error = "game already finished"
)
