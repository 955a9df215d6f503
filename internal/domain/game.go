package domain

import "time"

// Game is one playthrough's mutable state: board, turn, outcome,
// ready flags and rematch votes. It is pure state with no locking;
// the owning room serializes all access.
type Game struct {
	Board       *Board
	CurrentTurn Color
	Phase       GamePhase
	Outcome     Outcome
	LastX       int
	LastY       int

	ready   map[Color]bool
	rematch map[Color]RematchVote

	StartedAt  time.Time
	FinishedAt time.Time
}

// NewGame creates a game waiting for both players to ready up.
// Black always moves first.
func NewGame() *Game {
	return &Game{
		Board:       NewBoard(),
		CurrentTurn: Black,
		Phase:       PhaseReadyPending,
		LastX:       -1,
		LastY:       -1,
		ready:       make(map[Color]bool),
		rematch:     make(map[Color]RematchVote),
	}
}

func (g *Game) Finished() bool {
	return g.Phase == PhaseFinished || g.Phase == PhaseRematch || g.Phase == PhaseClosed
}

func (g *Game) InProgress() bool {
	return g.Phase == PhaseInProgress
}

// SetReady toggles nothing; it records the given ready state for a color
// and reports whether both players are now ready.
func (g *Game) SetReady(color Color, ready bool) bool {
	if g.Phase != PhaseReadyPending {
		return false
	}
	g.ready[color] = ready
	return g.ready[Black] && g.ready[White]
}

func (g *Game) Ready(color Color) bool {
	return g.ready[color]
}

// Start moves the game from ReadyPending to InProgress.
func (g *Game) Start() error {
	if g.Phase != PhaseReadyPending {
		return ErrGameFinished
	}
	g.Phase = PhaseInProgress
	g.StartedAt = time.Now()
	return nil
}

// StartImmediately is the rematch entry point: ready flags are
// implicitly satisfied, no second ready step.
func (g *Game) StartImmediately() {
	g.ready[Black] = true
	g.ready[White] = true
	g.Phase = PhaseInProgress
	g.StartedAt = time.Now()
}

// PlaceStone applies a move for player. On success it reports whether
// the move won the game or filled the board (draw); otherwise the turn
// flips to the opponent.
func (g *Game) PlaceStone(x, y int, player Color) (won bool, err error) {
	if g.Phase != PhaseInProgress {
		return false, ErrNotPlaying
	}
	if err := ValidateMove(g.Board, x, y, g.CurrentTurn, player); err != nil {
		return false, err
	}
	if err := g.Board.Place(x, y, player); err != nil {
		// validated above; reaching here means a corrupted board
		return false, err
	}
	g.LastX, g.LastY = x, y

	if CheckWin(g.Board, x, y, player) {
		g.finish(Outcome{Kind: OutcomeWin, Winner: player})
		return true, nil
	}
	if g.Board.Full() {
		g.finish(Outcome{Kind: OutcomeDraw})
		return false, nil
	}
	g.CurrentTurn = g.CurrentTurn.Opponent()
	return false, nil
}

// ForceTurnChange flips the turn without placing a stone (turn timeout).
func (g *Game) ForceTurnChange() error {
	if g.Phase != PhaseInProgress {
		return ErrNotPlaying
	}
	g.CurrentTurn = g.CurrentTurn.Opponent()
	return nil
}

// Surrender ends the game immediately in the opponent's favor. Valid
// from Paused as well, so a player can concede while the opponent is
// disconnected.
func (g *Game) Surrender(player Color) error {
	if g.Phase != PhaseInProgress && g.Phase != PhasePaused {
		return ErrNotPlaying
	}
	g.finish(Outcome{Kind: OutcomeSurrender, Winner: player.Opponent()})
	return nil
}

// Forfeit awards the win to the opponent of a player whose reconnection
// window expired. Valid from Paused as well as InProgress.
func (g *Game) Forfeit(player Color) error {
	if g.Phase != PhaseInProgress && g.Phase != PhasePaused {
		return ErrNotPlaying
	}
	g.finish(Outcome{Kind: OutcomeForfeit, Winner: player.Opponent()})
	return nil
}

// Pause suspends an in-progress game (player disconnect).
func (g *Game) Pause() error {
	if g.Phase != PhaseInProgress {
		return ErrNotPlaying
	}
	g.Phase = PhasePaused
	return nil
}

// Resume returns a paused game to play.
func (g *Game) Resume() error {
	if g.Phase != PhasePaused {
		return ErrNotPlaying
	}
	g.Phase = PhaseInProgress
	return nil
}

func (g *Game) finish(o Outcome) {
	if g.Outcome.Kind != OutcomeNone {
		return // outcome is terminal, never overwritten
	}
	g.Outcome = o
	g.Phase = PhaseFinished
	g.FinishedAt = time.Now()
}

// RequestRematch records a rematch request from a finished game's
// player and moves the game to RematchPending. The requester's vote is
// accepted; the opponent's starts pending.
func (g *Game) RequestRematch(player Color) error {
	if g.Phase != PhaseFinished && g.Phase != PhaseRematch {
		return ErrGameFinished
	}
	g.Phase = PhaseRematch
	g.rematch[player] = VoteAccepted
	if _, ok := g.rematch[player.Opponent()]; !ok {
		g.rematch[player.Opponent()] = VotePending
	}
	return nil
}

// RespondRematch records the opponent's answer. It reports whether both
// players have now accepted.
func (g *Game) RespondRematch(player Color, accepted bool) (agreed bool, err error) {
	if g.Phase != PhaseRematch {
		return false, ErrGameFinished
	}
	if accepted {
		g.rematch[player] = VoteAccepted
	} else {
		g.rematch[player] = VoteDeclined
	}
	return g.rematch[Black] == VoteAccepted && g.rematch[White] == VoteAccepted, nil
}

// RematchVoteOf returns a player's current rematch vote.
func (g *Game) RematchVoteOf(player Color) RematchVote {
	v, ok := g.rematch[player]
	if !ok {
		return VotePending
	}
	return v
}

// Close ends rematch negotiation (decline or timeout). The game stays
// finished; the room clears it afterwards.
func (g *Game) Close() {
	g.Phase = PhaseClosed
}
