package room

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/ohmok/gomoku-server/internal/domain"
	"github.com/ohmok/gomoku-server/internal/protocol"
)

// Ready toggles a player's ready flag. When both players are ready the
// game starts: black moves first and the turn timer is armed.
func (r *Room) Ready(sessionID string) protocol.Envelope {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil || sess.Role != RolePlayer {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only players can ready up")
	}
	if r.game == nil || r.game.Phase != domain.PhaseReadyPending {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "game is not waiting for ready")
	}

	allReady := r.game.SetReady(sess.Color, !r.game.Ready(sess.Color))

	var outs []delivery
	outs = r.broadcastAllLocked(outs, r.readyStatusEnvelopeLocked())

	if allReady {
		if err := r.game.Start(); err == nil {
			outs = r.broadcastAllLocked(outs, r.gameStartEnvelopeLocked(false))
			r.timer.Start()
			log.Printf("[ROOM] game started in room %s", r.ID)
		}
	}
	r.mu.Unlock()

	r.deliver(outs)
	return protocol.Success("ready state updated")
}

func (r *Room) readyStatusEnvelopeLocked() protocol.Envelope {
	status := make(map[string]bool, len(r.players))
	for _, p := range r.players {
		ready := false
		if r.game != nil {
			ready = r.game.Ready(p.Color)
		}
		status[p.Nickname] = ready
	}
	return protocol.NewEnvelope(protocol.TypeReadyStatus, protocol.ReadyStatusPayload{ReadyStatus: status})
}

func (r *Room) gameStartEnvelopeLocked(withBoard bool) protocol.Envelope {
	payload := protocol.GameStartPayload{
		CurrentTurn: r.game.CurrentTurn,
		Players:     make([]protocol.GamePlayer, 0, len(r.players)),
	}
	for _, p := range r.players {
		payload.Players = append(payload.Players, protocol.GamePlayer{Name: p.Nickname, Color: p.Color})
	}
	if withBoard {
		payload.Board = r.game.Board.Snapshot()
	}
	return protocol.NewEnvelope(protocol.TypeGameStart, payload)
}

// PlaceStone applies a player's move. On acceptance the stone is
// broadcast, the win/draw check runs, and either the game ends or the
// turn flips with a fresh timer.
func (r *Room) PlaceStone(sessionID string, x, y int) protocol.Envelope {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil || sess.Role != RolePlayer {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only players can place stones")
	}
	if r.game == nil || !r.game.InProgress() {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, string(domain.ErrNotPlaying))
	}

	won, err := r.game.PlaceStone(x, y, sess.Color)
	if err != nil {
		r.mu.Unlock()
		return moveError(err)
	}

	var outs []delivery
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeBoardUpdate, protocol.BoardUpdatePayload{
		X:     x,
		Y:     y,
		Color: sess.Color,
		Board: r.game.Board.Snapshot(),
	}))
	log.Printf("[ROOM] %s placed %s stone at (%d, %d) in room %s", sess.Nickname, sess.Color, x, y, r.ID)

	switch {
	case won:
		r.timer.Stop()
		outs = r.gameEndLocked(outs, "five in a row")
	case r.game.Finished():
		// board filled without a winner
		r.timer.Stop()
		outs = r.gameEndLocked(outs, "board full")
	default:
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeTurnChange, protocol.TurnChangePayload{
			CurrentTurn: r.game.CurrentTurn,
		}))
		r.timer.Reset()
	}
	r.mu.Unlock()

	r.deliver(outs)
	return protocol.Success("stone placed")
}

func moveError(err error) protocol.Envelope {
	var derr domain.Error
	if errors.As(err, &derr) {
		switch derr {
		case domain.ErrNotPlaying, domain.ErrGameFinished:
			return protocol.Errorf(protocol.CodeStateError, derr.Error())
		case domain.ErrOutOfBounds, domain.ErrCellOccupied, domain.ErrNotYourTurn:
			return protocol.Errorf(protocol.CodeValidationError, derr.Error())
		}
	}
	return protocol.Errorf(protocol.CodeInternalError, err.Error())
}

// Surrender concedes an in-progress game to the opponent.
func (r *Room) Surrender(sessionID string) protocol.Envelope {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil || sess.Role != RolePlayer {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only players can surrender")
	}
	if r.game == nil || !r.game.InProgress() {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "cannot surrender: not in an active game")
	}

	if err := r.game.Surrender(sess.Color); err != nil {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, err.Error())
	}
	r.timer.Stop()

	var outs []delivery
	outs = r.gameEndLocked(outs, sess.Nickname+" surrendered")
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[ROOM] %s surrendered in room %s", sess.Nickname, r.ID)
	return protocol.Success("surrendered")
}

// gameEndLocked broadcasts GAME_END for the already-finished game and
// archives it.
func (r *Room) gameEndLocked(outs []delivery, reason string) []delivery {
	winner := r.game.Outcome.Winner
	winnerName := ""
	if w := r.playerByColorLocked(winner); w != nil {
		winnerName = w.Nickname
	}
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeGameEnd, protocol.GameEndPayload{
		Winner:     winner,
		WinnerName: winnerName,
		Reason:     reason,
	}))
	r.archiveGameLocked(reason)
	return outs
}

// archiveGameLocked persists the finished game in the background so a
// slow database never blocks game-over delivery.
func (r *Room) archiveGameLocked(reason string) {
	if r.archive == nil || r.game == nil {
		return
	}
	rec := GameRecord{
		RoomID:     r.ID,
		Winner:     r.game.Outcome.Winner,
		Reason:     reason,
		MoveCount:  r.game.Board.MoveCount(),
		FinishedAt: r.game.FinishedAt,
		Board:      r.game.Board.Snapshot(),
	}
	if !r.game.StartedAt.IsZero() {
		rec.Duration = r.game.FinishedAt.Sub(r.game.StartedAt)
	}
	if b := r.playerByColorLocked(domain.Black); b != nil {
		rec.BlackName = b.Nickname
	}
	if w := r.playerByColorLocked(domain.White); w != nil {
		rec.WhiteName = w.Nickname
	}
	if s := r.playerByColorLocked(rec.Winner); s != nil {
		rec.WinnerName = s.Nickname
	}

	go func(rec GameRecord) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.archive.SaveGame(ctx, rec); err != nil {
			log.Printf("[GAME] error archiving game in room %s: %v", rec.RoomID, err)
		}
	}(rec)
}

// handleTurnTimeout fires when the move deadline passes. It re-checks
// game state under the room lock: a move that won the race already
// bumped the timer generation and the fire is stale.
func (r *Room) handleTurnTimeout(gen uint64) {
	r.mu.Lock()
	if r.closed || r.game == nil || !r.game.InProgress() || r.timer.Gen() != gen {
		r.mu.Unlock()
		return
	}

	expired := r.game.CurrentTurn
	if err := r.game.ForceTurnChange(); err != nil {
		r.mu.Unlock()
		return
	}

	var outs []delivery
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeTimeUp, protocol.TimeUpPayload{
		Player: expired,
	}))
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeTurnChange, protocol.TurnChangePayload{
		CurrentTurn: r.game.CurrentTurn,
	}))
	r.timer.Reset()
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[TIMER] turn timeout for %s in room %s", expired, r.ID)
}

// handleTimerTick pushes a display update. Ticks are best effort.
func (r *Room) handleTimerTick(remaining int) {
	r.mu.Lock()
	if r.closed || r.game == nil || !r.game.InProgress() {
		r.mu.Unlock()
		return
	}
	var outs []delivery
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeTimerUpdate, protocol.TimerUpdatePayload{
		RemainingTime: remaining,
	}))
	r.mu.Unlock()

	r.deliver(outs)
}

// Rematch asks the opponent of a finished game for another round and
// arms the response window.
func (r *Room) Rematch(sessionID string) protocol.Envelope {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil || sess.Role != RolePlayer {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only players can request a rematch")
	}
	if r.game == nil || (r.game.Phase != domain.PhaseFinished && r.game.Phase != domain.PhaseRematch) {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "cannot request rematch: game not finished")
	}
	if len(r.players) < 2 {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "opponent has left the room")
	}

	alreadyPending := r.game.Phase == domain.PhaseRematch
	if err := r.game.RequestRematch(sess.Color); err != nil {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, err.Error())
	}

	var outs []delivery
	if agreed := r.game.RematchVoteOf(sess.Color.Opponent()) == domain.VoteAccepted; agreed {
		outs = r.startRematchLocked(outs)
	} else if !alreadyPending {
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeRematch, protocol.RematchRequestPayload{
			RequestingPlayer: sess.Nickname,
			Message:          sess.Nickname + " wants a rematch",
			Timeout:          int(r.settings.RematchWindow / time.Second),
		}))
		r.armRematchWindowLocked()
	}
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[REMATCH] %s requested rematch in room %s", sess.Nickname, r.ID)
	return protocol.Success("rematch requested")
}

// RematchResponse settles a pending rematch request: both acceptances
// start a new game with colors swapped, any decline closes it.
func (r *Room) RematchResponse(sessionID string, accepted bool) protocol.Envelope {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil || sess.Role != RolePlayer {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only players can respond to a rematch")
	}
	if r.game == nil || r.game.Phase != domain.PhaseRematch {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "no pending rematch request")
	}

	agreed, err := r.game.RespondRematch(sess.Color, accepted)
	if err != nil {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, err.Error())
	}

	var outs []delivery
	if agreed {
		outs = r.startRematchLocked(outs)
	} else if !accepted {
		outs = r.declineRematchLocked(outs, sess.Nickname)
	}
	r.mu.Unlock()

	r.deliver(outs)
	return protocol.Success("rematch response recorded")
}

// armRematchWindowLocked bounds how long the opponent may sit on the
// request. The callback re-checks against the same game instance.
func (r *Room) armRematchWindowLocked() {
	if r.rematchTimer != nil {
		r.rematchTimer.Stop()
	}
	g := r.game
	r.rematchTimer = time.AfterFunc(r.settings.RematchWindow, func() {
		r.handleRematchTimeout(g)
	})
}

func (r *Room) handleRematchTimeout(g *domain.Game) {
	r.mu.Lock()
	if r.closed || r.game != g || g.Phase != domain.PhaseRematch {
		r.mu.Unlock()
		return
	}
	var outs []delivery
	outs = r.declineRematchLocked(outs, "")
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[REMATCH] request timed out in room %s", r.ID)
}

// declineRematchLocked broadcasts the decline and clears the finished
// game; the room reverts to its pre-game composition.
func (r *Room) declineRematchLocked(outs []delivery, declinedBy string) []delivery {
	message := "rematch request timed out"
	if declinedBy != "" {
		message = declinedBy + " declined the rematch request"
	}
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeRematchDeclined, protocol.RematchDeclinedPayload{
		DeclinedBy: declinedBy,
		Message:    message,
	}))
	if r.rematchTimer != nil {
		r.rematchTimer.Stop()
		r.rematchTimer = nil
	}
	r.game.Close()
	r.game = nil
	r.ensureGameLocked()
	return outs
}

// startRematchLocked replaces the finished game with a fresh one,
// swapping stone colors, and starts it immediately: no second ready
// step.
func (r *Room) startRematchLocked(outs []delivery) []delivery {
	if r.rematchTimer != nil {
		r.rematchTimer.Stop()
		r.rematchTimer = nil
	}
	for _, p := range r.players {
		p.Color = p.Color.Opponent()
	}
	r.game = domain.NewGame()
	r.game.StartImmediately()

	// board reset marker precedes the new GAME_START
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeBoardUpdate, protocol.BoardUpdatePayload{
		X:     -1,
		Y:     -1,
		Color: domain.Empty,
		Board: r.game.Board.Snapshot(),
	}))
	outs = r.broadcastAllLocked(outs, r.gameStartEnvelopeLocked(true))
	r.timer.Start()
	log.Printf("[REMATCH] rematch started in room %s, colors swapped", r.ID)
	return outs
}
