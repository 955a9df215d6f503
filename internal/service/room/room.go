package room

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ohmok/gomoku-server/internal/domain"
	"github.com/ohmok/gomoku-server/internal/protocol"
)

// Room status values derive deterministically from player count, ready
// flags and game phase; they are never stored independently.
const (
	StatusWaiting      = "waiting_for_player"
	StatusReadyPending = "ready_pending"
	StatusInProgress   = "in_progress"
	StatusPaused       = "paused"
	StatusFinished     = "finished"
)

// Sender pushes an envelope to one connection. The websocket
// ConnectionManager implements it; sends must be safe to call
// concurrently and must never be invoked under a room lock.
type Sender interface {
	Send(connID string, env protocol.Envelope)
}

// delivery is one queued outbound event, flushed after the room lock
// is released so a slow socket never stalls the room.
type delivery struct {
	connID string
	env    protocol.Envelope
}

// Settings carries the time limits a room operates under.
type Settings struct {
	TurnTime        time.Duration
	ReconnectWindow time.Duration
	RematchWindow   time.Duration
}

// GameRecord is what gets archived when a game finishes.
type GameRecord struct {
	RoomID     string
	BlackName  string
	WhiteName  string
	Winner     domain.Color
	WinnerName string
	Reason     string
	MoveCount  int
	Duration   time.Duration
	FinishedAt time.Time
	Board      [][]domain.Color
}

// GameArchiver persists finished games. A nil archiver disables
// archiving entirely.
type GameArchiver interface {
	SaveGame(ctx context.Context, rec GameRecord) error
}

// Room owns up to two player sessions, a set of spectators and at most
// one active game. All mutations are serialized through a single
// non-reentrant mutex; internal helpers with the Locked suffix assume
// the caller holds it.
type Room struct {
	ID string

	mu         sync.Mutex
	players    []*Session // slot A first (black on first game)
	spectators map[string]*Session
	game       *domain.Game
	timer      *TurnTimer
	settings   Settings
	sender     Sender
	archive    GameArchiver

	playerChat    domain.ChatLog
	spectatorChat domain.ChatLog

	pausedRemaining time.Duration
	rematchTimer    *time.Timer
	closed          bool
}

func NewRoom(id string, settings Settings, sender Sender, archive GameArchiver) *Room {
	r := &Room{
		ID:         id,
		spectators: make(map[string]*Session),
		settings:   settings,
		sender:     sender,
		archive:    archive,
	}
	r.timer = NewTurnTimer(settings.TurnTime, r.handleTurnTimeout, r.handleTimerTick)
	return r
}

func (r *Room) statusLocked() string {
	if len(r.players) < 2 {
		return StatusWaiting
	}
	if r.game == nil {
		return StatusReadyPending
	}
	switch r.game.Phase {
	case domain.PhaseReadyPending:
		return StatusReadyPending
	case domain.PhaseInProgress:
		return StatusInProgress
	case domain.PhasePaused:
		return StatusPaused
	default:
		return StatusFinished
	}
}

// ensureGameLocked creates a fresh ready-pending game once both player
// slots are filled.
func (r *Room) ensureGameLocked() {
	if r.game == nil && len(r.players) == 2 {
		r.game = domain.NewGame()
	}
}

func (r *Room) deliver(outs []delivery) {
	for _, d := range outs {
		r.sender.Send(d.connID, d.env)
	}
}

// broadcastAllLocked queues an envelope for every connected participant.
func (r *Room) broadcastAllLocked(outs []delivery, env protocol.Envelope) []delivery {
	for _, p := range r.players {
		if p.connected() {
			outs = append(outs, delivery{p.ConnID, env})
		}
	}
	for _, s := range r.spectators {
		if s.connected() {
			outs = append(outs, delivery{s.ConnID, env})
		}
	}
	return outs
}

func (r *Room) broadcastSpectatorsLocked(outs []delivery, env protocol.Envelope) []delivery {
	for _, s := range r.spectators {
		if s.connected() {
			outs = append(outs, delivery{s.ConnID, env})
		}
	}
	return outs
}

func (r *Room) findSessionLocked(sessionID string) *Session {
	for _, p := range r.players {
		if p.ID == sessionID {
			return p
		}
	}
	return r.spectators[sessionID]
}

func (r *Room) playerByNameLocked(nickname string) *Session {
	for _, p := range r.players {
		if p.Nickname == nickname {
			return p
		}
	}
	return nil
}

func (r *Room) playerByColorLocked(color domain.Color) *Session {
	for _, p := range r.players {
		if p.Color == color {
			return p
		}
	}
	return nil
}

// AddPlayer joins a player into a free slot. The first player plays
// black, the second white.
func (r *Room) AddPlayer(connID, nickname string) (*Session, protocol.Envelope) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, protocol.Errorf(protocol.CodeStateError, "room is closed")
	}
	if len(r.players) >= 2 {
		r.mu.Unlock()
		return nil, protocol.Errorf(protocol.CodeStateError, "room is full")
	}
	if r.playerByNameLocked(nickname) != nil {
		r.mu.Unlock()
		return nil, protocol.Errorf(protocol.CodeStateError, "nickname already taken in this room")
	}

	sess := newSession(nickname, RolePlayer, connID)
	if len(r.players) == 0 {
		sess.Color = domain.Black
	} else {
		sess.Color = domain.White
	}
	r.players = append(r.players, sess)
	r.ensureGameLocked()

	reply := protocol.NewEnvelope(protocol.TypeSuccess, protocol.SuccessPayload{
		Message:     "joined room",
		RoomID:      r.ID,
		YourColor:   sess.Color,
		Role:        string(RolePlayer),
		Board:       r.boardSnapshotLocked(),
		CurrentTurn: r.currentTurnLocked(),
	})

	var outs []delivery
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeUserJoined, protocol.UserJoinedPayload{
		UserName: nickname,
		Role:     string(RolePlayer),
		Color:    sess.Color,
	}))
	if len(r.players) == 2 {
		outs = r.broadcastAllLocked(outs, r.readyStatusEnvelopeLocked())
	}
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[ROOM] %s joined room %s as %s", nickname, r.ID, sess.Color)
	return sess, reply
}

// AddSpectator joins a spectator and replays both visible chat channels
// plus the current board to the new connection.
func (r *Room) AddSpectator(connID, nickname string) (*Session, protocol.Envelope) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, protocol.Errorf(protocol.CodeStateError, "room is closed")
	}

	sess := newSession(nickname, RoleSpectator, connID)
	r.spectators[sess.ID] = sess

	reply := protocol.NewEnvelope(protocol.TypeSuccess, protocol.SuccessPayload{
		Message:     "spectating room",
		RoomID:      r.ID,
		Role:        string(RoleSpectator),
		Board:       r.boardSnapshotLocked(),
		CurrentTurn: r.currentTurnLocked(),
		GameStatus:  r.statusLocked(),
	})

	var outs []delivery
	outs = r.chatReplayLocked(outs, connID, true)
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeUserJoined, protocol.UserJoinedPayload{
		UserName: nickname,
		Role:     string(RoleSpectator),
	}))
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[ROOM] %s spectating room %s", nickname, r.ID)
	return sess, reply
}

// CanReconnect reports whether nickname belongs to a disconnected
// player in this room whose window has not expired.
func (r *Room) CanReconnect(nickname string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.playerByNameLocked(nickname)
	return p != nil && p.Liveness == LivenessDisconnected
}

// Reconnect resumes a disconnected player's session on a new
// connection. The full board, turn, remaining timer seconds, and player
// chat history are pushed back to the reconnecting client.
func (r *Room) Reconnect(connID, nickname string) (*Session, protocol.Envelope) {
	r.mu.Lock()
	sess := r.playerByNameLocked(nickname)
	if sess == nil || sess.Liveness == LivenessExpired {
		r.mu.Unlock()
		return nil, protocol.Errorf(protocol.CodeStateError, "no reconnectable session found or window expired")
	}
	if sess.Liveness != LivenessDisconnected {
		r.mu.Unlock()
		return nil, protocol.Errorf(protocol.CodeStateError, "player is already connected")
	}

	sess.reconnectWith(connID)

	var outs []delivery
	outs = r.chatReplayLocked(outs, connID, false)
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypePlayerReconnected, protocol.PlayerConnPayload{
		PlayerName: nickname,
	}))

	// resume only when every player is back
	var remainingSecs int
	if r.game != nil && r.game.Phase == domain.PhasePaused && r.allPlayersConnectedLocked() {
		if err := r.game.Resume(); err == nil {
			remaining := r.pausedRemaining
			remainingSecs = int(remaining.Round(time.Second) / time.Second)
			r.timer.Resume(remaining)
			outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeGameResumed, nil))
		}
	}

	// built after the resume decision so the status reflects it
	reply := protocol.NewEnvelope(protocol.TypeSuccess, protocol.SuccessPayload{
		Message:       "reconnected",
		RoomID:        r.ID,
		YourColor:     sess.Color,
		Role:          string(RolePlayer),
		Board:         r.boardSnapshotLocked(),
		CurrentTurn:   r.currentTurnLocked(),
		GameStatus:    r.statusLocked(),
		RemainingTime: remainingSecs,
	})
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[ROOM] %s reconnected to room %s", nickname, r.ID)
	return sess, reply
}

func (r *Room) allPlayersConnectedLocked() bool {
	for _, p := range r.players {
		if !p.connected() {
			return false
		}
	}
	return len(r.players) == 2
}

// Leave removes a participant voluntarily. A player leaving mid-game
// concedes; a player leaving during rematch negotiation declines it.
func (r *Room) Leave(sessionID string) protocol.Envelope {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "not in this room")
	}

	var outs []delivery
	if sess.Role == RolePlayer {
		outs = r.removePlayerLocked(outs, sess)
	} else {
		delete(r.spectators, sess.ID)
	}

	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeUserLeft, protocol.UserLeftPayload{
		UserName: sess.Nickname,
		Role:     string(sess.Role),
	}))
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[ROOM] %s (%s) left room %s", sess.Nickname, sess.Role, r.ID)
	return protocol.Success("left room")
}

// removePlayerLocked takes a player out of the room, settling any game
// the removal interrupts, and resets the room for the remaining player.
func (r *Room) removePlayerLocked(outs []delivery, sess *Session) []delivery {
	if r.game != nil {
		switch {
		case r.game.InProgress() || r.game.Phase == domain.PhasePaused:
			// leaving mid-game concedes
			if err := r.game.Surrender(sess.Color); err == nil {
				r.timer.Stop()
				outs = r.gameEndLocked(outs, sess.Nickname+" left the game")
			}
		case r.game.Phase == domain.PhaseRematch:
			outs = r.declineRematchLocked(outs, sess.Nickname)
		}
	}

	sess.cancelWindow()
	for i, p := range r.players {
		if p.ID == sess.ID {
			r.players = append(r.players[:i], r.players[i+1:]...)
			break
		}
	}

	// one player stays behind: clear the game and go back to waiting
	r.game = nil
	r.timer.Stop()
	r.pausedRemaining = 0
	if len(r.players) == 1 {
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeRoomUpdate, protocol.RoomUpdatePayload{
			Status:  StatusWaiting,
			Message: "waiting for another player to join",
			Board:   emptyBoardSnapshot(),
		}))
	}
	return outs
}

// Disconnect handles an abrupt socket loss for a participant. A player
// mid-game pauses the game and gets a reconnection window; anyone else
// is removed as if they had left.
func (r *Room) Disconnect(sessionID string) {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil {
		r.mu.Unlock()
		return
	}

	var outs []delivery
	midGame := sess.Role == RolePlayer && r.game != nil &&
		(r.game.InProgress() || r.game.Phase == domain.PhasePaused)

	if midGame {
		sid := sess.ID
		if !sess.markDisconnected(r.settings.ReconnectWindow, func(gen uint64) {
			r.handleWindowExpiry(sid, gen)
		}) {
			r.mu.Unlock()
			return // already disconnected, window stays armed
		}
		if r.game.InProgress() {
			if err := r.game.Pause(); err == nil {
				r.pausedRemaining = r.timer.Pause()
			}
		}
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypePlayerDisconnected, protocol.PlayerConnPayload{
			PlayerName: sess.Nickname,
		}))
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeGamePaused, protocol.GamePausedPayload{
			Reason: "player " + sess.Nickname + " disconnected, waiting for reconnection",
		}))
		log.Printf("[ROOM] %s disconnected from room %s, game paused", sess.Nickname, r.ID)
	} else if sess.Role == RolePlayer {
		outs = r.removePlayerLocked(outs, sess)
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeUserLeft, protocol.UserLeftPayload{
			UserName: sess.Nickname,
			Role:     string(sess.Role),
		}))
	} else {
		delete(r.spectators, sess.ID)
		outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeUserLeft, protocol.UserLeftPayload{
			UserName: sess.Nickname,
			Role:     string(sess.Role),
		}))
	}
	r.mu.Unlock()

	r.deliver(outs)
}

// handleWindowExpiry fires when a reconnection window runs out. It
// re-checks everything under the room lock: a reconnect that landed
// first bumped the window generation and this becomes a no-op.
func (r *Room) handleWindowExpiry(sessionID string, gen uint64) {
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if r.closed || sess == nil || sess.Liveness != LivenessDisconnected || sess.windowGen != gen {
		r.mu.Unlock()
		return
	}

	sess.expire()

	var outs []delivery
	if r.game != nil && (r.game.InProgress() || r.game.Phase == domain.PhasePaused) {
		if err := r.game.Forfeit(sess.Color); err == nil {
			r.timer.Stop()
			winner := r.game.Outcome.Winner
			winnerName := ""
			if w := r.playerByColorLocked(winner); w != nil {
				winnerName = w.Nickname
			}
			outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeForfeit, protocol.ForfeitPayload{
				Winner:     winner,
				WinnerName: winnerName,
				PlayerName: sess.Nickname,
				Reason:     "reconnection window expired",
			}))
			outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeGameEnd, protocol.GameEndPayload{
				Winner:     winner,
				WinnerName: winnerName,
				Reason:     sess.Nickname + " forfeited",
			}))
			r.archiveGameLocked(sess.Nickname + " forfeited")
		}
	}
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[ROOM] %s forfeited in room %s (window expired)", sess.Nickname, r.ID)
}

func (r *Room) boardSnapshotLocked() [][]domain.Color {
	if r.game == nil {
		return emptyBoardSnapshot()
	}
	return r.game.Board.Snapshot()
}

func (r *Room) currentTurnLocked() domain.Color {
	if r.game == nil {
		return domain.Black
	}
	return r.game.CurrentTurn
}

func emptyBoardSnapshot() [][]domain.Color {
	return domain.NewBoard().Snapshot()
}

// Summary renders the room for ROOM_LIST and GET /api/rooms. Only
// connected participants are counted.
func (r *Room) Summary() protocol.RoomSummary {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.players))
	connected := 0
	for _, p := range r.players {
		if p.connected() {
			connected++
			names = append(names, p.Nickname)
		}
	}
	spectators := 0
	for _, s := range r.spectators {
		if s.connected() {
			spectators++
		}
	}
	return protocol.RoomSummary{
		RoomID:         r.ID,
		Status:         r.statusLocked(),
		PlayerCount:    connected,
		SpectatorCount: spectators,
		Players:        names,
	}
}

// Empty reports whether the room can be reaped. A disconnected player
// whose reconnection window is still open keeps the room alive.
func (r *Room) Empty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		if p.connected() || p.Liveness == LivenessDisconnected {
			return false
		}
	}
	for _, s := range r.spectators {
		if s.connected() {
			return false
		}
	}
	return true
}

// Destroy cancels the timer and every reconnection window and releases
// all session records. The room accepts nothing afterwards.
func (r *Room) Destroy() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	r.closed = true
	r.timer.Stop()
	if r.rematchTimer != nil {
		r.rematchTimer.Stop()
		r.rematchTimer = nil
	}
	for _, p := range r.players {
		p.cancelWindow()
	}
	r.players = nil
	r.spectators = map[string]*Session{}
	r.game = nil
}
