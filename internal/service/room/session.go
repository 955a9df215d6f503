package room

import (
	"time"

	"github.com/google/uuid"
	"github.com/ohmok/gomoku-server/internal/domain"
)

type Role string

const (
	RolePlayer    Role = "player"
	RoleSpectator Role = "spectator"
)

type Liveness string

const (
	LivenessConnected    Liveness = "connected"
	LivenessDisconnected Liveness = "disconnected"
	LivenessExpired      Liveness = "expired"
)

// Session binds a nickname to a connection within one room. Nicknames
// are case-sensitive and unique per room. The same nickname in another
// room is an unrelated session.
type Session struct {
	ID             string
	Nickname       string
	Role           Role
	Liveness       Liveness
	ConnID         string // opaque connection handle, "" while disconnected
	Color          domain.Color
	DisconnectedAt time.Time

	window    *time.Timer // reconnection window, players only
	windowGen uint64
}

func newSession(nickname string, role Role, connID string) *Session {
	return &Session{
		ID:       uuid.NewString(),
		Nickname: nickname,
		Role:     role,
		Liveness: LivenessConnected,
		ConnID:   connID,
	}
}

func (s *Session) connected() bool {
	return s.Liveness == LivenessConnected && s.ConnID != ""
}

// markDisconnected records the disconnect and arms the reconnection
// window. Disconnecting an already-disconnected session is a no-op:
// exactly one window exists per disconnected session.
func (s *Session) markDisconnected(window time.Duration, onExpire func(gen uint64)) bool {
	if s.Liveness != LivenessConnected {
		return false
	}
	s.Liveness = LivenessDisconnected
	s.ConnID = ""
	s.DisconnectedAt = time.Now()
	s.windowGen++
	gen := s.windowGen
	if onExpire != nil {
		s.window = time.AfterFunc(window, func() { onExpire(gen) })
	}
	return true
}

// reconnectWith cancels the window and attaches the new connection.
func (s *Session) reconnectWith(connID string) {
	s.cancelWindow()
	s.Liveness = LivenessConnected
	s.ConnID = connID
	s.DisconnectedAt = time.Time{}
}

// expire converts the disconnected session into an expired one.
func (s *Session) expire() {
	s.cancelWindow()
	s.Liveness = LivenessExpired
}

func (s *Session) cancelWindow() {
	if s.window != nil {
		s.window.Stop()
		s.window = nil
	}
	s.windowGen++
}
