package protocol

import "github.com/ohmok/gomoku-server/internal/domain"

// Error reply codes: protocol (malformed frame), validation (bad
// payload), state (operation not allowed right now), internal.
const (
	CodeProtocolError   = "protocol_error"
	CodeValidationError = "validation_error"
	CodeStateError      = "state_error"
	CodeInternalError   = "internal_error"
)

type SuccessPayload struct {
	Message       string           `json:"message"`
	RoomID        string           `json:"room_id,omitempty"`
	YourColor     domain.Color     `json:"your_color,omitempty"`
	Role          string           `json:"role,omitempty"`
	Board         [][]domain.Color `json:"board,omitempty"`
	CurrentTurn   domain.Color     `json:"current_turn,omitempty"`
	GameStatus    string           `json:"game_status,omitempty"`
	RemainingTime int              `json:"remaining_time,omitempty"`
}

type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RoomSummary is one row of a ROOM_LIST reply and of GET /api/rooms.
type RoomSummary struct {
	RoomID         string   `json:"room_id"`
	Status         string   `json:"status"`
	PlayerCount    int      `json:"player_count"`
	SpectatorCount int      `json:"spectator_count"`
	Players        []string `json:"players"`
}

type RoomListPayload struct {
	Rooms []RoomSummary `json:"rooms"`
}

type RoomUpdatePayload struct {
	Status  string           `json:"status"`
	Message string           `json:"message,omitempty"`
	Board   [][]domain.Color `json:"board,omitempty"`
}

type UserJoinedPayload struct {
	UserName string       `json:"user_name"`
	Role     string       `json:"role"`
	Color    domain.Color `json:"color,omitempty"`
}

type UserLeftPayload struct {
	UserName string `json:"user_name"`
	Role     string `json:"role"`
}

type ReadyStatusPayload struct {
	ReadyStatus map[string]bool `json:"ready_status"`
}

type GamePlayer struct {
	Name  string       `json:"name"`
	Color domain.Color `json:"color"`
}

type GameStartPayload struct {
	CurrentTurn domain.Color     `json:"current_turn"`
	Players     []GamePlayer     `json:"players"`
	Board       [][]domain.Color `json:"board,omitempty"`
}

// BoardUpdatePayload carries the placed stone plus a full snapshot.
// A rematch reset is signalled with X = Y = -1 and an empty color.
type BoardUpdatePayload struct {
	X     int              `json:"x"`
	Y     int              `json:"y"`
	Color domain.Color     `json:"color"`
	Board [][]domain.Color `json:"board"`
}

type TurnChangePayload struct {
	CurrentTurn domain.Color `json:"current_turn"`
}

type GameEndPayload struct {
	Winner     domain.Color `json:"winner"`
	WinnerName string       `json:"winner_name,omitempty"`
	Reason     string       `json:"reason,omitempty"`
}

type TimerUpdatePayload struct {
	RemainingTime int `json:"remaining_time"`
}

type TimeUpPayload struct {
	Player domain.Color `json:"player"`
}

type PlayerConnPayload struct {
	PlayerName string `json:"player_name"`
}

type GamePausedPayload struct {
	Reason string `json:"reason"`
}

type ForfeitPayload struct {
	Winner     domain.Color `json:"winner"`
	WinnerName string       `json:"winner_name"`
	PlayerName string       `json:"player_name"`
	Reason     string       `json:"reason"`
}

// RematchRequestPayload relays a rematch request to the opponent.
type RematchRequestPayload struct {
	RequestingPlayer string `json:"requesting_player"`
	Message          string `json:"message"`
	Timeout          int    `json:"timeout"`
}

type RematchDeclinedPayload struct {
	DeclinedBy string `json:"declined_by,omitempty"`
	Message    string `json:"message"`
}

type ChatBroadcastPayload struct {
	Sender  string `json:"sender"`
	Role    string `json:"role,omitempty"`
	Message string `json:"message"`
}

// Success builds a bare SUCCESS ack.
func Success(message string) Envelope {
	return NewEnvelope(TypeSuccess, SuccessPayload{Message: message})
}

// Errorf builds an ERROR reply in the given taxonomy bucket.
func Errorf(code, message string) Envelope {
	return NewEnvelope(TypeError, ErrorPayload{Code: code, Message: message})
}
