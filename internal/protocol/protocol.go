package protocol

import (
	"encoding/json"
	"fmt"
	"time"
)

// Client -> server message types.
const (
	TypeCreateRoom      = "CREATE_ROOM"
	TypeJoinRoom        = "JOIN_ROOM"
	TypeLeaveRoom       = "LEAVE_ROOM"
	TypeListRooms       = "LIST_ROOMS"
	TypeSpectateRoom    = "SPECTATE_ROOM"
	TypeReady           = "READY"
	TypePlaceStone      = "PLACE_STONE"
	TypeSurrender       = "SURRENDER"
	TypeChatMessage     = "CHAT_MESSAGE"
	TypeSpectatorChat   = "SPECTATOR_CHAT"
	TypeRematch         = "REMATCH"
	TypeRematchResponse = "REMATCH_RESPONSE"
	TypeReconnect       = "RECONNECT"
)

// Server -> client message types.
const (
	TypeSuccess            = "SUCCESS"
	TypeError              = "ERROR"
	TypeRoomList           = "ROOM_LIST"
	TypeRoomUpdate         = "ROOM_UPDATE"
	TypeUserJoined         = "USER_JOINED"
	TypeUserLeft           = "USER_LEFT"
	TypeReadyStatus        = "READY_STATUS"
	TypeGameStart          = "GAME_START"
	TypeBoardUpdate        = "BOARD_UPDATE"
	TypeTurnChange         = "TURN_CHANGE"
	TypeGameEnd            = "GAME_END"
	TypeTimerUpdate        = "TIMER_UPDATE"
	TypeTimeUp             = "TIME_UP"
	TypePlayerDisconnected = "PLAYER_DISCONNECTED"
	TypePlayerReconnected  = "PLAYER_RECONNECTED"
	TypeGamePaused         = "GAME_PAUSED"
	TypeGameResumed        = "GAME_RESUMED"
	TypeForfeit            = "FORFEIT"
	TypeRematchDeclined    = "REMATCH_DECLINED"
)

// Envelope is the wire frame shared by every message in both
// directions: a type tag, a type-specific payload and a timestamp.
type Envelope struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

// NewEnvelope marshals data into an outbound envelope. A nil payload
// becomes an empty object so clients never see "data": null.
func NewEnvelope(msgType string, data any) Envelope {
	raw := json.RawMessage("{}")
	if data != nil {
		if b, err := json.Marshal(data); err == nil {
			raw = b
		}
	}
	return Envelope{
		Type:      msgType,
		Data:      raw,
		Timestamp: time.Now().Format(time.RFC3339),
	}
}

// ParseEnvelope decodes one inbound frame.
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if env.Type == "" {
		return Envelope{}, fmt.Errorf("envelope missing type")
	}
	return env, nil
}

// decode unmarshals an envelope payload into a typed struct. Missing
// data is treated as an empty object so optional payloads stay valid.
func decode[T any](env Envelope) (T, error) {
	var v T
	data := env.Data
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return v, nil
}
