package protocol

import "fmt"

// Typed client payloads. Each inbound envelope is decoded into one of
// these at the transport boundary before it reaches the core.

type CreateRoomPayload struct {
	PlayerName string `json:"player_name"`
}

type JoinRoomPayload struct {
	RoomID     string `json:"room_id"`
	PlayerName string `json:"player_name"`
}

type SpectateRoomPayload struct {
	RoomID        string `json:"room_id"`
	SpectatorName string `json:"spectator_name"`
}

type PlaceStonePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type ChatPayload struct {
	RoomID  string `json:"room_id"`
	Message string `json:"message"`
}

type RematchResponsePayload struct {
	Accepted bool `json:"accepted"`
}

type ReconnectPayload struct {
	PlayerName string `json:"player_name"`
}

// ClientMessage is the decoded form of an inbound envelope: the type
// tag plus exactly one populated payload.
type ClientMessage struct {
	Type            string
	CreateRoom      *CreateRoomPayload
	JoinRoom        *JoinRoomPayload
	SpectateRoom    *SpectateRoomPayload
	PlaceStone      *PlaceStonePayload
	Chat            *ChatPayload
	RematchResponse *RematchResponsePayload
	Reconnect       *ReconnectPayload
}

// ErrUnknownType marks envelopes whose type tag is not a client type.
type ErrUnknownType struct {
	Type string
}

func (e ErrUnknownType) Error() string {
	return fmt.Sprintf("unknown message type %q", e.Type)
}

// ParseClient validates an inbound envelope against the enumerated
// client message kinds and decodes its payload.
func ParseClient(env Envelope) (ClientMessage, error) {
	msg := ClientMessage{Type: env.Type}
	var err error

	switch env.Type {
	case TypeCreateRoom:
		var p CreateRoomPayload
		if p, err = decode[CreateRoomPayload](env); err == nil {
			if p.PlayerName == "" {
				return msg, fmt.Errorf("player_name is required")
			}
			msg.CreateRoom = &p
		}
	case TypeJoinRoom:
		var p JoinRoomPayload
		if p, err = decode[JoinRoomPayload](env); err == nil {
			if p.RoomID == "" || p.PlayerName == "" {
				return msg, fmt.Errorf("room_id and player_name are required")
			}
			msg.JoinRoom = &p
		}
	case TypeSpectateRoom:
		var p SpectateRoomPayload
		if p, err = decode[SpectateRoomPayload](env); err == nil {
			if p.RoomID == "" {
				return msg, fmt.Errorf("room_id is required")
			}
			if p.SpectatorName == "" {
				p.SpectatorName = "Spectator"
			}
			msg.SpectateRoom = &p
		}
	case TypePlaceStone:
		var p PlaceStonePayload
		if p, err = decode[PlaceStonePayload](env); err == nil {
			msg.PlaceStone = &p
		}
	case TypeChatMessage, TypeSpectatorChat:
		var p ChatPayload
		if p, err = decode[ChatPayload](env); err == nil {
			msg.Chat = &p
		}
	case TypeRematchResponse:
		var p RematchResponsePayload
		if p, err = decode[RematchResponsePayload](env); err == nil {
			msg.RematchResponse = &p
		}
	case TypeReconnect:
		var p ReconnectPayload
		if p, err = decode[ReconnectPayload](env); err == nil {
			if p.PlayerName == "" {
				return msg, fmt.Errorf("player_name is required for reconnection")
			}
			msg.Reconnect = &p
		}
	case TypeLeaveRoom, TypeListRooms, TypeReady, TypeSurrender, TypeRematch:
		// no payload
	default:
		return msg, ErrUnknownType{Type: env.Type}
	}

	return msg, err
}
