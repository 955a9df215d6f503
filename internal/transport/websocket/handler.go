package websocket

import (
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ohmok/gomoku-server/internal/protocol"
	"github.com/ohmok/gomoku-server/internal/service/room"
)

const (
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
)

// Handler upgrades HTTP requests and pumps envelopes between sockets
// and the room manager.
type Handler struct {
	ConnManager *ConnectionManager
	Rooms       *room.Manager
	Upgrader    websocket.Upgrader
}

func NewHandler(cm *ConnectionManager, rooms *room.Manager, allowedOrigins []string) *Handler {
	return &Handler{
		ConnManager: cm,
		Rooms:       rooms,
		Upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, a := range allowed {
			if a == "*" || a == origin {
				return true
			}
		}
		return false
	}
}

// HandleWebSocket upgrades the request and runs the connection until
// the socket closes.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WS] upgrade error: %v", err)
		return
	}

	connID := uuid.NewString()
	h.ConnManager.Add(connID, conn)
	log.Printf("[WS] connection %s opened from %s", connID, conn.RemoteAddr())

	h.handleConnection(connID, conn)
}

func (h *Handler) handleConnection(connID string, conn *websocket.Conn) {
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// keepalive pinger, stops when the socket dies
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(pingPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				if err := h.ConnManager.Ping(connID); err != nil {
					return
				}
			}
		}
	}()

	defer func() {
		close(done)
		log.Printf("[WS] connection %s closed", connID)
		h.Rooms.HandleDisconnect(connID)
		h.ConnManager.Remove(connID)
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WS] connection %s dropped: %v", connID, err)
			}
			return
		}

		env, err := protocol.ParseEnvelope(data)
		if err != nil {
			h.ConnManager.Send(connID, protocol.Errorf(protocol.CodeProtocolError, "invalid message format"))
			continue
		}

		msg, err := protocol.ParseClient(env)
		if err != nil {
			code := protocol.CodeValidationError
			if _, unknown := err.(protocol.ErrUnknownType); unknown {
				code = protocol.CodeProtocolError
			}
			h.ConnManager.Send(connID, protocol.Errorf(code, err.Error()))
			continue
		}

		h.ConnManager.Send(connID, h.dispatch(connID, msg))
	}
}

// dispatch routes one decoded client message and returns the direct
// reply. Broadcasts travel through the connection manager separately.
func (h *Handler) dispatch(connID string, msg protocol.ClientMessage) protocol.Envelope {
	switch msg.Type {
	case protocol.TypeCreateRoom:
		return h.Rooms.CreateRoom(connID, msg.CreateRoom.PlayerName)
	case protocol.TypeJoinRoom:
		return h.Rooms.JoinRoom(connID, msg.JoinRoom.RoomID, msg.JoinRoom.PlayerName)
	case protocol.TypeSpectateRoom:
		return h.Rooms.SpectateRoom(connID, msg.SpectateRoom.RoomID, msg.SpectateRoom.SpectatorName)
	case protocol.TypeLeaveRoom:
		return h.Rooms.LeaveRoom(connID)
	case protocol.TypeListRooms:
		return h.Rooms.ListRooms()
	case protocol.TypeReady:
		return h.Rooms.Ready(connID)
	case protocol.TypePlaceStone:
		return h.Rooms.PlaceStone(connID, msg.PlaceStone.X, msg.PlaceStone.Y)
	case protocol.TypeSurrender:
		return h.Rooms.Surrender(connID)
	case protocol.TypeChatMessage:
		return h.Rooms.Chat(connID, msg.Chat.Message)
	case protocol.TypeSpectatorChat:
		return h.Rooms.SpectatorChat(connID, msg.Chat.Message)
	case protocol.TypeRematch:
		return h.Rooms.Rematch(connID)
	case protocol.TypeRematchResponse:
		return h.Rooms.RematchResponse(connID, msg.RematchResponse.Accepted)
	case protocol.TypeReconnect:
		return h.Rooms.Reconnect(connID, msg.Reconnect.PlayerName)
	default:
		return protocol.Errorf(protocol.CodeProtocolError, "unknown message type")
	}
}
