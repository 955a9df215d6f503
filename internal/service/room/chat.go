package room

import (
	"log"

	"github.com/ohmok/gomoku-server/internal/protocol"
)

// Chat appends to the player channel and broadcasts it to players and
// spectators. Only players may write here.
func (r *Room) Chat(sessionID, text string) protocol.Envelope {
	if text == "" {
		return protocol.Errorf(protocol.CodeValidationError, "message is required")
	}
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "not in this room")
	}
	if sess.Role != RolePlayer {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only players can use the player chat")
	}

	entry := r.playerChat.Append(sess.Nickname, string(sess.Role), text)

	var outs []delivery
	outs = r.broadcastAllLocked(outs, protocol.NewEnvelope(protocol.TypeChatMessage, protocol.ChatBroadcastPayload{
		Sender:  entry.Sender,
		Role:    entry.Role,
		Message: entry.Text,
	}))
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[CHAT] [%s] %s: %s", r.ID, sess.Nickname, text)
	return protocol.Success("message sent")
}

// SpectatorChat appends to the spectator channel, visible to
// spectators only.
func (r *Room) SpectatorChat(sessionID, text string) protocol.Envelope {
	if text == "" {
		return protocol.Errorf(protocol.CodeValidationError, "message is required")
	}
	r.mu.Lock()
	sess := r.findSessionLocked(sessionID)
	if sess == nil {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeStateError, "not in this room")
	}
	if sess.Role != RoleSpectator {
		r.mu.Unlock()
		return protocol.Errorf(protocol.CodeValidationError, "only spectators can use the spectator chat")
	}

	entry := r.spectatorChat.Append(sess.Nickname, string(sess.Role), text)

	var outs []delivery
	outs = r.broadcastSpectatorsLocked(outs, protocol.NewEnvelope(protocol.TypeSpectatorChat, protocol.ChatBroadcastPayload{
		Sender:  entry.Sender,
		Message: entry.Text,
	}))
	r.mu.Unlock()

	r.deliver(outs)
	log.Printf("[CHAT] [%s] [spectator] %s: %s", r.ID, sess.Nickname, text)
	return protocol.Success("message sent")
}

// chatReplayLocked queues full history for a joining connection:
// the player channel always, the spectator channel only for spectators.
func (r *Room) chatReplayLocked(outs []delivery, connID string, spectator bool) []delivery {
	for _, entry := range r.playerChat.History() {
		outs = append(outs, delivery{connID, protocol.NewEnvelope(protocol.TypeChatMessage, protocol.ChatBroadcastPayload{
			Sender:  entry.Sender,
			Role:    entry.Role,
			Message: entry.Text,
		})})
	}
	if spectator {
		for _, entry := range r.spectatorChat.History() {
			outs = append(outs, delivery{connID, protocol.NewEnvelope(protocol.TypeSpectatorChat, protocol.ChatBroadcastPayload{
				Sender:  entry.Sender,
				Message: entry.Text,
			})})
		}
	}
	return outs
}
