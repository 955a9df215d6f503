package room

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/ohmok/gomoku-server/internal/protocol"
	"github.com/ohmok/gomoku-server/pkg/uid"
)

// RoomListCache mirrors the live room list into an external cache.
// A nil cache disables mirroring.
type RoomListCache interface {
	StoreRoomList(ctx context.Context, rooms []protocol.RoomSummary) error
}

type membership struct {
	room      *Room
	sessionID string
}

// Manager creates, lists and destroys rooms and routes per-connection
// requests to the right one. Its own mutex guards only the room table
// and the connection index; room state is guarded by each room.
type Manager struct {
	mu     sync.RWMutex
	rooms  map[string]*Room
	byConn map[string]membership

	settings     Settings
	sender       Sender
	archive      GameArchiver
	cache        RoomListCache
	reapInterval time.Duration
	stop         chan struct{}
	stopOnce     sync.Once
}

func NewManager(settings Settings, reapInterval time.Duration, sender Sender, archive GameArchiver, cache RoomListCache) *Manager {
	m := &Manager{
		rooms:        make(map[string]*Room),
		byConn:       make(map[string]membership),
		settings:     settings,
		sender:       sender,
		archive:      archive,
		cache:        cache,
		reapInterval: reapInterval,
		stop:         make(chan struct{}),
	}
	go m.reapLoop()
	return m
}

// Stop halts the reaper and destroys every room.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stop) })

	m.mu.Lock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.rooms = map[string]*Room{}
	m.byConn = map[string]membership{}
	m.mu.Unlock()

	for _, r := range rooms {
		r.Destroy()
	}
}

// CreateRoom makes a room and seats the caller as its first player.
// Ids are retried until they miss every live room.
func (m *Manager) CreateRoom(connID, playerName string) protocol.Envelope {
	m.leaveCurrent(connID)

	m.mu.Lock()
	id := uid.GenerateRoomID()
	for _, taken := m.rooms[id]; taken; _, taken = m.rooms[id] {
		id = uid.GenerateRoomID()
	}
	r := NewRoom(id, m.settings, m.sender, m.archive)
	m.rooms[id] = r
	m.mu.Unlock()

	sess, reply := r.AddPlayer(connID, playerName)
	if sess == nil {
		// cannot happen on a fresh room, but never leave a ghost behind
		m.removeRoom(id)
		return reply
	}
	m.track(connID, r, sess.ID)

	log.Printf("[MANAGER] %s created room %s", playerName, id)
	m.refreshRoomCache()
	return reply
}

// JoinRoom seats a player, or resumes them when the nickname matches a
// disconnected player of that room.
func (m *Manager) JoinRoom(connID, roomID, playerName string) protocol.Envelope {
	r := m.getRoom(roomID)
	if r == nil {
		return protocol.Errorf(protocol.CodeStateError, "room not found")
	}

	if r.CanReconnect(playerName) {
		return m.reconnectTo(connID, r, playerName)
	}

	m.leaveCurrent(connID)
	sess, reply := r.AddPlayer(connID, playerName)
	if sess != nil {
		m.track(connID, r, sess.ID)
		m.refreshRoomCache()
	}
	return reply
}

// SpectateRoom seats a spectator.
func (m *Manager) SpectateRoom(connID, roomID, name string) protocol.Envelope {
	r := m.getRoom(roomID)
	if r == nil {
		return protocol.Errorf(protocol.CodeStateError, "room not found")
	}

	m.leaveCurrent(connID)
	sess, reply := r.AddSpectator(connID, name)
	if sess != nil {
		m.track(connID, r, sess.ID)
		m.refreshRoomCache()
	}
	return reply
}

// Reconnect resumes a disconnected player. The nickname is matched
// room by room; the same nickname in another room is a different
// session.
func (m *Manager) Reconnect(connID, playerName string) protocol.Envelope {
	m.mu.RLock()
	var target *Room
	for _, r := range m.rooms {
		if r.CanReconnect(playerName) {
			target = r
			break
		}
	}
	m.mu.RUnlock()

	if target == nil {
		return protocol.Errorf(protocol.CodeStateError, "no reconnectable session found or window expired")
	}
	return m.reconnectTo(connID, target, playerName)
}

func (m *Manager) reconnectTo(connID string, r *Room, playerName string) protocol.Envelope {
	m.leaveCurrent(connID)
	sess, reply := r.Reconnect(connID, playerName)
	if sess != nil {
		m.track(connID, r, sess.ID)
		m.refreshRoomCache()
	}
	return reply
}

// LeaveRoom removes the caller from its room, tearing the room down
// when nobody is left.
func (m *Manager) LeaveRoom(connID string) protocol.Envelope {
	mem, ok := m.lookup(connID)
	if !ok {
		return protocol.Success("already in lobby")
	}

	reply := mem.room.Leave(mem.sessionID)
	m.untrack(connID)
	m.reapIfEmpty(mem.room)
	m.refreshRoomCache()
	return reply
}

// ListRooms renders the live room table.
func (m *Manager) ListRooms() protocol.Envelope {
	return protocol.NewEnvelope(protocol.TypeRoomList, protocol.RoomListPayload{
		Rooms: m.summaries(),
	})
}

// Summaries is the REST view of the room table.
func (m *Manager) Summaries() []protocol.RoomSummary {
	return m.summaries()
}

func (m *Manager) summaries() []protocol.RoomSummary {
	m.mu.RLock()
	rooms := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		rooms = append(rooms, r)
	}
	m.mu.RUnlock()

	out := make([]protocol.RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		out = append(out, r.Summary())
	}
	return out
}

// HandleDisconnect reacts to a closed socket. Mid-game players pause
// their room and keep a reconnection window; everyone else is removed.
func (m *Manager) HandleDisconnect(connID string) {
	mem, ok := m.lookup(connID)
	if !ok {
		return
	}

	mem.room.Disconnect(mem.sessionID)
	m.untrack(connID)
	m.reapIfEmpty(mem.room)
	m.refreshRoomCache()
}

// Per-connection game operations. Each resolves the caller's room and
// hands off; the room serializes the actual mutation.

func (m *Manager) Ready(connID string) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.Ready(mem.sessionID)
	}
	return notInRoom()
}

func (m *Manager) PlaceStone(connID string, x, y int) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.PlaceStone(mem.sessionID, x, y)
	}
	return notInRoom()
}

func (m *Manager) Surrender(connID string) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.Surrender(mem.sessionID)
	}
	return notInRoom()
}

func (m *Manager) Chat(connID, text string) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.Chat(mem.sessionID, text)
	}
	return notInRoom()
}

func (m *Manager) SpectatorChat(connID, text string) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.SpectatorChat(mem.sessionID, text)
	}
	return notInRoom()
}

func (m *Manager) Rematch(connID string) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.Rematch(mem.sessionID)
	}
	return notInRoom()
}

func (m *Manager) RematchResponse(connID string, accepted bool) protocol.Envelope {
	if mem, ok := m.lookup(connID); ok {
		return mem.room.RematchResponse(mem.sessionID, accepted)
	}
	return notInRoom()
}

func notInRoom() protocol.Envelope {
	return protocol.Errorf(protocol.CodeStateError, "you are not in a room")
}

func (m *Manager) getRoom(roomID string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[roomID]
}

func (m *Manager) lookup(connID string) (membership, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	mem, ok := m.byConn[connID]
	return mem, ok
}

func (m *Manager) track(connID string, r *Room, sessionID string) {
	m.mu.Lock()
	m.byConn[connID] = membership{room: r, sessionID: sessionID}
	m.mu.Unlock()
}

func (m *Manager) untrack(connID string) {
	m.mu.Lock()
	delete(m.byConn, connID)
	m.mu.Unlock()
}

// leaveCurrent pulls a connection out of whatever room it is in before
// it creates, joins or spectates another one.
func (m *Manager) leaveCurrent(connID string) {
	mem, ok := m.lookup(connID)
	if !ok {
		return
	}
	mem.room.Leave(mem.sessionID)
	m.untrack(connID)
	m.reapIfEmpty(mem.room)
}

func (m *Manager) reapIfEmpty(r *Room) {
	if r.Empty() {
		m.removeRoom(r.ID)
	}
}

func (m *Manager) removeRoom(id string) {
	m.mu.Lock()
	r, ok := m.rooms[id]
	if ok {
		delete(m.rooms, id)
	}
	m.mu.Unlock()

	if ok {
		r.Destroy()
		log.Printf("[MANAGER] removed room %s", id)
	}
}

// reapLoop periodically clears rooms with no connected participants.
func (m *Manager) reapLoop() {
	interval := m.reapInterval
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stop:
			return
		case <-ticker.C:
			m.mu.RLock()
			rooms := make([]*Room, 0, len(m.rooms))
			for _, r := range m.rooms {
				rooms = append(rooms, r)
			}
			m.mu.RUnlock()

			removed := 0
			for _, r := range rooms {
				if r.Empty() {
					m.removeRoom(r.ID)
					removed++
				}
			}
			if removed > 0 {
				m.refreshRoomCache()
			}
		}
	}
}

// refreshRoomCache mirrors the current room list to the cache in the
// background; failures are logged and otherwise ignored.
func (m *Manager) refreshRoomCache() {
	if m.cache == nil {
		return
	}
	rooms := m.summaries()
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.cache.StoreRoomList(ctx, rooms); err != nil {
			log.Printf("[MANAGER] room list cache refresh failed: %v", err)
		}
	}()
}
