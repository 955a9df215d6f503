package room_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohmok/gomoku-server/internal/protocol"
	"github.com/ohmok/gomoku-server/internal/service/room"
)

func newTestManager(sender *fakeSender) *room.Manager {
	return room.NewManager(testSettings(), time.Hour, sender, nil, nil)
}

func roomIDFrom(t *testing.T, env protocol.Envelope) string {
	t.Helper()
	require.Equal(t, protocol.TypeSuccess, env.Type)
	payload := decodePayload[protocol.SuccessPayload](t, env)
	require.NotEmpty(t, payload.RoomID)
	return payload.RoomID
}

func TestManagerCreateAndListRooms(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	id := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))

	list := m.ListRooms()
	require.Equal(t, protocol.TypeRoomList, list.Type)
	payload := decodePayload[protocol.RoomListPayload](t, list)
	require.Len(t, payload.Rooms, 1)
	assert.Equal(t, id, payload.Rooms[0].RoomID)
	assert.Equal(t, room.StatusWaiting, payload.Rooms[0].Status)
	assert.Equal(t, []string{"alice"}, payload.Rooms[0].Players)
}

func TestManagerJoinRoom(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	id := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	reply := m.JoinRoom("conn-b", id, "bob")
	assert.Equal(t, id, roomIDFrom(t, reply))

	reply = m.JoinRoom("conn-c", "room_missing", "carol")
	assert.Equal(t, protocol.TypeError, reply.Type)
}

func TestManagerRoutesGameOperations(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	id := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	m.JoinRoom("conn-b", id, "bob")

	require.Equal(t, protocol.TypeSuccess, m.Ready("conn-a").Type)
	require.Equal(t, protocol.TypeSuccess, m.Ready("conn-b").Type)
	sender.waitFor(t, "conn-a", protocol.TypeGameStart)

	require.Equal(t, protocol.TypeSuccess, m.PlaceStone("conn-a", 7, 7).Type)
	sender.waitFor(t, "conn-b", protocol.TypeBoardUpdate)

	require.Equal(t, protocol.TypeSuccess, m.Chat("conn-a", "hi").Type)
	sender.waitFor(t, "conn-b", protocol.TypeChatMessage)
}

func TestManagerRejectsOperationsOutsideRooms(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	assert.Equal(t, protocol.TypeError, m.Ready("conn-x").Type)
	assert.Equal(t, protocol.TypeError, m.PlaceStone("conn-x", 0, 0).Type)
	assert.Equal(t, protocol.TypeError, m.Surrender("conn-x").Type)
	assert.Equal(t, protocol.TypeError, m.Rematch("conn-x").Type)
}

func TestManagerLeaveRemovesEmptyRoom(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	m.CreateRoom("conn-a", "alice")
	require.Equal(t, protocol.TypeSuccess, m.LeaveRoom("conn-a").Type)

	list := decodePayload[protocol.RoomListPayload](t, m.ListRooms())
	assert.Empty(t, list.Rooms)

	// leaving again is a harmless no-op
	assert.Equal(t, protocol.TypeSuccess, m.LeaveRoom("conn-a").Type)
}

func TestManagerCreateLeavesPreviousRoom(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	first := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	second := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	assert.NotEqual(t, first, second)

	list := decodePayload[protocol.RoomListPayload](t, m.ListRooms())
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, second, list.Rooms[0].RoomID)
}

func TestManagerSpectate(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	id := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	reply := m.SpectateRoom("conn-s", id, "sam")
	payload := decodePayload[protocol.SuccessPayload](t, reply)
	assert.Equal(t, "spectator", payload.Role)

	summaries := m.Summaries()
	require.Len(t, summaries, 1)
	assert.Equal(t, 1, summaries[0].SpectatorCount)
}

func TestManagerDisconnectAndReconnect(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	id := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	m.JoinRoom("conn-b", id, "bob")
	m.Ready("conn-a")
	m.Ready("conn-b")
	sender.waitFor(t, "conn-a", protocol.TypeGameStart)

	m.HandleDisconnect("conn-b")
	sender.waitFor(t, "conn-a", protocol.TypeGamePaused)

	// the paused room survives and is still listed
	list := decodePayload[protocol.RoomListPayload](t, m.ListRooms())
	require.Len(t, list.Rooms, 1)
	assert.Equal(t, room.StatusPaused, list.Rooms[0].Status)

	// RECONNECT without a room id finds the session by nickname
	reply := m.Reconnect("conn-b2", "bob")
	payload := decodePayload[protocol.SuccessPayload](t, reply)
	assert.Equal(t, id, payload.RoomID)
	sender.waitFor(t, "conn-a", protocol.TypeGameResumed)

	// the new connection is routed to the same room
	require.Equal(t, protocol.TypeSuccess, m.PlaceStone("conn-a", 7, 7).Type)
	sender.waitFor(t, "conn-b2", protocol.TypeBoardUpdate)
}

func TestManagerJoinActsAsReconnect(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	id := roomIDFrom(t, m.CreateRoom("conn-a", "alice"))
	m.JoinRoom("conn-b", id, "bob")
	m.Ready("conn-a")
	m.Ready("conn-b")
	sender.waitFor(t, "conn-a", protocol.TypeGameStart)

	m.HandleDisconnect("conn-b")
	sender.waitFor(t, "conn-a", protocol.TypeGamePaused)

	// JOIN_ROOM with the disconnected player's nickname resumes the
	// session instead of failing on a full room
	reply := m.JoinRoom("conn-b2", id, "bob")
	payload := decodePayload[protocol.SuccessPayload](t, reply)
	assert.Equal(t, "reconnected", payload.Message)
}

func TestManagerReconnectUnknownNickname(t *testing.T) {
	sender := newFakeSender()
	m := newTestManager(sender)
	defer m.Stop()

	reply := m.Reconnect("conn-x", "ghost")
	assert.Equal(t, protocol.TypeError, reply.Type)
}
