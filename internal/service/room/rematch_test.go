package room_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ohmok/gomoku-server/internal/domain"
	"github.com/ohmok/gomoku-server/internal/protocol"
	"github.com/ohmok/gomoku-server/internal/service/room"
)

// finishGame plays a quick black win so rematch negotiation can start.
func finishGame(t *testing.T, r *room.Room, alice, bob *room.Session) {
	t.Helper()
	startGame(t, r, alice, bob)
	require.Equal(t, protocol.TypeSuccess, r.Surrender(bob.ID).Type)
}

func TestRematchRequestRelaysToOpponent(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	require.Equal(t, protocol.TypeSuccess, r.Rematch(alice.ID).Type)

	env := sender.waitFor(t, "conn-b", protocol.TypeRematch)
	req := decodePayload[protocol.RematchRequestPayload](t, env)
	assert.Equal(t, "alice", req.RequestingPlayer)
	assert.Equal(t, 60, req.Timeout)
}

func TestRematchRequiresFinishedGame(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	startGame(t, r, alice, bob)

	reply := r.Rematch(alice.ID)
	assert.Equal(t, protocol.TypeError, reply.Type)
}

func TestRematchAcceptSwapsColorsAndStartsImmediately(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	require.Equal(t, protocol.TypeSuccess, r.Rematch(alice.ID).Type)
	require.Equal(t, protocol.TypeSuccess, r.RematchResponse(bob.ID, true).Type)

	assert.Equal(t, domain.White, alice.Color)
	assert.Equal(t, domain.Black, bob.Color)

	// board reset marker precedes the new GAME_START
	reset, ok := sender.lastOf("conn-a", protocol.TypeBoardUpdate)
	require.True(t, ok)
	resetPayload := decodePayload[protocol.BoardUpdatePayload](t, reset)
	assert.Equal(t, -1, resetPayload.X)
	assert.Equal(t, domain.Empty, resetPayload.Board[7][7])

	start := sender.waitFor(t, "conn-a", protocol.TypeGameStart)
	startPayload := decodePayload[protocol.GameStartPayload](t, start)
	assert.Equal(t, domain.Black, startPayload.CurrentTurn)
	assert.NotNil(t, startPayload.Board)
	assert.Equal(t, room.StatusInProgress, r.Summary().Status)

	// bob now holds black and moves first, with no ready step
	require.Equal(t, protocol.TypeSuccess, r.PlaceStone(bob.ID, 7, 7).Type)
}

func TestMutualRematchRequestsStartGame(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	require.Equal(t, protocol.TypeSuccess, r.Rematch(alice.ID).Type)
	require.Equal(t, protocol.TypeSuccess, r.Rematch(bob.ID).Type)
	assert.Equal(t, room.StatusInProgress, r.Summary().Status)
}

func TestRematchDeclineRevertsRoom(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	require.Equal(t, protocol.TypeSuccess, r.Rematch(alice.ID).Type)
	require.Equal(t, protocol.TypeSuccess, r.RematchResponse(bob.ID, false).Type)

	env := sender.waitFor(t, "conn-a", protocol.TypeRematchDeclined)
	declined := decodePayload[protocol.RematchDeclinedPayload](t, env)
	assert.Equal(t, "bob", declined.DeclinedBy)

	// colors stay as they were and the room waits for a new ready round
	assert.Equal(t, domain.Black, alice.Color)
	assert.Equal(t, room.StatusReadyPending, r.Summary().Status)
}

func TestRematchWindowTimeout(t *testing.T) {
	sender := newFakeSender()
	settings := testSettings()
	settings.RematchWindow = 30 * time.Millisecond
	r, alice, bob := twoPlayerRoom(t, sender, settings)
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	require.Equal(t, protocol.TypeSuccess, r.Rematch(alice.ID).Type)

	env := sender.waitFor(t, "conn-b", protocol.TypeRematchDeclined)
	declined := decodePayload[protocol.RematchDeclinedPayload](t, env)
	assert.Empty(t, declined.DeclinedBy)
	assert.Equal(t, room.StatusReadyPending, r.Summary().Status)
}

func TestRematchResponseWithoutRequest(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	reply := r.RematchResponse(bob.ID, true)
	assert.Equal(t, protocol.TypeError, reply.Type)

	_ = alice
}

func TestLeaveDuringRematchDeclines(t *testing.T) {
	sender := newFakeSender()
	r, alice, bob := twoPlayerRoom(t, sender, testSettings())
	defer r.Destroy()
	finishGame(t, r, alice, bob)

	require.Equal(t, protocol.TypeSuccess, r.Rematch(alice.ID).Type)
	require.Equal(t, protocol.TypeSuccess, r.Leave(bob.ID).Type)

	sender.waitFor(t, "conn-a", protocol.TypeRematchDeclined)
	assert.Equal(t, room.StatusWaiting, r.Summary().Status)
}
