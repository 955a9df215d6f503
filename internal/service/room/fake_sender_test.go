package room_test

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ohmok/gomoku-server/internal/protocol"
	"github.com/ohmok/gomoku-server/internal/service/room"
)

// fakeSender records every envelope pushed to every connection.
type fakeSender struct {
	mu   sync.Mutex
	sent map[string][]protocol.Envelope
}

func newFakeSender() *fakeSender {
	return &fakeSender{sent: make(map[string][]protocol.Envelope)}
}

func (f *fakeSender) Send(connID string, env protocol.Envelope) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[connID] = append(f.sent[connID], env)
}

// ofType returns every envelope of one type delivered to a connection.
func (f *fakeSender) ofType(connID, msgType string) []protocol.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []protocol.Envelope
	for _, env := range f.sent[connID] {
		if env.Type == msgType {
			out = append(out, env)
		}
	}
	return out
}

func (f *fakeSender) countOf(connID, msgType string) int {
	return len(f.ofType(connID, msgType))
}

// lastOf returns the most recent envelope of one type, or false.
func (f *fakeSender) lastOf(connID, msgType string) (protocol.Envelope, bool) {
	envs := f.ofType(connID, msgType)
	if len(envs) == 0 {
		return protocol.Envelope{}, false
	}
	return envs[len(envs)-1], true
}

// waitFor polls until the connection has received an envelope of the
// given type.
func (f *fakeSender) waitFor(t *testing.T, connID, msgType string) protocol.Envelope {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if env, ok := f.lastOf(connID, msgType); ok {
			return env
		}
		select {
		case <-deadline:
			t.Fatalf("connection %s never received %s", connID, msgType)
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func decodePayload[T any](t *testing.T, env protocol.Envelope) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(env.Data, &v))
	return v
}

func testSettings() room.Settings {
	return room.Settings{
		TurnTime:        time.Minute,
		ReconnectWindow: time.Minute,
		RematchWindow:   time.Minute,
	}
}

// twoPlayerRoom builds a room with alice (black, conn-a) and bob
// (white, conn-b) already seated.
func twoPlayerRoom(t *testing.T, sender *fakeSender, settings room.Settings) (*room.Room, *room.Session, *room.Session) {
	t.Helper()
	r := room.NewRoom("room_test", settings, sender, nil)
	alice, reply := r.AddPlayer("conn-a", "alice")
	require.NotNil(t, alice)
	require.Equal(t, protocol.TypeSuccess, reply.Type)
	bob, reply := r.AddPlayer("conn-b", "bob")
	require.NotNil(t, bob)
	require.Equal(t, protocol.TypeSuccess, reply.Type)
	return r, alice, bob
}

// startGame readies both players so the game is running.
func startGame(t *testing.T, r *room.Room, alice, bob *room.Session) {
	t.Helper()
	require.Equal(t, protocol.TypeSuccess, r.Ready(alice.ID).Type)
	require.Equal(t, protocol.TypeSuccess, r.Ready(bob.ID).Type)
}
