package websocket

import (
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ohmok/gomoku-server/internal/protocol"
)

const writeWait = 10 * time.Second

// ConnectionManager tracks live sockets by connection id. It is the
// room layer's Sender: everything the server pushes goes through Send.
type ConnectionManager struct {
	mu          sync.RWMutex // guards the maps
	connections map[string]*websocket.Conn

	// conn.WriteJSON is not safe for concurrent writers, so each socket
	// gets its own write lock.
	writeMu map[string]*sync.Mutex
}

func NewConnectionManager() *ConnectionManager {
	return &ConnectionManager{
		connections: make(map[string]*websocket.Conn),
		writeMu:     make(map[string]*sync.Mutex),
	}
}

func (cm *ConnectionManager) Add(connID string, conn *websocket.Conn) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.connections[connID] = conn
	cm.writeMu[connID] = &sync.Mutex{}
}

func (cm *ConnectionManager) Remove(connID string) {
	cm.mu.Lock()
	defer cm.mu.Unlock()

	if conn, ok := cm.connections[connID]; ok {
		conn.Close()
		delete(cm.connections, connID)
		delete(cm.writeMu, connID)
	}
}

// Send writes one envelope to one socket. Unknown connection ids are
// dropped silently; the session layer handles disconnects separately.
func (cm *ConnectionManager) Send(connID string, env protocol.Envelope) {
	cm.mu.RLock()
	conn, ok := cm.connections[connID]
	mu, muOK := cm.writeMu[connID]
	cm.mu.RUnlock()

	if !ok || !muOK {
		return
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := conn.WriteJSON(env); err != nil {
		log.Printf("[WS] write to %s failed: %v", connID, err)
	}
}

// Ping sends a control ping; the caller's keepalive loop uses the error
// to detect a dead socket.
func (cm *ConnectionManager) Ping(connID string) error {
	cm.mu.RLock()
	conn, ok := cm.connections[connID]
	mu, muOK := cm.writeMu[connID]
	cm.mu.RUnlock()

	if !ok || !muOK {
		return websocket.ErrCloseSent
	}

	mu.Lock()
	defer mu.Unlock()

	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteMessage(websocket.PingMessage, nil)
}

func (cm *ConnectionManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.connections)
}
