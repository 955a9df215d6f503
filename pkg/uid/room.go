package uid

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateRoomID returns a short random hex id for a room.
func GenerateRoomID() string {
	bytes := make([]byte, 4)
	rand.Read(bytes)
	return "room_" + hex.EncodeToString(bytes)
}
