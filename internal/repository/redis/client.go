package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/ohmok/gomoku-server/internal/protocol"
)

const (
	roomListKey = "gomoku:rooms"
	roomListTTL = 2 * time.Minute
)

// Connect opens a Redis client and pings it. A failed ping returns the
// error; the caller decides whether to run without the cache.
func Connect(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	log.Println("[REDIS] connected")
	return client, nil
}

// RoomListCache mirrors the live room list so other processes (or a
// lobby page served elsewhere) can read it without hitting the game
// server. It satisfies room.RoomListCache.
type RoomListCache struct {
	client *redis.Client
}

func NewRoomListCache(client *redis.Client) *RoomListCache {
	return &RoomListCache{client: client}
}

func (c *RoomListCache) StoreRoomList(ctx context.Context, rooms []protocol.RoomSummary) error {
	data, err := json.Marshal(rooms)
	if err != nil {
		return fmt.Errorf("marshal room list: %w", err)
	}
	return c.client.Set(ctx, roomListKey, data, roomListTTL).Err()
}

// LoadRoomList reads the mirrored list back. A missing key yields an
// empty slice.
func (c *RoomListCache) LoadRoomList(ctx context.Context) ([]protocol.RoomSummary, error) {
	data, err := c.client.Get(ctx, roomListKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get room list: %w", err)
	}

	var rooms []protocol.RoomSummary
	if err := json.Unmarshal(data, &rooms); err != nil {
		return nil, fmt.Errorf("unmarshal room list: %w", err)
	}
	return rooms, nil
}
