package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ohmok/gomoku-server/internal/repository/postgres"
	"github.com/ohmok/gomoku-server/internal/service/room"
)

// RoomsHandler exposes the read-only REST surface: the live room list
// and, when archiving is on, recently finished games.
type RoomsHandler struct {
	Rooms    *room.Manager
	GameRepo *postgres.GameRepo // nil when archiving is disabled
}

func NewRoomsHandler(rooms *room.Manager, gameRepo *postgres.GameRepo) *RoomsHandler {
	return &RoomsHandler{Rooms: rooms, GameRepo: gameRepo}
}

// ListRooms serves GET /api/rooms.
func (h *RoomsHandler) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rooms": h.Rooms.Summaries()})
}

// RecentGames serves GET /api/games/recent.
func (h *RoomsHandler) RecentGames(c *gin.Context) {
	if h.GameRepo == nil {
		c.JSON(http.StatusOK, gin.H{"games": []postgres.ArchivedGame{}})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	games, err := h.GameRepo.RecentGames(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to fetch games"})
		return
	}
	if games == nil {
		games = []postgres.ArchivedGame{}
	}
	c.JSON(http.StatusOK, gin.H{"games": games})
}

// Health serves GET /healthz.
func (h *RoomsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
