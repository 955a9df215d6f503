package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ohmok/gomoku-server/internal/config"
	"github.com/ohmok/gomoku-server/internal/repository/postgres"
	"github.com/ohmok/gomoku-server/internal/repository/redis"
	"github.com/ohmok/gomoku-server/internal/service/room"
	transportHttp "github.com/ohmok/gomoku-server/internal/transport/http"
	"github.com/ohmok/gomoku-server/internal/transport/http/middleware"
	"github.com/ohmok/gomoku-server/internal/transport/websocket"
)

func main() {
	if err := godotenv.Load(); err != nil {
		if err := godotenv.Load("../.env"); err != nil {
			log.Println("No .env file found")
		}
	}

	cfg := config.LoadConfig()
	ctx := context.Background()

	// Postgres is optional: without DATABASE_URL games simply are not
	// archived.
	var gameRepo *postgres.GameRepo
	if cfg.DatabaseURL != "" {
		db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.DBMaxOpenConns, cfg.DBMaxIdleConns, cfg.DBConnMaxLifetimeMin)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		defer db.Close()

		log.Println("Running database migrations...")
		if err := postgres.Migrate(db); err != nil {
			log.Fatalf("Migration failed: %v", err)
		}

		gameRepo = postgres.NewGameRepo(db)
	} else {
		log.Println("[DB] DATABASE_URL not set, game archiving disabled")
	}

	// Redis is optional too: without it the room list is only served
	// in-process.
	var roomCache *redis.RoomListCache
	if cfg.RedisURL != "" {
		client, err := redis.Connect(ctx, cfg.RedisURL, cfg.RedisPassword)
		if err != nil {
			log.Printf("[REDIS] unavailable, room list mirroring disabled: %v", err)
		} else {
			defer client.Close()
			roomCache = redis.NewRoomListCache(client)
		}
	}

	connManager := websocket.NewConnectionManager()

	settings := room.Settings{
		TurnTime:        cfg.TurnTimeLimit,
		ReconnectWindow: cfg.ReconnectWindow,
		RematchWindow:   cfg.RematchWindow,
	}
	var archiver room.GameArchiver
	if gameRepo != nil {
		archiver = gameRepo
	}
	var cache room.RoomListCache
	if roomCache != nil {
		cache = roomCache
	}
	rooms := room.NewManager(settings, cfg.RoomReapInterval, connManager, archiver, cache)
	defer rooms.Stop()

	wsHandler := websocket.NewHandler(connManager, rooms, cfg.AllowedOrigins)
	roomsHandler := transportHttp.NewRoomsHandler(rooms, gameRepo)

	router := gin.New()
	router.Use(gin.Logger(), gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	router.GET("/healthz", roomsHandler.Health)
	router.GET("/api/rooms", roomsHandler.ListRooms)
	router.GET("/api/games/recent", roomsHandler.RecentGames)
	router.GET("/ws", func(c *gin.Context) {
		wsHandler.HandleWebSocket(c.Writer, c.Request)
	})

	srv := &http.Server{
		Addr:    cfg.Addr(),
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on %s", cfg.Addr())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("Server is shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
