package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Host string
	Port string

	TurnTimeLimit    time.Duration
	ReconnectWindow  time.Duration
	RematchWindow    time.Duration
	RoomReapInterval time.Duration

	AllowedOrigins []string

	DatabaseURL          string
	DBMaxOpenConns       int
	DBMaxIdleConns       int
	DBConnMaxLifetimeMin int

	RedisURL      string
	RedisPassword string
}

func LoadConfig() *Config {
	host := GetEnv("HOST", "127.0.0.1")
	port := GetEnv("PORT", "10000")

	turnSec := GetEnvAsInt("TURN_TIME_SECONDS", 60)
	reconnectSec := GetEnvAsInt("RECONNECT_WINDOW_SECONDS", 180)
	rematchSec := GetEnvAsInt("REMATCH_WINDOW_SECONDS", 30)
	reapSec := GetEnvAsInt("ROOM_REAP_INTERVAL_SECONDS", 30)

	allowedOrigins := []string{
		"http://localhost:5173", // local development
	}
	if extra := GetEnv("ALLOWED_ORIGINS", ""); extra != "" {
		for _, origin := range strings.Split(extra, ",") {
			if trimmed := strings.TrimSpace(origin); trimmed != "" {
				allowedOrigins = append(allowedOrigins, trimmed)
			}
		}
	}

	return &Config{
		Host:                 host,
		Port:                 port,
		TurnTimeLimit:        time.Duration(turnSec) * time.Second,
		ReconnectWindow:      time.Duration(reconnectSec) * time.Second,
		RematchWindow:        time.Duration(rematchSec) * time.Second,
		RoomReapInterval:     time.Duration(reapSec) * time.Second,
		AllowedOrigins:       allowedOrigins,
		DatabaseURL:          GetEnv("DATABASE_URL", ""),
		DBMaxOpenConns:       GetEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:       GetEnvAsInt("DB_MAX_IDLE_CONNS", 25),
		DBConnMaxLifetimeMin: GetEnvAsInt("DB_CONN_MAX_LIFETIME_MINUTES", 5),
		RedisURL:             GetEnv("REDIS_URL", ""),
		RedisPassword:        GetEnv("REDIS_PASSWORD", ""),
	}
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func GetEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Invalid integer value for %s: %s, using default: %d", key, valueStr, defaultValue)
		return defaultValue
	}
	return value
}
