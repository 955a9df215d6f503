package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ohmok/gomoku-server/internal/service/room"
)

// GameRepo archives finished games. It satisfies room.GameArchiver.
type GameRepo struct {
	db *sql.DB
}

func NewGameRepo(db *sql.DB) *GameRepo {
	return &GameRepo{db: db}
}

// ArchivedGame is one row of the games table.
type ArchivedGame struct {
	ID              int64     `json:"id"`
	RoomID          string    `json:"room_id"`
	BlackName       string    `json:"black_name"`
	WhiteName       string    `json:"white_name"`
	WinnerColor     string    `json:"winner_color,omitempty"`
	WinnerName      string    `json:"winner_name,omitempty"`
	Reason          string    `json:"reason"`
	TotalMoves      int       `json:"total_moves"`
	DurationSeconds int       `json:"duration_seconds"`
	FinishedAt      time.Time `json:"finished_at"`
}

// SaveGame inserts a finished game record along with its final board.
func (r *GameRepo) SaveGame(ctx context.Context, rec room.GameRecord) error {
	boardJSON, err := json.Marshal(rec.Board)
	if err != nil {
		return fmt.Errorf("marshal board state: %w", err)
	}

	var winnerColor, winnerName sql.NullString
	if rec.Winner != "" {
		winnerColor = sql.NullString{String: string(rec.Winner), Valid: true}
	}
	if rec.WinnerName != "" {
		winnerName = sql.NullString{String: rec.WinnerName, Valid: true}
	}

	query := `
	INSERT INTO games (room_id, black_name, white_name, winner_color, winner_name, reason, total_moves, duration_seconds, finished_at, board_state)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.RoomID,
		rec.BlackName,
		rec.WhiteName,
		winnerColor,
		winnerName,
		rec.Reason,
		rec.MoveCount,
		int(rec.Duration.Seconds()),
		rec.FinishedAt,
		boardJSON,
	)
	if err != nil {
		return fmt.Errorf("insert game record: %w", err)
	}
	return nil
}

// RecentGames returns the newest finished games, most recent first.
func (r *GameRepo) RecentGames(ctx context.Context, limit int) ([]ArchivedGame, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	query := `
	SELECT id, room_id, black_name, white_name, winner_color, winner_name, reason, total_moves, duration_seconds, finished_at
	FROM games
	ORDER BY finished_at DESC
	LIMIT $1;
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent games: %w", err)
	}
	defer rows.Close()

	var games []ArchivedGame
	for rows.Next() {
		var g ArchivedGame
		var winnerColor, winnerName sql.NullString
		if err := rows.Scan(
			&g.ID,
			&g.RoomID,
			&g.BlackName,
			&g.WhiteName,
			&winnerColor,
			&winnerName,
			&g.Reason,
			&g.TotalMoves,
			&g.DurationSeconds,
			&g.FinishedAt,
		); err != nil {
			return nil, fmt.Errorf("scan game row: %w", err)
		}
		g.WinnerColor = winnerColor.String
		g.WinnerName = winnerName.String
		games = append(games, g)
	}
	return games, rows.Err()
}
