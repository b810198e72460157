// Package history archives finished games in Postgres.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/park285/ek-server/pkg/ekdto"
)

const schema = `CREATE TABLE IF NOT EXISTS ek_games (
	game_id     TEXT PRIMARY KEY,
	title       TEXT NOT NULL,
	winner_id   TEXT NOT NULL DEFAULT '',
	winner_name TEXT NOT NULL DEFAULT '',
	players     JSONB NOT NULL,
	eliminated  JSONB NOT NULL,
	total_cards INTEGER NOT NULL,
	started_at  TIMESTAMPTZ NOT NULL,
	ended_at    TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
)`

const upsert = `INSERT INTO ek_games (
	game_id, title, winner_id, winner_name, players, eliminated,
	total_cards, started_at, ended_at, duration_ms
) VALUES (
	$1,$2,$3,$4,$5,$6,$7,$8,$9,$10
) ON CONFLICT (game_id) DO UPDATE SET
	title=EXCLUDED.title,
	winner_id=EXCLUDED.winner_id,
	winner_name=EXCLUDED.winner_name,
	players=EXCLUDED.players,
	eliminated=EXCLUDED.eliminated,
	total_cards=EXCLUDED.total_cards,
	started_at=EXCLUDED.started_at,
	ended_at=EXCLUDED.ended_at,
	duration_ms=EXCLUDED.duration_ms`

type Repository struct {
	db *sql.DB
}

// Open connects and pings the database.
func Open(databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the results table if needed.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	if r == nil || r.db == nil {
		return nil
	}
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// row is one ek_games record ready for binding.
type row struct {
	gameID, title        string
	winnerID, winnerName string
	players, eliminated  string
	totalCards           int
	startedAt, endedAt   time.Time
	durationMS           int64
}

func rowOf(res ekdto.GameResult) (row, error) {
	players, err := json.Marshal(nonNil(res.Players))
	if err != nil {
		return row{}, err
	}
	eliminated, err := json.Marshal(nonNil(res.Eliminated))
	if err != nil {
		return row{}, err
	}
	started, ended := res.StartedAt, res.EndedAt
	if ended.IsZero() {
		ended = time.Now()
	}
	if started.IsZero() {
		started = ended
	}
	duration := ended.Sub(started).Milliseconds()
	if duration < 0 {
		duration = 0
	}
	return row{
		gameID:     strings.TrimSpace(res.GameID),
		title:      res.Title,
		winnerID:   res.WinnerID,
		winnerName: res.WinnerName,
		players:    string(players),
		eliminated: string(eliminated),
		totalCards: res.TotalCards,
		startedAt:  started.UTC(),
		endedAt:    ended.UTC(),
		durationMS: duration,
	}, nil
}

func nonNil(u []ekdto.User) []ekdto.User {
	if u == nil {
		return []ekdto.User{}
	}
	return u
}

// SaveResult upserts a finished game.
func (r *Repository) SaveResult(ctx context.Context, res ekdto.GameResult) error {
	if r == nil || r.db == nil {
		return nil
	}
	w, err := rowOf(res)
	if err != nil {
		return err
	}
	if w.gameID == "" {
		return fmt.Errorf("save result: empty game id")
	}
	_, err = r.db.ExecContext(ctx, upsert,
		w.gameID, w.title, w.winnerID, w.winnerName, w.players, w.eliminated,
		w.totalCards, w.startedAt, w.endedAt, w.durationMS,
	)
	return err
}

// Recent lists the latest results, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]ekdto.GameResult, error) {
	if r == nil || r.db == nil {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT game_id, title, winner_id, winner_name, players, eliminated,
		total_cards, started_at, ended_at FROM ek_games ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ekdto.GameResult
	for rows.Next() {
		var (
			res                 ekdto.GameResult
			players, eliminated []byte
		)
		if err := rows.Scan(&res.GameID, &res.Title, &res.WinnerID, &res.WinnerName, &players, &eliminated,
			&res.TotalCards, &res.StartedAt, &res.EndedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(players, &res.Players); err != nil {
			return nil, fmt.Errorf("decode players for %s: %w", res.GameID, err)
		}
		if err := json.Unmarshal(eliminated, &res.Eliminated); err != nil {
			return nil, fmt.Errorf("decode eliminated for %s: %w", res.GameID, err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}
