package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"trivia-party-service/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// SessionLogger appends started-game summaries to Postgres. Write-only: the
// coordinator never reads these rows back.
type SessionLogger struct {
	pool *pgxpool.Pool
}

func NewSessionLogger(pool *pgxpool.Pool) *SessionLogger {
	return &SessionLogger{pool: pool}
}

func (l *SessionLogger) Append(ctx context.Context, rec domain.SessionRecord) error {
	players, err := json.Marshal(rec.Players)
	if err != nil {
		return fmt.Errorf("marshal players: %w", err)
	}
	questions, err := json.Marshal(rec.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	settings, err := json.Marshal(rec.Settings)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}
	_, err = l.pool.Exec(ctx,
		`INSERT INTO sessions (id, room, players, questions, settings, started_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Room, players, questions, settings, rec.StartedAt)
	if err != nil {
		return fmt.Errorf("append session: %w", err)
	}
	return nil
}
