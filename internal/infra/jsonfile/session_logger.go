// Package jsonfile persists session summaries to a local JSON file, the
// default when no database is configured.
package jsonfile

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"trivia-party-service/internal/domain"
)

// SessionLogger appends session records to a JSON array on disk. The whole
// array is rewritten on each append; session starts are rare enough that the
// simplicity wins.
type SessionLogger struct {
	mu   sync.Mutex
	path string
}

func NewSessionLogger(path string) *SessionLogger {
	return &SessionLogger{path: path}
}

func (l *SessionLogger) Append(_ context.Context, rec domain.SessionRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var sessions []domain.SessionRecord
	data, err := os.ReadFile(l.path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &sessions); err != nil {
			return fmt.Errorf("parse session log: %w", err)
		}
	case os.IsNotExist(err):
		// first session
	default:
		return fmt.Errorf("read session log: %w", err)
	}

	sessions = append(sessions, rec)
	out, err := json.MarshalIndent(sessions, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal session log: %w", err)
	}
	if err := os.WriteFile(l.path, out, 0o644); err != nil {
		return fmt.Errorf("write session log: %w", err)
	}
	return nil
}
