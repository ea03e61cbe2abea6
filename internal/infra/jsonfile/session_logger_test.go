package jsonfile

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"trivia-party-service/internal/domain"
)

func TestSessionLoggerAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	logger := NewSessionLogger(path)

	first := sampleRecord("ABCDE-1")
	second := sampleRecord("FGHIJ-2")
	if err := logger.Append(context.Background(), first); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := logger.Append(context.Background(), second); err != nil {
		t.Fatalf("append: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}
	var sessions []domain.SessionRecord
	if err := json.Unmarshal(data, &sessions); err != nil {
		t.Fatalf("parse log: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	if sessions[0].ID != "ABCDE-1" || sessions[1].ID != "FGHIJ-2" {
		t.Fatalf("expected append order preserved, got %+v", sessions)
	}
}

func TestSessionLoggerRejectsCorruptLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sessions.json")
	if err := os.WriteFile(path, []byte("not json"), 0o644); err != nil {
		t.Fatalf("seed corrupt file: %v", err)
	}

	logger := NewSessionLogger(path)
	if err := logger.Append(context.Background(), sampleRecord("x")); err == nil {
		t.Fatalf("expected error on corrupt log")
	}
}

func sampleRecord(id string) domain.SessionRecord {
	return domain.SessionRecord{
		ID:   id,
		Room: "ABCDE",
		Players: []domain.Player{
			{ID: "p1", Name: "Alice"},
		},
		Settings:  domain.DefaultSettings(),
		StartedAt: time.Date(2024, 11, 22, 10, 0, 0, 0, time.UTC),
	}
}
