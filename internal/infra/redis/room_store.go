package redis

import (
	"context"
	"sync"
	"time"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/domain"
	"github.com/redis/go-redis/v9"
)

// RoomStore is a Redis-aware implementation of app.RoomRepository.
// Notes:
//   - Rooms stay in a local in-memory map so the in-process broadcast and
//     locking logic is untouched.
//   - Redis marks room liveness, so operators can enumerate active rooms
//     across restarts (and it is the hook for cross-instance routing later).
type RoomStore struct {
	client *redis.Client
	ttl    time.Duration

	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore(client *redis.Client, ttl time.Duration) *RoomStore {
	return &RoomStore{
		client: client,
		ttl:    ttl,
		rooms:  make(map[string]*app.Room),
	}
}

func (s *RoomStore) GetOrCreate(code, hostID string, settings domain.Settings) (*app.Room, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if room, ok := s.rooms[code]; ok {
		return room, false
	}
	room := app.NewRoom(code, hostID, settings)
	s.rooms[code] = room
	// best-effort liveness marker
	_ = s.client.Set(context.Background(), s.key(code), "1", s.ttl).Err()
	return room, true
}

func (s *RoomStore) Get(code string) (*app.Room, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	room, ok := s.rooms[code]
	return room, ok
}

func (s *RoomStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rooms[code]; !ok {
		return
	}
	delete(s.rooms, code)
	_ = s.client.Del(context.Background(), s.key(code)).Err()
}

func (s *RoomStore) All() []*app.Room {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rooms := make([]*app.Room, 0, len(s.rooms))
	for _, room := range s.rooms {
		rooms = append(rooms, room)
	}
	return rooms
}

func (s *RoomStore) key(code string) string {
	return "trivia:room:" + code
}
