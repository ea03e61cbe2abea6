package memory

import (
	"sync"

	"trivia-party-service/internal/app"
	"trivia-party-service/internal/domain"
)

// RoomStore is an in-memory implementation of app.RoomRepository.
type RoomStore struct {
	mu    sync.RWMutex
	rooms map[string]*app.Room
}

func NewRoomStore() *RoomStore {
	return &RoomStore{
		rooms: make(map[string]*app.Room),
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
	delete(s.rooms, code)
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

// GameStore is an in-memory implementation of app.GameRepository.
type GameStore struct {
	mu    sync.RWMutex
	games map[string]*app.Game
}

func NewGameStore() *GameStore {
	return &GameStore{
		games: make(map[string]*app.Game),
	}
}

func (s *GameStore) Put(code string, game *app.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.games[code] = game
}

func (s *GameStore) Get(code string) (*app.Game, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	game, ok := s.games[code]
	return game, ok
}

func (s *GameStore) Delete(code string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.games, code)
}
