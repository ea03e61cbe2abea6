package app

import (
	"sync"
	"time"

	"trivia-party-service/internal/domain"
)

// Room is the in-memory lobby state for one room code: roster, settings,
// ready flags, lock flag, and the broadcast subscribers. All of it is guarded
// by one mutex, so every state transition for a room is serialized while
// different rooms proceed in parallel.
type Room struct {
	code      string
	createdAt time.Time
	now       func() time.Time

	mu          sync.Mutex
	hostID      string
	players     []domain.Player
	settings    domain.Settings
	ready       map[string]bool
	locked      bool
	starting    bool
	subscribers map[chan domain.Event]struct{}
}

// NewRoom is exported for infrastructure layers that need to seed rooms.
func NewRoom(code, hostID string, settings domain.Settings) *Room {
	return NewRoomWithClock(code, hostID, settings, time.Now)
}

// NewRoomWithClock is test-only for deterministic timestamps.
func NewRoomWithClock(code, hostID string, settings domain.Settings, now func() time.Time) *Room {
	return &Room{
		code:        code,
		createdAt:   now(),
		now:         now,
		hostID:      hostID,
		settings:    settings,
		ready:       make(map[string]bool),
		subscribers: make(map[chan domain.Event]struct{}),
	}
}

// Code returns the room's code.
func (r *Room) Code() string {
	return r.code
}

func (r *Room) join(p domain.Player) ([]domain.Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.locked {
		return nil, domain.ErrRoomLocked
	}
	for _, existing := range r.players {
		if existing.ID == p.ID {
			return nil, domain.ErrDuplicatePlayer
		}
	}
	r.players = append(r.players, p)
	roster := r.rosterLocked()
	r.publishLocked(domain.Event{Type: domain.EventPlayerJoined, Payload: roster})
	return roster, nil
}

// leave removes the player and their ready flag, broadcasting the updated
// roster and ready map to whoever remains. It reports whether the player was
// actually present.
func (r *Room) leave(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return false
	}
	r.players = append(r.players[:idx], r.players[idx+1:]...)
	delete(r.ready, playerID)
	r.publishLocked(domain.Event{Type: domain.EventPlayerJoined, Payload: r.rosterLocked()})
	r.publishLocked(domain.Event{Type: domain.EventReadyStates, Payload: r.readyLocked()})
	return true
}

func (r *Room) setReady(playerID string, ready bool) (map[string]bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	found := false
	for _, p := range r.players {
		if p.ID == playerID {
			found = true
			break
		}
	}
	if !found {
		return nil, domain.ErrUnauthorized
	}
	r.ready[playerID] = ready
	states := r.readyLocked()
	r.publishLocked(domain.Event{Type: domain.EventReadyStates, Payload: states})
	return states, nil
}

func (r *Room) updateSettings(requesterID string, s domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if requesterID != r.hostID {
		return domain.ErrUnauthorized
	}
	r.settings = s
	r.publishLocked(domain.Event{Type: domain.EventSettingsUpdate, Payload: s})
	return nil
}

// beginStart locks the room for joins and snapshots what the fetch needs.
// It returns the prior lock flag so a provider failure can restore it.
func (r *Room) beginStart(requireReady bool) (prevLocked bool, roster []domain.Player, settings domain.Settings, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.starting {
		return false, nil, domain.Settings{}, domain.ErrGameInProgress
	}
	if len(r.players) == 0 {
		return false, nil, domain.Settings{}, domain.ErrPlayersNotReady
	}
	if requireReady {
		for _, p := range r.players {
			if !r.ready[p.ID] {
				return false, nil, domain.Settings{}, domain.ErrPlayersNotReady
			}
		}
	}

	prevLocked = r.locked
	r.locked = true
	r.starting = true
	return prevLocked, r.rosterLocked(), r.settings, nil
}

// abortStart rolls the lock flag back after a failed question fetch, leaving
// the room joinable and the start retryable.
func (r *Room) abortStart(prevLocked bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.locked = prevLocked
	r.starting = false
}

// finishStart completes the lobby -> in-progress transition and broadcasts
// the sanitized session to the room.
func (r *Room) finishStart(session domain.SessionPayload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked(domain.Event{Type: domain.EventStartGame, Payload: session})
}

// Publish fans an event out to every subscriber of the room.
func (r *Room) Publish(evt domain.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.publishLocked(evt)
}

// Subscribe attaches a listener to the room's broadcast channel. The caller
// must invoke the returned cancel function to avoid leaks.
func (r *Room) Subscribe() (<-chan domain.Event, func()) {
	ch := make(chan domain.Event, 8)

	r.mu.Lock()
	r.subscribers[ch] = struct{}{}
	r.mu.Unlock()

	cancel := func() {
		r.mu.Lock()
		if _, ok := r.subscribers[ch]; ok {
			delete(r.subscribers, ch)
			close(ch)
		}
		r.mu.Unlock()
	}
	return ch, cancel
}

// Players returns the roster in join order.
func (r *Room) Players() []domain.Player {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rosterLocked()
}

// ReadyStates returns a copy of the ready map.
func (r *Room) ReadyStates() map[string]bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.readyLocked()
}

// Settings returns the current settings.
func (r *Room) Settings() domain.Settings {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.settings
}

// IsEmpty reports whether the roster is empty.
func (r *Room) IsEmpty() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players) == 0
}

// Locked reports whether the room rejects joins.
func (r *Room) Locked() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.locked
}

func (r *Room) rosterLocked() []domain.Player {
	roster := make([]domain.Player, len(r.players))
	copy(roster, r.players)
	return roster
}

func (r *Room) readyLocked() map[string]bool {
	states := make(map[string]bool, len(r.ready))
	for id, ready := range r.ready {
		states[id] = ready
	}
	return states
}

func (r *Room) publishLocked(evt domain.Event) {
	for ch := range r.subscribers {
		select {
		case ch <- evt:
		default:
			// Drop the oldest event rather than block the room on a slow client.
			select {
			case <-ch:
			default:
			}
			ch <- evt
		}
	}
}
