package app

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"trivia-party-service/internal/domain"
)

// RoomRepository abstracts how rooms are stored (in-memory, Redis-backed, etc).
type RoomRepository interface {
	// GetOrCreate returns the room for code, creating it with the given host
	// and settings if absent. The second result reports whether it was created.
	GetOrCreate(code, hostID string, settings domain.Settings) (*Room, bool)
	Get(code string) (*Room, bool)
	Delete(code string)
	// All returns every live room; used for the disconnect sweep.
	All() []*Room
}

// GameRepository stores the in-progress game for a room code.
type GameRepository interface {
	Put(code string, game *Game)
	Get(code string) (*Game, bool)
	Delete(code string)
}

// QuestionProvider fetches a batch of questions for a category from the
// external content API.
type QuestionProvider interface {
	Fetch(ctx context.Context, count int, category string) ([]domain.QuestionContent, error)
}

// SessionLogger appends a durable summary of a started game. Best-effort:
// failures never surface to clients or block the start.
type SessionLogger interface {
	Append(ctx context.Context, rec domain.SessionRecord) error
}

// Options tunes coordinator policy. The zero value enables ready gating and a
// 10 second provider timeout.
type Options struct {
	// RequireReady gates start_game on every rostered player being ready.
	RequireReady bool
	// FetchTimeout bounds the question fetch; past it the start fails and
	// the room unlocks again.
	FetchTimeout time.Duration
	// Clock overrides time.Now in tests.
	Clock func() time.Time
}

// DefaultOptions returns the documented policy: strict joins are inherent to
// the coordinator, ready gating is on, fetches time out after 10 seconds.
func DefaultOptions() Options {
	return Options{RequireReady: true, FetchTimeout: 10 * time.Second}
}

// Coordinator orchestrates the room lifecycle: lobby membership, settings
// sync, ready gating, the start transition, per-question answer aggregation,
// and disconnect cleanup. It is the only component that mutates room or game
// state.
type Coordinator struct {
	rooms    RoomRepository
	games    GameRepository
	provider QuestionProvider
	sessions SessionLogger
	opts     Options
	now      func() time.Time
}

func NewCoordinator(rooms RoomRepository, games GameRepository, provider QuestionProvider, sessions SessionLogger, opts Options) *Coordinator {
	if opts.FetchTimeout <= 0 {
		opts.FetchTimeout = 10 * time.Second
	}
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Coordinator{
		rooms:    rooms,
		games:    games,
		provider: provider,
		sessions: sessions,
		opts:     opts,
		now:      now,
	}
}

// EnsureRoom creates the room in the open lobby state if it does not exist.
// Re-creation is a no-op; the original creator stays host. A nil settings
// pointer means the lobby defaults.
func (c *Coordinator) EnsureRoom(code, hostID string, settings *domain.Settings) {
	s := domain.DefaultSettings()
	if settings != nil {
		s = *settings
	}
	c.rooms.GetOrCreate(code, hostID, s)
}

// LobbyState is the catch-up snapshot unicast to a joining connection.
type LobbyState struct {
	Players  []domain.Player
	Settings domain.Settings
	Ready    map[string]bool
}

// Join appends the player to the room's roster and broadcasts the new roster.
// Joins are strict: a room that was never created yields ErrRoomNotFound.
func (c *Coordinator) Join(code string, player domain.Player) (LobbyState, error) {
	room, ok := c.rooms.Get(code)
	if !ok {
		return LobbyState{}, domain.ErrRoomNotFound
	}
	players, err := room.join(player)
	if err != nil {
		return LobbyState{}, err
	}
	return LobbyState{Players: players, Settings: room.Settings(), Ready: room.ReadyStates()}, nil
}

// Subscribe attaches a listener to the room's broadcast channel without
// touching the roster, returning the current roster for unicast catch-up.
// Host and spectator screens use this.
func (c *Coordinator) Subscribe(code string) (<-chan domain.Event, func(), []domain.Player, error) {
	room, ok := c.rooms.Get(code)
	if !ok {
		return nil, nil, nil, domain.ErrRoomNotFound
	}
	ch, cancel := room.Subscribe()
	return ch, cancel, room.Players(), nil
}

// Roster returns the room's current players in join order.
func (c *Coordinator) Roster(code string) ([]domain.Player, error) {
	room, ok := c.rooms.Get(code)
	if !ok {
		return nil, domain.ErrRoomNotFound
	}
	return room.Players(), nil
}

// UpdateSettings replaces the room's settings. Host-only; the new settings
// are broadcast to the room.
func (c *Coordinator) UpdateSettings(code, requesterID string, settings domain.Settings) error {
	room, ok := c.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	return room.updateSettings(requesterID, settings)
}

// SetReady records a player's ready flag and broadcasts the full ready map.
func (c *Coordinator) SetReady(code, playerID string, ready bool) error {
	room, ok := c.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	_, err := room.setReady(playerID, ready)
	return err
}

// StartGame runs the lobby -> in-progress transition: locks the room, fetches
// questions for the configured category and count, builds the game, appends
// the session record, and broadcasts the sanitized session. On provider
// failure the lock flag rolls back and the room stays joinable and retryable.
// The fetch runs with no room lock held.
func (c *Coordinator) StartGame(ctx context.Context, code string) error {
	room, ok := c.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}
	if _, running := c.games.Get(code); running {
		return domain.ErrGameInProgress
	}

	prevLocked, roster, settings, err := room.beginStart(c.opts.RequireReady)
	if err != nil {
		return err
	}

	fetchCtx, cancel := context.WithTimeout(ctx, c.opts.FetchTimeout)
	defer cancel()
	contents, err := c.provider.Fetch(fetchCtx, settings.NumQuestions, settings.Category)
	if err != nil {
		room.abortStart(prevLocked)
		return fmt.Errorf("%w: %v", domain.ErrProvider, err)
	}

	questions := buildQuestions(contents)
	game := newGame(code, questions, roster)
	c.games.Put(code, game)

	startedAt := c.now()
	session := domain.SessionPayload{
		ID:        fmt.Sprintf("%s-%d", code, startedAt.UnixMilli()),
		Room:      code,
		Players:   roster,
		Questions: displayQuestions(questions),
		Settings:  settings,
		StartedAt: startedAt.UTC().Format(time.RFC3339),
	}

	if c.sessions != nil {
		record := domain.SessionRecord{
			ID:        session.ID,
			Room:      code,
			Players:   roster,
			Questions: session.Questions,
			Settings:  settings,
			StartedAt: startedAt,
		}
		go func() {
			if err := c.sessions.Append(context.Background(), record); err != nil {
				log.Printf("session log append failed for room %s: %v", code, err)
			}
		}()
	}

	room.finishStart(session)
	return nil
}

// SubmitAnswer records one answer for the player. Duplicate submissions are
// silently ignored; unknown rooms and questions surface typed errors, as do
// answers to a question that is not yet current. When the answer completes
// the current question, the result is broadcast and the game advances.
func (c *Coordinator) SubmitAnswer(code, playerID string, questionID int, answer string) error {
	game, ok := c.games.Get(code)
	if !ok {
		return domain.ErrNoActiveGame
	}
	room, ok := c.rooms.Get(code)
	if !ok {
		return domain.ErrRoomNotFound
	}

	result, err := game.submit(playerID, questionID, answer, room.Players())
	if err != nil {
		return err
	}
	if result != nil {
		room.Publish(domain.Event{Type: domain.EventQuestionEnded, Payload: *result})
	}
	return nil
}

// Disconnect removes the connection's player from every room it joined,
// broadcasting updated rosters, and tears down rooms (and their games) whose
// roster drains to empty. When the departing player was the last one holding
// up the current question, the question resolves for whoever remains.
// Never a failure condition.
func (c *Coordinator) Disconnect(connID string) {
	for _, room := range c.rooms.All() {
		if !room.leave(connID) {
			continue
		}
		if room.IsEmpty() {
			c.rooms.Delete(room.Code())
			c.games.Delete(room.Code())
			continue
		}
		if game, ok := c.games.Get(room.Code()); ok {
			if result := game.recheck(room.Players()); result != nil {
				room.Publish(domain.Event{Type: domain.EventQuestionEnded, Payload: *result})
			}
		}
	}
}

// buildQuestions turns provider content into game questions: shuffled batch
// order, sequential ids, and a shuffled option list containing the correct
// answer plus all incorrect ones.
func buildQuestions(contents []domain.QuestionContent) []domain.Question {
	shuffled := make([]domain.QuestionContent, len(contents))
	copy(shuffled, contents)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	questions := make([]domain.Question, 0, len(shuffled))
	for i, content := range shuffled {
		options := make([]string, 0, len(content.IncorrectAnswers)+1)
		options = append(options, content.IncorrectAnswers...)
		options = append(options, content.CorrectAnswer)
		rand.Shuffle(len(options), func(a, b int) {
			options[a], options[b] = options[b], options[a]
		})
		questions = append(questions, domain.Question{
			ID:            i + 1,
			Prompt:        content.Prompt,
			CorrectAnswer: content.CorrectAnswer,
			AllAnswers:    options,
		})
	}
	return questions
}

func displayQuestions(questions []domain.Question) []domain.DisplayQuestion {
	display := make([]domain.DisplayQuestion, 0, len(questions))
	for _, q := range questions {
		display = append(display, q.Display())
	}
	return display
}
