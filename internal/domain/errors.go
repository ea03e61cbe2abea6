package domain

import "errors"

var (
	// ErrRoomNotFound is returned for operations on a room that was never created.
	ErrRoomNotFound = errors.New("room not found")
	// ErrRoomLocked is returned when joining a room that already started.
	ErrRoomLocked = errors.New("room is locked")
	// ErrDuplicatePlayer is returned when a connection joins the same room twice.
	ErrDuplicatePlayer = errors.New("player already in room")
	// ErrPlayersNotReady is returned when a start is attempted before everyone is ready.
	ErrPlayersNotReady = errors.New("not all players are ready")
	// ErrUnauthorized is returned when a non-host attempts a host-only mutation.
	ErrUnauthorized = errors.New("only the host may do that")
	// ErrNoActiveGame is returned when a game operation targets a room still in the lobby.
	ErrNoActiveGame = errors.New("no active game for room")
	// ErrGameInProgress is returned when a start is attempted on a room that already started.
	ErrGameInProgress = errors.New("game already started")
	// ErrQuestionNotFound indicates a submitted question id is not part of the game.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrQuestionNotActive is returned for answers to a question other than the
	// current one. Answering ahead never records anything.
	ErrQuestionNotActive = errors.New("question is not active")
	// ErrGameEnded is returned for submissions after the final question resolved.
	ErrGameEnded = errors.New("game already ended")
	// ErrProvider indicates the question provider failed; the room stays retryable.
	ErrProvider = errors.New("question provider failed")
	// ErrCategoryNotFound indicates a configured category is unknown to the provider.
	ErrCategoryNotFound = errors.New("category not found")
)
