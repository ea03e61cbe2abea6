package domain

// EventType names a broadcast emitted to a room's subscribers. The values are
// the wire-level message types clients switch on.
type EventType string

const (
	EventPlayerJoined   EventType = "player_joined"
	EventSettingsUpdate EventType = "settings_updated"
	EventReadyStates    EventType = "ready_states_updated"
	EventStartGame      EventType = "start_game"
	EventQuestionEnded  EventType = "question_ended"
)

// Event is the envelope fanned out to every subscriber of a room.
type Event struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// SessionPayload is the start_game broadcast: everything clients need to run
// the game locally, minus the answer key.
type SessionPayload struct {
	ID        string            `json:"id"`
	Room      string            `json:"room"`
	Players   []Player          `json:"players"`
	Questions []DisplayQuestion `json:"questions"`
	Settings  Settings          `json:"settings"`
	StartedAt string            `json:"startedAt"`
}
