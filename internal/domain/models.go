package domain

import "time"

// Player is one connected participant in a room. The ID is the connection
// identity and lives only as long as that connection.
type Player struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Settings holds the host-configurable game parameters.
type Settings struct {
	Category     string `json:"category"`
	NumQuestions int    `json:"numQuestions"`
	TimeLimit    int    `json:"timeLimit"` // seconds, advisory for clients
}

// DefaultSettings mirrors the lobby defaults.
func DefaultSettings() Settings {
	return Settings{
		Category:     "General Knowledge",
		NumQuestions: 10,
		TimeLimit:    30,
	}
}

// QuestionContent is raw provider output: one prompt plus its answer pool.
type QuestionContent struct {
	Prompt           string
	CorrectAnswer    string
	IncorrectAnswers []string
}

// Question is an in-game question. CorrectAnswer never leaves the server;
// clients only ever see the Display projection.
type Question struct {
	ID            int
	Prompt        string
	CorrectAnswer string
	AllAnswers    []string
}

// DisplayQuestion is the client-safe projection of a Question.
type DisplayQuestion struct {
	ID         int      `json:"id"`
	Prompt     string   `json:"question"`
	AllAnswers []string `json:"all_answers"`
}

// Display strips the answer key.
func (q Question) Display() DisplayQuestion {
	return DisplayQuestion{ID: q.ID, Prompt: q.Prompt, AllAnswers: q.AllAnswers}
}

// NoAnswer is the sentinel clients submit when their timer expires without a
// pick. It counts as an incorrect answer for advancement purposes.
const NoAnswer = ""

// QuestionResult is broadcast once every rostered player has answered a
// question. Answers maps player id to what they submitted.
type QuestionResult struct {
	QuestionID int               `json:"questionId"`
	Scores     map[string]int    `json:"scores"`
	Answers    map[string]string `json:"answers"`
	GameOver   bool              `json:"gameOver"`
}

// SessionRecord is the durable summary appended when a game starts.
type SessionRecord struct {
	ID        string            `json:"id"`
	Room      string            `json:"room"`
	Players   []Player          `json:"players"`
	Questions []DisplayQuestion `json:"questions"`
	Settings  Settings          `json:"settings"`
	StartedAt time.Time         `json:"startedAt"`
}
