package app

import (
	"sync"

	"trivia-party-service/internal/domain"
)

// Game is the in-progress state for one room: the question list with its
// answer key, the per-question answer ledger, the running scores, and the
// current question index. One mutex makes the record-check-advance sequence
// atomic, which is what guarantees question_ended fires exactly once per
// question even when the last two answers race.
type Game struct {
	room string

	mu        sync.Mutex
	questions []domain.Question
	index     int
	ledger    map[int]map[string]string
	scores    map[string]int
	ended     bool
}

func newGame(room string, questions []domain.Question, roster []domain.Player) *Game {
	scores := make(map[string]int, len(roster))
	for _, p := range roster {
		scores[p.ID] = 0
	}
	return &Game{
		room:      room,
		questions: questions,
		ledger:    make(map[int]map[string]string, len(questions)),
		scores:    scores,
	}
}

// submit records one player's answer to the current question. The first
// answer per player per question wins; duplicates are dropped without
// touching scores or triggering advancement. Answers to a question that is
// not current are rejected before anything is recorded, so the ledger for a
// question only ever fills while it is live. When the submission completes
// the current question's ledger for the given roster, submit returns the
// QuestionResult to broadcast; exactly one caller ever gets a non-nil result
// per question.
func (g *Game) submit(playerID string, questionID int, answer string, roster []domain.Player) (*domain.QuestionResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended {
		return nil, domain.ErrGameEnded
	}

	var question *domain.Question
	for i := range g.questions {
		if g.questions[i].ID == questionID {
			question = &g.questions[i]
			break
		}
	}
	if question == nil {
		return nil, domain.ErrQuestionNotFound
	}

	entries, ok := g.ledger[questionID]
	if !ok {
		entries = make(map[string]string, len(roster))
		g.ledger[questionID] = entries
	}
	if _, dup := entries[playerID]; dup {
		// First answer wins; late and timeout resubmissions are no-ops.
		return nil, nil
	}
	if question.ID != g.questions[g.index].ID {
		return nil, domain.ErrQuestionNotActive
	}
	entries[playerID] = answer
	if answer == question.CorrectAnswer {
		g.scores[playerID]++
	}

	return g.advanceIfCompleteLocked(roster), nil
}

// recheck re-runs the completeness check for the current question against the
// given roster. Called after a player leaves mid-game: if everyone who
// remains has already answered, the question resolves now rather than waiting
// for an answer that can never come.
func (g *Game) recheck(roster []domain.Player) *domain.QuestionResult {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.ended || len(roster) == 0 {
		return nil
	}
	return g.advanceIfCompleteLocked(roster)
}

func (g *Game) advanceIfCompleteLocked(roster []domain.Player) *domain.QuestionResult {
	question := g.questions[g.index]
	entries := g.ledger[question.ID]
	for _, p := range roster {
		if _, answered := entries[p.ID]; !answered {
			return nil
		}
	}

	g.index++
	if g.index >= len(g.questions) {
		g.ended = true
	}
	return &domain.QuestionResult{
		QuestionID: question.ID,
		Scores:     g.scoresLocked(),
		Answers:    copyAnswers(entries),
		GameOver:   g.ended,
	}
}

// Scores returns a copy of the running score map.
func (g *Game) Scores() map[string]int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scoresLocked()
}

// Ended reports whether the final question has resolved.
func (g *Game) Ended() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.ended
}

func (g *Game) scoresLocked() map[string]int {
	scores := make(map[string]int, len(g.scores))
	for id, score := range g.scores {
		scores[id] = score
	}
	return scores
}

func copyAnswers(entries map[string]string) map[string]string {
	answers := make(map[string]string, len(entries))
	for id, answer := range entries {
		answers[id] = answer
	}
	return answers
}
