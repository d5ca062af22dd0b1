package app

import (
	"strconv"

	"foundry-course-service/internal/domain"
)

// QuizState is the phase of a quiz attempt.
type QuizState string

const (
	QuizInProgress QuizState = "inProgress"
	QuizResults    QuizState = "results"
)

// QuizAttempt walks a learner through one module's questions. Answers are kept as
// decimal option indexes, "" meaning unanswered.
type QuizAttempt struct {
	moduleID  string
	quizID    string
	questions []domain.Question
	index     int
	answers   []string
	score     *Score
	done      bool
}

func newQuizAttempt(module *domain.Module) *QuizAttempt {
	return &QuizAttempt{
		moduleID:  module.ID,
		quizID:    module.Quiz.ID,
		questions: module.Quiz.Questions,
		answers:   make([]string, len(module.Quiz.Questions)),
	}
}

// State reports whether the attempt is still collecting answers.
func (q *QuizAttempt) State() QuizState {
	if q.score != nil {
		return QuizResults
	}
	return QuizInProgress
}

// SelectAnswer records the option for the current question without advancing.
func (q *QuizAttempt) SelectAnswer(option int) {
	if q.done || q.score != nil {
		return
	}
	q.answers[q.index] = strconv.Itoa(option)
}

// Next advances to the following question, or grades the attempt on the last one.
func (q *QuizAttempt) Next() error {
	if q.done || q.score != nil {
		return nil
	}
	if q.answers[q.index] == "" {
		return domain.ErrUnanswered
	}
	if q.index < len(q.questions)-1 {
		q.index++
		return nil
	}
	score := ScoreAnswers(q.questions, q.answers)
	q.score = &score
	return nil
}

// Previous steps back one question; it stays put on the first question.
func (q *QuizAttempt) Previous() {
	if q.done || q.score != nil || q.index == 0 {
		return
	}
	q.index--
}

// Retake discards all answers and any score and restarts from the first question.
func (q *QuizAttempt) Retake() {
	if q.done {
		return
	}
	q.index = 0
	q.answers = make([]string, len(q.questions))
	q.score = nil
}

// finish hands the answers over for submission and terminates the attempt.
func (q *QuizAttempt) finish() ([]string, error) {
	if q.done || q.score == nil {
		return nil, domain.ErrQuizNotFinished
	}
	q.done = true
	return append([]string(nil), q.answers...), nil
}

// QuizView is the serializable state of an attempt.
type QuizView struct {
	ModuleID string      `json:"moduleId"`
	QuizID   string      `json:"quizId"`
	State    QuizState   `json:"state"`
	Index    int         `json:"index"`
	Total    int         `json:"total"`
	Question *QuizPrompt `json:"question,omitempty"`
	Answers  []string    `json:"answers"`
	Answered bool        `json:"answered"`
	Score    *Score      `json:"score,omitempty"`
	Percent  int         `json:"percent,omitempty"`
	Passed   bool        `json:"passed,omitempty"`
}

// QuizPrompt is a question without its answer key.
type QuizPrompt struct {
	ID      string   `json:"id"`
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

func (q *QuizAttempt) view() *QuizView {
	v := &QuizView{
		ModuleID: q.moduleID,
		QuizID:   q.quizID,
		State:    q.State(),
		Index:    q.index,
		Total:    len(q.questions),
		Answers:  append([]string(nil), q.answers...),
		Answered: q.answers[q.index] != "",
	}
	if q.score != nil {
		score := *q.score
		v.Score = &score
		v.Percent = score.Percent()
		v.Passed = score.Passed()
		return v
	}
	cur := q.questions[q.index]
	v.Question = &QuizPrompt{ID: cur.ID, Prompt: cur.Prompt, Options: cur.Options}
	return v
}
