package app

import (
	"strconv"
	"strings"

	"foundry-course-service/internal/domain"
)

// Pass threshold as a ratio: a quiz passes at 7 correct answers out of 10.
const (
	passNumerator   = 7
	passDenominator = 10
)

// Score is the result of grading one quiz submission.
type Score struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Passed reports whether at least 70% of the questions were answered correctly.
func (s Score) Passed() bool {
	if s.Total == 0 {
		return false
	}
	return s.Correct*passDenominator >= s.Total*passNumerator
}

// Percent is the score rounded to the nearest whole percent.
func (s Score) Percent() int {
	if s.Total == 0 {
		return 0
	}
	return (s.Correct*200 + s.Total) / (s.Total * 2)
}

// ScoreAnswers grades answers positionally. Each answer is read as the decimal
// integer at its start, so "2.0" and "2abc" both pick option 2. Answers without a
// leading number, or missing ones, never match.
func ScoreAnswers(questions []domain.Question, answers []string) Score {
	score := Score{Total: len(questions)}
	for i, q := range questions {
		if i >= len(answers) {
			break
		}
		picked, ok := leadingInt(answers[i])
		if !ok {
			continue
		}
		if picked == q.CorrectAnswer {
			score.Correct++
		}
	}
	return score
}

// leadingInt parses an optional sign and the run of decimal digits that follow any
// leading whitespace, ignoring the rest of the string.
func leadingInt(raw string) (int, bool) {
	s := strings.TrimLeft(raw, " \t\n\r\v\f")
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	digits := end
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == digits {
		return 0, false
	}
	n, err := strconv.Atoi(s[:end])
	if err != nil {
		return 0, false
	}
	return n, true
}
