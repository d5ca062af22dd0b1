package domain

import "errors"

var (
	// ErrCourseNotFound indicates the course content could not be loaded.
	ErrCourseNotFound = errors.New("course not found")
	// ErrNoQuizAvailable is shown to the learner when a module has no questions.
	ErrNoQuizAvailable = errors.New("no quiz available for this module")
	// ErrSessionNotFound is returned when a navigation session has not been opened.
	ErrSessionNotFound = errors.New("navigation session not found")
	// ErrUnanswered is returned when advancing past an unanswered question.
	ErrUnanswered = errors.New("current question is unanswered")
	// ErrQuizNotFinished is returned when submitting before the results are shown.
	ErrQuizNotFinished = errors.New("quiz is not finished")
	// ErrNoActiveQuiz is returned for quiz interactions without an open quiz.
	ErrNoActiveQuiz = errors.New("no quiz in progress")
	// ErrInvalidCourse wraps validation failures for course documents.
	ErrInvalidCourse = errors.New("invalid course document")
)
