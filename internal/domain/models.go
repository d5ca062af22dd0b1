package domain

import "time"

// Course is the top-level learning unit. Modules are ordered as authored.
type Course struct {
	ID                 string          `json:"id" yaml:"id" validate:"required"`
	Name               string          `json:"name" yaml:"name" validate:"required"`
	LearningObjectives []string        `json:"learningObjectives" yaml:"learningObjectives"`
	Modules            []Module        `json:"modules" yaml:"modules" validate:"dive"`
	FinalAssessment    FinalAssessment `json:"finalAssessment" yaml:"finalAssessment"`
	Published          bool            `json:"published" yaml:"published"`
	CreatedAt          time.Time       `json:"createdAt" yaml:"createdAt"`
}

// Module groups lessons with the quiz that gates its completion.
type Module struct {
	ID            string      `json:"id" yaml:"id" validate:"required"`
	Title         string      `json:"title" yaml:"title" validate:"required"`
	SubModules    []SubModule `json:"subModules" yaml:"subModules" validate:"dive"`
	Quiz          Quiz        `json:"quiz" yaml:"quiz"`
	IsSafetyCheck bool        `json:"isSafetyCheck,omitempty" yaml:"isSafetyCheck"`
}

// SubModule is a single lesson.
type SubModule struct {
	ID      string  `json:"id" yaml:"id" validate:"required"`
	Title   string  `json:"title" yaml:"title" validate:"required"`
	Content Content `json:"content" yaml:"content"`
}

// Content is the lesson body and its illustration.
type Content struct {
	Text  string `json:"text" yaml:"text"`
	Image string `json:"aiGeneratedImage" yaml:"aiGeneratedImage"`
}

// Quiz is an ordered list of multiple choice questions.
type Quiz struct {
	ID        string     `json:"id" yaml:"id" validate:"required_with=Questions"`
	Questions []Question `json:"questions" yaml:"questions" validate:"dive"`
}

// Question models an MCQ question; CorrectAnswer indexes into Options.
type Question struct {
	ID            string   `json:"id" yaml:"id" validate:"required"`
	Prompt        string   `json:"question" yaml:"question" validate:"required"`
	Options       []string `json:"options" yaml:"options" validate:"min=2"`
	CorrectAnswer int      `json:"correctAnswer" yaml:"correctAnswer" validate:"gte=0"`
}

// FinalAssessment is the capstone task that closes the course.
type FinalAssessment struct {
	Title          string   `json:"title" yaml:"title"`
	Description    string   `json:"description" yaml:"description"`
	ARInstructions []string `json:"arInstructions" yaml:"arInstructions"`
	ARIntegration  bool     `json:"metaRayBansIntegration" yaml:"metaRayBansIntegration"`
}

// FindModule resolves a module by id.
func (c *Course) FindModule(id string) (*Module, int, bool) {
	for i := range c.Modules {
		if c.Modules[i].ID == id {
			return &c.Modules[i], i, true
		}
	}
	return nil, -1, false
}

// FindSubModule resolves a lesson by id within the module.
func (m *Module) FindSubModule(id string) (*SubModule, int, bool) {
	for i := range m.SubModules {
		if m.SubModules[i].ID == id {
			return &m.SubModules[i], i, true
		}
	}
	return nil, -1, false
}

// HasItem reports whether id names a lesson or a quiz somewhere in the course.
func (c *Course) HasItem(id string) bool {
	for _, m := range c.Modules {
		if m.Quiz.ID != "" && m.Quiz.ID == id {
			return true
		}
		if _, _, ok := m.FindSubModule(id); ok {
			return true
		}
	}
	return false
}

// ItemCount is the number of trackable items: every lesson plus every quiz.
func (c *Course) ItemCount() int {
	n := 0
	for _, m := range c.Modules {
		n += len(m.SubModules)
		if m.Quiz.ID != "" {
			n++
		}
	}
	return n
}

// CourseSummary is the catalogue view of a course.
type CourseSummary struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	ModuleCount int       `json:"moduleCount"`
	Published   bool      `json:"published"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Summary builds the catalogue entry for the course.
func (c Course) Summary() CourseSummary {
	return CourseSummary{
		ID:          c.ID,
		Name:        c.Name,
		ModuleCount: len(c.Modules),
		Published:   c.Published,
		CreatedAt:   c.CreatedAt,
	}
}

// ProgressRecord is one persisted completion row.
type ProgressRecord struct {
	UserID      string
	SubModuleID string
	Completed   bool
	Tries       int
	LastSeenAt  time.Time
}

// QuizAttempt is one submitted quiz, kept for auditing.
type QuizAttempt struct {
	UserID      string
	QuizID      string
	Answers     []string
	Correct     int
	Total       int
	Passed      bool
	SubmittedAt time.Time
}
