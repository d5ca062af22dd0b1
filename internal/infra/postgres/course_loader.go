package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"foundry-course-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	kindInstruction = "instruction"
	kindQuiz        = "quiz"
)

// courseMeta is the JSONB document kept in courses.meta.
type courseMeta struct {
	LearningObjectives []string               `json:"learningObjectives"`
	FinalAssessment    domain.FinalAssessment `json:"finalAssessment"`
}

// CourseLoader assembles a course from the courses, modules, submodules and
// quiz_questions tables.
type CourseLoader struct {
	pool *pgxpool.Pool
}

func NewCourseLoader(pool *pgxpool.Pool) *CourseLoader {
	return &CourseLoader{pool: pool}
}

func (l *CourseLoader) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	var (
		course  domain.Course
		rawMeta []byte
	)
	err := l.pool.QueryRow(ctx,
		`SELECT id, title, meta, is_published, created_at FROM courses WHERE id = $1`,
		courseID,
	).Scan(&course.ID, &course.Name, &rawMeta, &course.Published, &course.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Course{}, domain.ErrCourseNotFound
		}
		return domain.Course{}, fmt.Errorf("load course: %w", err)
	}

	var meta courseMeta
	if len(rawMeta) > 0 {
		if err := json.Unmarshal(rawMeta, &meta); err != nil {
			return domain.Course{}, fmt.Errorf("unmarshal course meta: %w", err)
		}
	}
	course.LearningObjectives = meta.LearningObjectives
	course.FinalAssessment = meta.FinalAssessment

	if course.Modules, err = l.loadModules(ctx, courseID); err != nil {
		return domain.Course{}, err
	}
	if err := l.loadSubModules(ctx, &course); err != nil {
		return domain.Course{}, err
	}
	if err := l.loadQuestions(ctx, &course); err != nil {
		return domain.Course{}, err
	}
	return course, nil
}

func (l *CourseLoader) loadModules(ctx context.Context, courseID string) ([]domain.Module, error) {
	rows, err := l.pool.Query(ctx,
		`SELECT id, title, is_safety_check FROM modules WHERE course_id = $1 ORDER BY idx`,
		courseID,
	)
	if err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	defer rows.Close()

	var modules []domain.Module
	for rows.Next() {
		var m domain.Module
		if err := rows.Scan(&m.ID, &m.Title, &m.IsSafetyCheck); err != nil {
			return nil, fmt.Errorf("scan module: %w", err)
		}
		modules = append(modules, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load modules: %w", err)
	}
	return modules, nil
}

func (l *CourseLoader) loadSubModules(ctx context.Context, course *domain.Course) error {
	rows, err := l.pool.Query(ctx,
		`SELECT module_id, id, kind, title, COALESCE(body, ''), COALESCE(image_url, '')
		 FROM submodules WHERE course_id = $1 ORDER BY module_id, idx`,
		course.ID,
	)
	if err != nil {
		return fmt.Errorf("load submodules: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			moduleID, kind string
			sub            domain.SubModule
		)
		if err := rows.Scan(&moduleID, &sub.ID, &kind, &sub.Title, &sub.Content.Text, &sub.Content.Image); err != nil {
			return fmt.Errorf("scan submodule: %w", err)
		}
		module, _, ok := course.FindModule(moduleID)
		if !ok {
			continue
		}
		if kind == kindQuiz {
			module.Quiz.ID = sub.ID
			continue
		}
		module.SubModules = append(module.SubModules, sub)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load submodules: %w", err)
	}
	return nil
}

func (l *CourseLoader) loadQuestions(ctx context.Context, course *domain.Course) error {
	quizzes := make(map[string]*domain.Quiz, len(course.Modules))
	for i := range course.Modules {
		if id := course.Modules[i].Quiz.ID; id != "" {
			quizzes[id] = &course.Modules[i].Quiz
		}
	}

	rows, err := l.pool.Query(ctx,
		`SELECT submodule_id, id, prompt, options, answer
		 FROM quiz_questions WHERE course_id = $1 ORDER BY submodule_id, idx`,
		course.ID,
	)
	if err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			quizID, answer string
			rawOptions     []byte
			q              domain.Question
		)
		if err := rows.Scan(&quizID, &q.ID, &q.Prompt, &rawOptions, &answer); err != nil {
			return fmt.Errorf("scan question: %w", err)
		}
		if err := json.Unmarshal(rawOptions, &q.Options); err != nil {
			return fmt.Errorf("unmarshal options of %s: %w", q.ID, err)
		}
		if q.CorrectAnswer, err = strconv.Atoi(answer); err != nil {
			return fmt.Errorf("question %s answer %q: %w", q.ID, answer, err)
		}
		if quiz, ok := quizzes[quizID]; ok {
			quiz.Questions = append(quiz.Questions, q)
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("load questions: %w", err)
	}
	return nil
}
