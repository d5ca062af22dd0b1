package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"foundry-course-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CourseWriter stores course documents in the relational layout read by CourseLoader.
type CourseWriter struct {
	pool *pgxpool.Pool
}

func NewCourseWriter(pool *pgxpool.Pool) *CourseWriter {
	return &CourseWriter{pool: pool}
}

// SaveCourse replaces the course and its tree in a single transaction. The
// published flag of an existing course is preserved.
func (w *CourseWriter) SaveCourse(ctx context.Context, course domain.Course) error {
	meta, err := json.Marshal(courseMeta{
		LearningObjectives: course.LearningObjectives,
		FinalAssessment:    course.FinalAssessment,
	})
	if err != nil {
		return fmt.Errorf("marshal course meta: %w", err)
	}

	return pgx.BeginFunc(ctx, w.pool, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO courses (id, title, summary, meta, is_published)
			VALUES ($1, $2, $3, $4, $5)
			ON CONFLICT (id) DO UPDATE SET
				title = excluded.title,
				summary = excluded.summary,
				meta = excluded.meta,
				is_published = courses.is_published OR excluded.is_published,
				updated_at = now()`,
			course.ID, course.Name, fmt.Sprintf("%d modules", len(course.Modules)), meta, course.Published,
		)
		if err != nil {
			return fmt.Errorf("upsert course: %w", err)
		}
		if _, err := tx.Exec(ctx, `DELETE FROM modules WHERE course_id = $1`, course.ID); err != nil {
			return fmt.Errorf("clear modules: %w", err)
		}

		batch := &pgx.Batch{}
		for mi, m := range course.Modules {
			batch.Queue(
				`INSERT INTO modules (id, course_id, idx, title, is_safety_check) VALUES ($1, $2, $3, $4, $5)`,
				m.ID, course.ID, mi, m.Title, m.IsSafetyCheck,
			)
			for si, s := range m.SubModules {
				batch.Queue(
					`INSERT INTO submodules (id, course_id, module_id, idx, kind, title, body, image_url)
					 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
					s.ID, course.ID, m.ID, si, kindInstruction, s.Title, s.Content.Text, s.Content.Image,
				)
			}
			if m.Quiz.ID == "" {
				continue
			}
			batch.Queue(
				`INSERT INTO submodules (id, course_id, module_id, idx, kind, title) VALUES ($1, $2, $3, $4, $5, $6)`,
				m.Quiz.ID, course.ID, m.ID, len(m.SubModules), kindQuiz, m.Title+" quiz",
			)
			for qi, q := range m.Quiz.Questions {
				options, err := json.Marshal(q.Options)
				if err != nil {
					return fmt.Errorf("marshal options of %s: %w", q.ID, err)
				}
				batch.Queue(
					`INSERT INTO quiz_questions (id, course_id, submodule_id, idx, prompt, options, answer)
					 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
					q.ID, course.ID, m.Quiz.ID, qi, q.Prompt, options, strconv.Itoa(q.CorrectAnswer),
				)
			}
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert course tree: %w", err)
		}
		return nil
	})
}
