package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"foundry-course-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProgressStore persists learner progress in question_progress and quiz
// submissions in question_attempts.
type ProgressStore struct {
	pool *pgxpool.Pool
}

func NewProgressStore(pool *pgxpool.Pool) *ProgressStore {
	return &ProgressStore{pool: pool}
}

// Upsert records the latest state of a lesson or quiz for a user.
func (s *ProgressStore) Upsert(ctx context.Context, userID, subModuleID string, completed bool, tries int) error {
	query := `
		INSERT INTO question_progress (user_id, submodule_id, is_completed, tries, last_seen_at)
		VALUES ($1, $2, $3, $4, now())
		ON CONFLICT (user_id, submodule_id)
		DO UPDATE SET
			is_completed = excluded.is_completed,
			tries = excluded.tries,
			last_seen_at = excluded.last_seen_at
	`
	if _, err := s.pool.Exec(ctx, query, userID, subModuleID, completed, tries); err != nil {
		return fmt.Errorf("upsert progress: %w", err)
	}
	return nil
}

// FetchCompleted returns the ids of every completed item of the user.
func (s *ProgressStore) FetchCompleted(ctx context.Context, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT submodule_id FROM question_progress WHERE user_id = $1 AND is_completed ORDER BY submodule_id`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("fetch completed: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan completed: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("fetch completed: %w", err)
	}
	return ids, nil
}

// RecordAttempt appends a quiz submission.
func (s *ProgressStore) RecordAttempt(ctx context.Context, attempt domain.QuizAttempt) error {
	answers, err := json.Marshal(attempt.Answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO question_attempts (user_id, submodule_id, answer_json, is_correct, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		attempt.UserID, attempt.QuizID, answers, attempt.Passed, attempt.SubmittedAt,
	)
	if err != nil {
		return fmt.Errorf("record attempt: %w", err)
	}
	return nil
}

// Records lists every progress row ordered by user then item.
func (s *ProgressStore) Records(ctx context.Context) ([]domain.ProgressRecord, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, submodule_id, is_completed, tries, last_seen_at
		 FROM question_progress ORDER BY user_id, submodule_id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	defer rows.Close()

	var out []domain.ProgressRecord
	for rows.Next() {
		var r domain.ProgressRecord
		if err := rows.Scan(&r.UserID, &r.SubModuleID, &r.Completed, &r.Tries, &r.LastSeenAt); err != nil {
			return nil, fmt.Errorf("scan progress: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return out, nil
}
