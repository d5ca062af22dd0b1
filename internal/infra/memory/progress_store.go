package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"foundry-course-service/internal/domain"
)

// ProgressStore keeps completion records in memory, keyed by user and item.
type ProgressStore struct {
	mu       sync.RWMutex
	records  map[string]map[string]domain.ProgressRecord
	attempts []domain.QuizAttempt
	clock    func() time.Time
}

func NewProgressStore() *ProgressStore {
	return &ProgressStore{
		records: make(map[string]map[string]domain.ProgressRecord),
		clock:   time.Now,
	}
}

func (s *ProgressStore) Upsert(_ context.Context, userID, subModuleID string, completed bool, tries int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	byItem, ok := s.records[userID]
	if !ok {
		byItem = make(map[string]domain.ProgressRecord)
		s.records[userID] = byItem
	}
	byItem[subModuleID] = domain.ProgressRecord{
		UserID:      userID,
		SubModuleID: subModuleID,
		Completed:   completed,
		Tries:       tries,
		LastSeenAt:  s.clock(),
	}
	return nil
}

func (s *ProgressStore) FetchCompleted(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var ids []string
	for id, rec := range s.records[userID] {
		if rec.Completed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *ProgressStore) RecordAttempt(_ context.Context, attempt domain.QuizAttempt) error {
	s.mu.Lock()
	s.attempts = append(s.attempts, attempt)
	s.mu.Unlock()
	return nil
}

// Records returns every record, ordered by user then item.
func (s *ProgressStore) Records() []domain.ProgressRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.ProgressRecord
	for _, byItem := range s.records {
		for _, rec := range byItem {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].SubModuleID < out[j].SubModuleID
	})
	return out
}

// Attempts returns the recorded quiz attempts in submission order.
func (s *ProgressStore) Attempts() []domain.QuizAttempt {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.QuizAttempt(nil), s.attempts...)
}
