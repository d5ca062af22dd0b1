package app

import (
	"context"
	"errors"
	"time"

	"foundry-course-service/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CourseRepository loads course content (from cache/backing store).
type CourseRepository interface {
	GetCourse(ctx context.Context, courseID string) (domain.Course, error)
}

// cacheInvalidator is implemented by caching course repositories.
type cacheInvalidator interface {
	Invalidate(ctx context.Context, courseID string) error
}

// SessionRepository abstracts how navigation sessions are held (in-memory, Redis, etc).
type SessionRepository interface {
	GetOrCreate(key SessionKey, create func() *Session) (*Session, bool)
	Get(key SessionKey) (*Session, bool)
	Delete(key SessionKey)
	List() []*Session
}

// ProgressStore persists completion records. Upsert is idempotent by
// (userID, subModuleID) and the last write wins.
type ProgressStore interface {
	Upsert(ctx context.Context, userID, subModuleID string, completed bool, tries int) error
	FetchCompleted(ctx context.Context, userID string) ([]string, error)
	RecordAttempt(ctx context.Context, attempt domain.QuizAttempt) error
}

// Catalog owns course visibility.
type Catalog interface {
	Publish(ctx context.Context, courseID string) (bool, error)
	ListPublished(ctx context.Context) ([]domain.CourseSummary, error)
}

// CourseService contains the course navigation use cases.
type CourseService struct {
	courses  CourseRepository
	sessions SessionRepository
	progress ProgressStore
	catalog  Catalog
	writer   ProgressWriter
	log      *zap.Logger
	now      func() time.Time
}

func NewCourseService(
	courses CourseRepository,
	sessions SessionRepository,
	progress ProgressStore,
	catalog Catalog,
	writer ProgressWriter,
	log *zap.Logger,
) *CourseService {
	return &CourseService{
		courses:  courses,
		sessions: sessions,
		progress: progress,
		catalog:  catalog,
		writer:   writer,
		log:      log,
		now:      time.Now,
	}
}

// Course returns the content of a course. Any load failure is reported as
// domain.ErrCourseNotFound.
func (s *CourseService) Course(ctx context.Context, courseID string) (domain.Course, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if !errors.Is(err, domain.ErrCourseNotFound) {
			s.log.Error("load course failed", zap.String("course_id", courseID), zap.Error(err))
		}
		return domain.Course{}, domain.ErrCourseNotFound
	}
	return course, nil
}

// Open attaches a connection to the learner's session, creating it on first use.
// Without a userID the session is private to the caller and never persisted.
func (s *CourseService) Open(ctx context.Context, courseID, userID string) (*Session, error) {
	course, err := s.Course(ctx, courseID)
	if err != nil {
		return nil, err
	}

	key := SessionKey{CourseID: courseID, UserID: userID}
	if userID == "" {
		key.UserID = "anon-" + uuid.NewString()
	}

	session, created := s.sessions.GetOrCreate(key, func() *Session {
		return NewSession(key, s.newTracker(ctx, &course, userID))
	})
	if created {
		s.log.Info("navigation session opened",
			zap.String("course_id", courseID),
			zap.String("session", key.String()),
		)
	}
	session.acquire()
	return session, nil
}

func (s *CourseService) newTracker(ctx context.Context, course *domain.Course, userID string) *Tracker {
	if userID == "" {
		return NewTracker(course, "", nil)
	}
	tracker := NewTracker(course, userID, s.writer)
	if s.progress == nil {
		return tracker
	}
	completed, err := s.progress.FetchCompleted(ctx, userID)
	if err != nil {
		// progress stays in memory for this session
		s.log.Warn("fetch progress failed", zap.String("user_id", userID), zap.Error(err))
		return tracker
	}
	tracker.Seed(completed)
	return tracker
}

// Get returns an open session.
func (s *CourseService) Get(key SessionKey) (*Session, error) {
	session, ok := s.sessions.Get(key)
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

// Close detaches a connection. Anonymous sessions are dropped with their last
// connection; named ones linger until swept so a reload resumes where it left off.
func (s *CourseService) Close(session *Session) {
	if session.release() > 0 {
		return
	}
	if session.tracker.userID == "" {
		s.sessions.Delete(session.key)
	}
}

// SweepIdle drops unused sessions idle for longer than maxIdle and returns how many
// were removed.
func (s *CourseService) SweepIdle(maxIdle time.Duration) int {
	cutoff := s.now().Add(-maxIdle)
	removed := 0
	for _, session := range s.sessions.List() {
		if session.InUse() || session.IdleSince().After(cutoff) {
			continue
		}
		s.sessions.Delete(session.key)
		removed++
	}
	if removed > 0 {
		s.log.Info("swept idle sessions", zap.Int("removed", removed))
	}
	return removed
}

// Publish flips a course to published. Only the boolean outcome is observed; errors
// are logged and read as "not published".
func (s *CourseService) Publish(ctx context.Context, courseID string) bool {
	published, err := s.catalog.Publish(ctx, courseID)
	if err != nil {
		s.log.Error("publish course failed", zap.String("course_id", courseID), zap.Error(err))
		return false
	}
	if cache, ok := s.courses.(cacheInvalidator); ok {
		if err := cache.Invalidate(ctx, courseID); err != nil {
			s.log.Warn("invalidate course cache failed", zap.String("course_id", courseID), zap.Error(err))
		}
	}
	for _, session := range s.sessions.List() {
		if session.key.CourseID != courseID {
			continue
		}
		_, _ = session.Update(func(t *Tracker) error {
			t.SetPublished(published)
			return nil
		})
	}
	return published
}

// Catalog lists the published courses.
func (s *CourseService) Catalog(ctx context.Context) ([]domain.CourseSummary, error) {
	return s.catalog.ListPublished(ctx)
}
