package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"foundry-course-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// CourseLoader fetches course content from a backing store (fixtures, Postgres).
type CourseLoader interface {
	LoadCourse(ctx context.Context, courseID string) (domain.Course, error)
}

// CourseRepository caches courses with TTL to avoid repeated loads.
type CourseRepository struct {
	loader CourseLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedCourse
}

type cachedCourse struct {
	course    domain.Course
	expiresAt time.Time
}

func NewCourseRepository(loader CourseLoader, ttl time.Duration) *CourseRepository {
	return &CourseRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedCourse),
	}
}

func (r *CourseRepository) GetCourse(ctx context.Context, courseID string) (domain.Course, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[courseID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.course, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(courseID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[courseID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.course, nil
		}
		r.mu.RUnlock()

		course, err := r.loader.LoadCourse(ctx, courseID)
		if err != nil {
			return domain.Course{}, err
		}

		r.mu.Lock()
		r.cache[courseID] = cachedCourse{
			course:    course,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return course, nil
	})
	if err != nil {
		return domain.Course{}, err
	}
	return result.(domain.Course), nil
}

// Invalidate drops a cached course so the next read reloads it.
func (r *CourseRepository) Invalidate(_ context.Context, courseID string) error {
	r.mu.Lock()
	delete(r.cache, courseID)
	r.mu.Unlock()
	return nil
}

func (r *CourseRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticCourseLoader is a loader backed by an in-memory map (fixtures, tests, demos).
type StaticCourseLoader struct {
	mu      sync.RWMutex
	courses map[string]domain.Course
}

func NewStaticCourseLoader(courses map[string]domain.Course) *StaticCourseLoader {
	copied := make(map[string]domain.Course, len(courses))
	for id, c := range courses {
		copied[id] = c
	}
	return &StaticCourseLoader{courses: copied}
}

func (l *StaticCourseLoader) LoadCourse(_ context.Context, courseID string) (domain.Course, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if course, ok := l.courses[courseID]; ok {
		return course, nil
	}
	return domain.Course{}, domain.ErrCourseNotFound
}

// All returns every course ordered by id.
func (l *StaticCourseLoader) All() []domain.Course {
	l.mu.RLock()
	defer l.mu.RUnlock()
	courses := make([]domain.Course, 0, len(l.courses))
	for _, c := range l.courses {
		courses = append(courses, c)
	}
	sort.Slice(courses, func(i, j int) bool { return courses[i].ID < courses[j].ID })
	return courses
}

// Publish implements app.Catalog for fixture-backed deployments.
func (l *StaticCourseLoader) Publish(_ context.Context, courseID string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	course, ok := l.courses[courseID]
	if !ok {
		return false, domain.ErrCourseNotFound
	}
	course.Published = true
	l.courses[courseID] = course
	return true, nil
}

// ListPublished implements app.Catalog.
func (l *StaticCourseLoader) ListPublished(_ context.Context) ([]domain.CourseSummary, error) {
	var out []domain.CourseSummary
	for _, c := range l.All() {
		if c.Published {
			out = append(out, c.Summary())
		}
	}
	return out, nil
}
