package redis

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"foundry-course-service/internal/domain"
	"foundry-course-service/internal/infra/memory"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestCourseRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		CourseLoader: memory.NewStaticCourseLoader(map[string]domain.Course{
			"course-1": sampleCourse(),
		}),
	}
	repo := NewCourseRepository(client, loader, time.Minute)

	course, err := repo.GetCourse(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get course: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected loader called once, got %d", loader.count())
	}
	if !mr.Exists("course:course-1") {
		t.Fatalf("expected course cached under course:course-1")
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetCourse(context.Background(), "course-1")
	if err != nil {
		t.Fatalf("get cached course: %v", err)
	}
	if loader.count() != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.count())
	}
	if cached.Name != course.Name || len(cached.Modules) != 1 || cached.Modules[0].Quiz.Questions[0].CorrectAnswer != 1 {
		t.Fatalf("cached course mismatch: %+v", cached)
	}
}

func TestCourseRepositoryExpiresAndInvalidates(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	loader := &countingLoader{
		CourseLoader: memory.NewStaticCourseLoader(map[string]domain.Course{
			"course-1": sampleCourse(),
		}),
	}
	repo := NewCourseRepository(newClient(mr), loader, time.Minute)
	ctx := context.Background()

	_, _ = repo.GetCourse(ctx, "course-1")
	mr.FastForward(2 * time.Minute)
	_, _ = repo.GetCourse(ctx, "course-1")
	if loader.count() != 2 {
		t.Fatalf("expected reload after ttl, loader calls=%d", loader.count())
	}

	if err := repo.Invalidate(ctx, "course-1"); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	_, _ = repo.GetCourse(ctx, "course-1")
	if loader.count() != 3 {
		t.Fatalf("expected reload after invalidate, loader calls=%d", loader.count())
	}
}

func TestCourseRepositoryNotFound(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	repo := NewCourseRepository(newClient(mr), memory.NewStaticCourseLoader(nil), time.Minute)
	if _, err := repo.GetCourse(context.Background(), "missing"); !errors.Is(err, domain.ErrCourseNotFound) {
		t.Fatalf("expected ErrCourseNotFound, got %v", err)
	}
	if mr.Exists("course:missing") {
		t.Fatalf("misses must not be cached")
	}
}

type countingLoader struct {
	memory.CourseLoader
	mu    sync.Mutex
	calls int
}

func (l *countingLoader) LoadCourse(ctx context.Context, courseID string) (domain.Course, error) {
	l.mu.Lock()
	l.calls++
	l.mu.Unlock()
	return l.CourseLoader.LoadCourse(ctx, courseID)
}

func (l *countingLoader) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.calls
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:   "course-1",
		Name: "Knife Skills",
		Modules: []domain.Module{
			{
				ID:    "m1",
				Title: "Grips",
				SubModules: []domain.SubModule{
					{ID: "s1", Title: "Pinch grip", Content: domain.Content{Text: "Hold the blade."}},
				},
				Quiz: domain.Quiz{
					ID: "q-m1",
					Questions: []domain.Question{
						{ID: "qq1", Prompt: "Which grip?", Options: []string{"Handle", "Pinch"}, CorrectAnswer: 1},
					},
				},
			},
		},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
