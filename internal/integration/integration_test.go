package integration

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"foundry-course-service/internal/app"
	"foundry-course-service/internal/domain"
	pgstore "foundry-course-service/internal/infra/postgres"
	pgmigrations "foundry-course-service/internal/infra/postgres/migrations"
	infraredis "foundry-course-service/internal/infra/redis"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun/migrate"
	"go.uber.org/zap"
)

func TestCourseProgressEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := pgstore.OpenBun(pgURL)
	defer db.Close()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	pool, err := pgstore.NewPool(ctx, pgURL, pgstore.PoolConfig{MaxConns: 4})
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	if err := pgstore.NewCourseWriter(pool).SaveCourse(ctx, sampleCourse()); err != nil {
		t.Fatalf("seed course: %v", err)
	}

	loader := pgstore.NewCourseLoader(pool)
	loaded, err := loader.LoadCourse(ctx, "c1")
	if err != nil {
		t.Fatalf("load course: %v", err)
	}
	if !reflect.DeepEqual(loaded.Modules, sampleCourse().Modules) {
		t.Fatalf("course tree did not round-trip:\n got %+v\nwant %+v", loaded.Modules, sampleCourse().Modules)
	}

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	defer redisClient.Close()

	log := zap.NewNop()
	progress := pgstore.NewProgressStore(pool)
	catalog := pgstore.NewCatalog(db)
	writer := app.NewAsyncProgressWriter(progress, log, 5*time.Second)
	service := app.NewCourseService(
		infraredis.NewCourseRepository(redisClient, loader, 5*time.Minute),
		infraredis.NewSessionStore(redisClient, 5*time.Minute),
		progress,
		catalog,
		writer,
		log,
	)

	session, err := service.Open(ctx, "c1", "u1")
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	_, err = session.Update(func(tr *app.Tracker) error {
		tr.GoNext() // m1
		tr.GoNext() // s1
		tr.GoNext() // s2
		if err := tr.TakeQuiz("m1"); err != nil {
			return err
		}
		_, ok := tr.SubmitQuiz([]string{"2", "0"})
		if !ok {
			return fmt.Errorf("no pending quiz")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("navigate: %v", err)
	}
	if snap := session.Snapshot(); !reflect.DeepEqual(snap.CompletedModules, []string{"m1"}) {
		t.Fatalf("expected m1 completed, got %v", snap.CompletedModules)
	}
	service.Close(session)
	writer.Wait()

	completed, err := progress.FetchCompleted(ctx, "u1")
	if err != nil {
		t.Fatalf("fetch completed: %v", err)
	}
	if !reflect.DeepEqual(completed, []string{"q-m1", "s1", "s2"}) {
		t.Fatalf("unexpected persisted progress %v", completed)
	}

	if !service.Publish(ctx, "c1") {
		t.Fatalf("expected publish to succeed")
	}
	if service.Publish(ctx, "missing") {
		t.Fatalf("expected publish of unknown course to fail")
	}
	courses, err := service.Catalog(ctx)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(courses) != 1 || courses[0].ID != "c1" || courses[0].ModuleCount != 1 {
		t.Fatalf("unexpected catalogue %+v", courses)
	}

	// a fresh session (e.g. after a restart) resumes from stored progress
	service.SweepIdle(0)
	resumed, err := service.Open(ctx, "c1", "u1")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer service.Close(resumed)
	if snap := resumed.Snapshot(); !reflect.DeepEqual(snap.CompletedModules, []string{"m1"}) || !snap.Published {
		t.Fatalf("expected resumed progress and published flag, got %+v", snap)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("course"),
		tcpostgres.WithUsername("course"),
		tcpostgres.WithPassword("coursepass"),
		tcpostgres.BasicWaitStrategies(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func sampleCourse() domain.Course {
	return domain.Course{
		ID:                 "c1",
		Name:               "Woodworking",
		LearningObjectives: []string{"Work safely"},
		Modules: []domain.Module{
			{
				ID:            "m1",
				Title:         "Safety",
				IsSafetyCheck: true,
				SubModules: []domain.SubModule{
					{ID: "s1", Title: "Safety Equipment", Content: domain.Content{Text: "Wear goggles.", Image: "goggles.png"}},
					{ID: "s2", Title: "Workshop Setup", Content: domain.Content{Text: "Light the bench."}},
				},
				Quiz: domain.Quiz{
					ID: "q-m1",
					Questions: []domain.Question{
						{ID: "qq1", Prompt: "Eye protection?", Options: []string{"No", "Maybe", "Goggles"}, CorrectAnswer: 2},
						{ID: "qq2", Prompt: "Clamp the work?", Options: []string{"Yes", "No"}, CorrectAnswer: 0},
					},
				},
			},
		},
		FinalAssessment: domain.FinalAssessment{Title: "Build a box", ARInstructions: []string{"Measure", "Cut"}},
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(opts), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
