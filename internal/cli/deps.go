package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"foundry-course-service/internal/app"
	"foundry-course-service/internal/config"
	"foundry-course-service/internal/domain"
	"foundry-course-service/internal/infra/fixture"
	"foundry-course-service/internal/infra/memory"
	pgstore "foundry-course-service/internal/infra/postgres"
	redisstore "foundry-course-service/internal/infra/redis"
	"foundry-course-service/internal/logging"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// loadConfig reads the config file and builds the logger it describes.
func loadConfig(path string) (config.Config, *zap.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return cfg, nil, err
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return cfg, nil, err
	}
	return cfg, log, nil
}

func openPool(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	return pgstore.NewPool(ctx, cfg.Postgres.URL, pgstore.PoolConfig{
		MaxConns: int32(cfg.Postgres.MaxConns),
		MinConns: int32(cfg.Postgres.MinConns),
	})
}

// loadFixtures returns the courses under dir. A missing directory yields an empty set.
func loadFixtures(dir string, log *zap.Logger) (map[string]domain.Course, error) {
	if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
		log.Warn("fixtures directory not found", zap.String("dir", dir))
		return map[string]domain.Course{}, nil
	}
	return fixture.LoadDir(dir, log)
}

// services holds the wired application and the resources to release on shutdown.
type services struct {
	course  *app.CourseService
	writer  *app.AsyncProgressWriter
	closers []func()
}

func (s *services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// buildServices picks Postgres and Redis adapters when configured and falls back
// to fixtures and in-memory stores otherwise.
func buildServices(ctx context.Context, cfg config.Config, log *zap.Logger) (*services, error) {
	out := &services{}

	var (
		loader   memory.CourseLoader
		progress app.ProgressStore
		catalog  app.Catalog
	)
	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
			return nil, err
		}
		pool, err := openPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		out.closers = append(out.closers, pool.Close)
		db := pgstore.OpenBun(cfg.Postgres.URL)
		out.closers = append(out.closers, func() { _ = db.Close() })

		loader = pgstore.NewCourseLoader(pool)
		progress = pgstore.NewProgressStore(pool)
		catalog = pgstore.NewCatalog(db)
	} else {
		courses, err := loadFixtures(cfg.Course.FixturesDir, log)
		if err != nil {
			out.Close()
			return nil, err
		}
		static := memory.NewStaticCourseLoader(courses)
		loader = static
		catalog = static
		progress = memory.NewProgressStore()
	}

	courseTTL := config.TTLDuration(cfg.Course.TTL, 10*time.Minute)
	var (
		courses  app.CourseRepository
		sessions app.SessionRepository
	)
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		out.closers = append(out.closers, func() { _ = client.Close() })
		courses = redisstore.NewCourseRepository(client, loader, courseTTL)
		sessions = redisstore.NewSessionStore(client, config.TTLDuration(cfg.Redis.TTL, 30*time.Minute))
	} else {
		courses = memory.NewCourseRepository(loader, courseTTL)
		sessions = memory.NewSessionStore()
	}

	out.writer = app.NewAsyncProgressWriter(progress, log, config.TTLDuration(cfg.Session.WriteTimeout, 5*time.Second))
	out.course = app.NewCourseService(courses, sessions, progress, catalog, out.writer, log)
	return out, nil
}
