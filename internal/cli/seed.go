package cli

import (
	"fmt"
	"sort"

	pgstore "foundry-course-service/internal/infra/postgres"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewSeedCmd loads course fixtures into Postgres.
func NewSeedCmd(configPath *string) *cobra.Command {
	var (
		dir     string
		publish bool
	)
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load course fixtures into Postgres",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()

			if dir == "" {
				dir = cfg.Course.FixturesDir
			}
			if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
				return err
			}
			courses, err := loadFixtures(dir, log)
			if err != nil {
				return err
			}

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()
			writer := pgstore.NewCourseWriter(pool)

			ids := make([]string, 0, len(courses))
			for id := range courses {
				ids = append(ids, id)
			}
			sort.Strings(ids)
			for _, id := range ids {
				course := courses[id]
				course.Published = course.Published || publish
				if err := writer.SaveCourse(ctx, course); err != nil {
					return fmt.Errorf("seed %s: %w", id, err)
				}
				log.Info("course seeded", zap.String("course_id", id), zap.Int("modules", len(course.Modules)))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "fixtures directory (defaults to course.fixtures_dir)")
	cmd.Flags().BoolVar(&publish, "publish", false, "mark seeded courses as published")
	return cmd
}
