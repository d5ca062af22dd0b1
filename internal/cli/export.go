package cli

import (
	"fmt"
	"os"

	pgstore "foundry-course-service/internal/infra/postgres"
	"foundry-course-service/internal/report"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewExportCmd writes stored learner progress to an .xlsx workbook.
func NewExportCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export learner progress to a spreadsheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, log, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = log.Sync() }()
			if cfg.Postgres.URL == "" {
				return fmt.Errorf("postgres url not configured")
			}

			pool, err := openPool(ctx, cfg)
			if err != nil {
				return fmt.Errorf("connect postgres: %w", err)
			}
			defer pool.Close()

			records, err := pgstore.NewProgressStore(pool).Records(ctx)
			if err != nil {
				return err
			}

			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("create %s: %w", out, err)
			}
			defer f.Close()
			if err := report.WriteProgress(f, records); err != nil {
				return err
			}
			log.Info("progress exported", zap.String("path", out), zap.Int("records", len(records)))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "progress.xlsx", "output file")
	return cmd
}
