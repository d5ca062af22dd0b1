package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"foundry-course-service/internal/domain"
	"github.com/uptrace/bun"
)

type courseRow struct {
	bun.BaseModel `bun:"table:courses,alias:c"`

	ID          string    `bun:"id,pk"`
	Title       string    `bun:"title"`
	IsPublished bool      `bun:"is_published"`
	CreatedAt   time.Time `bun:"created_at"`
	UpdatedAt   time.Time `bun:"updated_at"`
	ModuleCount int       `bun:"module_count,scanonly"`
}

// Catalog implements app.Catalog over the courses table.
type Catalog struct {
	db *bun.DB
}

func NewCatalog(db *bun.DB) *Catalog {
	return &Catalog{db: db}
}

// Publish marks the course as published and reports the stored flag.
func (c *Catalog) Publish(ctx context.Context, courseID string) (bool, error) {
	var published bool
	err := c.db.NewUpdate().
		Model((*courseRow)(nil)).
		Set("is_published = TRUE").
		Set("updated_at = now()").
		Where("id = ?", courseID).
		Returning("is_published").
		Scan(ctx, &published)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, domain.ErrCourseNotFound
		}
		return false, fmt.Errorf("publish course: %w", err)
	}
	return published, nil
}

// ListPublished returns the published courses, newest first.
func (c *Catalog) ListPublished(ctx context.Context) ([]domain.CourseSummary, error) {
	var rows []courseRow
	err := c.db.NewSelect().
		Model(&rows).
		ColumnExpr("c.id, c.title, c.is_published, c.created_at").
		ColumnExpr("(SELECT count(*) FROM modules AS m WHERE m.course_id = c.id) AS module_count").
		Where("c.is_published").
		OrderExpr("c.created_at DESC, c.id").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("list published courses: %w", err)
	}

	out := make([]domain.CourseSummary, 0, len(rows))
	for _, r := range rows {
		out = append(out, domain.CourseSummary{
			ID:          r.ID,
			Name:        r.Title,
			ModuleCount: r.ModuleCount,
			Published:   r.IsPublished,
			CreatedAt:   r.CreatedAt,
		})
	}
	return out, nil
}
