package repository

import (
	"context"
	"database/sql"
	"fmt"

	"admissions-engine/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

// TemplatePlan is one diff-and-patch step over the template table: names to
// retire per pool and the full active set to upsert.
type TemplatePlan struct {
	Retire  map[models.Pool][]string
	Upserts []models.SubjectTemplate
}

const selectTemplates = `
	SELECT id, pool, subject_name, max_marks, display_order, is_active, updated_at
	FROM interview_subject_templates
	WHERE is_active`

// ListTemplates returns the active templates of every pool ordered for display.
func (r *Repository) ListTemplates(ctx context.Context) ([]models.SubjectTemplate, error) {
	rows, err := r.db.QueryContext(ctx, selectTemplates+` ORDER BY display_order, subject_name`)
	if err != nil {
		return nil, fmt.Errorf("list subject templates: %w", translate(err))
	}
	return scanTemplates(rows)
}

// ListPoolTemplates returns the active templates of one pool ordered for display.
func (r *Repository) ListPoolTemplates(ctx context.Context, pool models.Pool) ([]models.SubjectTemplate, error) {
	rows, err := r.db.QueryContext(ctx, selectTemplates+` AND pool = $1 ORDER BY display_order, subject_name`, string(pool))
	if err != nil {
		return nil, fmt.Errorf("list %s subject templates: %w", pool, translate(err))
	}
	return scanTemplates(rows)
}

func scanTemplates(rows *sql.Rows) ([]models.SubjectTemplate, error) {
	defer rows.Close()

	var out []models.SubjectTemplate
	for rows.Next() {
		var (
			t    models.SubjectTemplate
			pool string
		)
		if err := rows.Scan(&t.ID, &pool, &t.SubjectName, &t.MaxMarks, &t.DisplayOrder, &t.IsActive, &t.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan subject template: %w", err)
		}
		t.Pool = models.Pool(pool)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subject templates: %w", err)
	}
	return out, nil
}

// ApplyTemplates retires and upserts templates in one transaction, so
// concurrent readers see either the old or the new set, never an empty one.
func (r *Repository) ApplyTemplates(ctx context.Context, plan TemplatePlan) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin template transaction: %w", translate(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	for _, pool := range models.Pools {
		names := plan.Retire[pool]
		if len(names) == 0 {
			continue
		}
		if _, err = tx.ExecContext(ctx, `
			UPDATE interview_subject_templates
			SET is_active = false, updated_at = $1
			WHERE pool = $2 AND subject_name = ANY($3) AND is_active`,
			now, string(pool), pq.Array(names)); err != nil {
			return fmt.Errorf("retire %s templates: %w", pool, translate(err))
		}
	}

	for _, t := range plan.Upserts {
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO interview_subject_templates
				(id, pool, subject_name, max_marks, display_order, is_active, updated_at)
			VALUES ($1, $2, $3, $4, $5, true, $6)
			ON CONFLICT (pool, subject_name) DO UPDATE
			SET max_marks = EXCLUDED.max_marks,
				display_order = EXCLUDED.display_order,
				is_active = true,
				updated_at = EXCLUDED.updated_at`,
			uuid.NewString(), string(t.Pool), t.SubjectName, t.MaxMarks, t.DisplayOrder, now); err != nil {
			return fmt.Errorf("upsert %s template %q: %w", t.Pool, t.SubjectName, translate(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit template transaction: %w", translate(err))
	}
	return nil
}
