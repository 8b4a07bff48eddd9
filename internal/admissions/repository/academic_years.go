package repository

import (
	"context"
	"fmt"

	"admissions-engine/internal/models"
)

// CurrentAcademicYear returns the academic year admissions run for in pool.
func (r *Repository) CurrentAcademicYear(ctx context.Context, pool models.Pool) (*models.AcademicYear, error) {
	year := models.AcademicYear{Pool: pool}
	err := r.db.QueryRowContext(ctx, `
		SELECT label, admissions_open, is_current
		FROM academic_years
		WHERE pool = $1 AND is_current
		ORDER BY label DESC
		LIMIT 1`, string(pool)).Scan(&year.Label, &year.AdmissionsOpen, &year.IsCurrent)
	if err != nil {
		return nil, fmt.Errorf("load %s academic year: %w", pool, translate(err))
	}
	return &year, nil
}
