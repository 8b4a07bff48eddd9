package repository

import (
	"context"
	"fmt"

	"admissions-engine/internal/models"

	"github.com/google/uuid"
)

// ListMarks returns every mark recorded for one application.
func (r *Repository) ListMarks(ctx context.Context, ref models.ApplicationRef) ([]models.MarkRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, application_id, pool, subject_name, max_marks, marks_obtained, updated_at
		FROM interview_marks
		WHERE pool = $1 AND application_id = $2
		ORDER BY subject_name`, string(ref.Pool), ref.ID)
	if err != nil {
		return nil, fmt.Errorf("list marks: %w", translate(err))
	}
	defer rows.Close()

	var out []models.MarkRecord
	for rows.Next() {
		var (
			m    models.MarkRecord
			pool string
		)
		if err := rows.Scan(&m.ID, &m.ApplicationID, &pool, &m.SubjectName, &m.MaxMarks, &m.MarksObtained, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan mark: %w", err)
		}
		m.Pool = models.Pool(pool)
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate marks: %w", err)
	}
	return out, nil
}

// UpsertMarks writes marks for one or more subjects in a single transaction.
func (r *Repository) UpsertMarks(ctx context.Context, records []models.MarkRecord) (err error) {
	if len(records) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin marks transaction: %w", translate(err))
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := r.now()
	for _, m := range records {
		id := m.ID
		if id == "" {
			id = uuid.NewString()
		}
		if _, err = tx.ExecContext(ctx, `
			INSERT INTO interview_marks
				(id, application_id, pool, subject_name, max_marks, marks_obtained, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (application_id, subject_name) DO UPDATE
			SET max_marks = EXCLUDED.max_marks,
				marks_obtained = EXCLUDED.marks_obtained,
				updated_at = EXCLUDED.updated_at`,
			id, m.ApplicationID, string(m.Pool), m.SubjectName, m.MaxMarks, m.MarksObtained, now); err != nil {
			return fmt.Errorf("upsert mark %q: %w", m.SubjectName, translate(err))
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit marks transaction: %w", translate(err))
	}
	return nil
}

// RepairMaxMarks aligns the denormalised max marks of every mark recorded
// under subject in pool. Rows already in line are not touched.
func (r *Repository) RepairMaxMarks(ctx context.Context, pool models.Pool, subject string, maxMarks float64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE interview_marks
		SET max_marks = $1, subject_name = $2, updated_at = $3
		WHERE pool = $4 AND subject_name = $2 AND max_marks <> $1`,
		maxMarks, subject, r.now(), string(pool))
	if err != nil {
		return 0, fmt.Errorf("repair %s marks for %q: %w", pool, subject, translate(err))
	}
	return res.RowsAffected()
}

// DeleteSubjectMarks removes every mark recorded under subject in pool.
func (r *Repository) DeleteSubjectMarks(ctx context.Context, pool models.Pool, subject string) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM interview_marks
		WHERE pool = $1 AND subject_name = $2`, string(pool), subject)
	if err != nil {
		return 0, fmt.Errorf("delete %s marks for %q: %w", pool, subject, translate(err))
	}
	return res.RowsAffected()
}

// ListMarkSubjects returns the distinct subject names that have marks
// recorded in pool, whether or not a template still exists for them.
func (r *Repository) ListMarkSubjects(ctx context.Context, pool models.Pool) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT subject_name
		FROM interview_marks
		WHERE pool = $1
		ORDER BY subject_name`, string(pool))
	if err != nil {
		return nil, fmt.Errorf("list %s mark subjects: %w", pool, translate(err))
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan mark subject: %w", err)
		}
		out = append(out, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mark subjects: %w", err)
	}
	return out, nil
}
