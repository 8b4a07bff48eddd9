package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"admissions-engine/internal/models"

	"github.com/lib/pq"
)

// applicationRow tolerates rows written before full_name replaced child_name
// in the early-years table.
type applicationRow struct {
	models.Application
	ChildName string `json:"child_name"`
}

func decodeApplication(pool models.Pool, raw []byte) (*models.Application, error) {
	var row applicationRow
	if err := json.Unmarshal(raw, &row); err != nil {
		return nil, fmt.Errorf("decode %s application: %w", pool, err)
	}
	app := row.Application
	if app.FullName == "" {
		app.FullName = row.ChildName
	}
	app.Pool = pool
	app.Normalize()
	return &app, nil
}

func insertColumns(app *models.Application, shape SchemaShape) ([]string, []interface{}) {
	cols := []string{
		"id", "application_number", "full_name", "gender", "date_of_birth",
		"father_name", "mother_name", "mobile",
		"house_name", "place", "post_office", "district", "state", "pin_code",
		"status", "created_at", "updated_at",
	}
	vals := []interface{}{
		app.ID, app.ApplicationNumber, app.FullName, app.Gender, app.DateOfBirth,
		app.FatherName, app.MotherName, app.Mobile,
		app.HouseName, app.Place, app.PostOffice, app.District, app.State, app.PinCode,
		string(app.Status), app.CreatedAt, app.UpdatedAt,
	}

	if shape == ShapePreferred {
		cols = append(cols, newerColumns...)
		vals = append(vals, nullable(app.Email), nullable(app.GuardianName),
			app.Sibling.InSchool, nullable(app.Sibling.Name), nullable(app.Sibling.Class))
	}

	switch app.Pool {
	case models.PoolEarlyYears:
		d := app.EarlyYearsDetails
		cols = append(cols, "stage", "previous_school")
		vals = append(vals, d.Stage, nullable(d.PreviousSchool))
	case models.PoolSeniorEntry:
		d := app.SeniorEntryDetails
		cols = append(cols, "stream", "qualifying_board", "qualifying_register_number",
			"qualifying_school", "qualifying_percentage")
		vals = append(vals, d.Stream, d.QualifyingBoard, d.QualifyingRegisterNumber,
			nullable(d.QualifyingSchool), d.QualifyingPercentage)
	}
	return cols, vals
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func placeholders(from, n int) string {
	ph := make([]string, n)
	for i := range ph {
		ph[i] = fmt.Sprintf("$%d", from+i)
	}
	return strings.Join(ph, ", ")
}

// InsertApplication writes a new application in a single statement. A
// duplicate application number is reported as sentinel.ErrCollision and a
// missing optional column as sentinel.ErrSchemaMismatch.
func (r *Repository) InsertApplication(ctx context.Context, app *models.Application, shape SchemaShape) error {
	table, err := tableFor(app.Pool)
	if err != nil {
		return err
	}
	app.Normalize()

	cols, vals := insertColumns(app, shape)
	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)",
		table, strings.Join(cols, ", "), placeholders(1, len(cols)))

	if _, err := r.db.ExecContext(ctx, query, vals...); err != nil {
		return fmt.Errorf("insert into %s (%s shape): %w", table, shape, translate(err))
	}
	return nil
}

func (r *Repository) getApplication(ctx context.Context, pool models.Pool, column, value string) (*models.Application, error) {
	table, err := tableFor(pool)
	if err != nil {
		return nil, err
	}

	var raw []byte
	query := fmt.Sprintf("SELECT to_jsonb(a) FROM %s a WHERE a.%s = $1", table, column)
	if err := r.db.QueryRowContext(ctx, query, value).Scan(&raw); err != nil {
		return nil, fmt.Errorf("load %s application by %s: %w", pool, column, translate(err))
	}
	return decodeApplication(pool, raw)
}

// GetApplication loads an application by internal id.
func (r *Repository) GetApplication(ctx context.Context, ref models.ApplicationRef) (*models.Application, error) {
	return r.getApplication(ctx, ref.Pool, "id", ref.ID)
}

// FindByNumber loads an application by its application number. Rows are read
// whole through to_jsonb so tables that predate newer columns still decode.
func (r *Repository) FindByNumber(ctx context.Context, pool models.Pool, number string) (*models.Application, error) {
	return r.getApplication(ctx, pool, "application_number", number)
}

// UpdateStatus sets the status and, when schedule is non-nil, the interview
// date and time in the same statement. It returns the updated row.
func (r *Repository) UpdateStatus(ctx context.Context, ref models.ApplicationRef, status models.Status, schedule *models.InterviewSchedule) (*models.Application, error) {
	table, err := tableFor(ref.Pool)
	if err != nil {
		return nil, err
	}

	var (
		query string
		args  []interface{}
	)
	if schedule != nil {
		query = fmt.Sprintf(`UPDATE %s AS a
			SET status = $1, interview_date = $2, interview_time = $3, updated_at = $4
			WHERE a.id = $5
			RETURNING to_jsonb(a)`, table)
		args = []interface{}{string(status), schedule.Date, schedule.Time, r.now(), ref.ID}
	} else {
		query = fmt.Sprintf(`UPDATE %s AS a
			SET status = $1, updated_at = $2
			WHERE a.id = $3
			RETURNING to_jsonb(a)`, table)
		args = []interface{}{string(status), r.now(), ref.ID}
	}

	var raw []byte
	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&raw); err != nil {
		return nil, fmt.Errorf("update %s status: %w", table, translate(err))
	}
	return decodeApplication(ref.Pool, raw)
}

// UpdateStatusMany applies one status change to many applications of a
// single pool and reports how many rows changed.
func (r *Repository) UpdateStatusMany(ctx context.Context, pool models.Pool, ids []string, status models.Status, schedule *models.InterviewSchedule) (int64, error) {
	table, err := tableFor(pool)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}

	var (
		query string
		args  []interface{}
	)
	if schedule != nil {
		query = fmt.Sprintf(`UPDATE %s
			SET status = $1, interview_date = $2, interview_time = $3, updated_at = $4
			WHERE id = ANY($5)`, table)
		args = []interface{}{string(status), schedule.Date, schedule.Time, r.now(), pq.Array(ids)}
	} else {
		query = fmt.Sprintf(`UPDATE %s
			SET status = $1, updated_at = $2
			WHERE id = ANY($3)`, table)
		args = []interface{}{string(status), r.now(), pq.Array(ids)}
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("bulk update %s status: %w", table, translate(err))
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("bulk update %s status: %w", table, err)
	}
	return n, nil
}
