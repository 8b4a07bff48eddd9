// internal/admissions/repository/repository.go
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"

	"github.com/lib/pq"
)

// tables maps each pool to its record set. Table names never come from input.
var tables = map[models.Pool]string{
	models.PoolEarlyYears:  "early_years_applications",
	models.PoolSeniorEntry: "senior_entry_applications",
}

// DB is the subset of *sql.DB the repository needs.
type DB interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error)
}

// Repository is the typed storage layer over both applicant pools, the
// interview subject templates, the recorded marks and academic years.
type Repository struct {
	db  DB
	now func() time.Time

	mu     sync.RWMutex
	shapes map[models.Pool]SchemaShape
}

func New(db DB) *Repository {
	return &Repository{
		db:     db,
		now:    func() time.Time { return time.Now().UTC() },
		shapes: make(map[models.Pool]SchemaShape),
	}
}

// WithClock replaces the timestamp source. Used by tests.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

func tableFor(pool models.Pool) (string, error) {
	table, ok := tables[pool]
	if !ok {
		return "", fmt.Errorf("no record set for pool %q", pool)
	}
	return table, nil
}

// translate maps driver errors onto storage sentinels, keeping the cause.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: %w", sentinel.ErrNotFound, err)
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code.Name() {
		case "unique_violation":
			if strings.Contains(pqErr.Constraint, "application_number") {
				return fmt.Errorf("%w: %w", sentinel.ErrCollision, err)
			}
		case "undefined_column":
			return fmt.Errorf("%w: %w", sentinel.ErrSchemaMismatch, err)
		case "undefined_function", "undefined_table":
			return fmt.Errorf("%w: %w", sentinel.ErrUnavailable, err)
		}
	}
	return err
}
