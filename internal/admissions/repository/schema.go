package repository

import (
	"context"
	"fmt"

	"admissions-engine/internal/models"

	"github.com/lib/pq"
)

// SchemaShape names which column set an insert writes.
type SchemaShape int

const (
	// ShapePreferred writes every column the intake form collects.
	ShapePreferred SchemaShape = iota
	// ShapeLegacy omits the optional columns added after the first release.
	ShapeLegacy
)

func (s SchemaShape) String() string {
	if s == ShapeLegacy {
		return "legacy"
	}
	return "preferred"
}

// newerColumns were added to both pool tables after launch. Deployments that
// have not migrated yet lack them.
var newerColumns = []string{
	"email",
	"guardian_name",
	"sibling_in_school",
	"sibling_name",
	"sibling_class",
}

// Shape reports which write shape the pool's table supports. The answer is
// probed once from information_schema and cached until MarkLegacy.
func (r *Repository) Shape(ctx context.Context, pool models.Pool) (SchemaShape, error) {
	r.mu.RLock()
	shape, ok := r.shapes[pool]
	r.mu.RUnlock()
	if ok {
		return shape, nil
	}

	table, err := tableFor(pool)
	if err != nil {
		return ShapePreferred, err
	}

	var present int
	err = r.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM information_schema.columns
		WHERE table_schema = current_schema()
		  AND table_name = $1
		  AND column_name = ANY($2)`, table, pq.Array(newerColumns)).Scan(&present)
	if err != nil {
		return ShapePreferred, fmt.Errorf("probe %s columns: %w", table, err)
	}

	shape = ShapePreferred
	if present < len(newerColumns) {
		shape = ShapeLegacy
	}

	r.mu.Lock()
	r.shapes[pool] = shape
	r.mu.Unlock()
	return shape, nil
}

// MarkLegacy records that the pool's table rejected the preferred shape.
func (r *Repository) MarkLegacy(pool models.Pool) {
	r.mu.Lock()
	r.shapes[pool] = ShapeLegacy
	r.mu.Unlock()
}

