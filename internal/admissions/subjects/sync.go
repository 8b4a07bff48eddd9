// Package subjects maintains interview subject templates and keeps recorded
// marks consistent with them.
package subjects

import (
	"context"
	"fmt"
	"strings"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/repository"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the part of the repository templates and marks go through.
type Store interface {
	ListTemplates(ctx context.Context) ([]models.SubjectTemplate, error)
	ListPoolTemplates(ctx context.Context, pool models.Pool) ([]models.SubjectTemplate, error)
	ApplyTemplates(ctx context.Context, plan repository.TemplatePlan) error
	RepairMaxMarks(ctx context.Context, pool models.Pool, subject string, maxMarks float64) (int64, error)
	DeleteSubjectMarks(ctx context.Context, pool models.Pool, subject string) (int64, error)
	ListMarkSubjects(ctx context.Context, pool models.Pool) ([]string, error)
	GetApplication(ctx context.Context, ref models.ApplicationRef) (*models.Application, error)
	UpsertMarks(ctx context.Context, records []models.MarkRecord) error
}

// TemplateInput is one subject as staff enter it.
type TemplateInput struct {
	SubjectName string  `json:"subjectName"`
	MaxMarks    float64 `json:"maxMarks"`
}

// Repair is one mark repair that ran after templates were replaced.
type Repair struct {
	Pool    models.Pool         `json:"pool"`
	Subject string              `json:"subject"`
	Op      admissions.RepairOp `json:"op"`
	Rows    int64               `json:"rows"`
}

// SyncReport describes a committed template replacement.
type SyncReport struct {
	Templates []models.SubjectTemplate   `json:"templates"`
	Added     map[models.Pool][]string   `json:"added,omitempty"`
	Retired   map[models.Pool][]string   `json:"retired,omitempty"`
	Repairs   []Repair                   `json:"repairs,omitempty"`
	Failures  []admissions.RepairFailure `json:"failures,omitempty"`
}

type Synchronizer struct {
	store  Store
	logger logger.Logger
	tracer trace.Tracer
}

func NewSynchronizer(store Store, log logger.Logger) *Synchronizer {
	return &Synchronizer{
		store:  store,
		logger: logger.Component(log, "subjects"),
		tracer: otel.Tracer("admissions-engine/subjects"),
	}
}

// ReplaceTemplates replaces the active templates of one pool.
func (s *Synchronizer) ReplaceTemplates(ctx context.Context, pool models.Pool, templates []TemplateInput) (*SyncReport, error) {
	return s.ReplaceAll(ctx, map[models.Pool][]TemplateInput{pool: templates})
}

// ReplaceAll replaces the active templates of every pool named in
// replacements and then repairs recorded marks of those pools: marks under a
// kept or added name get the template's max marks, marks under any other name
// are deleted. Matching is by exact name, so a rename drops the old marks.
//
// The template change commits in one transaction. Repair is best-effort;
// when some repairs fail the report is returned together with a
// *admissions.SyncPartialFailureError.
func (s *Synchronizer) ReplaceAll(ctx context.Context, replacements map[models.Pool][]TemplateInput) (report *SyncReport, err error) {
	ctx, span := s.tracer.Start(ctx, "subjects.ReplaceAll")
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	next, err := validateReplacements(replacements)
	if err != nil {
		return nil, err
	}

	current, err := s.store.ListTemplates(ctx)
	if err != nil {
		return nil, fmt.Errorf("read current templates: %w", err)
	}
	old := make(map[models.Pool][]models.SubjectTemplate)
	for _, t := range current {
		old[t.Pool] = append(old[t.Pool], t)
	}

	// Pools outside the request keep their templates but are re-numbered so
	// display order stays dense across pools.
	for _, pool := range models.Pools {
		if _, ok := next[pool]; ok {
			continue
		}
		for _, t := range old[pool] {
			next[pool] = append(next[pool], TemplateInput{SubjectName: t.SubjectName, MaxMarks: t.MaxMarks})
		}
	}

	report = &SyncReport{
		Added:   make(map[models.Pool][]string),
		Retired: make(map[models.Pool][]string),
	}
	plan := repository.TemplatePlan{Retire: report.Retired}
	order := 0
	for _, pool := range models.Pools {
		oldNames := make(map[string]bool, len(old[pool]))
		for _, t := range old[pool] {
			oldNames[t.SubjectName] = true
		}
		newNames := make(map[string]bool, len(next[pool]))
		for _, in := range next[pool] {
			order++
			newNames[in.SubjectName] = true
			t := models.SubjectTemplate{
				Pool:         pool,
				SubjectName:  in.SubjectName,
				MaxMarks:     in.MaxMarks,
				DisplayOrder: order,
				IsActive:     true,
			}
			plan.Upserts = append(plan.Upserts, t)
			report.Templates = append(report.Templates, t)
			if !oldNames[in.SubjectName] {
				report.Added[pool] = append(report.Added[pool], in.SubjectName)
			}
		}
		for _, t := range old[pool] {
			if !newNames[t.SubjectName] {
				report.Retired[pool] = append(report.Retired[pool], t.SubjectName)
			}
		}
	}

	if err := s.store.ApplyTemplates(ctx, plan); err != nil {
		return nil, fmt.Errorf("replace templates: %w", err)
	}
	span.SetAttributes(attribute.Int("templates", len(plan.Upserts)))

	for _, pool := range models.Pools {
		if _, inScope := replacements[pool]; !inScope {
			continue
		}
		active := make(map[string]bool)
		for _, t := range plan.Upserts {
			if t.Pool == pool {
				active[t.SubjectName] = true
				s.repair(ctx, report, pool, t.SubjectName, admissions.RepairUpdate, func() (int64, error) {
					return s.store.RepairMaxMarks(ctx, pool, t.SubjectName, t.MaxMarks)
				})
			}
		}
		for _, name := range s.staleSubjects(ctx, report, pool, active) {
			s.repair(ctx, report, pool, name, admissions.RepairDelete, func() (int64, error) {
				return s.store.DeleteSubjectMarks(ctx, pool, name)
			})
		}
	}

	s.logger.Info("Interview subjects replaced", map[string]interface{}{
		"templates": len(report.Templates),
		"added":     report.Added,
		"retired":   report.Retired,
		"repairs":   len(report.Repairs),
		"failures":  len(report.Failures),
	})
	if len(report.Failures) > 0 {
		return report, &admissions.SyncPartialFailureError{Failures: report.Failures}
	}
	return report, nil
}

// staleSubjects lists the subjects of pool that have marks on file but no
// active template. It reads the marks themselves so a delete that failed on
// an earlier run is picked up again once the template is already retired.
// When the marks cannot be listed it falls back to the names retired by this
// run and records a failure so the caller retries.
func (s *Synchronizer) staleSubjects(ctx context.Context, report *SyncReport, pool models.Pool, active map[string]bool) []string {
	stored, err := s.store.ListMarkSubjects(ctx, pool)
	if err != nil {
		s.logger.Warn("Listing recorded subjects failed", map[string]interface{}{
			"pool":  pool,
			"error": err,
		})
		report.Failures = append(report.Failures, admissions.RepairFailure{
			Pool: pool, Subject: "*", Op: admissions.RepairDelete, Err: err,
		})
		return report.Retired[pool]
	}

	seen := make(map[string]bool)
	var out []string
	for _, name := range append(append([]string{}, report.Retired[pool]...), stored...) {
		if active[name] || seen[name] {
			continue
		}
		seen[name] = true
		out = append(out, name)
	}
	return out
}

func (s *Synchronizer) repair(ctx context.Context, report *SyncReport, pool models.Pool, subject string, op admissions.RepairOp, run func() (int64, error)) {
	rows, err := run()
	if err != nil {
		metrics.SubjectRepairFailures.WithLabelValues(string(pool), string(op)).Inc()
		s.logger.Warn("Mark repair failed", map[string]interface{}{
			"pool":    pool,
			"subject": subject,
			"op":      op,
			"error":   err,
		})
		report.Failures = append(report.Failures, admissions.RepairFailure{Pool: pool, Subject: subject, Op: op, Err: err})
		return
	}
	if rows > 0 {
		report.Repairs = append(report.Repairs, Repair{Pool: pool, Subject: subject, Op: op, Rows: rows})
	}
}

// validateReplacements trims names and rejects empty names, non-positive max
// marks and case-insensitive duplicates within a pool.
func validateReplacements(replacements map[models.Pool][]TemplateInput) (map[models.Pool][]TemplateInput, error) {
	if len(replacements) == 0 {
		return nil, admissions.NewValidationError("pool", "at least one pool is required")
	}

	v := &admissions.ValidationError{}
	out := make(map[models.Pool][]TemplateInput, len(replacements))
	for _, pool := range sortedPools(replacements) {
		if !pool.Valid() {
			v.Add("pool", fmt.Sprintf("unknown pool %q", pool))
			continue
		}
		seen := make(map[string]bool)
		cleaned := make([]TemplateInput, 0, len(replacements[pool]))
		for i, in := range replacements[pool] {
			field := fmt.Sprintf("%s[%d]", pool, i)
			name := strings.TrimSpace(in.SubjectName)
			switch {
			case name == "":
				v.Add(field+".subjectName", "required")
				continue
			case seen[strings.ToLower(name)]:
				v.Add(field+".subjectName", fmt.Sprintf("duplicate subject %q", name))
				continue
			}
			seen[strings.ToLower(name)] = true
			if in.MaxMarks <= 0 {
				v.Add(field+".maxMarks", "must be greater than 0")
				continue
			}
			cleaned = append(cleaned, TemplateInput{SubjectName: name, MaxMarks: in.MaxMarks})
		}
		out[pool] = cleaned
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return out, nil
}

// sortedPools yields canonical pools first, then unknown ones, so
// validation messages are stable.
func sortedPools(m map[models.Pool][]TemplateInput) []models.Pool {
	out := make([]models.Pool, 0, len(m))
	for _, p := range models.Pools {
		if _, ok := m[p]; ok {
			out = append(out, p)
		}
	}
	for p := range m {
		if !p.Valid() {
			out = append(out, p)
		}
	}
	return out
}
