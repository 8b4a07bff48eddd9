// Package lookup lets applicants find their application by number and mobile.
package lookup

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/repository"
	"admissions-engine/internal/admissions/scoring"
	"admissions-engine/internal/admissions/status"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// fallbackOrder is the pool order of the per-pool lookup.
var fallbackOrder = []models.Pool{models.PoolSeniorEntry, models.PoolEarlyYears}

type Store interface {
	ResolveCombined(ctx context.Context, number string) (*repository.StatusRecord, error)
	FindByNumber(ctx context.Context, pool models.Pool, number string) (*models.Application, error)
	CurrentAcademicYear(ctx context.Context, pool models.Pool) (*models.AcademicYear, error)
	ListPoolTemplates(ctx context.Context, pool models.Pool) ([]models.SubjectTemplate, error)
	ListMarks(ctx context.Context, ref models.ApplicationRef) ([]models.MarkRecord, error)
}

// SubjectScore is an active subject with the applicant's mark, nil when no
// mark was recorded.
type SubjectScore struct {
	Subject       string   `json:"subject"`
	MaxMarks      float64  `json:"maxMarks"`
	MarksObtained *float64 `json:"marksObtained"`
}

type Resolution struct {
	Application    *models.Application  `json:"application"`
	Pool           models.Pool          `json:"pool"`
	AcademicYear   *models.AcademicYear `json:"academicYear,omitempty"`
	InterviewMarks []SubjectScore       `json:"interviewMarks"`
	Scores         scoring.Summary      `json:"scores"`
	Progress       int                  `json:"progress"`
}

type Service struct {
	store    Store
	cache    YearCache
	combined bool
	logger   logger.Logger
	tracer   trace.Tracer
}

type Option func(*Service)

func WithYearCache(c YearCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithoutCombinedLookup always uses the per-pool lookup.
func WithoutCombinedLookup() Option {
	return func(s *Service) { s.combined = false }
}

func NewService(store Store, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		cache:    noCache{},
		combined: true,
		logger:   logger.Component(log, "lookup"),
		tracer:   otel.Tracer("admissions-engine/lookup"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Resolve finds the application with the given number whose stored mobile
// matches claimedMobile on the last ten digits.
//
// It fails with *admissions.NotFoundError when no pool holds the number, and
// with *admissions.MobileMismatchError when the number exists but the mobile
// differs everywhere it was found.
func (s *Service) Resolve(ctx context.Context, applicationNumber, claimedMobile string) (*Resolution, error) {
	ctx, span := s.tracer.Start(ctx, "lookup.Resolve")
	defer span.End()

	number := strings.ToUpper(strings.TrimSpace(applicationNumber))
	v := &admissions.ValidationError{}
	if number == "" {
		v.Add("applicationNumber", "required")
	}
	if strings.TrimSpace(claimedMobile) == "" {
		v.Add("mobile", "required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if s.combined {
		res, ok := s.resolveCombined(ctx, number, claimedMobile)
		if ok {
			span.SetAttributes(attribute.String("lookup.path", "combined"))
			metrics.Lookups.WithLabelValues("combined", "found").Inc()
			return res, nil
		}
	}

	span.SetAttributes(attribute.String("lookup.path", "fallback"))
	res, err := s.resolveFallback(ctx, number, claimedMobile)
	metrics.Lookups.WithLabelValues("fallback", lookupResult(err)).Inc()
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	return res, nil
}

// resolveCombined reports ok only for a verified match. Errors, empty results
// and mobile mismatches all defer to the fallback, which decides between
// not-found and mismatch across both pools.
func (s *Service) resolveCombined(ctx context.Context, number, claimedMobile string) (*Resolution, bool) {
	rec, err := s.store.ResolveCombined(ctx, number)
	if err != nil {
		if !errors.Is(err, sentinel.ErrNotFound) {
			s.logger.Warn("Combined status lookup failed, using per-pool lookup", map[string]interface{}{
				"applicationNumber": number,
				"error":             err,
			})
			metrics.Lookups.WithLabelValues("combined", "error").Inc()
		}
		return nil, false
	}
	if !models.SameMobile(rec.Application.Mobile, claimedMobile) {
		return nil, false
	}

	marks := make([]SubjectScore, 0, len(rec.Marks))
	for _, m := range rec.Marks {
		marks = append(marks, SubjectScore{Subject: m.SubjectName, MaxMarks: m.MaxMarks, MarksObtained: m.MarksObtained})
	}
	return newResolution(rec.Application, rec.AcademicYear, marks), true
}

func (s *Service) resolveFallback(ctx context.Context, number, claimedMobile string) (*Resolution, error) {
	var mismatched []models.Pool
	for _, pool := range fallbackOrder {
		app, err := s.store.FindByNumber(ctx, pool, number)
		if errors.Is(err, sentinel.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("look up %s in %s: %w", number, pool, err)
		}
		if !models.SameMobile(app.Mobile, claimedMobile) {
			mismatched = append(mismatched, pool)
			continue
		}
		return s.assemble(ctx, app)
	}

	if len(mismatched) > 0 {
		s.logger.Info("Application found but mobile did not match", map[string]interface{}{
			"applicationNumber": number,
			"pools":             mismatched,
		})
		return nil, &admissions.MobileMismatchError{ApplicationNumber: number, Pools: mismatched}
	}
	return nil, &admissions.NotFoundError{ApplicationNumber: number}
}

// assemble fetches the pool's academic year, active templates and the
// applicant's marks concurrently and left-joins templates to marks.
func (s *Service) assemble(ctx context.Context, app *models.Application) (*Resolution, error) {
	var (
		year      *models.AcademicYear
		templates []models.SubjectTemplate
		marks     []models.MarkRecord
	)
	ref := models.ApplicationRef{Pool: app.Pool, ID: app.ID}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		year, err = s.academicYear(gctx, app.Pool)
		return err
	})
	g.Go(func() error {
		var err error
		templates, err = s.store.ListPoolTemplates(gctx, app.Pool)
		return err
	})
	g.Go(func() error {
		var err error
		marks, err = s.store.ListMarks(gctx, ref)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("assemble status for %s: %w", app.ApplicationNumber, err)
	}

	return newResolution(app, year, joinMarks(templates, marks)), nil
}

func (s *Service) academicYear(ctx context.Context, pool models.Pool) (*models.AcademicYear, error) {
	if year, ok := s.cache.Get(ctx, pool); ok {
		return year, nil
	}
	year, err := s.store.CurrentAcademicYear(ctx, pool)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	s.cache.Set(ctx, year)
	return year, nil
}

// joinMarks keeps template order; subjects without a mark get a nil score.
func joinMarks(templates []models.SubjectTemplate, marks []models.MarkRecord) []SubjectScore {
	byName := make(map[string]models.MarkRecord, len(marks))
	for _, m := range marks {
		byName[m.SubjectName] = m
	}
	out := make([]SubjectScore, 0, len(templates))
	for _, t := range templates {
		score := SubjectScore{Subject: t.SubjectName, MaxMarks: t.MaxMarks}
		if m, ok := byName[t.SubjectName]; ok {
			got := m.MarksObtained
			score.MarksObtained = &got
		}
		out = append(out, score)
	}
	return out
}

func newResolution(app *models.Application, year *models.AcademicYear, marks []SubjectScore) *Resolution {
	recorded := make([]scoring.Mark, 0, len(marks))
	for _, m := range marks {
		if m.MarksObtained != nil {
			recorded = append(recorded, scoring.Mark{Subject: m.Subject, Obtained: *m.MarksObtained, Max: m.MaxMarks})
		}
	}
	return &Resolution{
		Application:    app,
		Pool:           app.Pool,
		AcademicYear:   year,
		InterviewMarks: marks,
		Scores:         scoring.Aggregate(recorded),
		Progress:       status.Progress(app.Status),
	}
}

func lookupResult(err error) string {
	switch {
	case err == nil:
		return "found"
	case errors.Is(err, admissions.ErrMobileMismatch):
		return "mismatch"
	case errors.Is(err, admissions.ErrApplicationNotFound):
		return "not_found"
	}
	return "error"
}
