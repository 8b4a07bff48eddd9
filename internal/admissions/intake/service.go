// Package intake persists new applications under a freshly generated,
// collision-checked application number.
package intake

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/repository"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/models"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxAttempts bounds how many application numbers one submission may try.
const MaxAttempts = 3

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Store is the part of the repository intake writes through.
type Store interface {
	Shape(ctx context.Context, pool models.Pool) (repository.SchemaShape, error)
	MarkLegacy(pool models.Pool)
	InsertApplication(ctx context.Context, app *models.Application, shape repository.SchemaShape) error
}

// NumberGenerator yields candidate application numbers.
type NumberGenerator interface {
	Generate() string
}

// SubmittedHook runs after an application is durably stored. Hooks run in
// the background on a context detached from the submitting request.
type SubmittedHook func(ctx context.Context, app *models.Application)

// DefaultHookTimeout bounds one hook run.
const DefaultHookTimeout = 15 * time.Second

type Service struct {
	store       Store
	numbers     NumberGenerator
	logger      logger.Logger
	tracer      trace.Tracer
	now         func() time.Time
	hooks       []SubmittedHook
	hookTimeout time.Duration
	inflight    sync.WaitGroup
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// OnSubmitted registers a hook, e.g. starting the intake process.
func OnSubmitted(h SubmittedHook) Option {
	return func(s *Service) { s.hooks = append(s.hooks, h) }
}

// WithHookTimeout overrides DefaultHookTimeout.
func WithHookTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.hookTimeout = d
		}
	}
}

func NewService(store Store, numbers NumberGenerator, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		store:       store,
		numbers:     numbers,
		logger:      logger.Component(log, "intake"),
		tracer:      otel.Tracer("admissions-engine/intake"),
		now:         func() time.Time { return time.Now().UTC() },
		hookTimeout: DefaultHookTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit validates the form, stores it in the pool's record set and returns
// the application number actually persisted.
//
// A collision on the number consumes one of MaxAttempts. A table that lacks
// the newer optional columns is retried once with the legacy column set and
// the same number; that retry does not consume an attempt.
func (s *Service) Submit(ctx context.Context, pool models.Pool, form models.Application) (number string, err error) {
	ctx, span := s.tracer.Start(ctx, "intake.Submit", trace.WithAttributes(attribute.String("pool", string(pool))))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	app := form
	app.Pool = pool
	if err := Validate(&app); err != nil {
		return "", err
	}

	now := s.now()
	app.ID = uuid.NewString()
	app.Status = models.StatusSubmitted
	app.InterviewDate, app.InterviewTime = nil, nil
	app.CreatedAt, app.UpdatedAt = now, now
	app.Normalize()

	shape, probeErr := s.store.Shape(ctx, pool)
	if probeErr != nil {
		s.logger.Warn("Schema probe failed, assuming preferred shape", map[string]interface{}{
			"pool":  pool,
			"error": probeErr,
		})
		shape = repository.ShapePreferred
	}

	var lastErr error
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		app.ApplicationNumber = s.numbers.Generate()

		err := s.store.InsertApplication(ctx, &app, shape)
		if errors.Is(err, admissions.ErrSchemaMismatch) && shape == repository.ShapePreferred {
			s.logger.Warn("Pool table lacks newer columns, retrying with legacy shape", map[string]interface{}{
				"pool":              pool,
				"applicationNumber": app.ApplicationNumber,
				"attempt":           attempt,
			})
			metrics.IntakeSchemaFallbacks.WithLabelValues(string(pool)).Inc()
			s.store.MarkLegacy(pool)
			shape = repository.ShapeLegacy
			err = s.store.InsertApplication(ctx, &app, shape)
		}

		switch {
		case err == nil:
			metrics.IntakeAttempts.WithLabelValues(string(pool), "stored").Inc()
			span.SetAttributes(
				attribute.String("application.number", app.ApplicationNumber),
				attribute.Int("intake.attempts", attempt),
			)
			s.logger.Info("Application submitted", map[string]interface{}{
				"pool":              pool,
				"applicationId":     app.ID,
				"applicationNumber": app.ApplicationNumber,
				"attempts":          attempt,
				"shape":             shape.String(),
			})
			s.runHooks(ctx, app)
			return app.ApplicationNumber, nil

		case errors.Is(err, admissions.ErrCollision):
			metrics.IntakeAttempts.WithLabelValues(string(pool), "collision").Inc()
			s.logger.Debug("Application number collided", map[string]interface{}{
				"pool":              pool,
				"applicationNumber": app.ApplicationNumber,
				"attempt":           attempt,
			})
			lastErr = err

		default:
			metrics.IntakeAttempts.WithLabelValues(string(pool), "error").Inc()
			return "", fmt.Errorf("submit %s application: %w", pool, err)
		}
	}

	return "", &admissions.IntakeExhaustedError{Pool: pool, Attempts: MaxAttempts, Cause: lastErr}
}

// runHooks starts every hook with its own copy of app. The request may end
// or be cancelled before they finish; the hook context keeps its values but
// not its cancellation.
func (s *Service) runHooks(ctx context.Context, app models.Application) {
	detached := context.WithoutCancel(ctx)
	for _, h := range s.hooks {
		s.inflight.Add(1)
		go func(h SubmittedHook, app models.Application) {
			defer s.inflight.Done()
			hctx, cancel := context.WithTimeout(detached, s.hookTimeout)
			defer cancel()
			h(hctx, &app)
		}(h, app)
	}
}

// Wait blocks until hooks started by earlier submissions have returned.
func (s *Service) Wait() {
	s.inflight.Wait()
}

// Validate checks the fields every submission must carry before any write.
func Validate(app *models.Application) error {
	v := &admissions.ValidationError{}

	if !app.Pool.Valid() {
		v.Add("pool", fmt.Sprintf("unknown pool %q", app.Pool))
	}
	if strings.TrimSpace(app.FullName) == "" {
		v.Add("full_name", "required")
	}
	if strings.TrimSpace(app.Mobile) == "" {
		v.Add("mobile", "required")
	} else if len(models.NormalizeMobile(app.Mobile)) < models.MobileKeyLength {
		v.Add("mobile", "must contain at least 10 digits")
	}
	if app.DateOfBirth != "" && !datePattern.MatchString(app.DateOfBirth) {
		v.Add("date_of_birth", "must be YYYY-MM-DD")
	}
	if app.Sibling.InSchool && strings.TrimSpace(app.Sibling.Name) == "" {
		v.Add("sibling_name", "required when a sibling studies at the school")
	}

	switch app.Pool {
	case models.PoolEarlyYears:
		if app.EarlyYearsDetails == nil || strings.TrimSpace(app.Stage) == "" {
			v.Add("stage", "required")
		}
	case models.PoolSeniorEntry:
		if app.SeniorEntryDetails == nil || strings.TrimSpace(app.Stream) == "" {
			v.Add("stream", "required")
		} else if p := app.QualifyingPercentage; p < 0 || p > 100 {
			v.Add("qualifying_percentage", "must be between 0 and 100")
		}
	}
	return v.OrNil()
}
