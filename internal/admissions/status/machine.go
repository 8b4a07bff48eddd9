// Package status moves applications along the review path and stamps
// interview schedules.
package status

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/metrics"
	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Store is the part of the repository status changes write through.
type Store interface {
	UpdateStatus(ctx context.Context, ref models.ApplicationRef, status models.Status, schedule *models.InterviewSchedule) (*models.Application, error)
	UpdateStatusMany(ctx context.Context, pool models.Pool, ids []string, status models.Status, schedule *models.InterviewSchedule) (int64, error)
}

// Options carries the side data a transition may need.
type Options struct {
	InterviewDate string `json:"interviewDate,omitempty"`
	InterviewTime string `json:"interviewTime,omitempty"`
}

// PoolResult is the outcome of the single bulk update issued for one pool.
type PoolResult struct {
	Pool      models.Pool `json:"pool"`
	Requested int         `json:"requested"`
	Updated   int64       `json:"updated"`
	Error     string      `json:"error,omitempty"`
}

// BulkResult reports every pool touched by TransitionMany.
type BulkResult struct {
	Status models.Status `json:"status"`
	Pools  []PoolResult  `json:"pools"`
}

// Updated sums rows changed across pools.
func (r *BulkResult) Updated() int64 {
	var n int64
	for _, p := range r.Pools {
		n += p.Updated
	}
	return n
}

type Machine struct {
	store  Store
	logger logger.Logger
	tracer trace.Tracer
}

func NewMachine(store Store, log logger.Logger) *Machine {
	return &Machine{
		store:  store,
		logger: logger.Component(log, "status"),
		tracer: otel.Tracer("admissions-engine/status"),
	}
}

// Progress is the applicant-facing completion percentage of a status:
// round((index+1)/6*100). Unknown statuses report 0.
func Progress(s models.Status) int {
	idx := s.Index()
	if idx < 0 {
		return 0
	}
	return int(math.Round(float64(idx+1) / float64(len(models.Statuses)) * 100))
}

// schedule validates the side data of a transition. Only the shortlist
// transition carries a schedule; every other status leaves the stored
// interview date and time untouched.
func schedule(status models.Status, opts Options) (*models.InterviewSchedule, error) {
	if !status.Valid() {
		return nil, admissions.NewValidationError("status", fmt.Sprintf("unknown status %q", status))
	}
	if status != models.StatusShortlistedForInterview {
		return nil, nil
	}

	v := &admissions.ValidationError{}
	if opts.InterviewDate == "" {
		v.Add("interviewDate", "required when shortlisting for interview")
	} else if _, err := time.Parse("2006-01-02", opts.InterviewDate); err != nil {
		v.Add("interviewDate", "must be YYYY-MM-DD")
	}
	if opts.InterviewTime == "" {
		v.Add("interviewTime", "required when shortlisting for interview")
	} else if _, err := time.Parse("15:04", opts.InterviewTime); err != nil {
		v.Add("interviewTime", "must be HH:MM")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}
	return &models.InterviewSchedule{Date: opts.InterviewDate, Time: opts.InterviewTime}, nil
}

// Transition sets the status of one application and returns the stored row.
func (m *Machine) Transition(ctx context.Context, ref models.ApplicationRef, status models.Status, opts Options) (app *models.Application, err error) {
	ctx, span := m.tracer.Start(ctx, "status.Transition", trace.WithAttributes(
		attribute.String("pool", string(ref.Pool)),
		attribute.String("status", string(status)),
	))
	defer endSpan(span, &err)

	if !ref.Pool.Valid() {
		return nil, admissions.NewValidationError("pool", fmt.Sprintf("unknown pool %q", ref.Pool))
	}
	if ref.ID == "" {
		return nil, admissions.NewValidationError("applicationId", "required")
	}
	sched, err := schedule(status, opts)
	if err != nil {
		return nil, err
	}

	app, err = m.store.UpdateStatus(ctx, ref, status, sched)
	if errors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("application %s in %s: %w", ref.ID, ref.Pool, admissions.ErrApplicationNotFound)
	}
	if err != nil {
		return nil, &admissions.StatusUpdateError{Status: status, Failed: map[models.Pool]error{ref.Pool: err}}
	}

	metrics.StatusTransitions.WithLabelValues(string(ref.Pool), string(status)).Inc()
	m.logger.Info("Application status changed", map[string]interface{}{
		"pool":          ref.Pool,
		"applicationId": ref.ID,
		"status":        status,
		"scheduled":     sched != nil,
	})
	return app, nil
}

// TransitionMany applies one status to applications drawn from both pools.
// Ids are partitioned by pool and each pool gets one independent update.
// When any pool fails the result is still returned, together with a
// *admissions.StatusUpdateError naming the failed pools.
func (m *Machine) TransitionMany(ctx context.Context, refs []models.ApplicationRef, status models.Status, opts Options) (result *BulkResult, err error) {
	ctx, span := m.tracer.Start(ctx, "status.TransitionMany", trace.WithAttributes(
		attribute.String("status", string(status)),
		attribute.Int("applications", len(refs)),
	))
	defer endSpan(span, &err)

	sched, err := schedule(status, opts)
	if err != nil {
		return nil, err
	}

	byPool := make(map[models.Pool][]string)
	seen := make(map[models.ApplicationRef]bool, len(refs))
	for _, ref := range refs {
		if !ref.Pool.Valid() {
			return nil, admissions.NewValidationError("pool", fmt.Sprintf("unknown pool %q", ref.Pool))
		}
		if ref.ID == "" || seen[ref] {
			continue
		}
		seen[ref] = true
		byPool[ref.Pool] = append(byPool[ref.Pool], ref.ID)
	}

	result = &BulkResult{Status: status}
	failed := make(map[models.Pool]error)
	for _, pool := range models.Pools {
		ids := byPool[pool]
		if len(ids) == 0 {
			continue
		}
		pr := PoolResult{Pool: pool, Requested: len(ids)}
		n, uerr := m.store.UpdateStatusMany(ctx, pool, ids, status, sched)
		if uerr != nil {
			pr.Error = uerr.Error()
			failed[pool] = uerr
			m.logger.Error("Bulk status update failed", map[string]interface{}{
				"pool":   pool,
				"status": status,
				"count":  len(ids),
				"error":  uerr,
			})
		} else {
			pr.Updated = n
			metrics.StatusTransitions.WithLabelValues(string(pool), string(status)).Add(float64(n))
		}
		result.Pools = append(result.Pools, pr)
	}

	m.logger.Info("Bulk status update finished", map[string]interface{}{
		"status":  status,
		"updated": result.Updated(),
		"failed":  len(failed),
	})
	if len(failed) > 0 {
		return result, &admissions.StatusUpdateError{Status: status, Failed: failed}
	}
	return result, nil
}

func endSpan(span trace.Span, err *error) {
	if *err != nil {
		span.RecordError(*err)
		span.SetStatus(codes.Error, (*err).Error())
	}
	span.End()
}
