// internal/workers/admissions/bulk-update-application-status/handler.go
package bulkupdateapplicationstatus

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/status"
	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "bulk-update-application-status"
)

type BulkTransitioner interface {
	TransitionMany(ctx context.Context, refs []models.ApplicationRef, st models.Status, opts status.Options) (*status.BulkResult, error)
}

type Handler struct {
	config     *Config
	machine    BulkTransitioner
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, machine BulkTransitioner, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		machine:    machine,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err, "jobKey": job.Key})
	}
}

// execute completes with a partial-failure flag when at least one pool was
// updated; the job only fails when every pool failed.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Applications) == 0 {
		return nil, errors.NewInvalidInputError("applications must not be empty")
	}
	if h.config.MaxApplications > 0 && len(input.Applications) > h.config.MaxApplications {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("at most %d applications per job", h.config.MaxApplications))
	}

	refs := make([]models.ApplicationRef, 0, len(input.Applications))
	for i, a := range input.Applications {
		pool, err := models.ParsePool(a.Pool)
		if err != nil {
			return nil, errors.NewInvalidInputError(fmt.Sprintf("applications[%d]: %v", i, err))
		}
		refs = append(refs, models.ApplicationRef{Pool: pool, ID: a.ApplicationID})
	}

	result, err := h.machine.TransitionMany(ctx, refs, models.Status(input.Status), status.Options{
		InterviewDate: input.InterviewDate,
		InterviewTime: input.InterviewTime,
	})

	var updateErr *admissions.StatusUpdateError
	switch {
	case err == nil:
	case stderrors.As(err, &updateErr) && result != nil && len(updateErr.Failed) < len(result.Pools):
	default:
		return nil, err
	}

	out := &Output{
		Status:  string(result.Status),
		Updated: result.Updated(),
		Pools:   result.Pools,
	}
	if updateErr != nil {
		out.PartialFailure = true
		for _, p := range updateErr.FailedPools() {
			out.FailedPools = append(out.FailedPools, string(p))
		}
		h.logger.Warn("bulk status update partially applied", map[string]interface{}{
			"status":      input.Status,
			"failedPools": out.FailedPools,
			"updated":     out.Updated,
		})
	}
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
