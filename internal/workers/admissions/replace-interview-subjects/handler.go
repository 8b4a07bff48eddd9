// internal/workers/admissions/replace-interview-subjects/handler.go
package replaceinterviewsubjects

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/subjects"
	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "replace-interview-subjects"
)

type Replacer interface {
	ReplaceAll(ctx context.Context, replacements map[models.Pool][]subjects.TemplateInput) (*subjects.SyncReport, error)
}

type Handler struct {
	config     *Config
	subjects   Replacer
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, replacer Replacer, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		subjects:   replacer,
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

// execute fails the job on a partial repair failure so the engine retries;
// replacing with the same list again is idempotent and reruns the repairs.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if len(input.Subjects) == 0 {
		return nil, errors.NewInvalidInputError("subjects must name at least one pool")
	}

	replacements := make(map[models.Pool][]subjects.TemplateInput, len(input.Subjects))
	for name, list := range input.Subjects {
		pool, err := models.ParsePool(name)
		if err != nil {
			return nil, errors.NewInvalidInputError(err.Error())
		}
		replacements[pool] = list
	}

	report, err := h.subjects.ReplaceAll(ctx, replacements)
	if err != nil {
		var partial *admissions.SyncPartialFailureError
		if stderrors.Is(err, admissions.ErrValidation) || stderrors.As(err, &partial) {
			return nil, err
		}
		return nil, errors.NewTemplateReplaceFailedError(err)
	}

	return &Output{Report: report}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
