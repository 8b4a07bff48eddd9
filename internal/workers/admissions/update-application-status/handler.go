// internal/workers/admissions/update-application-status/handler.go
package updateapplicationstatus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"admissions-engine/internal/admissions/status"
	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "update-application-status"
)

type Transitioner interface {
	Transition(ctx context.Context, ref models.ApplicationRef, st models.Status, opts status.Options) (*models.Application, error)
}

type Handler struct {
	config     *Config
	machine    Transitioner
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, machine Transitioner, log logger.Logger) *Handler {
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

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	pool, err := models.ParsePool(input.Pool)
	if err != nil {
		return nil, errors.NewInvalidInputError(err.Error())
	}

	st := models.Status(input.Status)
	app, err := h.machine.Transition(ctx, models.ApplicationRef{Pool: pool, ID: input.ApplicationID}, st, status.Options{
		InterviewDate: input.InterviewDate,
		InterviewTime: input.InterviewTime,
	})
	if err != nil {
		return nil, err
	}

	out := &Output{
		ApplicationID:     app.ID,
		ApplicationNumber: app.ApplicationNumber,
		Pool:              string(pool),
		Status:            string(app.Status),
		Progress:          status.Progress(app.Status),
		FullName:          app.FullName,
		Mobile:            app.Mobile,
		Email:             app.Email,
		UpdatedAt:         app.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if app.InterviewDate != nil {
		out.InterviewDate = *app.InterviewDate
	}
	if app.InterviewTime != nil {
		out.InterviewTime = *app.InterviewTime
	}
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
