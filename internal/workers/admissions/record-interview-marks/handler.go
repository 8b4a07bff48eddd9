// internal/workers/admissions/record-interview-marks/handler.go
package recordinterviewmarks

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/scoring"
	"admissions-engine/internal/admissions/subjects"
	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "record-interview-marks"
)

type Recorder interface {
	RecordMarks(ctx context.Context, ref models.ApplicationRef, entries []subjects.MarkEntry) ([]models.MarkRecord, error)
}

type MarkLister interface {
	ListMarks(ctx context.Context, ref models.ApplicationRef) ([]models.MarkRecord, error)
}

type Handler struct {
	config     *Config
	recorder   Recorder
	marks      MarkLister
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, recorder Recorder, marks MarkLister, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		recorder:   recorder,
		marks:      marks,
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
	ref := models.ApplicationRef{Pool: pool, ID: input.ApplicationID}

	recorded, err := h.recorder.RecordMarks(ctx, ref, input.Marks)
	if err != nil {
		if stderrors.Is(err, admissions.ErrValidation) || stderrors.Is(err, admissions.ErrApplicationNotFound) {
			return nil, err
		}
		return nil, errors.NewMarkEntryFailedError(err)
	}

	all, err := h.marks.ListMarks(ctx, ref)
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("list marks", err)
	}
	scored := make([]scoring.Mark, 0, len(all))
	for _, m := range all {
		scored = append(scored, scoring.Mark{Subject: m.SubjectName, Obtained: m.MarksObtained, Max: m.MaxMarks})
	}

	return &Output{
		ApplicationID: ref.ID,
		Recorded:      len(recorded),
		Scores:        scoring.Aggregate(scored),
	}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
