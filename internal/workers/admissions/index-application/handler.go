// internal/workers/admissions/index-application/handler.go
package indexapplication

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/status"
	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/elastic/go-elasticsearch/v8"
)

const (
	TaskType = "index-application"
)

type ApplicationGetter interface {
	GetApplication(ctx context.Context, ref models.ApplicationRef) (*models.Application, error)
}

type Handler struct {
	config     *Config
	store      ApplicationGetter
	es         *elasticsearch.Client
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	now        func() time.Time
}

func NewHandler(config *Config, store ApplicationGetter, es *elasticsearch.Client, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		store:      store,
		es:         es,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
		now:        time.Now,
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

	app, err := h.store.GetApplication(ctx, models.ApplicationRef{Pool: pool, ID: input.ApplicationID})
	if stderrors.Is(err, sentinel.ErrNotFound) {
		return nil, fmt.Errorf("application %s in %s: %w", input.ApplicationID, pool, admissions.ErrApplicationNotFound)
	}
	if err != nil {
		return nil, errors.NewQueryExecutionFailedError("get application", err)
	}

	body, err := json.Marshal(BuildDocument(app))
	if err != nil {
		return nil, errors.NewInternalError(err)
	}

	docID := DocumentID(app.Pool, app.ApplicationNumber)
	res, err := h.es.Index(
		h.config.Index,
		bytes.NewReader(body),
		h.es.Index.WithContext(ctx),
		h.es.Index.WithDocumentID(docID),
	)
	if err != nil {
		return nil, errors.NewElasticsearchConnectionFailedError(err)
	}
	defer res.Body.Close()

	if res.StatusCode == 404 {
		return nil, errors.NewIndexNotFoundError(h.config.Index)
	}
	if res.IsError() {
		return nil, errors.NewSearchIndexFailedError(h.config.Index, fmt.Errorf("%s", res.Status()))
	}

	var indexed struct {
		ID     string `json:"_id"`
		Result string `json:"result"`
	}
	if err := json.NewDecoder(res.Body).Decode(&indexed); err != nil {
		return nil, errors.NewSearchIndexFailedError(h.config.Index, fmt.Errorf("decode response: %w", err))
	}

	h.logger.Info("application indexed", map[string]interface{}{
		"applicationNumber": app.ApplicationNumber,
		"pool":              string(pool),
		"result":            indexed.Result,
	})
	return &Output{
		DocumentID: docID,
		Result:     indexed.Result,
		IndexedAt:  h.now().UTC().Format(time.RFC3339),
	}, nil
}

// DocumentID qualifies the application number with its pool. Numbers are
// only unique within a pool.
func DocumentID(pool models.Pool, number string) string {
	return string(pool) + ":" + number
}

// BuildDocument projects an application onto the search document.
func BuildDocument(app *models.Application) Document {
	doc := Document{
		ApplicationNumber: app.ApplicationNumber,
		ApplicationID:     app.ID,
		Pool:              string(app.Pool),
		Status:            string(app.Status),
		Progress:          status.Progress(app.Status),
		FullName:          app.FullName,
		MobileLast4:       lastDigits(app.Mobile, 4),
		District:          app.District,
		UpdatedAt:         app.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if app.EarlyYearsDetails != nil {
		doc.Stage = app.Stage
	}
	if app.SeniorEntryDetails != nil {
		doc.Stream = app.Stream
	}
	if app.InterviewDate != nil {
		doc.InterviewDate = *app.InterviewDate
	}
	if app.InterviewTime != nil {
		doc.InterviewTime = *app.InterviewTime
	}
	return doc
}

func lastDigits(s string, n int) string {
	key := models.NormalizeMobile(s)
	if len(key) <= n {
		return key
	}
	return key[len(key)-n:]
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
