// internal/workers/admissions/send-status-notification/handler.go
package sendstatusnotification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "send-status-notification"
)

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

type Handler struct {
	config     *Config
	email      EmailSender
	sms        SMSSender
	logger     logger.Logger
	errHandler *errors.ErrorHandler
	now        func() time.Time
}

func NewHandler(config *Config, email EmailSender, sms SMSSender, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		email:      email,
		sms:        sms,
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

// execute emails when the applicant gave an address and texts the mobile.
// A failed channel fails the job so the engine retries both.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input.ApplicationNumber == "" {
		return nil, errors.NewInvalidInputError("applicationNumber is required")
	}
	if !models.Status(input.Status).Valid() {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown status %q", input.Status))
	}

	out := &Output{Status: StatusDisabled, SentAt: h.now().UTC().Format(time.RFC3339)}

	if h.config.EmailEnabled && h.email != nil && input.Email != "" {
		msg := buildMessage(h.config.SchoolName, input)
		id, err := h.email.SendEmail(ctx, input.Email, msg.Subject, msg.Body)
		if err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelEmail, err)
		}
		out.Channels = append(out.Channels, ChannelEmail)
		out.MessageID = id
	}

	if key := models.NormalizeMobile(input.Mobile); h.config.SMSEnabled && h.sms != nil && len(key) == models.MobileKeyLength {
		id, err := h.sms.SendSMS(ctx, h.config.CountryCode+key, smsText(h.config.SchoolName, input))
		if err != nil {
			return nil, errors.NewNotificationSendFailedError(ChannelSMS, err)
		}
		out.Channels = append(out.Channels, ChannelSMS)
		if out.MessageID == "" {
			out.MessageID = id
		}
	}

	if len(out.Channels) > 0 {
		out.Status = StatusSent
	}
	h.logger.Info("status notification processed", map[string]interface{}{
		"applicationNumber": input.ApplicationNumber,
		"status":            input.Status,
		"channels":          out.Channels,
	})
	return out, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
