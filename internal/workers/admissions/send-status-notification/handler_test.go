// internal/workers/admissions/send-status-notification/handler_test.go
package sendstatusnotification

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeEmail struct {
	to, subject, body string
	calls             int
	err               error
}

func (f *fakeEmail) SendEmail(ctx context.Context, to, subject, body string) (string, error) {
	f.calls++
	f.to, f.subject, f.body = to, subject, body
	return "email-1", f.err
}

type fakeSMS struct {
	phone, message string
	calls          int
	err            error
}

func (f *fakeSMS) SendSMS(ctx context.Context, phone, message string) (string, error) {
	f.calls++
	f.phone, f.message = phone, message
	return "sms-1", f.err
}

func enabledConfig() *Config {
	cfg := LoadConfig()
	cfg.SchoolName = "St. Mary's School"
	cfg.EmailEnabled = true
	cfg.SMSEnabled = true
	return cfg
}

func shortlistedInput() *Input {
	return &Input{
		ApplicationNumber: "ADM-2026-4821",
		FullName:          "Ravi Menon",
		Mobile:            "+91 98470-12345",
		Email:             "parent@example.com",
		Status:            "shortlisted_for_interview",
		InterviewDate:     "2026-11-02",
		InterviewTime:     "10:30",
	}
}

func newHandler(t *testing.T, cfg *Config, email EmailSender, sms SMSSender) *Handler {
	h := NewHandler(cfg, email, sms, logger.NewTestLogger(t))
	h.now = func() time.Time { return time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC) }
	return h
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_EmailAndSMS(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	h := newHandler(t, enabledConfig(), email, sms)

	out, err := h.Execute(context.Background(), shortlistedInput())

	require.NoError(t, err)
	assert.Equal(t, StatusSent, out.Status)
	assert.Equal(t, []string{ChannelEmail, ChannelSMS}, out.Channels)
	assert.Equal(t, "email-1", out.MessageID)
	assert.Equal(t, "2026-10-18T09:00:00Z", out.SentAt)

	assert.Equal(t, "parent@example.com", email.to)
	assert.Contains(t, email.subject, "ADM-2026-4821")
	assert.Contains(t, email.body, "Dear Ravi Menon")
	assert.Contains(t, email.body, "2026-11-02 at 10:30")

	assert.Equal(t, "+919847012345", sms.phone)
	assert.Contains(t, sms.message, "shortlisted")
}

func TestHandler_Execute_NoEmailAddress(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	h := newHandler(t, enabledConfig(), email, sms)

	in := shortlistedInput()
	in.Email = ""
	in.Status = "admitted"
	out, err := h.Execute(context.Background(), in)

	require.NoError(t, err)
	assert.Zero(t, email.calls)
	assert.Equal(t, []string{ChannelSMS}, out.Channels)
	assert.Equal(t, "sms-1", out.MessageID)
	assert.Contains(t, sms.message, "accepted")
}

func TestHandler_Execute_ChannelsDisabled(t *testing.T) {
	email, sms := &fakeEmail{}, &fakeSMS{}
	h := newHandler(t, LoadConfig(), email, sms)

	out, err := h.Execute(context.Background(), shortlistedInput())

	require.NoError(t, err)
	assert.Equal(t, StatusDisabled, out.Status)
	assert.Zero(t, email.calls)
	assert.Zero(t, sms.calls)
}

func TestHandler_Execute_ShortMobileSkipsSMS(t *testing.T) {
	sms := &fakeSMS{}
	h := newHandler(t, enabledConfig(), nil, sms)

	in := shortlistedInput()
	in.Mobile = "12345"
	out, err := h.Execute(context.Background(), in)

	require.NoError(t, err)
	assert.Zero(t, sms.calls)
	assert.Equal(t, StatusDisabled, out.Status)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_SendFailureIsRetryable(t *testing.T) {
	h := newHandler(t, enabledConfig(), &fakeEmail{err: errors.New("throttled")}, &fakeSMS{})

	_, err := h.Execute(context.Background(), shortlistedInput())

	require.Error(t, err)
	std := apperrors.Classify(err)
	assert.Equal(t, apperrors.ErrCodeNotificationSendFailed, std.Code)
	assert.True(t, std.Retryable)
}

func TestHandler_Execute_InvalidInput(t *testing.T) {
	h := newHandler(t, enabledConfig(), &fakeEmail{}, &fakeSMS{})

	_, err := h.Execute(context.Background(), &Input{Status: "admitted"})
	assert.Error(t, err)

	in := shortlistedInput()
	in.Status = "waitlisted"
	_, err = h.Execute(context.Background(), in)
	assert.Error(t, err)
}
