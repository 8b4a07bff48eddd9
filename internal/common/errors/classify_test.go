package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		code      ErrorCode
		retryable bool
		status    int
	}{
		{"validation", fmt.Errorf("transition: %w", admissions.NewValidationError("interviewDate", "required")),
			ErrCodeApplicationValidationFailed, false, http.StatusBadRequest},
		{"exhausted", &admissions.IntakeExhaustedError{Pool: models.PoolEarlyYears, Attempts: 3, Cause: admissions.ErrCollision},
			ErrCodeIntakeExhausted, true, http.StatusConflict},
		{"not found", &admissions.NotFoundError{ApplicationNumber: "ADM-2025-1000"},
			ErrCodeApplicationNotFound, false, http.StatusNotFound},
		{"mobile mismatch", &admissions.MobileMismatchError{ApplicationNumber: "ADM-2025-1000"},
			ErrCodeMobileMismatch, false, http.StatusForbidden},
		{"status update", &admissions.StatusUpdateError{Status: models.StatusAdmitted,
			Failed: map[models.Pool]error{models.PoolEarlyYears: stderrors.New("boom")}},
			ErrCodeStatusUpdateFailed, true, http.StatusInternalServerError},
		{"timeout", fmt.Errorf("load: %w", context.DeadlineExceeded),
			ErrCodeQueryTimeout, true, http.StatusGatewayTimeout},
		{"unknown", stderrors.New("something odd"),
			ErrCodeInternal, false, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.err)
			require.NotNil(t, got)
			assert.Equal(t, tt.code, got.Code)
			assert.Equal(t, tt.retryable, got.Retryable)
			assert.Equal(t, tt.status, HTTPStatus(got.Code))
		})
	}
	assert.Nil(t, Classify(nil))
}

func TestClassify_PassesStandardErrorThrough(t *testing.T) {
	se := NewNotificationSendFailedError("sms", stderrors.New("throttled"))
	got := Classify(fmt.Errorf("notify: %w", se))
	assert.Same(t, se, got)
}

func TestConvertToBPMNError_CarriesMetadata(t *testing.T) {
	cause := &admissions.SyncPartialFailureError{Failures: []admissions.RepairFailure{
		{Pool: models.PoolSeniorEntry, Subject: "Viva", Op: admissions.RepairUpdate, Err: stderrors.New("lock timeout")},
	}}
	bpmn := ConvertToBPMNError(Classify(cause))

	assert.Equal(t, "SUBJECT_SYNC_PARTIAL_FAILURE", bpmn.Code)
	assert.Equal(t, 2, bpmn.Retries)
	vars := bpmn.ToErrorVariables()
	assert.Equal(t, []string{"Viva"}, vars["failedSubjects"])
	assert.Equal(t, "SUBJECT_SYNC_PARTIAL_FAILURE", vars["originalErrorCode"])
}

func TestConvertToBPMNError_NonRetryableHasNoRetries(t *testing.T) {
	bpmn := ConvertToBPMNError(NewApplicationNotFoundError("ADM-2025-1000", nil))
	assert.Zero(t, bpmn.Retries)
	assert.False(t, bpmn.Retryable)
	assert.Equal(t, "LOOKUP", GetErrorCategory(ErrCodeApplicationNotFound))
	assert.Equal(t, "SEARCH", GetErrorCategory(ErrCodeIndexNotFound))
}
