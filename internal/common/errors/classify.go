// internal/common/errors/classify.go
package errors

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"admissions-engine/internal/admissions"
)

// Classify maps an error returned by the admissions services onto the
// StandardError taxonomy. StandardErrors pass through unchanged.
func Classify(err error) *StandardError {
	if err == nil {
		return nil
	}

	var (
		std       *StandardError
		validErr  *admissions.ValidationError
		exhausted *admissions.IntakeExhaustedError
		notFound  *admissions.NotFoundError
		mismatch  *admissions.MobileMismatchError
		statusErr *admissions.StatusUpdateError
		syncErr   *admissions.SyncPartialFailureError
	)
	switch {
	case stderrors.As(err, &std):
		return std
	case stderrors.As(err, &validErr):
		se := NewApplicationValidationFailedError(validErr.Error(), err)
		return se.WithMetadata("fields", validErr.Fields)
	case stderrors.As(err, &exhausted):
		return NewIntakeExhaustedError(err).WithMetadata("attempts", exhausted.Attempts)
	case stderrors.As(err, &mismatch):
		return NewMobileMismatchError(mismatch.ApplicationNumber, err)
	case stderrors.As(err, &notFound):
		return NewApplicationNotFoundError(notFound.ApplicationNumber, err)
	case stderrors.Is(err, admissions.ErrApplicationNotFound):
		return NewApplicationNotFoundError(err.Error(), err)
	case stderrors.As(err, &syncErr):
		return NewSubjectSyncPartialFailureError(syncErr.Subjects(), err)
	case stderrors.As(err, &statusErr):
		pools := make([]string, 0, len(statusErr.Failed))
		for _, p := range statusErr.FailedPools() {
			pools = append(pools, string(p))
		}
		return NewStatusUpdateFailedError(err).WithMetadata("failedPools", pools)
	case stderrors.Is(err, context.DeadlineExceeded):
		return NewQueryTimeoutError("admissions", err)
	case strings.Contains(err.Error(), "connection refused"):
		return NewDatabaseConnectionFailedError(err)
	}
	return NewInternalError(err)
}

// HTTPStatus picks the response status for a StandardError code.
func HTTPStatus(code ErrorCode) int {
	switch code {
	case ErrCodeInvalidInput, ErrCodeApplicationValidationFailed:
		return http.StatusBadRequest
	case ErrCodeApplicationNotFound:
		return http.StatusNotFound
	case ErrCodeMobileMismatch:
		return http.StatusForbidden
	case ErrCodeIntakeExhausted:
		return http.StatusConflict
	case ErrCodeQueryTimeout:
		return http.StatusGatewayTimeout
	case ErrCodeDatabaseConnectionFailed, ErrCodeElasticsearchConnectionFailed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}
