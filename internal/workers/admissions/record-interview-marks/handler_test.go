// internal/workers/admissions/record-interview-marks/handler_test.go
package recordinterviewmarks

import (
	"context"
	"errors"
	"testing"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/admissions/subjects"
	apperrors "admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"
	"admissions-engine/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeRecorder struct {
	records []models.MarkRecord
	err     error
	ref     models.ApplicationRef
}

func (f *fakeRecorder) RecordMarks(ctx context.Context, ref models.ApplicationRef, entries []subjects.MarkEntry) ([]models.MarkRecord, error) {
	f.ref = ref
	return f.records, f.err
}

type fakeLister struct {
	marks []models.MarkRecord
	err   error
}

func (f *fakeLister) ListMarks(ctx context.Context, ref models.ApplicationRef) ([]models.MarkRecord, error) {
	return f.marks, f.err
}

func markRecord(name string, max, got float64) models.MarkRecord {
	return models.MarkRecord{ApplicationID: "app-1", Pool: models.PoolSeniorEntry, SubjectName: name, MaxMarks: max, MarksObtained: got}
}

func input() *Input {
	return &Input{
		ApplicationID: "app-1",
		Pool:          "senior_entry",
		Marks:         []subjects.MarkEntry{{SubjectName: "Physics", MarksObtained: 17}},
	}
}

// ==========================
// Core Functionality Tests
// ==========================

func TestHandler_Execute_ScoresAllMarksOnFile(t *testing.T) {
	rec := &fakeRecorder{records: []models.MarkRecord{markRecord("Physics", 20, 17)}}
	list := &fakeLister{marks: []models.MarkRecord{
		markRecord("Physics", 20, 17),
		markRecord("Chemistry", 30, 22),
		markRecord("Interview", 10, 7),
	}}
	h := NewHandler(LoadConfig(), rec, list, logger.NewTestLogger(t))

	out, err := h.Execute(context.Background(), input())

	require.NoError(t, err)
	assert.Equal(t, models.ApplicationRef{Pool: models.PoolSeniorEntry, ID: "app-1"}, rec.ref)
	assert.Equal(t, 1, out.Recorded)
	require.Len(t, out.Scores.PerSubject, 3)
	assert.Equal(t, 85, out.Scores.PerSubject[0].Percentage)
	assert.Equal(t, 46.0, out.Scores.Total.Obtained)
	assert.Equal(t, 60.0, out.Scores.Total.Max)
	assert.Equal(t, 77, out.Scores.Total.Percentage)
}

// ==========================
// Error Handling Tests
// ==========================

func TestHandler_Execute_ErrorClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"out of range", admissions.NewValidationError("marks[0].marksObtained", "must be between 0 and 20"), apperrors.ErrCodeApplicationValidationFailed},
		{"missing application", admissions.ErrApplicationNotFound, apperrors.ErrCodeApplicationNotFound},
		{"store", errors.New("record marks: connection reset"), apperrors.ErrCodeMarkEntryFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHandler(LoadConfig(), &fakeRecorder{err: tt.err}, &fakeLister{}, logger.NewTestLogger(t))
			_, err := h.Execute(context.Background(), input())
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.Classify(err).Code)
		})
	}
}

func TestHandler_Execute_ListFailure(t *testing.T) {
	rec := &fakeRecorder{records: []models.MarkRecord{markRecord("Physics", 20, 17)}}
	h := NewHandler(LoadConfig(), rec, &fakeLister{err: errors.New("timeout")}, logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), input())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeQueryExecutionFailed, apperrors.Classify(err).Code)
}

func TestHandler_Execute_UnknownPool(t *testing.T) {
	rec := &fakeRecorder{}
	h := NewHandler(LoadConfig(), rec, &fakeLister{}, logger.NewTestLogger(t))

	in := input()
	in.Pool = "evening"
	_, err := h.Execute(context.Background(), in)

	require.Error(t, err)
	assert.Empty(t, rec.ref.ID)
}
