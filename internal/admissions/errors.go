// Package admissions holds the error vocabulary shared by the admission
// lifecycle services: intake, status, subjects, scoring and lookup.
package admissions

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"
)

var (
	// ErrCollision reports that a generated application number already exists.
	ErrCollision = sentinel.ErrCollision
	// ErrSchemaMismatch reports that a pool table lacks the newer optional columns.
	ErrSchemaMismatch = sentinel.ErrSchemaMismatch

	ErrValidation          = errors.New("validation failed")
	ErrApplicationNotFound = errors.New("application not found")
	ErrMobileMismatch      = errors.New("mobile number does not match application")
)

// FieldError describes one rejected input field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError is returned before any write when input is rejected.
type ValidationError struct {
	Fields []FieldError
}

// NewValidationError builds a ValidationError from field/message pairs.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Fields: []FieldError{{Field: field, Message: message}}}
}

// Add appends a field problem.
func (e *ValidationError) Add(field, message string) {
	e.Fields = append(e.Fields, FieldError{Field: field, Message: message})
}

// OrNil returns nil when no field problems were recorded.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Field+": "+f.Message)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// NotFoundError means no pool holds an application with the number and the
// claimed mobile.
type NotFoundError struct {
	ApplicationNumber string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("application %s not found", e.ApplicationNumber)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrApplicationNotFound }

// MobileMismatchError means the number exists but the stored mobile differs
// from the claimed one in every pool where it was found.
type MobileMismatchError struct {
	ApplicationNumber string
	Pools             []models.Pool
}

func (e *MobileMismatchError) Error() string {
	return fmt.Sprintf("application %s found but mobile number does not match", e.ApplicationNumber)
}

func (e *MobileMismatchError) Is(target error) bool { return target == ErrMobileMismatch }

// IntakeExhaustedError is returned when every intake attempt collided.
type IntakeExhaustedError struct {
	Pool     models.Pool
	Attempts int
	Cause    error
}

func (e *IntakeExhaustedError) Error() string {
	return fmt.Sprintf("intake for %s exhausted after %d attempts: %v", e.Pool, e.Attempts, e.Cause)
}

func (e *IntakeExhaustedError) Unwrap() error { return e.Cause }

// StatusUpdateError carries storage failures of a status change. For bulk
// transitions Failed holds one cause per pool that could not be updated.
type StatusUpdateError struct {
	Status models.Status
	Failed map[models.Pool]error
}

func (e *StatusUpdateError) Error() string {
	pools := make([]string, 0, len(e.Failed))
	for p, err := range e.Failed {
		pools = append(pools, fmt.Sprintf("%s: %v", p, err))
	}
	sort.Strings(pools)
	return fmt.Sprintf("status update to %s failed (%s)", e.Status, strings.Join(pools, "; "))
}

func (e *StatusUpdateError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed))
	for _, err := range e.Failed {
		errs = append(errs, err)
	}
	return errs
}

// FailedPools lists the pools that were not updated, in canonical order.
func (e *StatusUpdateError) FailedPools() []models.Pool {
	var out []models.Pool
	for _, p := range models.Pools {
		if _, ok := e.Failed[p]; ok {
			out = append(out, p)
		}
	}
	return out
}

// RepairOp names the mark repair step that failed.
type RepairOp string

const (
	RepairUpdate RepairOp = "update"
	RepairDelete RepairOp = "delete"
)

// RepairFailure is one subject whose marks could not be repaired.
type RepairFailure struct {
	Pool    models.Pool `json:"pool"`
	Subject string      `json:"subject"`
	Op      RepairOp    `json:"op"`
	Err     error       `json:"-"`
}

// SyncPartialFailureError is returned alongside a committed template
// replacement when some mark repairs failed. Callers may retry the listed
// subjects.
type SyncPartialFailureError struct {
	Failures []RepairFailure
}

func (e *SyncPartialFailureError) Error() string {
	parts := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		parts = append(parts, fmt.Sprintf("%s/%s %s: %v", f.Pool, f.Subject, f.Op, f.Err))
	}
	return "mark repair incomplete: " + strings.Join(parts, "; ")
}

func (e *SyncPartialFailureError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		errs = append(errs, f.Err)
	}
	return errs
}

// Subjects lists the subject names that failed to repair.
func (e *SyncPartialFailureError) Subjects() []string {
	out := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f.Subject)
	}
	return out
}
