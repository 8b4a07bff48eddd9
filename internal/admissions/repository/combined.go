package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"
)

// SubjectMark is an active template left-joined to the applicant's mark.
// MarksObtained is nil when no mark was recorded for the subject.
type SubjectMark struct {
	SubjectName   string   `json:"subject_name"`
	MaxMarks      float64  `json:"max_marks"`
	MarksObtained *float64 `json:"marks_obtained"`
}

// StatusRecord is everything the applicant-facing status page needs.
type StatusRecord struct {
	Application  *models.Application
	AcademicYear *models.AcademicYear
	Marks        []SubjectMark
}

type combinedDocument struct {
	Pool         models.Pool          `json:"pool"`
	Application  json.RawMessage      `json:"application"`
	AcademicYear *models.AcademicYear `json:"academic_year"`
	Marks        []SubjectMark        `json:"interview_marks"`
}

// ResolveCombined runs the server-side get_admission_status function, which
// searches both pools for the number and returns the application with its
// academic year and marks in one round trip. A NULL result is reported as
// sentinel.ErrNotFound; a database without the function as
// sentinel.ErrUnavailable.
func (r *Repository) ResolveCombined(ctx context.Context, number string) (*StatusRecord, error) {
	var raw []byte
	if err := r.db.QueryRowContext(ctx, `SELECT get_admission_status($1)`, number).Scan(&raw); err != nil {
		return nil, fmt.Errorf("combined status lookup: %w", translate(err))
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, fmt.Errorf("combined status lookup %s: %w", number, sentinel.ErrNotFound)
	}

	var doc combinedDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode combined status: %w", err)
	}
	if !doc.Pool.Valid() {
		return nil, fmt.Errorf("combined status returned unknown pool %q", doc.Pool)
	}

	app, err := decodeApplication(doc.Pool, doc.Application)
	if err != nil {
		return nil, err
	}
	if doc.AcademicYear != nil {
		doc.AcademicYear.Pool = doc.Pool
	}
	return &StatusRecord{
		Application:  app,
		AcademicYear: doc.AcademicYear,
		Marks:        doc.Marks,
	}, nil
}
