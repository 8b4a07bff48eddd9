package models

import "time"

// SubjectTemplate is a staff-configured interview subject for one pool.
type SubjectTemplate struct {
	ID           string    `json:"id"`
	Pool         Pool      `json:"pool"`
	SubjectName  string    `json:"subject_name"`
	MaxMarks     float64   `json:"max_marks"`
	DisplayOrder int       `json:"display_order"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// MarkRecord stores one applicant's score for one subject. Subject name and
// max marks are copied from the template at write time.
type MarkRecord struct {
	ID            string    `json:"id"`
	ApplicationID string    `json:"application_id"`
	Pool          Pool      `json:"pool"`
	SubjectName   string    `json:"subject_name"`
	MaxMarks      float64   `json:"max_marks"`
	MarksObtained float64   `json:"marks_obtained"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type AcademicYear struct {
	Pool           Pool   `json:"pool"`
	Label          string `json:"label"`
	AdmissionsOpen bool   `json:"admissions_open"`
	IsCurrent      bool   `json:"is_current"`
}
