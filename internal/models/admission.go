// internal/models/admission.go
package models

import (
	"fmt"
	"time"
)

// Pool identifies one of the two applicant categories. Each pool has its own
// record set and its own interview subject templates.
type Pool string

const (
	PoolEarlyYears  Pool = "early_years"
	PoolSeniorEntry Pool = "senior_entry"
)

// Pools lists every pool in canonical order. Template display order and
// lookups iterate in this order unless stated otherwise.
var Pools = []Pool{PoolEarlyYears, PoolSeniorEntry}

func ParsePool(s string) (Pool, error) {
	switch Pool(s) {
	case PoolEarlyYears, PoolSeniorEntry:
		return Pool(s), nil
	}
	return "", fmt.Errorf("unknown applicant pool %q", s)
}

func (p Pool) Valid() bool {
	return p == PoolEarlyYears || p == PoolSeniorEntry
}

type Status string

const (
	StatusSubmitted               Status = "submitted"
	StatusUnderReview             Status = "under_review"
	StatusShortlistedForInterview Status = "shortlisted_for_interview"
	StatusInterviewComplete       Status = "interview_complete"
	StatusAdmitted                Status = "admitted"
	StatusNotAdmitted             Status = "not_admitted"
)

// Statuses is the canonical forward path. Staff may still set any state directly.
var Statuses = []Status{
	StatusSubmitted,
	StatusUnderReview,
	StatusShortlistedForInterview,
	StatusInterviewComplete,
	StatusAdmitted,
	StatusNotAdmitted,
}

func (s Status) Valid() bool {
	return s.Index() >= 0
}

// Index returns the position of s on the canonical path, or -1.
func (s Status) Index() int {
	for i, st := range Statuses {
		if st == s {
			return i
		}
	}
	return -1
}

type Address struct {
	HouseName  string `json:"house_name"`
	Place      string `json:"place"`
	PostOffice string `json:"post_office"`
	District   string `json:"district"`
	State      string `json:"state"`
	PinCode    string `json:"pin_code"`
}

type Sibling struct {
	InSchool bool   `json:"sibling_in_school"`
	Name     string `json:"sibling_name,omitempty"`
	Class    string `json:"sibling_class,omitempty"`
}

// EarlyYearsDetails holds the fields only Early-Years applications carry.
type EarlyYearsDetails struct {
	Stage          string `json:"stage"`
	PreviousSchool string `json:"previous_school,omitempty"`
}

// SeniorEntryDetails holds the stream choice and prior exam data of a
// Senior-Entry applicant.
type SeniorEntryDetails struct {
	Stream                   string  `json:"stream"`
	QualifyingBoard          string  `json:"qualifying_board"`
	QualifyingRegisterNumber string  `json:"qualifying_register_number"`
	QualifyingSchool         string  `json:"qualifying_school,omitempty"`
	QualifyingPercentage     float64 `json:"qualifying_percentage,omitempty"`
}

// Application is a tagged union over the two pools: exactly one of
// EarlyYearsDetails and SeniorEntryDetails is set, matching Pool. JSON tags
// follow the column names so a row rendered with to_jsonb decodes directly.
type Application struct {
	ID                string `json:"id"`
	ApplicationNumber string `json:"application_number"`
	Pool              Pool   `json:"pool"`

	FullName     string `json:"full_name"`
	Gender       string `json:"gender"`
	DateOfBirth  string `json:"date_of_birth"`
	FatherName   string `json:"father_name"`
	MotherName   string `json:"mother_name"`
	GuardianName string `json:"guardian_name,omitempty"`

	// Mobile is stored exactly as entered.
	Mobile string `json:"mobile"`
	Email  string `json:"email,omitempty"`

	Address
	Sibling

	*EarlyYearsDetails
	*SeniorEntryDetails

	Status        Status    `json:"status"`
	InterviewDate *string   `json:"interview_date,omitempty"`
	InterviewTime *string   `json:"interview_time,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Normalize drops the details block that does not belong to the pool.
func (a *Application) Normalize() {
	switch a.Pool {
	case PoolEarlyYears:
		a.SeniorEntryDetails = nil
		if a.EarlyYearsDetails == nil {
			a.EarlyYearsDetails = &EarlyYearsDetails{}
		}
	case PoolSeniorEntry:
		a.EarlyYearsDetails = nil
		if a.SeniorEntryDetails == nil {
			a.SeniorEntryDetails = &SeniorEntryDetails{}
		}
	}
}

// ApplicationRef addresses one application without loading it.
type ApplicationRef struct {
	Pool Pool   `json:"pool"`
	ID   string `json:"id"`
}

// InterviewSchedule is stamped onto an application when it is shortlisted.
type InterviewSchedule struct {
	Date string `json:"interviewDate"`
	Time string `json:"interviewTime"`
}
