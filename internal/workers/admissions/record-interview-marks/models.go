package recordinterviewmarks

import (
	"admissions-engine/internal/admissions/scoring"
	"admissions-engine/internal/admissions/subjects"
)

type Input struct {
	ApplicationID string               `json:"applicationId"`
	Pool          string               `json:"pool"`
	Marks         []subjects.MarkEntry `json:"marks"`
}

// Output scores every mark on file for the application, not only the ones
// entered by this job.
type Output struct {
	ApplicationID string          `json:"applicationId"`
	Recorded      int             `json:"recorded"`
	Scores        scoring.Summary `json:"scores"`
}
