package bulkupdateapplicationstatus

import "admissions-engine/internal/admissions/status"

type ApplicationRef struct {
	ApplicationID string `json:"applicationId"`
	Pool          string `json:"pool"`
}

type Input struct {
	Applications  []ApplicationRef `json:"applications"`
	Status        string           `json:"status"`
	InterviewDate string           `json:"interviewDate,omitempty"`
	InterviewTime string           `json:"interviewTime,omitempty"`
}

type Output struct {
	Status         string              `json:"status"`
	Updated        int64               `json:"updated"`
	Pools          []status.PoolResult `json:"pools"`
	PartialFailure bool                `json:"partialFailure"`
	FailedPools    []string            `json:"failedPools,omitempty"`
}
