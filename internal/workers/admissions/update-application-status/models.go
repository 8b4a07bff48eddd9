package updateapplicationstatus

type Input struct {
	ApplicationID string `json:"applicationId"`
	Pool          string `json:"pool"`
	Status        string `json:"status"`
	InterviewDate string `json:"interviewDate,omitempty"`
	InterviewTime string `json:"interviewTime,omitempty"`
}

// Output carries the contact fields the notification step needs, so the
// process does not have to load the application again.
type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationNumber string `json:"applicationNumber"`
	Pool              string `json:"pool"`
	Status            string `json:"status"`
	Progress          int    `json:"progress"`
	FullName          string `json:"fullName"`
	Mobile            string `json:"mobile"`
	Email             string `json:"email,omitempty"`
	InterviewDate     string `json:"interviewDate,omitempty"`
	InterviewTime     string `json:"interviewTime,omitempty"`
	UpdatedAt         string `json:"updatedAt"` // ISO 8601
}
