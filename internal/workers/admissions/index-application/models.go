package indexapplication

type Input struct {
	ApplicationID string `json:"applicationId"`
	Pool          string `json:"pool"`
}

type Output struct {
	DocumentID string `json:"documentId"`
	Result     string `json:"result"` // "created" or "updated"
	IndexedAt  string `json:"indexedAt"`
}

// Document is what staff search sees. The mobile is reduced to its last
// four digits.
type Document struct {
	ApplicationNumber string `json:"application_number"`
	ApplicationID     string `json:"application_id"`
	Pool              string `json:"pool"`
	Status            string `json:"status"`
	Progress          int    `json:"progress"`
	FullName          string `json:"full_name"`
	MobileLast4       string `json:"mobile_last4"`
	Stage             string `json:"stage,omitempty"`
	Stream            string `json:"stream,omitempty"`
	District          string `json:"district,omitempty"`
	InterviewDate     string `json:"interview_date,omitempty"`
	InterviewTime     string `json:"interview_time,omitempty"`
	UpdatedAt         string `json:"updated_at"`
}
