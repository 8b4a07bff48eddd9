package sendstatusnotification

// Input matches the output of update-application-status.
type Input struct {
	ApplicationNumber string `json:"applicationNumber"`
	FullName          string `json:"fullName"`
	Mobile            string `json:"mobile"`
	Email             string `json:"email,omitempty"`
	Status            string `json:"status"`
	InterviewDate     string `json:"interviewDate,omitempty"`
	InterviewTime     string `json:"interviewTime,omitempty"`
}

type Output struct {
	Status    string   `json:"status"` // "sent", "disabled"
	Channels  []string `json:"channels,omitempty"`
	MessageID string   `json:"messageId,omitempty"`
	SentAt    string   `json:"sentAt"` // ISO 8601
}

const (
	StatusSent     = "sent"
	StatusDisabled = "disabled"
)

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)
