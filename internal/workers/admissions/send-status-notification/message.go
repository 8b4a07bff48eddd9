package sendstatusnotification

import (
	"fmt"

	"admissions-engine/internal/models"
)

type message struct {
	Subject string
	Body    string
}

func statusLine(in *Input) string {
	switch models.Status(in.Status) {
	case models.StatusSubmitted:
		return "has been received"
	case models.StatusUnderReview:
		return "is under review"
	case models.StatusShortlistedForInterview:
		return fmt.Sprintf("has been shortlisted. Please attend the interview on %s at %s", in.InterviewDate, in.InterviewTime)
	case models.StatusInterviewComplete:
		return "has completed the interview stage"
	case models.StatusAdmitted:
		return "has been accepted. Congratulations"
	case models.StatusNotAdmitted:
		return "could not be offered a place this year"
	}
	return "has been updated"
}

func buildMessage(school string, in *Input) message {
	line := statusLine(in)
	return message{
		Subject: fmt.Sprintf("%s: application %s", school, in.ApplicationNumber),
		Body: fmt.Sprintf("Dear %s,\n\nYour application %s %s.\n\nYou can track it any time with your application number and mobile.\n\n%s",
			in.FullName, in.ApplicationNumber, line, school),
	}
}

// smsText is kept to one SMS segment where possible.
func smsText(school string, in *Input) string {
	return fmt.Sprintf("%s: application %s %s.", school, in.ApplicationNumber, statusLine(in))
}
