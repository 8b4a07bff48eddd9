package replaceinterviewsubjects

import "admissions-engine/internal/admissions/subjects"

// Input maps a pool name to its complete new subject list. Pools left out
// keep their subjects.
type Input struct {
	Subjects map[string][]subjects.TemplateInput `json:"subjects"`
}

type Output struct {
	Report *subjects.SyncReport `json:"report"`
}
