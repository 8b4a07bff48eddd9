// Package scoring turns recorded interview marks into per-subject and total
// percentages.
package scoring

import "math"

// Mark is one scored subject.
type Mark struct {
	Subject  string
	Obtained float64
	Max      float64
}

type SubjectScore struct {
	Name       string  `json:"name"`
	Obtained   float64 `json:"obtained"`
	Max        float64 `json:"max"`
	Percentage int     `json:"percentage"`
}

type Total struct {
	Obtained   float64 `json:"obtained"`
	Max        float64 `json:"max"`
	Percentage int     `json:"percentage"`
}

type Summary struct {
	PerSubject []SubjectScore `json:"perSubject"`
	Total      Total          `json:"total"`
}

// Percentage is round(obtained/max*100), or 0 when max is not positive.
func Percentage(obtained, max float64) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(obtained / max * 100))
}

// Aggregate keeps the input order for PerSubject. Totals do not depend on it.
func Aggregate(marks []Mark) Summary {
	s := Summary{PerSubject: make([]SubjectScore, 0, len(marks))}
	for _, m := range marks {
		s.PerSubject = append(s.PerSubject, SubjectScore{
			Name:       m.Subject,
			Obtained:   m.Obtained,
			Max:        m.Max,
			Percentage: Percentage(m.Obtained, m.Max),
		})
		s.Total.Obtained += m.Obtained
		s.Total.Max += m.Max
	}
	s.Total.Percentage = Percentage(s.Total.Obtained, s.Total.Max)
	return s
}
