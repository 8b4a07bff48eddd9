package subjects

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/common/sentinel"
	"admissions-engine/internal/models"
)

// MarkEntry is one score entered by interview staff.
type MarkEntry struct {
	SubjectName   string  `json:"subjectName"`
	MarksObtained float64 `json:"marksObtained"`
}

// RecordMarks stores scores for an application. Only active subjects of the
// application's pool are accepted, and each score must lie in [0, max]. The
// template's name and max marks are copied onto the stored record.
func (s *Synchronizer) RecordMarks(ctx context.Context, ref models.ApplicationRef, entries []MarkEntry) ([]models.MarkRecord, error) {
	if !ref.Pool.Valid() {
		return nil, admissions.NewValidationError("pool", fmt.Sprintf("unknown pool %q", ref.Pool))
	}
	if ref.ID == "" {
		return nil, admissions.NewValidationError("applicationId", "required")
	}
	if len(entries) == 0 {
		return nil, admissions.NewValidationError("marks", "at least one mark is required")
	}

	if _, err := s.store.GetApplication(ctx, ref); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, fmt.Errorf("application %s in %s: %w", ref.ID, ref.Pool, admissions.ErrApplicationNotFound)
		}
		return nil, fmt.Errorf("load application: %w", err)
	}

	templates, err := s.store.ListPoolTemplates(ctx, ref.Pool)
	if err != nil {
		return nil, fmt.Errorf("load %s templates: %w", ref.Pool, err)
	}
	active := make(map[string]models.SubjectTemplate, len(templates))
	for _, t := range templates {
		active[t.SubjectName] = t
	}

	v := &admissions.ValidationError{}
	seen := make(map[string]bool, len(entries))
	records := make([]models.MarkRecord, 0, len(entries))
	for i, e := range entries {
		field := fmt.Sprintf("marks[%d]", i)
		name := strings.TrimSpace(e.SubjectName)
		t, ok := active[name]
		switch {
		case !ok:
			v.Add(field+".subjectName", fmt.Sprintf("%q is not an active subject for %s", name, ref.Pool))
			continue
		case seen[name]:
			v.Add(field+".subjectName", fmt.Sprintf("subject %q entered twice", name))
			continue
		case e.MarksObtained < 0 || e.MarksObtained > t.MaxMarks:
			v.Add(field+".marksObtained", fmt.Sprintf("must be between 0 and %g", t.MaxMarks))
			continue
		}
		seen[name] = true
		records = append(records, models.MarkRecord{
			ApplicationID: ref.ID,
			Pool:          ref.Pool,
			SubjectName:   t.SubjectName,
			MaxMarks:      t.MaxMarks,
			MarksObtained: e.MarksObtained,
		})
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if err := s.store.UpsertMarks(ctx, records); err != nil {
		return nil, fmt.Errorf("record marks: %w", err)
	}
	s.logger.Info("Interview marks recorded", map[string]interface{}{
		"pool":          ref.Pool,
		"applicationId": ref.ID,
		"subjects":      len(records),
	})
	return records, nil
}
