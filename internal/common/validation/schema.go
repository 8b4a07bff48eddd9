// internal/common/validation/schema.go
package validation

import (
	"embed"
	"fmt"
	"sort"
	"sync"

	"admissions-engine/internal/admissions"
	"admissions-engine/internal/models"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors,omitempty"`
}

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

// Err converts a failed result into the lifecycle validation error.
func (r *ValidationResult) Err() error {
	if r.Valid {
		return nil
	}
	verr := &admissions.ValidationError{}
	for _, e := range r.Errors {
		verr.Add(e.Field, e.Message)
	}
	return verr.OrNil()
}

var (
	schemaMu    sync.Mutex
	schemaCache = map[models.Pool]*gojsonschema.Schema{}
)

func formSchema(pool models.Pool) (*gojsonschema.Schema, error) {
	schemaMu.Lock()
	defer schemaMu.Unlock()

	if s, ok := schemaCache[pool]; ok {
		return s, nil
	}
	raw, err := schemaFiles.ReadFile(fmt.Sprintf("schemas/%s.json", pool))
	if err != nil {
		return nil, fmt.Errorf("no form schema for pool %q: %w", pool, err)
	}
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
	if err != nil {
		return nil, fmt.Errorf("compile %s form schema: %w", pool, err)
	}
	schemaCache[pool] = s
	return s, nil
}

// ValidateForm checks a raw application form body against the pool's schema.
func ValidateForm(pool models.Pool, body []byte) (*ValidationResult, error) {
	schema, err := formSchema(pool)
	if err != nil {
		return nil, err
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
	if err != nil {
		return &ValidationResult{
			Valid:  false,
			Errors: []ValidationError{{Field: "body", Message: err.Error(), Code: "MALFORMED_JSON"}},
		}, nil
	}
	return toResult(result), nil
}

func toResult(result *gojsonschema.Result) *ValidationResult {
	out := &ValidationResult{Valid: result.Valid()}
	for _, e := range result.Errors() {
		field := e.Field()
		if e.Type() == "required" {
			if missing, ok := e.Details()["property"].(string); ok {
				field = missing
			}
		}
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Message: e.Description(),
			Code:    e.Type(),
		})
	}
	sort.SliceStable(out.Errors, func(i, j int) bool { return out.Errors[i].Field < out.Errors[j].Field })
	return out
}
