// cmd/tools/worker-generator/generator.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"text/template"

	"admissions-engine/pkg/registry"
)

// WorkerData holds data for templates
type WorkerData struct {
	Name         string
	PackageName  string
	TaskType     string
	Description  string
	Timeout      string
	InputFields  []Field
	OutputFields []Field
}

type Field struct {
	Name    string
	GoType  string
	JSONTag string
}

// NewWorkerData derives template data from a registry activity.
func NewWorkerData(a registry.Activity) WorkerData {
	timeout := a.Timeout
	if timeout == "" {
		timeout = "10s"
	}
	return WorkerData{
		Name:         a.DisplayName,
		PackageName:  packageName(a.ID),
		TaskType:     a.TaskType,
		Description:  a.Description,
		Timeout:      timeout,
		InputFields:  schemaFields(a.InputSchema),
		OutputFields: schemaFields(a.OutputSchema),
	}
}

// packageName drops separators: "record-interview-marks" becomes
// "recordinterviewmarks".
func packageName(id string) string {
	return strings.NewReplacer("-", "", "_", "", ".", "").Replace(strings.ToLower(id))
}

// schemaFields accepts either a JSON schema with "properties" or a flat
// name-to-type map, and returns fields sorted by name.
func schemaFields(schema map[string]interface{}) []Field {
	props := schema
	if p, ok := schema["properties"].(map[string]interface{}); ok {
		props = p
	}

	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	fields := make([]Field, 0, len(names))
	for _, name := range names {
		var jsonType interface{} = props[name]
		if details, ok := props[name].(map[string]interface{}); ok {
			jsonType = details["type"]
		}
		fields = append(fields, Field{
			Name:    upperFirst(name),
			GoType:  goTypeFromJSONType(jsonType),
			JSONTag: fmt.Sprintf("`json:\"%s,omitempty\"`", name),
		})
	}
	return fields
}

// goTypeFromJSONType maps JSON schema types to Go types
func goTypeFromJSONType(jsonType interface{}) string {
	switch jsonType {
	case "string":
		return "string"
	case "number":
		return "float64"
	case "integer":
		return "int"
	case "boolean":
		return "bool"
	case "object":
		return "map[string]interface{}"
	case "array":
		return "[]interface{}"
	}
	return "interface{}"
}

func upperFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

var files = map[string]string{
	"config.go":       configTemplate,
	"models.go":       modelsTemplate,
	"handler.go":      handlerTemplate,
	"handler_test.go": testTemplate,
}

// Generate writes the worker skeleton into dir. Existing files are never
// overwritten; the names of the files written are returned.
func Generate(data WorkerData, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create %s: %w", dir, err)
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var written []string
	for _, name := range names {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			continue
		}
		tmpl, err := template.New(name).Parse(files[name])
		if err != nil {
			return written, fmt.Errorf("parse %s template: %w", name, err)
		}
		f, err := os.Create(path)
		if err != nil {
			return written, fmt.Errorf("create %s: %w", path, err)
		}
		err = tmpl.Execute(f, data)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return written, fmt.Errorf("render %s: %w", path, err)
		}
		written = append(written, name)
	}
	return written, nil
}

const configTemplate = `package {{ .PackageName }}

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	d, _ := time.ParseDuration("{{ .Timeout }}")
	return &Config{Timeout: d}
}
`

const modelsTemplate = `package {{ .PackageName }}

type Input struct {
{{- range .InputFields }}
	{{ .Name }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}

type Output struct {
{{- range .OutputFields }}
	{{ .Name }} {{ .GoType }} {{ .JSONTag }}
{{- end }}
}
`

const handlerTemplate = `// Package {{ .PackageName }} implements the {{ .TaskType }} job worker.
// {{ .Description }}
package {{ .PackageName }}

import (
	"context"
	"encoding/json"
	"fmt"

	"admissions-engine/internal/common/camunda"
	"admissions-engine/internal/common/errors"
	"admissions-engine/internal/common/logger"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
)

const (
	TaskType = "{{ .TaskType }}"
)

type Handler struct {
	config     *Config
	logger     logger.Logger
	errHandler *errors.ErrorHandler
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		logger:     l,
		errHandler: errors.NewErrorHandler(l),
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(ctx, client, job, errors.NewInvalidInputError(fmt.Sprintf("parse input: %v", err)))
		return
	}

	output, err := h.Execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(ctx, client, job, err)
		return
	}

	if err := camunda.CompleteJob(ctx, client, job, output); err != nil {
		h.logger.Error("failed to complete job", map[string]interface{}{"error": err, "jobKey": job.Key})
	}
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return nil, errors.NewInternalError(fmt.Errorf("%s is not implemented", TaskType))
}
`

const testTemplate = `package {{ .PackageName }}

import (
	"context"
	"testing"

	"admissions-engine/internal/common/logger"

	"github.com/stretchr/testify/assert"
)

func TestHandler_Execute(t *testing.T) {
	h := NewHandler(LoadConfig(), logger.NewTestLogger(t))

	_, err := h.Execute(context.Background(), &Input{})

	assert.Error(t, err)
}
`
