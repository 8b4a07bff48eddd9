package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const minimalConfig = `
camunda:
  broker_address: localhost:26500
database:
  postgres:
    host: localhost
    database: admissions
    user: ${ADMISSIONS_TEST_DB_USER}
  elasticsearch:
    addresses: ["http://localhost:9200"]
  redis:
    address: localhost:6379
workers:
  update-application-status:
    enabled: true
`

func TestLoadFromFile_DefaultsAndExpansion(t *testing.T) {
	t.Setenv("ADMISSIONS_TEST_DB_USER", "registrar")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "registrar", cfg.Database.Postgres.User)
	assert.Equal(t, 5432, cfg.Database.Postgres.Port)
	assert.Equal(t, "http://localhost:9200", cfg.Database.Elasticsearch.URL)
	assert.Equal(t, "admission-applications", cfg.Database.Elasticsearch.Index)
	assert.Equal(t, "ADM", cfg.Admissions.NumberPrefix)
	assert.Equal(t, "admission-intake", cfg.Camunda.IntakeProcessID)
	assert.Equal(t, ":8080", cfg.HTTP.Address)

	w := GetWorkerConfig(cfg, "update-application-status")
	assert.True(t, w.Enabled)
	assert.Equal(t, 3, w.MaxRetries)
	assert.Equal(t, 5, w.MaxJobsActive)
}

func TestLoadFromFile_Validation(t *testing.T) {
	t.Setenv("ADMISSIONS_TEST_DB_USER", "registrar")

	_, err := LoadFromFile(writeConfig(t, minimalConfig+`
admissions:
  number_prefix: "AD M"
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "number_prefix")

	_, err = LoadFromFile(writeConfig(t, `
database:
  postgres:
    host: localhost
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "camunda.broker_address")
}

func TestLoadFromFile_NumberPrefixUpperCased(t *testing.T) {
	t.Setenv("ADMISSIONS_TEST_DB_USER", "registrar")

	cfg, err := LoadFromFile(writeConfig(t, minimalConfig+`
admissions:
  number_prefix: " sjs "
`))
	require.NoError(t, err)
	assert.Equal(t, "SJS", cfg.Admissions.NumberPrefix)
}

func TestIsWorkerEnabled_DefaultsToTrue(t *testing.T) {
	cfg := &Config{Workers: map[string]WorkerConfig{"index-application": {Enabled: false}}}
	assert.False(t, IsWorkerEnabled(cfg, "index-application"))
	assert.True(t, IsWorkerEnabled(cfg, "send-status-notification"))
}
