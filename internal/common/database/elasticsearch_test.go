package database

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"admissions-engine/internal/common/config"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	responses map[string]int
	requests  []string
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	key := req.Method + " " + req.URL.Path
	f.requests = append(f.requests, key)
	status, ok := f.responses[key]
	if !ok {
		status = http.StatusOK
	}
	header := http.Header{}
	header.Set("X-Elastic-Product", "Elasticsearch")
	header.Set("Content-Type", "application/json")
	return &http.Response{
		StatusCode: status,
		Header:     header,
		Body:       io.NopCloser(strings.NewReader(`{}`)),
	}, nil
}

func newTestElasticsearch(t *testing.T, tr *fakeTransport) *ElasticsearchClient {
	t.Helper()
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{"http://localhost:9200"},
		Transport: tr,
	})
	require.NoError(t, err)
	return &ElasticsearchClient{Client: es, Index: "admission-applications"}
}

func TestNewElasticsearchDefaultsIndex(t *testing.T) {
	c, err := NewElasticsearch(config.ElasticsearchConfig{URL: "http://localhost:9200"})
	require.NoError(t, err)
	assert.Equal(t, "admission-applications", c.Index)
}

func TestEnsureIndexSkipsExisting(t *testing.T) {
	tr := &fakeTransport{responses: map[string]int{"HEAD /admission-applications": http.StatusOK}}
	c := newTestElasticsearch(t, tr)

	require.NoError(t, c.EnsureIndex(context.Background()))
	assert.Equal(t, []string{"HEAD /admission-applications"}, tr.requests)
}

func TestEnsureIndexCreatesMissing(t *testing.T) {
	tr := &fakeTransport{responses: map[string]int{"HEAD /admission-applications": http.StatusNotFound}}
	c := newTestElasticsearch(t, tr)

	require.NoError(t, c.EnsureIndex(context.Background()))
	assert.Equal(t, []string{"HEAD /admission-applications", "PUT /admission-applications"}, tr.requests)
}

func TestEnsureIndexReportsCreateFailure(t *testing.T) {
	tr := &fakeTransport{responses: map[string]int{
		"HEAD /admission-applications": http.StatusNotFound,
		"PUT /admission-applications":  http.StatusForbidden,
	}}
	c := newTestElasticsearch(t, tr)

	assert.Error(t, c.EnsureIndex(context.Background()))
}
