package jobsearch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"niena/internal/config"
	"niena/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const samplePage = `{
  "status": "OK",
  "data": [
    {
      "job_id": "abc123",
      "job_title": "Backend Engineer",
      "employer_name": "Acme",
      "job_city": "Lagos",
      "job_country": "NG",
      "job_is_remote": true,
      "job_employment_type": "FULLTIME",
      "job_description": "Build Go services",
      "job_apply_link": "https://acme.example/apply",
      "job_min_salary": 1000,
      "job_max_salary": null,
      "job_salary_currency": "USD",
      "job_posted_at_datetime_utc": "2026-03-01T10:00:00.000Z"
    },
    {"job_id": "", "job_title": "missing id"}
  ]
}`

func testConfig(url string) config.JobSearchConfig {
	return config.JobSearchConfig{
		BaseURL:    url,
		APIKey:     "key-1",
		APIHost:    "jsearch.example",
		DatePosted: "week",
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	}
}

func TestSearchMapsResults(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "golang developer", r.URL.Query().Get("query"))
		assert.Equal(t, "2", r.URL.Query().Get("page"))
		assert.Equal(t, "1", r.URL.Query().Get("num_pages"))
		assert.Equal(t, "week", r.URL.Query().Get("date_posted"))
		assert.Equal(t, "key-1", r.Header.Get("X-RapidAPI-Key"))
		assert.Equal(t, "jsearch.example", r.Header.Get("X-RapidAPI-Host"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	jobs, err := NewClient(testConfig(server.URL)).Search(context.Background(), "golang developer", 2)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	job := jobs[0]
	assert.Equal(t, "abc123", job.ExternalID)
	assert.Equal(t, SourceJSearch, job.Source)
	assert.Equal(t, "Lagos, NG", job.Location)
	assert.True(t, job.Remote)
	assert.Equal(t, 1000.0, job.SalaryMin)
	assert.Zero(t, job.SalaryMax)
	require.NotNil(t, job.PostedAt)
	assert.Equal(t, 2026, job.PostedAt.Year())
}

func TestSearchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"OK","data":[]}`))
	}))
	defer server.Close()

	jobs, err := NewClient(testConfig(server.URL)).Search(context.Background(), "designer", 1)
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestSearchReportsHTTPErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	_, err := NewClient(testConfig(server.URL)).Search(context.Background(), "designer", 1)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	_, err := NewClient(testConfig("http://unused")).Search(context.Background(), " ", 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}
