package pipeline

import (
	"context"
	"strings"
	"testing"

	"niena/internal/errors"
	"niena/internal/jobsearch"
	"niena/internal/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func raw(id, title string) jobsearch.RawJob {
	return jobsearch.RawJob{ExternalID: id, Source: jobsearch.SourceJSearch, Title: title, Company: "Acme", Description: "desc"}
}

func TestIngestStoresOnlyNewJobs(t *testing.T) {
	search := &fakeSearch{pages: map[string][][]jobsearch.RawJob{
		"go":     {{raw("a", "Go Dev"), raw("b", "Go Lead")}, {raw("c", "Go SRE")}},
		"python": {{raw("b", "Go Lead"), raw("d", "Python Dev")}},
	}}
	jobs := &memJobs{existing: map[string]bool{"a": true}}
	cache := &fakeCache{}
	rec := &countingRecorder{}
	i := NewIngestor(search, &fakeAI{}, &fakeEmbedder{}, jobs, 2, testLogger())
	i.SetCache(cache)
	i.SetRecorder(rec)

	report, err := i.Run(context.Background(), []string{"go", "python"}, 3)
	require.NoError(t, err)

	assert.Equal(t, 4, report.Fetched)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 3, report.Stored)
	assert.Zero(t, report.Failed)
	assert.Len(t, jobs.stored, 3)
	assert.NotContains(t, jobs.stored, "a")

	job := jobs.stored["c"]
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, []string{"Go", "SQL"}, job.Skills)
	assert.Equal(t, "mid", job.Seniority)
	assert.Len(t, job.Embedding, 3)

	assert.Equal(t, 1, cache.bumps)
	assert.Equal(t, 3, rec.stored)
}

func TestIngestCountsPerJobFailures(t *testing.T) {
	fake := &fakeAI{extractFn: func(in types.ExtractJobInput) (types.ExtractedJob, error) {
		if strings.Contains(in.Title, "bad") {
			return types.ExtractedJob{}, errors.NewAIError(errors.ErrCodeAIResponseInvalid, "invalid", nil)
		}
		return types.ExtractedJob{Summary: in.Title}, nil
	}}
	search := &fakeSearch{pages: map[string][][]jobsearch.RawJob{
		"q": {{raw("1", "good"), raw("2", "bad one"), raw("3", "good too")}},
	}}
	jobs := &memJobs{}
	i := NewIngestor(search, fake, &fakeEmbedder{}, jobs, 3, testLogger())

	report, err := i.Run(context.Background(), []string{"q"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Stored)
	assert.Equal(t, 1, report.Failed)
}

func TestIngestFailsWhenNothingCouldBeFetched(t *testing.T) {
	search := &fakeSearch{errQueries: map[string]bool{"q": true}}
	cache := &fakeCache{}
	i := NewIngestor(search, &fakeAI{}, nil, &memJobs{}, 1, testLogger())
	i.SetCache(cache)

	report, err := i.Run(context.Background(), []string{"q"}, 2)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNetwork))
	assert.Equal(t, 2, report.FetchErrors)
	assert.Zero(t, cache.bumps)
}

func TestIngestPartialFetchFailureStillStores(t *testing.T) {
	search := &fakeSearch{
		pages:      map[string][][]jobsearch.RawJob{"ok": {{raw("x", "X")}}},
		errQueries: map[string]bool{"down": true},
	}
	jobs := &memJobs{}
	i := NewIngestor(search, &fakeAI{}, nil, jobs, 1, testLogger())

	report, err := i.Run(context.Background(), []string{"down", "ok"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FetchErrors)
	assert.Equal(t, 1, report.Stored)
}

func TestBuildJobPrefersListingSalary(t *testing.T) {
	r := raw("1", "Dev")
	r.SalaryMin, r.SalaryMax, r.SalaryCurrency = 100, 200, "USD"
	job := buildJob(r, types.ExtractedJob{SalaryMin: 1, SalaryMax: 2, SalaryCurrency: "EUR", EmploymentType: "FULLTIME"})
	assert.Equal(t, 100.0, job.SalaryMin)
	assert.Equal(t, "USD", job.SalaryCurrency)
	assert.Equal(t, "FULLTIME", job.EmploymentType)

	job = buildJob(raw("2", "Dev"), types.ExtractedJob{SalaryMin: 1, SalaryMax: 2, SalaryCurrency: "EUR"})
	assert.Equal(t, 2.0, job.SalaryMax)
	assert.Equal(t, "EUR", job.SalaryCurrency)
}

func TestTruncateKeepsRuneBoundary(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 10))
	assert.Equal(t, "h", truncate("hé", 2))
}
