package service

import (
	"context"
	"testing"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchJobs(t *testing.T) {
	resumes := newMemResumes()
	resumes.put(&domain.Resume{ID: "r1", UserID: "u1", Status: domain.ResumeCompleted, IsPrimary: true})
	resumes.embeddings["r1"] = []float32{0.1, 0.2}

	jobs := &memJobs{matches: []domain.JobMatch{
		{Job: domain.Job{ID: "j1"}, Similarity: 0.9},
		{Job: domain.Job{ID: "j2"}, Similarity: 0.7},
	}}
	cache := newFakeCache()
	svc := NewMatchService(resumes, jobs, cache, testLogger())

	matches, err := svc.MatchJobs(context.Background(), "u1", 0)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "j1", matches[0].Job.ID)
	assert.Equal(t, 1, jobs.calls)

	// Second call is served from the cache
	_, err = svc.MatchJobs(context.Background(), "u1", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, jobs.calls)
}

func TestMatchJobsWithoutCache(t *testing.T) {
	resumes := newMemResumes()
	resumes.put(&domain.Resume{ID: "r1", UserID: "u1", Status: domain.ResumeCompleted, IsPrimary: true})
	resumes.embeddings["r1"] = []float32{0.1}
	jobs := &memJobs{}
	svc := NewMatchService(resumes, jobs, nil, testLogger())

	matches, err := svc.MatchJobs(context.Background(), "u1", 500)
	require.NoError(t, err)
	assert.NotNil(t, matches)
	assert.Empty(t, matches)
}

func TestMatchJobsNotReady(t *testing.T) {
	tests := []struct {
		name    string
		resumes []*domain.Resume
	}{
		{name: "no resume"},
		{name: "primary still processing", resumes: []*domain.Resume{
			{ID: "r1", UserID: "u1", Status: domain.ResumeProcessing, IsPrimary: true},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resumes := newMemResumes()
			for _, rs := range tt.resumes {
				resumes.put(rs)
			}
			svc := NewMatchService(resumes, &memJobs{}, nil, testLogger())

			_, err := svc.MatchJobs(context.Background(), "u1", 10)
			var appErr *errors.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, errors.ErrCodeResumeNotReady, appErr.Code)
		})
	}
}

func TestSearchJobs(t *testing.T) {
	jobs := &memJobs{jobs: map[string]*domain.Job{"j1": {ID: "j1", Title: "Go Developer"}}}
	svc := NewMatchService(newMemResumes(), jobs, newFakeCache(), testLogger())

	_, err := svc.SearchJobs(context.Background(), "  ", 10, 0)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	found, err := svc.SearchJobs(context.Background(), "go", 10, -5)
	require.NoError(t, err)
	require.Len(t, found, 1)

	_, err = svc.GetJob(context.Background(), "missing")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 10, clamp(0, 10, 50))
	assert.Equal(t, 10, clamp(-1, 10, 50))
	assert.Equal(t, 50, clamp(80, 10, 50))
	assert.Equal(t, 7, clamp(7, 10, 50))
}
