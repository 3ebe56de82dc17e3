package service

import (
	"context"
	"testing"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type tailorFixture struct {
	users    *memUsers
	resumes  *memResumes
	tailored *memTailored
	runner   *inlineRunner
	tailorer *fakeTailorer
	svc      *TailorService
}

func newTailorFixture() *tailorFixture {
	f := &tailorFixture{
		users:    newMemUsers(),
		resumes:  newMemResumes(),
		tailored: newMemTailored(),
		runner:   &inlineRunner{},
		tailorer: &fakeTailorer{},
	}
	jobs := &memJobs{jobs: map[string]*domain.Job{
		"j1": {ID: "j1", Title: "Platform Engineer", Company: "Acme", Description: "Run Kubernetes"},
	}}
	accounts := NewAccounts(f.users, testCredits.InitialFree, testLogger())
	f.svc = NewTailorService(accounts, f.resumes, f.tailored, jobs, f.runner, f.tailorer, testCredits, testLogger())
	f.resumes.put(&domain.Resume{ID: "r1", UserID: "u1", RawText: "text", Status: domain.ResumeCompleted})
	f.resumes.put(&domain.Resume{ID: "r2", UserID: "u1", RawText: "text", Status: domain.ResumeProcessing})
	return f
}

func TestTailorCreateFromStoredJob(t *testing.T) {
	f := newTailorFixture()

	tr, err := f.svc.Create(context.Background(), "u1", "r1", CreateTailoredInput{JobID: "j1"})
	require.NoError(t, err)

	assert.Equal(t, "Platform Engineer", tr.JobTitle)
	assert.Equal(t, "Acme", tr.Company)
	assert.Equal(t, "Run Kubernetes", tr.JobDescription)
	assert.Equal(t, domain.ResumePending, tr.Status)
	assert.Equal(t, testCredits.InitialFree-testCredits.TailorCost, f.users.credits("u1"))
	require.Len(t, f.tailorer.jobs, 1)
	assert.Equal(t, tr.ID, f.tailorer.jobs[0].TailoredID)
}

func TestTailorCreateRequiresCompletedResume(t *testing.T) {
	f := newTailorFixture()

	_, err := f.svc.Create(context.Background(), "u1", "r2", CreateTailoredInput{JobDescription: "jd"})
	require.Error(t, err)
	var appErr *errors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, errors.ErrCodeResumeNotReady, appErr.Code)
}

func TestTailorCreateValidation(t *testing.T) {
	f := newTailorFixture()

	_, err := f.svc.Create(context.Background(), "u1", "r1", CreateTailoredInput{JobTitle: "x"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	_, err = f.svc.Create(context.Background(), "u1", "r1", CreateTailoredInput{JobID: "missing"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	_, err = f.svc.Create(context.Background(), "u2", "r1", CreateTailoredInput{JobDescription: "jd"})
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestTailorCreateQueueRejectionMarksFailedAndRefunds(t *testing.T) {
	f := newTailorFixture()
	f.runner.err = errors.NewUnavailableError(errors.ErrCodeQueueFull, "queue full")

	_, err := f.svc.Create(context.Background(), "u1", "r1", CreateTailoredInput{JobDescription: "jd"})
	require.Error(t, err)
	assert.Equal(t, testCredits.InitialFree, f.users.credits("u1"))

	list, err := f.svc.List(context.Background(), "u1", "r1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, domain.ResumeFailed, list[0].Status)
}

func TestTailorListChecksOwnership(t *testing.T) {
	f := newTailorFixture()
	_, err := f.svc.List(context.Background(), "u2", "r1")
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
