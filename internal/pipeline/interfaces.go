package pipeline

import (
	"context"
	"time"

	"niena/internal/domain"
)

// ResumeStore is the resume persistence the workflows need
type ResumeStore interface {
	GetByID(ctx context.Context, id string) (*domain.Resume, error)
	Update(ctx context.Context, rs *domain.Resume) error
	SetStatus(ctx context.Context, id string, status domain.ResumeStatus) error
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	Delete(ctx context.Context, userID, id string) error
}

// TailoredStore is the tailored resume persistence the tailor workflow needs
type TailoredStore interface {
	GetByID(ctx context.Context, id string) (*domain.TailoredResume, error)
	Update(ctx context.Context, t *domain.TailoredResume) error
	SetStatus(ctx context.Context, id string, status domain.ResumeStatus) error
}

// StaleStore fails in-flight records whose workflow stopped making progress
// and refunds what was charged for them
type StaleStore interface {
	FailStale(ctx context.Context, before time.Time, limit int) ([]domain.StaleRun, error)
}

// CreditRefunder returns credits spent on a failed workflow
type CreditRefunder interface {
	RefundCredits(ctx context.Context, id string, amount int) error
}

// JobStore is the job persistence ingestion needs
type JobStore interface {
	ExistingExternalIDs(ctx context.Context, ids []string) (map[string]bool, error)
	Upsert(ctx context.Context, j *domain.Job) error
}

// MatchCache is invalidated when a primary resume or the job catalogue changes
type MatchCache interface {
	InvalidateMatches(ctx context.Context, userID string) error
	BumpJobsVersion(ctx context.Context) (int64, error)
}

// Recorder receives workflow outcomes, typically to record business metrics
type Recorder interface {
	RecordWorkflow(ctx context.Context, workflow string, success bool)
	RecordJobsIngested(ctx context.Context, stored, skipped, failed int)
}

type nopRecorder struct{}

func (nopRecorder) RecordWorkflow(context.Context, string, bool)      {}
func (nopRecorder) RecordJobsIngested(context.Context, int, int, int) {}

// Workflow names used in logs and metrics
const (
	WorkflowResume = "resume_analysis"
	WorkflowTailor = "resume_tailor"
	WorkflowIngest = "job_ingestion"
)
