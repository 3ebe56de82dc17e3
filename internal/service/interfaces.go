package service

import (
	"context"
	"time"

	"niena/internal/ai"
	"niena/internal/domain"
	"niena/internal/pipeline"
	"niena/internal/types"
)

// UserStore persists accounts, plans and credit balances
type UserStore interface {
	Get(ctx context.Context, id string) (*domain.User, error)
	Ensure(ctx context.Context, u *domain.User) (*domain.User, error)
	SpendCredits(ctx context.Context, id string, cost int) (int, error)
	RefundCredits(ctx context.Context, id string, amount int) error
	ListExpiredPlans(ctx context.Context, now time.Time, limit int) ([]domain.User, error)
	ExpirePlan(ctx context.Context, id string, now time.Time) (bool, error)
}

// ResumeStore persists resumes
type ResumeStore interface {
	Create(ctx context.Context, rs *domain.Resume) error
	Get(ctx context.Context, userID, id string) (*domain.Resume, error)
	GetPrimary(ctx context.Context, userID string) (*domain.Resume, error)
	List(ctx context.Context, userID string) ([]domain.Resume, error)
	ClaimForReanalysis(ctx context.Context, userID, id string, credits int) (*domain.Resume, domain.ResumeStatus, error)
	SetStatus(ctx context.Context, id string, status domain.ResumeStatus) error
	Embedding(ctx context.Context, id string) ([]float32, error)
	SetPrimary(ctx context.Context, userID, id string) error
	Delete(ctx context.Context, userID, id string) error
}

// TailoredStore persists tailored resumes
type TailoredStore interface {
	Create(ctx context.Context, t *domain.TailoredResume) error
	Update(ctx context.Context, t *domain.TailoredResume) error
	Get(ctx context.Context, userID, id string) (*domain.TailoredResume, error)
	ListByResume(ctx context.Context, userID, resumeID string) ([]domain.TailoredResume, error)
}

// JobStore reads ingested jobs
type JobStore interface {
	Get(ctx context.Context, id string) (*domain.Job, error)
	Search(ctx context.Context, query string, limit, offset int) ([]domain.Job, error)
	MatchByEmbedding(ctx context.Context, embedding []float32, limit int) ([]domain.JobMatch, error)
	Count(ctx context.Context) (int64, error)
}

// InterviewStore persists interview sessions
type InterviewStore interface {
	Create(ctx context.Context, iv *domain.Interview) error
	Get(ctx context.Context, userID, id string) (*domain.Interview, error)
	List(ctx context.Context, userID string) ([]domain.Interview, error)
	Update(ctx context.Context, iv *domain.Interview, from domain.InterviewStatus) error
}

// TransactionStore persists plan purchases
type TransactionStore interface {
	Create(ctx context.Context, t *domain.Transaction) error
	GetByReference(ctx context.Context, reference string) (*domain.Transaction, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Transaction, error)
	Fail(ctx context.Context, t *domain.Transaction) error
	CompleteWithPlan(ctx context.Context, t *domain.Transaction, plan domain.Plan, expiresAt time.Time, credits int) error
}

// AnnouncementStore persists platform announcements
type AnnouncementStore interface {
	Create(ctx context.Context, a *domain.Announcement) error
	ListActive(ctx context.Context, now time.Time) ([]domain.Announcement, error)
}

// RecruiterStore persists recruiter applications
type RecruiterStore interface {
	Create(ctx context.Context, a *domain.RecruiterApplication) error
	Get(ctx context.Context, id string) (*domain.RecruiterApplication, error)
	ListByStatus(ctx context.Context, status domain.ApplicationStatus) ([]domain.RecruiterApplication, error)
	SaveReview(ctx context.Context, a *domain.RecruiterApplication) error
}

// JobCache caches match lists and search pages. A nil JobCache disables caching.
type JobCache interface {
	GetMatches(ctx context.Context, userID string, limit int) ([]domain.JobMatch, bool, error)
	SetMatches(ctx context.Context, userID string, limit int, matches []domain.JobMatch) error
	InvalidateMatches(ctx context.Context, userID string) error
	GetSearch(ctx context.Context, query string, limit, offset int) ([]domain.Job, bool, error)
	SetSearch(ctx context.Context, query string, limit, offset int, jobs []domain.Job) error
}

// Enqueuer runs workflows in the background
type Enqueuer interface {
	Submit(name string, fn func(ctx context.Context) error) (string, error)
}

// ResumeAnalyzer runs the resume analysis workflow
type ResumeAnalyzer interface {
	Run(ctx context.Context, job pipeline.ResumeJob) error
}

// ResumeTailorer runs the tailor workflow
type ResumeTailorer interface {
	Run(ctx context.Context, job pipeline.TailorJob) error
}

// InterviewEvaluator reviews a finished interview transcript
type InterviewEvaluator interface {
	EvaluateInterview(ctx context.Context, input types.EvaluateInterviewInput) (types.InterviewFeedback, *ai.TokenUsage, error)
}

// Recorder receives billing events, typically to record business metrics
type Recorder interface {
	RecordCreditsConsumed(ctx context.Context, operation string, amount int)
}

type nopRecorder struct{}

func (nopRecorder) RecordCreditsConsumed(context.Context, string, int) {}

// Credit-consuming operations, used in logs and metrics
const (
	OpResume    = "resume"
	OpReanalyze = "reanalyze"
	OpTailor    = "tailor"
	OpInterview = "interview"
)
