package service

import (
	"context"
	"strings"

	"niena/internal/config"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/pipeline"

	"github.com/google/uuid"
)

// CreateTailoredInput names the job a resume is tailored to. With JobID set, missing
// fields are taken from the stored job.
type CreateTailoredInput struct {
	JobID          string `json:"jobId"`
	JobTitle       string `json:"jobTitle"`
	Company        string `json:"company"`
	JobDescription string `json:"jobDescription"`
}

// TailorService creates tailored resume variants
type TailorService struct {
	accounts *Accounts
	resumes  ResumeStore
	tailored TailoredStore
	jobs     JobStore
	runner   Enqueuer
	tailorer ResumeTailorer
	credits  config.CreditsConfig
	logger   *errors.Logger
}

// NewTailorService creates the tailor service
func NewTailorService(accounts *Accounts, resumes ResumeStore, tailored TailoredStore, jobs JobStore, runner Enqueuer, tailorer ResumeTailorer, credits config.CreditsConfig, logger *errors.Logger) *TailorService {
	return &TailorService{
		accounts: accounts,
		resumes:  resumes,
		tailored: tailored,
		jobs:     jobs,
		runner:   runner,
		tailorer: tailorer,
		credits:  credits,
		logger:   logger,
	}
}

// Create charges the tailoring cost and queues a tailored variant of resumeID.
// The base resume must have completed its analysis.
func (s *TailorService) Create(ctx context.Context, userID, resumeID string, in CreateTailoredInput) (*domain.TailoredResume, error) {
	rs, err := s.resumes.Get(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}
	if rs.Status != domain.ResumeCompleted {
		return nil, errors.NewValidationError(errors.ErrCodeResumeNotReady, "resume analysis has not completed", nil).
			WithContext("status", rs.Status)
	}

	if in.JobID != "" {
		job, err := s.jobs.Get(ctx, in.JobID)
		if err != nil {
			return nil, err
		}
		in.JobTitle = firstNonEmpty(in.JobTitle, job.Title)
		in.Company = firstNonEmpty(in.Company, job.Company)
		in.JobDescription = firstNonEmpty(in.JobDescription, job.Description)
	}
	if strings.TrimSpace(in.JobDescription) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "job description cannot be empty", nil)
	}

	cost := s.credits.TailorCost
	if err := s.accounts.Charge(ctx, userID, cost, OpTailor); err != nil {
		return nil, err
	}

	tr := &domain.TailoredResume{
		ID:             uuid.NewString(),
		ResumeID:       rs.ID,
		UserID:         userID,
		JobID:          in.JobID,
		JobTitle:       strings.TrimSpace(in.JobTitle),
		Company:        strings.TrimSpace(in.Company),
		JobDescription: in.JobDescription,
		Status:         domain.ResumePending,
		ChargedCredits: cost,
	}
	if err := s.tailored.Create(ctx, tr); err != nil {
		s.accounts.Refund(ctx, userID, cost, OpTailor)
		return nil, err
	}

	job := pipeline.TailorJob{TailoredID: tr.ID, UserID: userID, Credits: cost}
	_, err = s.runner.Submit(pipeline.WorkflowTailor, func(ctx context.Context) error {
		return s.tailorer.Run(ctx, job)
	})
	if err != nil {
		// Leave a FAILED record rather than a PENDING one nobody will pick up
		tr.Status = domain.ResumeFailed
		if upErr := s.tailored.Update(context.WithoutCancel(ctx), tr); upErr != nil {
			s.logger.LogError(upErr, "Failed to mark unqueued tailored resume", "tailored_id", tr.ID)
		}
		s.accounts.Refund(ctx, userID, cost, OpTailor)
		return nil, err
	}
	return tr, nil
}

// Get returns one of the user's tailored resumes
func (s *TailorService) Get(ctx context.Context, userID, id string) (*domain.TailoredResume, error) {
	return s.tailored.Get(ctx, userID, id)
}

// List returns the tailored variants of one of the user's resumes
func (s *TailorService) List(ctx context.Context, userID, resumeID string) ([]domain.TailoredResume, error) {
	if _, err := s.resumes.Get(ctx, userID, resumeID); err != nil {
		return nil, err
	}
	list, err := s.tailored.ListByResume(ctx, userID, resumeID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.TailoredResume{}
	}
	return list, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
