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

// maxResumeChars bounds the extracted resume text accepted for analysis
const maxResumeChars = 60000

// CreateResumeInput is an uploaded resume as extracted text
type CreateResumeInput struct {
	Title    string `json:"title"`
	FileName string `json:"fileName"`
	Text     string `json:"text"`
}

// ResumeService manages resumes and queues their analysis
type ResumeService struct {
	accounts *Accounts
	resumes  ResumeStore
	cache    JobCache
	runner   Enqueuer
	analyzer ResumeAnalyzer
	credits  config.CreditsConfig
	logger   *errors.Logger
}

// NewResumeService creates the resume service. cache may be nil.
func NewResumeService(accounts *Accounts, resumes ResumeStore, cache JobCache, runner Enqueuer, analyzer ResumeAnalyzer, credits config.CreditsConfig, logger *errors.Logger) *ResumeService {
	return &ResumeService{
		accounts: accounts,
		resumes:  resumes,
		cache:    cache,
		runner:   runner,
		analyzer: analyzer,
		credits:  credits,
		logger:   logger,
	}
}

// Create charges the upload, stores the resume and queues its analysis.
// The user's first resume becomes primary.
func (s *ResumeService) Create(ctx context.Context, userID string, in CreateResumeInput) (*domain.Resume, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume text cannot be empty", nil)
	}
	if len(text) > maxResumeChars {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "resume text is too long", nil).
			WithContext("max_chars", maxResumeChars)
	}

	cost := s.credits.ResumeCost
	if err := s.accounts.Charge(ctx, userID, cost, OpResume); err != nil {
		return nil, err
	}

	rs := &domain.Resume{
		ID:       uuid.NewString(),
		UserID:   userID,
		Title:    strings.TrimSpace(in.Title),
		FileName: in.FileName,
		RawText:  text,
		Status:   domain.ResumePending,

		ChargedCredits: cost,
	}
	if err := s.resumes.Create(ctx, rs); err != nil {
		s.accounts.Refund(ctx, userID, cost, OpResume)
		return nil, err
	}

	job := pipeline.ResumeJob{ResumeID: rs.ID, UserID: userID, Credits: cost}
	if err := s.enqueue(job); err != nil {
		if delErr := s.resumes.Delete(context.WithoutCancel(ctx), userID, rs.ID); delErr != nil {
			s.logger.LogError(delErr, "Failed to delete unqueued resume", "resume_id", rs.ID)
		}
		s.accounts.Refund(ctx, userID, cost, OpResume)
		return nil, err
	}

	s.logger.Info("Resume created", "resume_id", rs.ID, "user_id", userID, "primary", rs.IsPrimary)
	return rs, nil
}

func (s *ResumeService) enqueue(job pipeline.ResumeJob) error {
	_, err := s.runner.Submit(pipeline.WorkflowResume, func(ctx context.Context) error {
		return s.analyzer.Run(ctx, job)
	})
	return err
}

// Get returns one of the user's resumes
func (s *ResumeService) Get(ctx context.Context, userID, id string) (*domain.Resume, error) {
	return s.resumes.Get(ctx, userID, id)
}

// List returns the user's resumes, newest first
func (s *ResumeService) List(ctx context.Context, userID string) ([]domain.Resume, error) {
	list, err := s.resumes.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Resume{}
	}
	return list, nil
}

// SetPrimary makes id the user's primary resume and drops matches computed for the old one
func (s *ResumeService) SetPrimary(ctx context.Context, userID, id string) (*domain.Resume, error) {
	if err := s.resumes.SetPrimary(ctx, userID, id); err != nil {
		return nil, err
	}
	s.invalidate(ctx, userID)
	return s.resumes.Get(ctx, userID, id)
}

// Delete removes a resume; when it was primary the newest remaining one takes over
func (s *ResumeService) Delete(ctx context.Context, userID, id string) error {
	if err := s.resumes.Delete(ctx, userID, id); err != nil {
		return err
	}
	s.invalidate(ctx, userID)
	return nil
}

// Reanalyze claims the resume, charges the reanalysis cost and queues the
// pipeline again. A resume still waiting for or running its analysis is a
// conflict, so concurrent requests charge at most once.
func (s *ResumeService) Reanalyze(ctx context.Context, userID, id string) (*domain.Resume, error) {
	cost := s.credits.ReanalyzeCost
	rs, previous, err := s.resumes.ClaimForReanalysis(ctx, userID, id, cost)
	if err != nil {
		return nil, err
	}

	if err := s.accounts.Charge(ctx, userID, cost, OpReanalyze); err != nil {
		s.restoreStatus(ctx, id, previous)
		return nil, err
	}

	if err := s.enqueue(pipeline.ResumeJob{ResumeID: rs.ID, UserID: userID, Credits: cost, Reanalysis: true}); err != nil {
		s.restoreStatus(ctx, id, previous)
		s.accounts.Refund(ctx, userID, cost, OpReanalyze)
		return nil, err
	}
	return rs, nil
}

func (s *ResumeService) restoreStatus(ctx context.Context, id string, status domain.ResumeStatus) {
	if err := s.resumes.SetStatus(context.WithoutCancel(ctx), id, status); err != nil {
		s.logger.LogError(err, "Failed to restore resume status", "resume_id", id)
	}
}

func (s *ResumeService) invalidate(ctx context.Context, userID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateMatches(ctx, userID); err != nil {
		s.logger.LogError(err, "Failed to invalidate cached matches", "user_id", userID)
	}
}
