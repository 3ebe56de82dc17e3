package service

import (
	"context"
	"strings"
	"time"

	"niena/internal/config"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/types"

	"github.com/google/uuid"
)

// CreateInterviewInput schedules a mock interview
type CreateInterviewInput struct {
	Role     string               `json:"role"`
	Type     domain.InterviewType `json:"type"`
	ResumeID string               `json:"resumeId"`
}

// InterviewService drives mock interview sessions through their lifecycle
type InterviewService struct {
	accounts   *Accounts
	interviews InterviewStore
	resumes    ResumeStore
	evaluator  InterviewEvaluator
	credits    config.CreditsConfig
	logger     *errors.Logger
	now        func() time.Time
}

// NewInterviewService creates the interview service
func NewInterviewService(accounts *Accounts, interviews InterviewStore, resumes ResumeStore, evaluator InterviewEvaluator, credits config.CreditsConfig, logger *errors.Logger) *InterviewService {
	return &InterviewService{
		accounts:   accounts,
		interviews: interviews,
		resumes:    resumes,
		evaluator:  evaluator,
		credits:    credits,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Create charges the interview cost and schedules a session
func (s *InterviewService) Create(ctx context.Context, userID string, in CreateInterviewInput) (*domain.Interview, error) {
	role := strings.TrimSpace(in.Role)
	if role == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "role cannot be empty", nil)
	}
	if in.Type == "" {
		in.Type = domain.InterviewVoice
	}
	if !in.Type.Valid() {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "unknown interview type", nil).
			WithContext("type", in.Type)
	}
	if in.ResumeID != "" {
		if _, err := s.resumes.Get(ctx, userID, in.ResumeID); err != nil {
			return nil, err
		}
	}

	cost := s.credits.InterviewCost
	if err := s.accounts.Charge(ctx, userID, cost, OpInterview); err != nil {
		return nil, err
	}

	iv := &domain.Interview{
		ID:        uuid.NewString(),
		UserID:    userID,
		ResumeID:  in.ResumeID,
		Role:      role,
		Type:      in.Type,
		Status:    domain.InterviewScheduled,
		CreatedAt: s.now(),
	}
	if err := s.interviews.Create(ctx, iv); err != nil {
		s.accounts.Refund(ctx, userID, cost, OpInterview)
		return nil, err
	}
	return iv, nil
}

func (s *InterviewService) transition(ctx context.Context, userID, id string, to domain.InterviewStatus) (*domain.Interview, error) {
	iv, err := s.interviews.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	from := iv.Status
	if err := iv.Transition(to, s.now()); err != nil {
		return nil, err
	}
	if err := s.interviews.Update(ctx, iv, from); err != nil {
		return nil, err
	}
	return iv, nil
}

// Start moves a scheduled interview to IN_PROGRESS
func (s *InterviewService) Start(ctx context.Context, userID, id string) (*domain.Interview, error) {
	return s.transition(ctx, userID, id, domain.InterviewInProgress)
}

// Cancel ends an interview early. A session cancelled before it started gets its credits back.
func (s *InterviewService) Cancel(ctx context.Context, userID, id string) (*domain.Interview, error) {
	iv, err := s.interviews.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	from := iv.Status
	if err := iv.Transition(domain.InterviewCancelled, s.now()); err != nil {
		return nil, err
	}
	if err := s.interviews.Update(ctx, iv, from); err != nil {
		return nil, err
	}
	if from == domain.InterviewScheduled {
		s.accounts.Refund(ctx, userID, s.credits.InterviewCost, OpInterview)
	}
	return iv, nil
}

// Complete evaluates the transcript and closes the session with its feedback.
// When the evaluation fails the session stays IN_PROGRESS so it can be retried.
func (s *InterviewService) Complete(ctx context.Context, userID, id, transcript string) (*domain.Interview, error) {
	transcript = strings.TrimSpace(transcript)
	if transcript == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "transcript cannot be empty", nil)
	}

	iv, err := s.interviews.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	from := iv.Status
	if !domain.CanTransition(from, domain.InterviewCompleted) {
		return nil, errors.NewConflictError(errors.ErrCodeInvalidTransition, "only an interview in progress can be completed").
			WithContext("status", from)
	}

	feedback, usage, err := s.evaluator.EvaluateInterview(ctx, types.EvaluateInterviewInput{
		Role:          iv.Role,
		InterviewType: string(iv.Type),
		ResumeSummary: s.resumeSummary(ctx, userID, iv.ResumeID),
		Transcript:    transcript,
	})
	if err != nil {
		return nil, err
	}

	if err := iv.Transition(domain.InterviewCompleted, s.now()); err != nil {
		return nil, err
	}
	iv.Transcript = transcript
	iv.Feedback = &feedback
	iv.Score = feedback.OverallScore
	if err := s.interviews.Update(ctx, iv, from); err != nil {
		return nil, err
	}

	var tokens int64
	if usage != nil {
		tokens = usage.TotalTokens
	}
	s.logger.Info("Interview completed", "interview_id", iv.ID, "user_id", userID, "score", iv.Score, "total_tokens", tokens)
	return iv, nil
}

// resumeSummary gives the evaluator background on the candidate when a resume is linked
func (s *InterviewService) resumeSummary(ctx context.Context, userID, resumeID string) string {
	if resumeID == "" {
		return ""
	}
	rs, err := s.resumes.Get(ctx, userID, resumeID)
	if err != nil {
		s.logger.Warn("Linked resume unavailable for interview evaluation", "resume_id", resumeID, "error", err.Error())
		return ""
	}
	if rs.Analysis != nil && rs.Analysis.Summary != "" {
		return rs.Analysis.Summary
	}
	if rs.Parsed != nil {
		return firstNonEmpty(rs.Parsed.Summary, rs.Parsed.Headline)
	}
	return ""
}

// Get returns one of the user's interviews
func (s *InterviewService) Get(ctx context.Context, userID, id string) (*domain.Interview, error) {
	return s.interviews.Get(ctx, userID, id)
}

// List returns the user's interviews, newest first
func (s *InterviewService) List(ctx context.Context, userID string) ([]domain.Interview, error) {
	list, err := s.interviews.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Interview{}
	}
	return list, nil
}
