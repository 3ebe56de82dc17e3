package service

import (
	"context"
	"strings"
	"time"

	"niena/internal/domain"
	"niena/internal/errors"

	"github.com/google/uuid"
)

// PublishAnnouncementInput creates an announcement; a zero PublishAt publishes immediately
type PublishAnnouncementInput struct {
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	PublishAt time.Time  `json:"publishAt"`
	ExpiresAt *time.Time `json:"expiresAt"`
}

// RecruiterApplicationInput is a user's request to become a recruiter
type RecruiterApplicationInput struct {
	Company string `json:"company"`
	Website string `json:"website"`
	Message string `json:"message"`
}

// ReviewInput settles a recruiter application
type ReviewInput struct {
	Approve bool   `json:"approve"`
	Note    string `json:"note"`
}

// CommunityService handles announcements and recruiter applications
type CommunityService struct {
	accounts      *Accounts
	announcements AnnouncementStore
	recruiters    RecruiterStore
	logger        *errors.Logger
	now           func() time.Time
}

// NewCommunityService creates the community service
func NewCommunityService(accounts *Accounts, announcements AnnouncementStore, recruiters RecruiterStore, logger *errors.Logger) *CommunityService {
	return &CommunityService{
		accounts:      accounts,
		announcements: announcements,
		recruiters:    recruiters,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Announcements returns the announcements visible now
func (s *CommunityService) Announcements(ctx context.Context) ([]domain.Announcement, error) {
	list, err := s.announcements.ListActive(ctx, s.now())
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.Announcement{}
	}
	return list, nil
}

// Publish stores a new announcement
func (s *CommunityService) Publish(ctx context.Context, in PublishAnnouncementInput) (*domain.Announcement, error) {
	if strings.TrimSpace(in.Title) == "" || strings.TrimSpace(in.Body) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "announcement title and body are required", nil)
	}
	now := s.now()
	publishAt := in.PublishAt
	if publishAt.IsZero() {
		publishAt = now
	}
	if in.ExpiresAt != nil && !in.ExpiresAt.After(publishAt) {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "announcement must expire after it is published", nil)
	}

	a := &domain.Announcement{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(in.Title),
		Body:        in.Body,
		PublishedAt: publishAt,
		ExpiresAt:   in.ExpiresAt,
	}
	if err := s.announcements.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// SubmitApplication files a recruiter application; only one may be pending per user
func (s *CommunityService) SubmitApplication(ctx context.Context, userID string, in RecruiterApplicationInput) (*domain.RecruiterApplication, error) {
	if strings.TrimSpace(in.Company) == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "company is required", nil)
	}
	if _, err := s.accounts.Ensure(ctx, userID); err != nil {
		return nil, err
	}
	a := &domain.RecruiterApplication{
		ID:        uuid.NewString(),
		UserID:    userID,
		Company:   strings.TrimSpace(in.Company),
		Website:   strings.TrimSpace(in.Website),
		Message:   in.Message,
		Status:    domain.ApplicationPending,
		CreatedAt: s.now(),
	}
	if err := s.recruiters.Create(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ReviewApplication approves or rejects a pending application
func (s *CommunityService) ReviewApplication(ctx context.Context, id string, in ReviewInput) (*domain.RecruiterApplication, error) {
	a, err := s.recruiters.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := a.Review(in.Approve, in.Note, s.now()); err != nil {
		return nil, err
	}
	if err := s.recruiters.SaveReview(ctx, a); err != nil {
		return nil, err
	}
	s.logger.Info("Recruiter application reviewed", "application_id", id, "status", a.Status)
	return a, nil
}

// Applications lists applications in status, PENDING when empty
func (s *CommunityService) Applications(ctx context.Context, status domain.ApplicationStatus) ([]domain.RecruiterApplication, error) {
	if status == "" {
		status = domain.ApplicationPending
	}
	switch status {
	case domain.ApplicationPending, domain.ApplicationApproved, domain.ApplicationRejected:
	default:
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "unknown application status", nil).
			WithContext("status", status)
	}
	list, err := s.recruiters.ListByStatus(ctx, status)
	if err != nil {
		return nil, err
	}
	if list == nil {
		list = []domain.RecruiterApplication{}
	}
	return list, nil
}
