package service

import (
	"context"
	"strings"

	"niena/internal/domain"
	"niena/internal/errors"
)

const (
	defaultMatchLimit = 10
	maxMatchLimit     = 50
	defaultPageSize   = 20
	maxPageSize       = 100
)

// MatchService finds jobs for users by resume similarity or text search
type MatchService struct {
	resumes ResumeStore
	jobs    JobStore
	cache   JobCache
	logger  *errors.Logger
}

// NewMatchService creates the match service. cache may be nil.
func NewMatchService(resumes ResumeStore, jobs JobStore, cache JobCache, logger *errors.Logger) *MatchService {
	return &MatchService{resumes: resumes, jobs: jobs, cache: cache, logger: logger}
}

func clamp(v, def, max int) int {
	if v <= 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// MatchJobs returns the jobs closest to the embedding of the user's primary resume
func (s *MatchService) MatchJobs(ctx context.Context, userID string, limit int) ([]domain.JobMatch, error) {
	limit = clamp(limit, defaultMatchLimit, maxMatchLimit)

	if s.cache != nil {
		matches, ok, err := s.cache.GetMatches(ctx, userID, limit)
		if err != nil {
			s.logger.LogError(err, "Match cache read failed", "user_id", userID)
		} else if ok {
			return matches, nil
		}
	}

	primary, err := s.resumes.GetPrimary(ctx, userID)
	if err != nil {
		if errors.IsType(err, errors.ErrorTypeNotFound) {
			return nil, errors.NewValidationError(errors.ErrCodeResumeNotReady, "upload a resume to get job matches", nil)
		}
		return nil, err
	}
	if !primary.Ready() {
		return nil, errors.NewValidationError(errors.ErrCodeResumeNotReady, "primary resume analysis has not completed", nil).
			WithContext("resume_id", primary.ID)
	}

	vec, err := s.resumes.Embedding(ctx, primary.ID)
	if err != nil {
		return nil, err
	}
	matches, err := s.jobs.MatchByEmbedding(ctx, vec, limit)
	if err != nil {
		return nil, err
	}
	if matches == nil {
		matches = []domain.JobMatch{}
	}

	if s.cache != nil {
		if err := s.cache.SetMatches(ctx, userID, limit, matches); err != nil {
			s.logger.LogError(err, "Match cache write failed", "user_id", userID)
		}
	}
	return matches, nil
}

// SearchJobs runs a text search over titles, companies and skills
func (s *MatchService) SearchJobs(ctx context.Context, query string, limit, offset int) ([]domain.Job, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errors.NewValidationError(errors.ErrCodeInvalidRequest, "search query cannot be empty", nil)
	}
	limit = clamp(limit, defaultPageSize, maxPageSize)
	if offset < 0 {
		offset = 0
	}
	key := strings.ToLower(query)

	if s.cache != nil {
		jobs, ok, err := s.cache.GetSearch(ctx, key, limit, offset)
		if err != nil {
			s.logger.LogError(err, "Search cache read failed")
		} else if ok {
			return jobs, nil
		}
	}

	jobs, err := s.jobs.Search(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	if jobs == nil {
		jobs = []domain.Job{}
	}

	if s.cache != nil {
		if err := s.cache.SetSearch(ctx, key, limit, offset, jobs); err != nil {
			s.logger.LogError(err, "Search cache write failed")
		}
	}
	return jobs, nil
}

// GetJob returns one job
func (s *MatchService) GetJob(ctx context.Context, id string) (*domain.Job, error) {
	return s.jobs.Get(ctx, id)
}

// CountJobs returns the catalogue size for the stats endpoint
func (s *MatchService) CountJobs(ctx context.Context) (int64, error) {
	return s.jobs.Count(ctx)
}
