package server

import (
	"context"
	"time"

	"niena/internal/ai"
	"niena/internal/config"
	"niena/internal/domain"
	"niena/internal/errors"
	"niena/internal/service"
)

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string         `json:"error"`
	Code    string         `json:"code,omitempty"`
	Message string         `json:"message,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

// CompleteInterviewRequest carries the transcript of a finished interview
type CompleteInterviewRequest struct {
	Transcript string `json:"transcript"`
}

// ResumeAPI is the resume feature area
type ResumeAPI interface {
	Create(ctx context.Context, userID string, in service.CreateResumeInput) (*domain.Resume, error)
	Get(ctx context.Context, userID, id string) (*domain.Resume, error)
	List(ctx context.Context, userID string) ([]domain.Resume, error)
	SetPrimary(ctx context.Context, userID, id string) (*domain.Resume, error)
	Delete(ctx context.Context, userID, id string) error
	Reanalyze(ctx context.Context, userID, id string) (*domain.Resume, error)
}

// TailorAPI creates and reads tailored resumes
type TailorAPI interface {
	Create(ctx context.Context, userID, resumeID string, in service.CreateTailoredInput) (*domain.TailoredResume, error)
	Get(ctx context.Context, userID, id string) (*domain.TailoredResume, error)
	List(ctx context.Context, userID, resumeID string) ([]domain.TailoredResume, error)
}

// JobAPI searches and matches the job catalogue
type JobAPI interface {
	MatchJobs(ctx context.Context, userID string, limit int) ([]domain.JobMatch, error)
	SearchJobs(ctx context.Context, query string, limit, offset int) ([]domain.Job, error)
	GetJob(ctx context.Context, id string) (*domain.Job, error)
	CountJobs(ctx context.Context) (int64, error)
}

// InterviewAPI drives mock interviews
type InterviewAPI interface {
	Create(ctx context.Context, userID string, in service.CreateInterviewInput) (*domain.Interview, error)
	Get(ctx context.Context, userID, id string) (*domain.Interview, error)
	List(ctx context.Context, userID string) ([]domain.Interview, error)
	Start(ctx context.Context, userID, id string) (*domain.Interview, error)
	Complete(ctx context.Context, userID, id, transcript string) (*domain.Interview, error)
	Cancel(ctx context.Context, userID, id string) (*domain.Interview, error)
}

// BillingAPI handles plans, credits and transactions
type BillingAPI interface {
	Me(ctx context.Context, userID string) (*service.Account, error)
	CreateTransaction(ctx context.Context, userID string, in service.CreateTransactionInput) (*domain.Transaction, error)
	CompleteTransaction(ctx context.Context, reference string) (*domain.Transaction, *domain.User, error)
	FailTransaction(ctx context.Context, reference string) (*domain.Transaction, error)
}

// CommunityAPI serves announcements and recruiter applications
type CommunityAPI interface {
	Announcements(ctx context.Context) ([]domain.Announcement, error)
	Publish(ctx context.Context, in service.PublishAnnouncementInput) (*domain.Announcement, error)
	SubmitApplication(ctx context.Context, userID string, in service.RecruiterApplicationInput) (*domain.RecruiterApplication, error)
	ReviewApplication(ctx context.Context, id string, in service.ReviewInput) (*domain.RecruiterApplication, error)
	Applications(ctx context.Context, status domain.ApplicationStatus) ([]domain.RecruiterApplication, error)
}

// Pinger checks a backing store
type Pinger interface {
	Ping(ctx context.Context) error
}

// ModelProber reports the state of the AI models and their breakers
type ModelProber interface {
	ModelInfoByStage(ctx context.Context) map[string]*ai.ModelInfo
	GetCircuitBreakerStats() map[string]any
}

// RateLimitRecorder counts rejected requests
type RateLimitRecorder interface {
	RecordRateLimitHit(ctx context.Context, limiter string)
}

// Services bundles everything the handlers call
type Services struct {
	Resumes    ResumeAPI
	Tailor     TailorAPI
	Jobs       JobAPI
	Interviews InterviewAPI
	Billing    BillingAPI
	Community  CommunityAPI

	// Health and stats sources; any may be nil
	Database Pinger
	Cache    Pinger
	Models   ModelProber
	Stats    map[string]func() map[string]any
}

// Server holds configuration for the HTTP server
type Server struct {
	Host    string
	Port    string
	Version string

	TLSConfig config.TLSConfig
	certs     *CertReloader

	// API Authentication
	APIKeys map[string]bool

	// Timeout configurations
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	HealthTimout time.Duration

	// Request size limit
	MaxRequestSize int64

	// Rate limiting
	RateLimit   config.RateLimitConfig
	RateLimiter *RateLimiter
	recorder    RateLimitRecorder

	services Services
	logger   *errors.Logger
}

// NewServer creates a server for services using the server section of cfg
func NewServer(cfg *config.Config, version string, services Services, logger *errors.Logger) *Server {
	sc := cfg.Server

	// Convert API keys slice to map for O(1) lookup
	apiKeyMap := make(map[string]bool)
	for _, key := range sc.APIKeys {
		if key != "" {
			apiKeyMap[key] = true
		}
	}

	var rateLimiter *RateLimiter
	if sc.RateLimit.Enabled {
		rateLimiter = NewRateLimiter(sc.RateLimit.RequestsPerMin, sc.RateLimit.BurstCapacity, logger)
	}

	healthTimeout := cfg.Observability.HealthCheck.Timeout
	if healthTimeout <= 0 {
		healthTimeout = 15 * time.Second
	}

	return &Server{
		Host:           sc.Host,
		Port:           sc.Port,
		Version:        version,
		TLSConfig:      sc.TLS,
		APIKeys:        apiKeyMap,
		ReadTimeout:    sc.ReadTimeout,
		WriteTimeout:   sc.WriteTimeout,
		IdleTimeout:    sc.IdleTimeout,
		HealthTimout:   healthTimeout,
		MaxRequestSize: sc.MaxBodyBytes,
		RateLimit:      sc.RateLimit,
		RateLimiter:    rateLimiter,
		services:       services,
		logger:         logger,
	}
}

// SetRateLimitRecorder reports rejected requests to r
func (s *Server) SetRateLimitRecorder(r RateLimitRecorder) {
	s.recorder = r
}
