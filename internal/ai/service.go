package ai

import (
	"context"
	"fmt"

	"niena/internal/config"
	"niena/internal/errors"
	"niena/internal/types"
)

// Service routes every AI stage to the provider configured for it and owns the embedder
type Service struct {
	providers map[string]AIProvider
	embedder  Embedder
	logger    *errors.Logger
}

// Ensure Service implements AIProvider and Embedder
var (
	_ AIProvider = (*Service)(nil)
	_ Embedder   = (*Service)(nil)
)

// NewService builds one provider per stage from the resolved configuration plus the embedder
func NewService(ctx context.Context, cfg *config.Config, logger *errors.Logger) (*Service, error) {
	providers := make(map[string]AIProvider, len(config.Stages))
	for _, stage := range config.Stages {
		stageCfg := cfg.GetStageConfig(stage)

		logger.Debug("Initializing AI stage",
			"stage", stage,
			"provider", stageCfg.Provider,
			"model", stageCfg.Model,
			"temperature", *stageCfg.Temperature,
			"timeout", *stageCfg.Timeout,
			"max_retries", *stageCfg.MaxRetries,
			"use_system_prompts", *stageCfg.UseSystemPrompts)

		provider, err := NewProvider(ctx, stage, stageCfg, logger)
		if err != nil {
			return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed,
				fmt.Sprintf("Failed to create AI provider for %s", stage), err)
		}
		provider.SetModelCheckTimeout(cfg.Observability.HealthCheck.AIModelCheckTimeout)
		providers[stage] = provider
	}

	embedder, err := NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	return NewServiceWith(providers, embedder, logger), nil
}

// NewEmbedder creates the embedder selected by the embedding configuration
func NewEmbedder(ctx context.Context, cfg *config.Config, logger *errors.Logger) (Embedder, error) {
	embCfg := cfg.GetEmbeddingConfig()
	breaker := cfg.GetStageConfig(config.StageExtract).CircuitBreaker

	switch embCfg.Provider {
	case config.ProviderGemini:
		return NewGeminiEmbedder(ctx, embCfg, breaker, logger)
	case config.ProviderOpenAI:
		return NewOpenAIEmbedder(embCfg, breaker, logger), nil
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported embedding provider: %s", embCfg.Provider), nil)
	}
}

// NewServiceWith assembles a service from prebuilt parts. Stages without a provider fail at call time.
func NewServiceWith(providers map[string]AIProvider, embedder Embedder, logger *errors.Logger) *Service {
	return &Service{providers: providers, embedder: embedder, logger: logger}
}

// SetObserver attaches o to every stage provider that supports observation
func (s *Service) SetObserver(o OperationObserver) {
	for _, p := range s.providers {
		if observable, ok := p.(interface{ SetObserver(OperationObserver) }); ok {
			observable.SetObserver(o)
		}
	}
}

func (s *Service) provider(stage string) (AIProvider, error) {
	p, ok := s.providers[stage]
	if !ok || p == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("no AI provider configured for stage %s", stage), nil)
	}
	return p, nil
}

// ParseResume implements AIProvider
func (s *Service) ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ParsedResume, *TokenUsage, error) {
	p, err := s.provider(config.StageParse)
	if err != nil {
		return types.ParsedResume{}, nil, err
	}
	return p.ParseResume(ctx, input)
}

// AnalyzeResume implements AIProvider
func (s *Service) AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.ResumeAnalysis, *TokenUsage, error) {
	p, err := s.provider(config.StageAnalyze)
	if err != nil {
		return types.ResumeAnalysis{}, nil, err
	}
	return p.AnalyzeResume(ctx, input)
}

// ScoreResume implements AIProvider
func (s *Service) ScoreResume(ctx context.Context, input types.ScoreResumeInput) (types.ResumeScore, *TokenUsage, error) {
	p, err := s.provider(config.StageScore)
	if err != nil {
		return types.ResumeScore{}, nil, err
	}
	return p.ScoreResume(ctx, input)
}

// AutofixResume implements AIProvider
func (s *Service) AutofixResume(ctx context.Context, input types.AutofixResumeInput) (types.AutofixResult, *TokenUsage, error) {
	p, err := s.provider(config.StageAutofix)
	if err != nil {
		return types.AutofixResult{}, nil, err
	}
	return p.AutofixResume(ctx, input)
}

// TailorResume implements AIProvider
func (s *Service) TailorResume(ctx context.Context, input types.TailorResumeInput) (types.TailorResumeOutput, *TokenUsage, error) {
	p, err := s.provider(config.StageTailor)
	if err != nil {
		return types.TailorResumeOutput{}, nil, err
	}
	return p.TailorResume(ctx, input)
}

// ExtractJob implements AIProvider
func (s *Service) ExtractJob(ctx context.Context, input types.ExtractJobInput) (types.ExtractedJob, *TokenUsage, error) {
	p, err := s.provider(config.StageExtract)
	if err != nil {
		return types.ExtractedJob{}, nil, err
	}
	return p.ExtractJob(ctx, input)
}

// EvaluateInterview implements AIProvider
func (s *Service) EvaluateInterview(ctx context.Context, input types.EvaluateInterviewInput) (types.InterviewFeedback, *TokenUsage, error) {
	p, err := s.provider(config.StageInterview)
	if err != nil {
		return types.InterviewFeedback{}, nil, err
	}
	return p.EvaluateInterview(ctx, input)
}

// Embed implements Embedder
func (s *Service) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if s.embedder == nil {
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig, "no embedder configured", nil)
	}
	return s.embedder.Embed(ctx, texts)
}

// Dimensions implements Embedder
func (s *Service) Dimensions() int {
	if s.embedder == nil {
		return 0
	}
	return s.embedder.Dimensions()
}

// GetModelInfo reports the model behind the parse stage, the entry point of every resume
func (s *Service) GetModelInfo(ctx context.Context) *ModelInfo {
	p, err := s.provider(config.StageParse)
	if err != nil {
		return &ModelInfo{Error: err.Error()}
	}
	return p.GetModelInfo(ctx)
}

// ModelInfoByStage probes every stage model, used by the health endpoint
func (s *Service) ModelInfoByStage(ctx context.Context) map[string]*ModelInfo {
	out := make(map[string]*ModelInfo, len(s.providers))
	for stage, p := range s.providers {
		out[stage] = p.GetModelInfo(ctx)
	}
	return out
}

// GetCircuitBreakerStats returns breaker state per stage
func (s *Service) GetCircuitBreakerStats() map[string]any {
	out := make(map[string]any, len(s.providers))
	for stage, p := range s.providers {
		if withStats, ok := p.(interface{ GetCircuitBreakerStats() map[string]any }); ok {
			out[stage] = withStats.GetCircuitBreakerStats()
		}
	}
	return out
}

// Close closes every stage provider
func (s *Service) Close() error {
	var firstErr error
	for _, p := range s.providers {
		if err := p.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
