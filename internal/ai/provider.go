package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"niena/internal/config"
	"niena/internal/errors"
	"niena/internal/types"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const defaultModelCheckTimeout = 10 * time.Second

// Provider runs AI stages against one configured backend. It owns the tracing,
// circuit breaking, retries and response validation shared by every backend.
type Provider struct {
	name              string
	config            config.OperationAIConfig
	backend           backend
	circuitBreaker    *CircuitBreaker[*completion]
	modelBreaker      *CircuitBreaker[*ModelInfo]
	observer          OperationObserver
	modelCheckTimeout time.Duration
	logger            *errors.Logger
}

// Ensure Provider implements AIProvider
var _ AIProvider = (*Provider)(nil)

// NewProvider creates a provider for the named stage from its resolved configuration
func NewProvider(ctx context.Context, name string, cfg config.OperationAIConfig, logger *errors.Logger) (*Provider, error) {
	var b backend
	var err error

	switch cfg.Provider {
	case config.ProviderGemini:
		b, err = newGeminiBackend(ctx, cfg)
	case config.ProviderOpenAI:
		b = newOpenAIBackend(cfg)
	default:
		return nil, errors.NewConfigError(errors.ErrCodeInvalidConfig,
			fmt.Sprintf("Unsupported AI provider: %s", cfg.Provider), nil)
	}
	if err != nil {
		return nil, err
	}

	return newProviderWithBackend(name, cfg, b, logger), nil
}

func newProviderWithBackend(name string, cfg config.OperationAIConfig, b backend, logger *errors.Logger) *Provider {
	return &Provider{
		name:              name,
		config:            cfg,
		backend:           b,
		circuitBreaker:    NewCircuitBreaker[*completion](breakerName("ops", name), cfg.CircuitBreaker, logger),
		modelBreaker:      NewCircuitBreaker[*ModelInfo](breakerName("model", name), modelBreakerConfig(cfg.CircuitBreaker), logger),
		modelCheckTimeout: defaultModelCheckTimeout,
		logger:            logger,
	}
}

// SetObserver registers a callback for every finished AI call
func (p *Provider) SetObserver(o OperationObserver) {
	p.observer = o
}

// SetModelCheckTimeout bounds GetModelInfo probes
func (p *Provider) SetModelCheckTimeout(d time.Duration) {
	if d > 0 {
		p.modelCheckTimeout = d
	}
}

func (p *Provider) maxRetries() int {
	if p.config.MaxRetries == nil {
		return 0
	}
	return *p.config.MaxRetries
}

func (p *Provider) timeout() time.Duration {
	if p.config.Timeout == nil {
		return 0
	}
	return *p.config.Timeout
}

// executeAIOperation runs one stage: prompt, breaker, retry, schema check, decode
func executeAIOperation[Out any](
	p *Provider,
	ctx context.Context,
	stage string,
	userPrompt string,
	systemPrompt string,
	spanAttributes ...attribute.KeyValue,
) (Out, *TokenUsage, error) {
	var output Out
	start := time.Now()

	tracer := otel.Tracer("niena.ai")
	ctx, span := tracer.Start(ctx, p.backend.Name()+"."+stage)
	defer span.End()

	span.SetAttributes(
		attribute.String("ai.provider", p.backend.Name()),
		attribute.String("ai.model", p.config.Model),
		attribute.String("ai.stage", stage),
	)
	span.SetAttributes(spanAttributes...)

	usage, err := func() (*TokenUsage, error) {
		schema, err := schemaFor(stage)
		if err != nil {
			return nil, err
		}

		callCtx := ctx
		if timeout := p.timeout(); timeout > 0 {
			var cancel context.CancelFunc
			callCtx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		req := completionRequest{
			Stage:        stage,
			SystemPrompt: systemPrompt,
			UserPrompt:   userPrompt,
			Schema:       schema,
		}

		result, err := p.circuitBreaker.Execute(func() (*completion, error) {
			return executeWithRetry(callCtx, p.logger, stage, p.maxRetries(), func() (*completion, error) {
				return p.backend.Complete(callCtx, req)
			})
		})
		if err != nil {
			if callCtx.Err() == context.DeadlineExceeded {
				return nil, errors.NewAIError(errors.ErrCodeAITimeout, "AI call timed out for "+stage, err)
			}
			if isBreakerOpen(err) {
				return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "AI circuit open for "+stage, err).
					WithContext("stage", stage)
			}
			return nil, errors.NewAIError(errors.ErrCodeAIServiceFailed, "Failed to generate content for "+stage, err)
		}

		text := stripCodeFences(result.Text)
		if err := schema.Validate([]byte(text)); err != nil {
			return result.Usage, err
		}
		if err := json.Unmarshal([]byte(text), &output); err != nil {
			return result.Usage, errors.NewAIError(errors.ErrCodeAIResponseInvalid, "Failed to parse AI response for "+stage, err)
		}
		return result.Usage, nil
	}()

	if p.observer != nil {
		p.observer.ObserveAIOperation(ctx, stage, time.Since(start), usage, err)
	}

	if usage != nil {
		span.SetAttributes(
			attribute.Int64("ai.tokens.input", usage.InputTokens),
			attribute.Int64("ai.tokens.output", usage.OutputTokens),
			attribute.Int64("ai.tokens.total", usage.TotalTokens),
		)
	}

	if err != nil {
		span.RecordError(err)
		span.SetAttributes(attribute.Bool("success", false))
		var zero Out
		return zero, usage, err
	}

	span.SetAttributes(attribute.Bool("success", true))
	return output, usage, nil
}

func (p *Provider) prompts(stage string) (string, string) {
	return promptsFor(stage, p.config.CustomPrompts)
}

func requireText(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return errors.NewValidationError(errors.ErrCodeInvalidRequest, field+" must not be empty", nil)
	}
	return nil
}

func toJSON(v any) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "{}"
	}
	return string(b)
}

func orPlaceholder(value, placeholder string) string {
	if strings.TrimSpace(value) == "" {
		return placeholder
	}
	return value
}

// ParseResume turns raw resume text into structured data
func (p *Provider) ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ParsedResume, *TokenUsage, error) {
	if err := requireText("resume text", input.ResumeText); err != nil {
		return types.ParsedResume{}, nil, err
	}

	system, user := p.prompts(config.StageParse)
	return executeAIOperation[types.ParsedResume](p, ctx, config.StageParse,
		fmt.Sprintf(user, input.ResumeText), system,
		attribute.Int("input.resume_length", len(input.ResumeText)),
	)
}

// AnalyzeResume produces a qualitative review of a parsed resume
func (p *Provider) AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.ResumeAnalysis, *TokenUsage, error) {
	if err := requireText("resume text", input.ResumeText); err != nil {
		return types.ResumeAnalysis{}, nil, err
	}

	system, user := p.prompts(config.StageAnalyze)
	output, usage, err := executeAIOperation[types.ResumeAnalysis](p, ctx, config.StageAnalyze,
		fmt.Sprintf(user, toJSON(input.Parsed), input.ResumeText), system,
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.skills", len(input.Parsed.Skills)),
	)
	if err != nil {
		return types.ResumeAnalysis{}, usage, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.String("output.seniority", output.Seniority))
	}
	return output, usage, nil
}

// ScoreResume scores a resume, optionally against a job description
func (p *Provider) ScoreResume(ctx context.Context, input types.ScoreResumeInput) (types.ResumeScore, *TokenUsage, error) {
	if err := requireText("resume text", input.ResumeText); err != nil {
		return types.ResumeScore{}, nil, err
	}

	system, user := p.prompts(config.StageScore)
	jd := orPlaceholder(input.JobDescription,
		"None provided. Score against general industry expectations for the candidate's suggested roles.")
	return executeAIOperation[types.ResumeScore](p, ctx, config.StageScore,
		fmt.Sprintf(user, toJSON(input.Parsed), toJSON(input.Analysis), jd), system,
		attribute.Bool("input.has_job", input.JobDescription != ""),
	)
}

// AutofixResume rewrites a resume to address its analysis and score
func (p *Provider) AutofixResume(ctx context.Context, input types.AutofixResumeInput) (types.AutofixResult, *TokenUsage, error) {
	if err := requireText("resume text", input.ResumeText); err != nil {
		return types.AutofixResult{}, nil, err
	}

	system, user := p.prompts(config.StageAutofix)
	output, usage, err := executeAIOperation[types.AutofixResult](p, ctx, config.StageAutofix,
		fmt.Sprintf(user, input.ResumeText, toJSON(input.Analysis), toJSON(input.Score)), system,
		attribute.Int("input.resume_length", len(input.ResumeText)),
		attribute.Int("input.score", input.Score.Overall),
	)
	if err != nil {
		return types.AutofixResult{}, usage, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.changes", len(output.Changes)))
	}
	return output, usage, nil
}

// TailorResume rewrites a base resume for one job
func (p *Provider) TailorResume(ctx context.Context, input types.TailorResumeInput) (types.TailorResumeOutput, *TokenUsage, error) {
	if err := requireText("base resume", input.BaseResume); err != nil {
		return types.TailorResumeOutput{}, nil, err
	}
	if err := requireText("job description", input.JobDescription); err != nil {
		return types.TailorResumeOutput{}, nil, err
	}

	target := "Not specified"
	switch {
	case input.JobTitle != "" && input.Company != "":
		target = input.JobTitle + " at " + input.Company
	case input.JobTitle != "":
		target = input.JobTitle
	case input.Company != "":
		target = input.Company
	}

	system, user := p.prompts(config.StageTailor)
	output, usage, err := executeAIOperation[types.TailorResumeOutput](p, ctx, config.StageTailor,
		fmt.Sprintf(user, input.BaseResume, target, input.JobDescription), system,
		attribute.Int("input.resume_length", len(input.BaseResume)),
		attribute.Int("input.job_length", len(input.JobDescription)),
	)
	if err != nil {
		return types.TailorResumeOutput{}, usage, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(
			attribute.Int("output.tailored_length", len(output.TailoredResume)),
			attribute.Int("ats.score", output.ATSAnalysis.Score),
		)
	}
	return output, usage, nil
}

// ExtractJob pulls structured fields out of a job posting
func (p *Provider) ExtractJob(ctx context.Context, input types.ExtractJobInput) (types.ExtractedJob, *TokenUsage, error) {
	if err := requireText("job description", input.Description); err != nil {
		return types.ExtractedJob{}, nil, err
	}

	system, user := p.prompts(config.StageExtract)
	return executeAIOperation[types.ExtractedJob](p, ctx, config.StageExtract,
		fmt.Sprintf(user, input.Title, input.Company, input.Description), system,
		attribute.Int("input.job_length", len(input.Description)),
	)
}

// EvaluateInterview grades a finished mock interview transcript
func (p *Provider) EvaluateInterview(ctx context.Context, input types.EvaluateInterviewInput) (types.InterviewFeedback, *TokenUsage, error) {
	if err := requireText("transcript", input.Transcript); err != nil {
		return types.InterviewFeedback{}, nil, err
	}

	system, user := p.prompts(config.StageInterview)
	output, usage, err := executeAIOperation[types.InterviewFeedback](p, ctx, config.StageInterview,
		fmt.Sprintf(user, input.Role, input.InterviewType, orPlaceholder(input.ResumeSummary, "Not provided"), input.Transcript), system,
		attribute.String("input.interview_type", input.InterviewType),
		attribute.Int("input.transcript_length", len(input.Transcript)),
	)
	if err != nil {
		return types.InterviewFeedback{}, usage, err
	}

	if span := trace.SpanFromContext(ctx); span.IsRecording() {
		span.SetAttributes(attribute.Int("output.score", output.OverallScore))
	}
	return output, usage, nil
}

// GetModelInfo checks the readiness and availability of the configured model
func (p *Provider) GetModelInfo(ctx context.Context) *ModelInfo {
	checkCtx, cancel := context.WithTimeout(ctx, p.modelCheckTimeout)
	defer cancel()

	info, err := p.modelBreaker.Execute(func() (*ModelInfo, error) {
		return p.backend.ModelInfo(checkCtx)
	})
	if err != nil {
		p.logger.Warn("Model availability check failed",
			"model", p.config.Model,
			"provider", p.backend.Name(),
			"error", err.Error())
		return &ModelInfo{
			Name:     p.config.Model,
			Provider: p.backend.Name(),
			Error:    fmt.Sprintf("Failed to get model info: %v", err),
		}
	}

	p.logger.Debug("Model availability check successful",
		"model", p.config.Model,
		"provider", p.backend.Name(),
		"display_name", info.DisplayName)
	return info
}

// GetCircuitBreakerStats returns circuit breaker statistics
func (p *Provider) GetCircuitBreakerStats() map[string]any {
	return map[string]any{
		"ai_operations":    p.circuitBreaker.GetStats(),
		"model_operations": p.modelBreaker.GetStats(),
		"overall_healthy":  p.circuitBreaker.IsHealthy() && p.modelBreaker.IsHealthy(),
	}
}

// Close implements AIProvider interface
func (p *Provider) Close() error {
	return nil
}
