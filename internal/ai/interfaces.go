package ai

import (
	"context"
	"time"

	"niena/internal/types"
)

// AIProvider runs the structured AI stages. Every call returns token usage; callers can ignore it.
type AIProvider interface {
	ParseResume(ctx context.Context, input types.ParseResumeInput) (types.ParsedResume, *TokenUsage, error)
	AnalyzeResume(ctx context.Context, input types.AnalyzeResumeInput) (types.ResumeAnalysis, *TokenUsage, error)
	ScoreResume(ctx context.Context, input types.ScoreResumeInput) (types.ResumeScore, *TokenUsage, error)
	AutofixResume(ctx context.Context, input types.AutofixResumeInput) (types.AutofixResult, *TokenUsage, error)
	TailorResume(ctx context.Context, input types.TailorResumeInput) (types.TailorResumeOutput, *TokenUsage, error)
	ExtractJob(ctx context.Context, input types.ExtractJobInput) (types.ExtractedJob, *TokenUsage, error)
	EvaluateInterview(ctx context.Context, input types.EvaluateInterviewInput) (types.InterviewFeedback, *TokenUsage, error)
	GetModelInfo(ctx context.Context) *ModelInfo
	Close() error
}

// Embedder turns text into fixed-size vectors for similarity search
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
}

// OperationObserver receives the outcome of every AI call, typically to record metrics
type OperationObserver interface {
	ObserveAIOperation(ctx context.Context, stage string, duration time.Duration, usage *TokenUsage, err error)
}

// TokenUsage represents token usage information from AI responses
type TokenUsage struct {
	InputTokens  int64 `json:"inputTokens"`
	OutputTokens int64 `json:"outputTokens"`
	TotalTokens  int64 `json:"totalTokens"`
}

// Add accumulates other into u. A nil receiver is not allowed; a nil other is ignored.
func (u *TokenUsage) Add(other *TokenUsage) {
	if other == nil {
		return
	}
	u.InputTokens += other.InputTokens
	u.OutputTokens += other.OutputTokens
	u.TotalTokens += other.TotalTokens
}

// ModelInfo represents information about the AI model
type ModelInfo struct {
	Name        string `json:"name"`
	Provider    string `json:"provider"`
	DisplayName string `json:"displayName,omitempty"`
	Version     string `json:"version,omitempty"`
	Available   bool   `json:"available"`
	Error       string `json:"error,omitempty"`
}

// completion is a single raw model answer before decoding
type completion struct {
	Text  string
	Usage *TokenUsage
}

// completionRequest is what a backend needs to produce a JSON answer for one stage
type completionRequest struct {
	Stage        string
	SystemPrompt string
	UserPrompt   string
	Schema       *stageSchema
}

// backend is the provider-specific half of a Provider
type backend interface {
	Complete(ctx context.Context, req completionRequest) (*completion, error)
	ModelInfo(ctx context.Context) (*ModelInfo, error)
	Name() string
}
